//go:build linux

package sockopt

import (
	"os"

	"golang.org/x/sys/unix"
)

// Have reports whether the capability exists on this build target. All six
// mechanisms have been in mainline kernels since 3.9, which is older than
// anything this proxy targets.
func Have(Capability) bool {
	return true
}

// SetMaxSeg caps the MSS advertised on connections accepted through fd.
func SetMaxSeg(fd uintptr, mss int) error {
	return setErr(unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_MAXSEG, mss))
}

// SetBindToDevice restricts the socket to one network interface.
func SetBindToDevice(fd uintptr, device string) error {
	return setErr(unix.SetsockoptString(int(fd), unix.SOL_SOCKET, unix.SO_BINDTODEVICE, device))
}

// SetDeferAccept keeps the accepting process asleep until the first data
// segment arrives on a new connection.
func SetDeferAccept(fd uintptr) error {
	return setErr(unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_DEFER_ACCEPT, 1))
}

// SetFastOpen enables TFO on the listening socket with the given maximum
// number of pending fast-open requests.
func SetFastOpen(fd uintptr, qlen int) error {
	return setErr(unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_FASTOPEN, qlen))
}

// SetUserTimeout bounds, in milliseconds, how long transmitted data may
// remain unacknowledged before the kernel drops the connection. Accepted
// sockets inherit the value from the listener.
func SetUserTimeout(fd uintptr, ms int) error {
	return setErr(unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_USER_TIMEOUT, ms))
}

// SetReusePort lets several listeners share one address, one per process or
// thread, with the kernel spreading accepts between them.
func SetReusePort(fd uintptr) error {
	return setErr(unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1))
}

func setErr(err error) error {
	if err != nil {
		return os.NewSyscallError("setsockopt", err)
	}
	return nil
}
