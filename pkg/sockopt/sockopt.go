// Package sockopt answers which socket-tuning mechanisms exist on the
// running build target and installs them on raw descriptors. Policy about
// what a failed install means belongs to the caller; every setter just
// reports the platform's verdict.
package sockopt

import "errors"

// Capability identifies one platform tuning mechanism.
type Capability int

const (
	// MaxSeg caps the TCP maximum segment size (TCP_MAXSEG).
	MaxSeg Capability = iota
	// BindToDevice pins the socket to a network interface (SO_BINDTODEVICE).
	BindToDevice
	// DeferAccept delays accept wakeup until data arrives (TCP_DEFER_ACCEPT).
	DeferAccept
	// FastOpen enables TCP Fast Open with a pending-request queue (TCP_FASTOPEN).
	FastOpen
	// UserTimeout bounds how long unacked data may stay outstanding (TCP_USER_TIMEOUT).
	UserTimeout
	// ReusePort allows multiple sockets to bind one address (SO_REUSEPORT).
	ReusePort
)

func (c Capability) String() string {
	switch c {
	case MaxSeg:
		return "TCP_MAXSEG"
	case BindToDevice:
		return "SO_BINDTODEVICE"
	case DeferAccept:
		return "TCP_DEFER_ACCEPT"
	case FastOpen:
		return "TCP_FASTOPEN"
	case UserTimeout:
		return "TCP_USER_TIMEOUT"
	case ReusePort:
		return "SO_REUSEPORT"
	}
	return "unknown"
}

// ErrUnsupported is returned by setters when the build target lacks the
// mechanism. Callers normally avoid this by consulting Have first.
var ErrUnsupported = errors.New("socket option not supported on this platform")
