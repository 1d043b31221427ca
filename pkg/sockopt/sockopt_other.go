//go:build !linux

package sockopt

// Non-linux targets get none of the tuning mechanisms; the directive
// registry then omits the corresponding keywords entirely, so configurations
// using them fail loudly at parse time instead of binding without the
// requested behavior.

func Have(Capability) bool {
	return false
}

func SetMaxSeg(uintptr, int) error { return ErrUnsupported }
func SetBindToDevice(uintptr, string) error { return ErrUnsupported }
func SetDeferAccept(uintptr) error { return ErrUnsupported }
func SetFastOpen(uintptr, int) error { return ErrUnsupported }
func SetUserTimeout(uintptr, int) error { return ErrUnsupported }
func SetReusePort(uintptr) error { return ErrUnsupported }
