// Package listener implements the socket-binding core of tcpfront: the
// directive registry that maps configuration keywords to socket tuning, the
// listener and bind-group data model those directives target, and the bind
// engine that turns configured listeners into live sockets.
package listener

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Family is the address family of a listener.
type Family int

const (
	FamilyIPv4 Family = iota
	FamilyIPv6
	FamilyUnix
)

func (f Family) String() string {
	switch f {
	case FamilyIPv4:
		return "ipv4"
	case FamilyIPv6:
		return "ipv6"
	case FamilyUnix:
		return "unix"
	}
	return "unknown"
}

// IsIP reports whether TCP-level tuning directives apply to this family.
func (f Family) IsIP() bool {
	return f == FamilyIPv4 || f == FamilyIPv6
}

// State tracks a listener through its lifecycle. Transitions only move
// forward: Declared -> Configured -> Bound or Failed -> Closed.
type State int

const (
	StateDeclared State = iota
	StateConfigured
	StateBound
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDeclared:
		return "declared"
	case StateConfigured:
		return "configured"
	case StateBound:
		return "bound"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Tuning holds the resolved value of every known tuning directive for one
// listener. The zero value of each field means "unset, use the platform
// default"; parse handlers only ever store validated values here.
type Tuning struct {
	MaxSeg       int           // advertised MSS ceiling, bytes
	Device       string        // interface name for SO_BINDTODEVICE
	DeferAccept  bool          // delay accept wakeup until first data
	FastOpenQlen int           // TFO pending-request queue length
	UserTimeout  time.Duration // max time unacked data may stay outstanding
	ReusePort    bool          // share the address between listeners
}

// Listener is one configured listening socket. It is created when a bind
// address is parsed, populated by directives targeting its group, and handed
// to the data path once bound. After the bind phase nothing mutates it.
type Listener struct {
	Frontend string // owning frontend, informational only
	Network  string // "tcp4", "tcp6" or "unix"
	Address  string // host:port, or socket path for unix
	Family   Family
	Tuning   Tuning

	state State
	ln    net.Listener
}

// NewListener parses an address spec from a listen statement. Accepted
// forms: "host:port", ":port" (wildcard, IPv4), "[v6]:port" and
// "unix@/path".
func NewListener(frontend, spec string) (*Listener, error) {
	if path, ok := strings.CutPrefix(spec, "unix@"); ok {
		if path == "" {
			return nil, fmt.Errorf("invalid address %q: empty unix socket path", spec)
		}
		return &Listener{
			Frontend: frontend,
			Network:  "unix",
			Address:  path,
			Family:   FamilyUnix,
		}, nil
	}

	host, port, err := net.SplitHostPort(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid address %q: %w", spec, err)
	}
	if n, err := strconv.Atoi(port); err != nil || n < 0 || n > 65535 {
		return nil, fmt.Errorf("invalid address %q: bad port %q", spec, port)
	}

	family, network := FamilyIPv4, "tcp4"
	if ip := net.ParseIP(host); ip != nil && ip.To4() == nil {
		family, network = FamilyIPv6, "tcp6"
	}
	return &Listener{
		Frontend: frontend,
		Network:  network,
		Address:  spec,
		Family:   family,
	}, nil
}

// State returns the lifecycle state.
func (l *Listener) State() State {
	return l.state
}

// Socket returns the live socket once the listener is Bound, nil otherwise.
func (l *Listener) Socket() net.Listener {
	return l.ln
}

// Close releases the bound socket, if any, and marks the listener Closed.
func (l *Listener) Close() error {
	l.state = StateClosed
	if l.ln == nil {
		return nil
	}
	err := l.ln.Close()
	l.ln = nil
	return err
}

func (l *Listener) String() string {
	if l.Family == FamilyUnix {
		return "unix@" + l.Address
	}
	return l.Address
}

// BindGroup is the ordered set of listeners declared by one listen
// statement. Directives under the statement target the whole group; once the
// scope closes the group is finalized and rejects further mutation.
type BindGroup struct {
	members   []*Listener
	finalized bool
}

// NewBindGroup returns an empty, open group.
func NewBindGroup() *BindGroup {
	return &BindGroup{}
}

// Add appends a listener to the group.
func (g *BindGroup) Add(l *Listener) error {
	if g.finalized {
		return fmt.Errorf("bind group is finalized")
	}
	g.members = append(g.members, l)
	return nil
}

// Finalize closes the group to further directives. Called when the
// configuration scope that declared it ends.
func (g *BindGroup) Finalize() {
	g.finalized = true
}

// Finalized reports whether the group still accepts directives.
func (g *BindGroup) Finalized() bool {
	return g.finalized
}

// Members returns the listeners in declaration order.
func (g *BindGroup) Members() []*Listener {
	return g.members
}

// eachIP runs fn on every member whose family supports TCP-level tuning.
// Unix-socket members are skipped, which is the contract for every current
// directive: the directive simply does not exist for them.
func (g *BindGroup) eachIP(fn func(*Listener)) {
	for _, l := range g.members {
		if !l.Family.IsIP() {
			continue
		}
		fn(l)
		if l.state == StateDeclared {
			l.state = StateConfigured
		}
	}
}
