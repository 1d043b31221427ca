package listener

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"tcpfront/pkg/sockopt"
)

type candidate struct {
	cap   sockopt.Capability
	entry *Entry
}

// candidates lists every directive tcpfront knows about, in bind-time apply
// order. New tunables go at the end; the relative order of existing ones is
// a stable contract.
func candidates() []candidate {
	return []candidate{
		{
			cap: sockopt.MaxSeg,
			entry: &Entry{
				Name:  "mss",
				Arity: 1,
				Parse: func(args []string, g *BindGroup) error {
					n, err := strconv.Atoi(args[0])
					if err != nil || n <= 0 || n > 65535 {
						return fmt.Errorf("'mss': expects a segment size in bytes, got %q", args[0])
					}
					g.eachIP(func(l *Listener) { l.Tuning.MaxSeg = n })
					return nil
				},
				Needed: func(l *Listener) bool { return l.Tuning.MaxSeg > 0 },
				Apply: func(l *Listener, fd uintptr) error {
					return sockopt.SetMaxSeg(fd, l.Tuning.MaxSeg)
				},
			},
		},
		{
			cap: sockopt.BindToDevice,
			entry: &Entry{
				Name:  "interface",
				Arity: 1,
				Parse: func(args []string, g *BindGroup) error {
					if args[0] == "" {
						return fmt.Errorf("'interface': expects an interface name")
					}
					g.eachIP(func(l *Listener) { l.Tuning.Device = args[0] })
					return nil
				},
				Needed: func(l *Listener) bool { return l.Tuning.Device != "" },
				Apply: func(l *Listener, fd uintptr) error {
					return sockopt.SetBindToDevice(fd, l.Tuning.Device)
				},
			},
		},
		{
			cap: sockopt.DeferAccept,
			entry: &Entry{
				Name:  "defer-accept",
				Arity: 0,
				Parse: func(_ []string, g *BindGroup) error {
					g.eachIP(func(l *Listener) { l.Tuning.DeferAccept = true })
					return nil
				},
				Needed: func(l *Listener) bool { return l.Tuning.DeferAccept },
				Apply: func(l *Listener, fd uintptr) error {
					return sockopt.SetDeferAccept(fd)
				},
			},
		},
		{
			cap: sockopt.FastOpen,
			entry: &Entry{
				Name:  "tfo",
				Arity: 1,
				Parse: func(args []string, g *BindGroup) error {
					n, err := strconv.Atoi(args[0])
					if err != nil || n <= 0 {
						return fmt.Errorf("'tfo': expects a positive queue length, got %q", args[0])
					}
					g.eachIP(func(l *Listener) { l.Tuning.FastOpenQlen = n })
					return nil
				},
				Needed: func(l *Listener) bool { return l.Tuning.FastOpenQlen > 0 },
				Apply: func(l *Listener, fd uintptr) error {
					return sockopt.SetFastOpen(fd, l.Tuning.FastOpenQlen)
				},
			},
		},
		{
			cap: sockopt.UserTimeout,
			entry: &Entry{
				Name:  "tcp-ut",
				Arity: 1,
				Parse: func(args []string, g *BindGroup) error {
					d, err := parseDelay(args[0])
					if err != nil {
						return fmt.Errorf("'tcp-ut': expects a positive delay in milliseconds, got %q", args[0])
					}
					// Zero is stored as-is: same representation as never
					// configured, so apply is skipped.
					g.eachIP(func(l *Listener) { l.Tuning.UserTimeout = d })
					return nil
				},
				Needed: func(l *Listener) bool { return l.Tuning.UserTimeout > 0 },
				Apply: func(l *Listener, fd uintptr) error {
					return sockopt.SetUserTimeout(fd, int(l.Tuning.UserTimeout.Milliseconds()))
				},
			},
		},
		{
			cap: sockopt.ReusePort,
			entry: &Entry{
				Name:  "reuseport",
				Arity: 0,
				Parse: func(_ []string, g *BindGroup) error {
					g.eachIP(func(l *Listener) { l.Tuning.ReusePort = true })
					return nil
				},
				Needed: func(l *Listener) bool { return l.Tuning.ReusePort },
				Apply: func(l *Listener, fd uintptr) error {
					return sockopt.SetReusePort(fd)
				},
			},
		},
	}
}

var delayUnits = map[string]time.Duration{
	"us": time.Microsecond,
	"ms": time.Millisecond,
	"s":  time.Second,
	"m":  time.Minute,
	"h":  time.Hour,
	"d":  24 * time.Hour,
}

// parseDelay parses a non-negative integer delay with an optional unit
// suffix. The default unit is milliseconds.
func parseDelay(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("empty delay")
	}
	unit := time.Millisecond
	digits := s
	if i := strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }); i >= 0 {
		u, ok := delayUnits[s[i:]]
		if !ok {
			return 0, fmt.Errorf("bad delay %q", s)
		}
		unit = u
		digits = s[:i]
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("bad delay %q", s)
	}
	return time.Duration(n) * unit, nil
}
