package listener

import (
	"context"
	"fmt"
	"net"
	"syscall"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"tcpfront/pkg/logging"
)

// Outcome is the bind result for one listener: a live socket plus any
// tuning warnings, or a fatal error.
type Outcome struct {
	Listener *Listener
	Socket   net.Listener // nil when Err is set
	Warnings []Record
	Err      error
}

// Engine binds configured listeners. Socket creation and address binding
// failures are fatal; a tuning option the platform refuses to install only
// produces a warning and the remaining options are still applied.
type Engine struct {
	reg *Registry
	log *logrus.Entry
}

// NewEngine returns an engine applying the registry's directives in
// registration order.
func NewEngine(reg *Registry) *Engine {
	return &Engine{reg: reg, log: logging.Component("bind")}
}

// BindAll binds every listener in declaration order and returns one outcome
// per listener, plus the combined fatal error if any listener failed. All
// listeners are attempted even after a failure so the operator sees every
// problem in one pass.
func (e *Engine) BindAll(ctx context.Context, listeners []*Listener) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(listeners))
	var fatal error
	for _, l := range listeners {
		out := e.bind(ctx, l)
		if out.Err != nil {
			fatal = multierr.Append(fatal, out.Err)
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, fatal
}

func (e *Engine) bind(ctx context.Context, l *Listener) Outcome {
	out := Outcome{Listener: l}

	var warns []Record
	lc := net.ListenConfig{
		// Control runs after the socket exists and before it is bound, which
		// is exactly the window the tuning sequence needs.
		Control: func(network, address string, c syscall.RawConn) error {
			if !l.Family.IsIP() {
				e.log.WithFields(logrus.Fields{"listener": l.String()}).
					Debug("non-IP listener, TCP-level tuning skipped")
				return nil
			}
			return c.Control(func(fd uintptr) {
				for _, entry := range e.reg.Entries() {
					if entry.Apply == nil || entry.Needed == nil || !entry.Needed(l) {
						continue
					}
					if err := entry.Apply(l, fd); err != nil {
						rec := Record{
							Severity:  SeverityWarning,
							Directive: entry.Name,
							Listener:  l.String(),
							Message:   fmt.Sprintf("cannot install: %v", err),
						}
						warns = append(warns, rec)
						e.log.WithFields(logrus.Fields{
							"listener":  l.String(),
							"directive": entry.Name,
						}).Warnf("tuning not applied: %v", err)
					}
				}
			})
		},
	}

	ln, err := lc.Listen(ctx, l.Network, l.Address)
	if err != nil {
		l.state = StateFailed
		out.Err = fmt.Errorf("binding [%s]: %w", l.String(), err)
		return out
	}

	l.state = StateBound
	l.ln = ln
	out.Socket = ln
	out.Warnings = warns
	e.log.WithFields(logrus.Fields{
		"listener": l.String(),
		"warnings": len(warns),
	}).Info("listener bound")
	return out
}
