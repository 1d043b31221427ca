package proxy

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"tcpfront/pkg/logging"
)

const defaultDialTimeout = 5 * time.Second

// Metrics holds the traffic counters for one proxy. Fields are updated with
// atomics from connection goroutines; read them through Snapshot.
type Metrics struct {
	Accepted   uint64
	Active     int64
	DialErrors uint64
	BytesIn    uint64 // backend -> client
	BytesOut   uint64 // client -> backend
}

// MetricsSnapshot is a consistent-enough copy of the counters.
type MetricsSnapshot struct {
	Accepted   uint64
	Active     int64
	DialErrors uint64
	BytesIn    uint64
	BytesOut   uint64
}

// Proxy relays connections accepted on one bound socket to the owning
// frontend's backends.
type Proxy struct {
	fe          *Frontend
	ln          net.Listener
	dialTimeout time.Duration
	metrics     Metrics
	log         *logrus.Entry
}

// New wraps an already-bound socket. The listener stays owned by the caller
// for shutdown purposes; Serve also closes it when the context ends.
func New(fe *Frontend, ln net.Listener) *Proxy {
	return &Proxy{
		fe:          fe,
		ln:          ln,
		dialTimeout: defaultDialTimeout,
		log: logging.Component("proxy").WithFields(logrus.Fields{
			"frontend": fe.Name,
			"listener": ln.Addr().String(),
		}),
	}
}

// Serve accepts until the context is cancelled or the listener is closed.
func (p *Proxy) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = p.ln.Close()
	}()

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		conn, err := p.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			p.log.Warnf("accept: %v", err)
			time.Sleep(100 * time.Millisecond)
			continue
		}
		atomic.AddUint64(&p.metrics.Accepted, 1)
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.relay(conn)
		}()
	}
}

// Snapshot returns the current counter values.
func (p *Proxy) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Accepted:   atomic.LoadUint64(&p.metrics.Accepted),
		Active:     atomic.LoadInt64(&p.metrics.Active),
		DialErrors: atomic.LoadUint64(&p.metrics.DialErrors),
		BytesIn:    atomic.LoadUint64(&p.metrics.BytesIn),
		BytesOut:   atomic.LoadUint64(&p.metrics.BytesOut),
	}
}

func (p *Proxy) relay(client net.Conn) {
	defer client.Close()

	backend, err := p.fe.pick()
	if err != nil {
		atomic.AddUint64(&p.metrics.DialErrors, 1)
		p.log.Warnf("relay: %v", err)
		return
	}

	server, err := net.DialTimeout("tcp", backend.Addr, p.dialTimeout)
	if err != nil {
		atomic.AddUint64(&p.metrics.DialErrors, 1)
		p.log.WithField("backend", backend.Name).Warnf("dial: %v", err)
		return
	}
	defer server.Close()

	atomic.AddInt64(&p.metrics.Active, 1)
	defer atomic.AddInt64(&p.metrics.Active, -1)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		n, _ := io.Copy(server, client)
		atomic.AddUint64(&p.metrics.BytesOut, uint64(n))
		closeWrite(server)
	}()
	go func() {
		defer wg.Done()
		n, _ := io.Copy(client, server)
		atomic.AddUint64(&p.metrics.BytesIn, uint64(n))
		closeWrite(client)
	}()
	wg.Wait()
}

// closeWrite half-closes the write side so the peer sees EOF while the
// opposite direction can still drain.
func closeWrite(c net.Conn) {
	switch t := c.(type) {
	case *net.TCPConn:
		_ = t.CloseWrite()
	case *net.UnixConn:
		_ = t.CloseWrite()
	default:
		_ = t.Close()
	}
}

// ReportLoop periodically logs a counter snapshot for each proxy until the
// context ends.
func ReportLoop(ctx context.Context, interval time.Duration, proxies []*Proxy) {
	if interval <= 0 {
		return
	}
	tick := time.NewTicker(interval)
	defer tick.Stop()
	log := logging.Component("stats")
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			for _, p := range proxies {
				s := p.Snapshot()
				log.WithFields(logrus.Fields{
					"frontend":    p.fe.Name,
					"listener":    p.ln.Addr().String(),
					"accepted":    s.Accepted,
					"active":      s.Active,
					"dial_errors": s.DialErrors,
					"bytes_in":    s.BytesIn,
					"bytes_out":   s.BytesOut,
				}).Info("traffic")
			}
		}
	}
}
