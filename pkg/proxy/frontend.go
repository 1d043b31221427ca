// Package proxy is the minimal data path consuming sockets bound by the
// listener engine: per-frontend backend pools, round-robin forwarding and
// traffic counters.
package proxy

import (
	"fmt"
	"net"
	"sync/atomic"

	"tcpfront/pkg/listener"
)

// Backend is one forwarding target of a frontend.
type Backend struct {
	Name string
	Addr string
}

// Frontend ties one bind group to the backends its connections are relayed
// to. Listeners and backends are both kept in declaration order.
type Frontend struct {
	Name  string
	Group *listener.BindGroup

	backends []Backend
	next     uint32
}

// NewFrontend returns a frontend with an open bind group.
func NewFrontend(name string) *Frontend {
	return &Frontend{Name: name, Group: listener.NewBindGroup()}
}

// AddBackend appends a forwarding target declared by a server line.
func (f *Frontend) AddBackend(name, addr string) error {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("server %q: invalid address %q: %w", name, addr, err)
	}
	f.backends = append(f.backends, Backend{Name: name, Addr: addr})
	return nil
}

// Backends returns the forwarding targets in declaration order.
func (f *Frontend) Backends() []Backend {
	return f.backends
}

// pick returns the next backend, rotating round-robin.
func (f *Frontend) pick() (Backend, error) {
	if len(f.backends) == 0 {
		return Backend{}, fmt.Errorf("frontend %q has no backends", f.Name)
	}
	n := atomic.AddUint32(&f.next, 1)
	return f.backends[(n-1)%uint32(len(f.backends))], nil
}
