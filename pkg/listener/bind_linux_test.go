//go:build linux

package listener

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func tcpOptInt(t *testing.T, ln net.Listener, opt int) int {
	t.Helper()
	rc, err := ln.(*net.TCPListener).SyscallConn()
	require.NoError(t, err)
	var val int
	var gerr error
	require.NoError(t, rc.Control(func(fd uintptr) {
		val, gerr = unix.GetsockoptInt(int(fd), unix.IPPROTO_TCP, opt)
	}))
	require.NoError(t, gerr)
	return val
}

func TestBindInstallsUserTimeout(t *testing.T) {
	reg := New()
	g := newIPGroup(t, "127.0.0.1:0")
	require.NoError(t, reg.Dispatch("tcp-ut", []string{"2000"}, g))

	l := g.Members()[0]
	outcomes, err := NewEngine(reg).BindAll(context.Background(), []*Listener{l})
	require.NoError(t, err)
	out := outcomes[0]
	require.NoError(t, out.Err)
	defer l.Close()

	assert.Empty(t, out.Warnings)
	assert.Equal(t, 2000, tcpOptInt(t, out.Socket, unix.TCP_USER_TIMEOUT))
}

func TestBindInstallsDeferAccept(t *testing.T) {
	reg := New()
	g := newIPGroup(t, "127.0.0.1:0")
	require.NoError(t, reg.Dispatch("defer-accept", nil, g))

	l := g.Members()[0]
	outcomes, err := NewEngine(reg).BindAll(context.Background(), []*Listener{l})
	require.NoError(t, err)
	require.NoError(t, outcomes[0].Err)
	defer l.Close()

	assert.Empty(t, outcomes[0].Warnings)
	assert.Greater(t, tcpOptInt(t, outcomes[0].Socket, unix.TCP_DEFER_ACCEPT), 0)
}

func TestBindBadInterfaceIsWarningOnly(t *testing.T) {
	reg := New()
	g := newIPGroup(t, "127.0.0.1:0")
	require.NoError(t, reg.Dispatch("interface", []string{"no-such-dev0"}, g))

	l := g.Members()[0]
	outcomes, err := NewEngine(reg).BindAll(context.Background(), []*Listener{l})
	require.NoError(t, err)
	out := outcomes[0]
	require.NoError(t, out.Err)
	defer l.Close()

	// SO_BINDTODEVICE fails here (no such device, or no privilege); the
	// listener must still come up, carrying exactly one warning.
	require.Len(t, out.Warnings, 1)
	assert.Equal(t, "interface", out.Warnings[0].Directive)
	assert.Equal(t, StateBound, l.State())
}

func TestReusePortAllowsSecondBind(t *testing.T) {
	reg := New()
	g := newIPGroup(t, "127.0.0.1:0")
	require.NoError(t, reg.Dispatch("reuseport", nil, g))

	first := g.Members()[0]
	outcomes, err := NewEngine(reg).BindAll(context.Background(), []*Listener{first})
	require.NoError(t, err)
	require.NoError(t, outcomes[0].Err)
	defer first.Close()

	g2 := newIPGroup(t, outcomes[0].Socket.Addr().String())
	require.NoError(t, reg.Dispatch("reuseport", nil, g2))
	second := g2.Members()[0]
	outcomes, err = NewEngine(reg).BindAll(context.Background(), []*Listener{second})
	require.NoError(t, err)
	require.NoError(t, outcomes[0].Err)
	defer second.Close()
}
