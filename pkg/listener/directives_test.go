package listener

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDelay(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"500", 500 * time.Millisecond},
		{"0", 0},
		{"250us", 250 * time.Microsecond},
		{"2000ms", 2 * time.Second},
		{"2s", 2 * time.Second},
		{"3m", 3 * time.Minute},
		{"1h", time.Hour},
		{"1d", 24 * time.Hour},
	}
	for _, c := range cases {
		got, err := parseDelay(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got, c.in)
	}

	for _, in := range []string{"", "-5", "abc", "5x", "ms", "1.5s", " 5"} {
		_, err := parseDelay(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestUserTimeoutAppliesToIPMembersOnly(t *testing.T) {
	reg := fullRegistry()
	g := newIPGroup(t, "10.0.0.1:8443", "10.0.0.2:8443", "unix@/tmp/fe.sock")

	require.NoError(t, reg.Dispatch("tcp-ut", []string{"500"}, g))

	members := g.Members()
	assert.Equal(t, 500*time.Millisecond, members[0].Tuning.UserTimeout)
	assert.Equal(t, 500*time.Millisecond, members[1].Tuning.UserTimeout)
	assert.Zero(t, members[2].Tuning.UserTimeout)
}

func TestUserTimeoutBadValuesMutateNothing(t *testing.T) {
	reg := fullRegistry()
	for _, args := range [][]string{nil, {"-5"}, {"abc"}} {
		g := newIPGroup(t, "10.0.0.1:8443", "[::1]:8443")

		err := reg.Dispatch("tcp-ut", args, g)
		require.Error(t, err, "args %v", args)
		for _, l := range g.Members() {
			assert.Zero(t, l.Tuning.UserTimeout, "args %v", args)
			assert.Equal(t, StateDeclared, l.State(), "args %v", args)
		}
	}
}

func TestUserTimeoutLastWriteWins(t *testing.T) {
	reg := fullRegistry()
	g := newIPGroup(t, "10.0.0.1:8443", "10.0.0.2:8443")

	require.NoError(t, reg.Dispatch("tcp-ut", []string{"100"}, g))
	require.NoError(t, reg.Dispatch("tcp-ut", []string{"200"}, g))

	for _, l := range g.Members() {
		assert.Equal(t, 200*time.Millisecond, l.Tuning.UserTimeout)
		assert.Equal(t, StateConfigured, l.State())
	}
}

func TestUserTimeoutZeroMeansUnset(t *testing.T) {
	reg := fullRegistry()
	g := newIPGroup(t, "10.0.0.1:8443")

	require.NoError(t, reg.Dispatch("tcp-ut", []string{"0"}, g))

	e, ok := reg.Lookup("tcp-ut")
	require.True(t, ok)
	assert.False(t, e.Needed(g.Members()[0]))
}

func TestMSSValidation(t *testing.T) {
	reg := fullRegistry()
	g := newIPGroup(t, "10.0.0.1:8443")

	require.NoError(t, reg.Dispatch("mss", []string{"1400"}, g))
	assert.Equal(t, 1400, g.Members()[0].Tuning.MaxSeg)

	for _, bad := range []string{"0", "-1", "70000", "big"} {
		assert.Error(t, reg.Dispatch("mss", []string{bad}, g), bad)
	}
	// Failed parses must not have clobbered the stored value.
	assert.Equal(t, 1400, g.Members()[0].Tuning.MaxSeg)
}

func TestFlagDirectives(t *testing.T) {
	reg := fullRegistry()
	g := newIPGroup(t, "10.0.0.1:8443", "unix@/tmp/fe.sock")

	require.NoError(t, reg.Dispatch("defer-accept", nil, g))
	require.NoError(t, reg.Dispatch("reuseport", nil, g))

	ip, unix := g.Members()[0], g.Members()[1]
	assert.True(t, ip.Tuning.DeferAccept)
	assert.True(t, ip.Tuning.ReusePort)
	assert.False(t, unix.Tuning.DeferAccept)
	assert.False(t, unix.Tuning.ReusePort)
}

func TestInterfaceAndTFO(t *testing.T) {
	reg := fullRegistry()
	g := newIPGroup(t, "10.0.0.1:8443")

	require.NoError(t, reg.Dispatch("interface", []string{"eth0"}, g))
	require.NoError(t, reg.Dispatch("tfo", []string{"256"}, g))

	l := g.Members()[0]
	assert.Equal(t, "eth0", l.Tuning.Device)
	assert.Equal(t, 256, l.Tuning.FastOpenQlen)

	assert.Error(t, reg.Dispatch("tfo", []string{"0"}, g))
	assert.Error(t, reg.Dispatch("tfo", []string{"-4"}, g))
}
