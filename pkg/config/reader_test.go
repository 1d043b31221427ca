package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"tcpfront/pkg/listener"
)

func TestParseFrontendsStructure(t *testing.T) {
	cfg := `
# edge tier
listen web 10.0.0.1:8443 unix@/run/web.sock
  server app1 192.168.0.10:8080
  server app2 192.168.0.11:8080

listen admin 127.0.0.1:9000
  server panel 192.168.0.20:9000  # only one
`
	fes, err := ParseFrontends(strings.NewReader(cfg), "test.cfg", listener.New())
	require.NoError(t, err)
	require.Len(t, fes, 2)

	web := fes[0]
	assert.Equal(t, "web", web.Name)
	require.Len(t, web.Group.Members(), 2)
	assert.Equal(t, listener.FamilyIPv4, web.Group.Members()[0].Family)
	assert.Equal(t, listener.FamilyUnix, web.Group.Members()[1].Family)
	assert.True(t, web.Group.Finalized())
	require.Len(t, web.Backends(), 2)
	assert.Equal(t, "app1", web.Backends()[0].Name)

	admin := fes[1]
	assert.Equal(t, "admin", admin.Name)
	assert.True(t, admin.Group.Finalized())
	assert.Len(t, admin.Backends(), 1)
}

func TestParseFrontendsCollectsAllErrors(t *testing.T) {
	cfg := `
nagle-off
listen web 10.0.0.1:8443
  nagle-off
  server app1 192.168.0.10
listen broken
`
	_, err := ParseFrontends(strings.NewReader(cfg), "test.cfg", listener.New())
	require.Error(t, err)

	errs := multierr.Errors(err)
	require.Len(t, errs, 4)
	assert.Contains(t, errs[0].Error(), "test.cfg:2")
	assert.Contains(t, errs[0].Error(), "outside a listen section")
	assert.Contains(t, errs[1].Error(), `unknown directive "nagle-off"`)
	assert.Contains(t, errs[2].Error(), "invalid address")
	assert.Contains(t, errs[3].Error(), "'listen' expects")
}

func TestParseFrontendsBadAddressReported(t *testing.T) {
	cfg := "listen web 10.0.0.1:99999\n"
	_, err := ParseFrontends(strings.NewReader(cfg), "test.cfg", listener.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "test.cfg:1")
	assert.Contains(t, err.Error(), "bad port")
}

func TestParseFrontendsEmptyInput(t *testing.T) {
	fes, err := ParseFrontends(strings.NewReader("\n# nothing here\n"), "empty.cfg", listener.New())
	require.NoError(t, err)
	assert.Empty(t, fes)
}
