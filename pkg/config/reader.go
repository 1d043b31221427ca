package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/multierr"

	"tcpfront/pkg/listener"
	"tcpfront/pkg/proxy"
)

// LoadFrontends reads a proxy configuration file and dispatches its
// directives through the registry.
func LoadFrontends(path string, reg *listener.Registry) ([]*proxy.Frontend, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open configuration: %w", err)
	}
	defer f.Close()
	return ParseFrontends(f, path, reg)
}

// ParseFrontends parses the proxy grammar:
//
//	listen <name> <address> [<address> ...]
//	  <directive> [<arg>]
//	  server <name> <addr:port>
//
// Every problem found is collected so one pass reports the whole file; the
// combined error is non-nil if anything was fatal, and no frontends are
// returned in that case.
func ParseFrontends(r io.Reader, name string, reg *listener.Registry) ([]*proxy.Frontend, error) {
	var (
		frontends []*proxy.Frontend
		cur       *proxy.Frontend
		errs      error
		lineno    int
	)
	fail := func(format string, args ...interface{}) {
		errs = multierr.Append(errs, fmt.Errorf("%s:%d: %s", name, lineno, fmt.Sprintf(format, args...)))
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineno++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "listen":
			if cur != nil {
				cur.Group.Finalize()
			}
			if len(fields) < 3 {
				cur = nil
				fail("'listen' expects a name and at least one address")
				continue
			}
			cur = proxy.NewFrontend(fields[1])
			frontends = append(frontends, cur)
			for _, spec := range fields[2:] {
				l, err := listener.NewListener(cur.Name, spec)
				if err != nil {
					fail("%v", err)
					continue
				}
				if err := cur.Group.Add(l); err != nil {
					fail("%v", err)
				}
			}

		case "server":
			if cur == nil {
				fail("'server' outside a listen section")
				continue
			}
			if len(fields) != 3 {
				fail("'server' expects a name and an address")
				continue
			}
			if err := cur.AddBackend(fields[1], fields[2]); err != nil {
				fail("%v", err)
			}

		default:
			if cur == nil {
				fail("directive '%s' outside a listen section", fields[0])
				continue
			}
			if err := reg.Dispatch(fields[0], fields[1:], cur.Group); err != nil {
				fail("%v", err)
			}
		}
	}
	if cur != nil {
		cur.Group.Finalize()
	}
	if err := scanner.Err(); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("%s: %w", name, err))
	}

	if errs != nil {
		return nil, errs
	}
	return frontends, nil
}
