package listener

import (
	"fmt"
	"sort"

	"tcpfront/pkg/sockopt"
)

// ParseFunc validates directive arguments and stores the resolved value on
// every compatible member of the group. It must be idempotent: repeating a
// directive overwrites the earlier value (last write wins).
type ParseFunc func(args []string, group *BindGroup) error

// ApplyFunc installs a resolved value on a raw socket descriptor at bind
// time. It is only invoked for listeners where the directive's field is set.
type ApplyFunc func(l *Listener, fd uintptr) error

// Entry describes one registered directive.
type Entry struct {
	Name  string
	Arity int
	Parse ParseFunc
	// Needed reports whether the listener carries a non-default value for
	// this directive's field; Apply runs only when it does.
	Needed func(*Listener) bool
	Apply  ApplyFunc
}

// UnknownDirectiveError is returned by Dispatch for keywords that are not in
// the registry, including keywords whose platform mechanism is missing from
// the running build (those are never registered at all).
type UnknownDirectiveError struct {
	Name string
}

func (e *UnknownDirectiveError) Error() string {
	return fmt.Sprintf("unknown directive %q", e.Name)
}

// Registry is the ordered directive table. It is built once at startup and
// read-only afterwards; the registration order doubles as the bind-time
// apply order, so new directives are always appended at the tail.
type Registry struct {
	order  []*Entry
	byName map[string]*Entry
}

// New builds the registry for the running platform: each candidate directive
// is included iff its capability predicate holds, so dispatch never needs a
// platform branch.
func New() *Registry {
	var entries []*Entry
	for _, c := range candidates() {
		if sockopt.Have(c.cap) {
			entries = append(entries, c.entry)
		}
	}
	return newRegistry(entries)
}

func newRegistry(entries []*Entry) *Registry {
	r := &Registry{byName: make(map[string]*Entry, len(entries))}
	for _, e := range entries {
		if _, dup := r.byName[e.Name]; dup {
			panic("duplicate directive " + e.Name)
		}
		r.order = append(r.order, e)
		r.byName[e.Name] = e
	}
	return r
}

// Lookup returns the entry for an exact-match directive name.
func (r *Registry) Lookup(name string) (*Entry, bool) {
	e, ok := r.byName[name]
	return e, ok
}

// Entries returns the directives in registration order, which is also the
// order the bind engine applies them in.
func (r *Registry) Entries() []*Entry {
	return r.order
}

// Names returns the registered directive names, sorted for stable
// operator-facing output.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.order))
	for _, e := range r.order {
		names = append(names, e.Name)
	}
	sort.Strings(names)
	return names
}

// Dispatch routes one configuration line to its directive handler. Every
// returned error is fatal severity: unknown keyword, bad arity, or a parse
// failure from the handler itself.
func (r *Registry) Dispatch(name string, args []string, group *BindGroup) error {
	if group.Finalized() {
		return fmt.Errorf("'%s': bind group scope is already closed", name)
	}
	e, ok := r.Lookup(name)
	if !ok {
		return &UnknownDirectiveError{Name: name}
	}
	switch {
	case len(args) < e.Arity:
		return fmt.Errorf("'%s': missing value", e.Name)
	case len(args) > e.Arity:
		return fmt.Errorf("'%s': expects %d argument(s), got %d", e.Name, e.Arity, len(args))
	}
	return e.Parse(args, group)
}
