// Package conditional holds the named routing predicates that conditional
// edges dispatch through. A configuration refers to predicates by name; the
// compiler looks them up on a Logic at build time and the validator checks
// that the names exist.
package conditional

import (
	"sort"
	"sync"

	"trpc.group/trpc-go/trpc-agent-go/graph"
)

// Logic resolves predicate names to routing functions.
type Logic interface {
	Predicate(name string) (graph.ConditionalFunc, bool)
}

// Set is a Logic backed by a name -> predicate table. It is safe for
// concurrent use.
type Set struct {
	mu    sync.RWMutex
	funcs map[string]graph.ConditionalFunc
}

var _ Logic = (*Set)(nil)

// NewSet returns an empty predicate set.
func NewSet() *Set {
	return &Set{funcs: make(map[string]graph.ConditionalFunc)}
}

// Register adds or replaces the predicate under name and returns the set.
func (s *Set) Register(name string, fn graph.ConditionalFunc) *Set {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.funcs[name] = fn
	return s
}

// Predicate returns the predicate registered under name. A nil function
// counts as absent.
func (s *Set) Predicate(name string) (graph.ConditionalFunc, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn, ok := s.funcs[name]
	return fn, ok && fn != nil
}

// Names returns the registered predicate names in sorted order.
func (s *Set) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.funcs))
	for name := range s.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Func adapts a plain function to Logic.
type Func func(name string) (graph.ConditionalFunc, bool)

// Predicate calls f.
func (f Func) Predicate(name string) (graph.ConditionalFunc, bool) {
	return f(name)
}
