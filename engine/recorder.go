package engine

import (
	"context"
	"fmt"
	"sort"

	"trpc.group/trpc-go/trpc-agent-go/graph"
)

// Blueprint is a compiled graph in inspectable form. Nodes and transitions
// keep registration order.
type Blueprint struct {
	Nodes        []string      `json:"nodes"`
	Edges        []Edge        `json:"edges"`
	Conditionals []Conditional `json:"conditionals,omitempty"`

	funcs    map[string]graph.NodeFunc
	branches map[string]graph.ConditionalFunc
}

// Edge is a direct transition.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Conditional is a predicate-dispatched transition.
type Conditional struct {
	From    string            `json:"from"`
	PathMap map[string]string `json:"path_map"`
}

// Targets returns the distinct targets of the conditional in sorted order.
func (c Conditional) Targets() []string {
	seen := make(map[string]struct{}, len(c.PathMap))
	var out []string
	for _, to := range c.PathMap {
		if _, ok := seen[to]; ok {
			continue
		}
		seen[to] = struct{}{}
		out = append(out, to)
	}
	sort.Strings(out)
	return out
}

// HasNode reports whether name is registered.
func (b *Blueprint) HasNode(name string) bool {
	_, ok := b.funcs[name]
	return ok
}

// Node returns the function registered under name.
func (b *Blueprint) Node(name string) (graph.NodeFunc, bool) {
	fn, ok := b.funcs[name]
	return fn, ok
}

// Conditional returns the conditional transition leaving from.
func (b *Blueprint) Conditional(from string) (Conditional, bool) {
	for _, c := range b.Conditionals {
		if c.From == from {
			return c, true
		}
	}
	return Conditional{}, false
}

// Route evaluates the conditional leaving from against state and returns
// the node it dispatches to.
func (b *Blueprint) Route(ctx context.Context, from string, state graph.State) (string, error) {
	cond, ok := b.branches[from]
	if !ok {
		return "", fmt.Errorf("no conditional transition from %q", from)
	}
	c, _ := b.Conditional(from)
	result, err := cond(ctx, state)
	if err != nil {
		return "", fmt.Errorf("evaluating conditional from %q: %w", from, err)
	}
	to, ok := c.PathMap[result]
	if !ok {
		return "", fmt.Errorf("conditional from %q returned unmapped result %q", from, result)
	}
	return to, nil
}

// Transitions returns the number of direct and conditional transitions.
func (b *Blueprint) Transitions() int {
	return len(b.Edges) + len(b.Conditionals)
}

// EdgeSet returns every direct edge and every conditional route as
// "from->to" strings, sorted, for comparing two blueprints.
func (b *Blueprint) EdgeSet() []string {
	var out []string
	for _, e := range b.Edges {
		out = append(out, e.From+"->"+e.To)
	}
	for _, c := range b.Conditionals {
		for result, to := range c.PathMap {
			out = append(out, c.From+"-["+result+"]->"+to)
		}
	}
	sort.Strings(out)
	return out
}

// Recorder is a Builder that produces a Blueprint.
type Recorder struct {
	bp    *Blueprint
	nodes nodeSet
}

var _ Builder[*Blueprint] = (*Recorder)(nil)

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		bp: &Blueprint{
			funcs:    make(map[string]graph.NodeFunc),
			branches: make(map[string]graph.ConditionalFunc),
		},
		nodes: newNodeSet(),
	}
}

// AddNode registers fn under name.
func (r *Recorder) AddNode(name string, fn graph.NodeFunc) error {
	if err := r.nodes.addNode(name, fn); err != nil {
		return err
	}
	r.bp.Nodes = append(r.bp.Nodes, name)
	r.bp.funcs[name] = fn
	return nil
}

// AddEdge records a direct transition.
func (r *Recorder) AddEdge(from, to string) error {
	if err := r.nodes.checkEdge(from, to); err != nil {
		return err
	}
	r.bp.Edges = append(r.bp.Edges, Edge{From: from, To: to})
	return nil
}

// AddConditionalEdges records a conditional transition.
func (r *Recorder) AddConditionalEdges(from string, cond graph.ConditionalFunc, pathMap map[string]string) error {
	if err := r.nodes.checkConditional(from, cond, pathMap); err != nil {
		return err
	}
	r.bp.Conditionals = append(r.bp.Conditionals, Conditional{From: from, PathMap: copyPathMap(pathMap)})
	r.bp.branches[from] = cond
	return nil
}

// Compile returns the blueprint. A graph without an entry transition does
// not compile.
func (r *Recorder) Compile() (*Blueprint, error) {
	if r.nodes.compiled {
		return nil, ErrCompiled
	}
	hasEntry := false
	for _, e := range r.bp.Edges {
		if e.From == Start {
			hasEntry = true
			break
		}
	}
	if !hasEntry {
		return nil, fmt.Errorf("graph has no transition from %q", Start)
	}
	r.nodes.compiled = true
	return r.bp, nil
}
