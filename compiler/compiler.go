// Package compiler turns a workflow.Configuration into an executable graph.
//
// Compilation fails fast: the first defect aborts the build with a
// *workflow.ConfigurationError naming the node or edge at fault. Validate
// runs the same checks without building anything and reports every defect
// it finds as a diagnostic.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"trpc.group/trpc-go/trpc-agent-go/graph"

	"github.com/petal-labs/tradingflow/conditional"
	"github.com/petal-labs/tradingflow/engine"
	"github.com/petal-labs/tradingflow/hydrate"
	"github.com/petal-labs/tradingflow/workflow"
)

// ErrNoFactory is returned when a compiler has no node factory.
var ErrNoFactory = errors.New("compiler: node factory is required")

// Compiler builds graphs from configurations using a node factory and a
// set of named predicates. A Compiler holds no per-build state and may be
// shared between goroutines as long as its factory and logic are.
type Compiler struct {
	factory hydrate.NodeFactory
	logic   conditional.Logic
	logger  *slog.Logger
	handler EventHandler
	schema  *graph.StateSchema
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Compiler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithEventHandler sets a handler that receives compile and validate events.
func WithEventHandler(h EventHandler) Option {
	return func(c *Compiler) {
		c.handler = h
	}
}

// WithSchema sets the state schema used by Compile. The default is
// engine.DefaultSchema().
func WithSchema(schema *graph.StateSchema) Option {
	return func(c *Compiler) {
		c.schema = schema
	}
}

// New creates a compiler. logic may be nil, in which case any conditional
// edge fails to compile.
func New(factory hydrate.NodeFactory, logic conditional.Logic, opts ...Option) *Compiler {
	c := &Compiler{
		factory: factory,
		logic:   logic,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile builds cfg into an executable trpc-agent-go graph.
func (c *Compiler) Compile(ctx context.Context, cfg *workflow.Configuration) (*graph.Graph, error) {
	return Build(ctx, c, cfg, engine.NewStateGraphBuilder(c.schema))
}

// Blueprint builds cfg into an inspectable blueprint. Node bodies are still
// created through the factory.
func (c *Compiler) Blueprint(ctx context.Context, cfg *workflow.Configuration) (*engine.Blueprint, error) {
	return Build(ctx, c, cfg, engine.NewRecorder())
}

// Build registers every node and edge of cfg on b and compiles it.
//
// Nodes are created in declaration order, then edges are added in
// declaration order. Conditional edges that share a source and predicate
// are merged into one transition whose mapping is the union of theirs; the
// merged transition is registered after all direct edges. cfg is never
// modified.
func Build[G any](ctx context.Context, c *Compiler, cfg *workflow.Configuration, b engine.Builder[G]) (G, error) {
	var zero G
	if cfg == nil {
		return zero, workflow.ErrNilConfiguration
	}
	if c.factory == nil {
		return zero, ErrNoFactory
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	run := &build{
		c:       c,
		cfg:     cfg,
		id:      uuid.NewString(),
		started: time.Now(),
	}
	run.emit(NewEvent(EventCompileStarted, run.id, cfg.Name).
		WithPayload("nodes", len(cfg.Nodes)).
		WithPayload("edges", len(cfg.Edges)))
	c.logger.Debug("compiling workflow",
		"build_id", run.id,
		"workflow", cfg.Name,
		"nodes", len(cfg.Nodes),
		"edges", len(cfg.Edges))

	g, err := buildInto(run, b)
	if err != nil {
		run.fail(err)
		return zero, err
	}

	run.emit(NewEvent(EventCompileFinished, run.id, cfg.Name).
		WithElapsed(time.Since(run.started)).
		WithPayload("nodes", len(cfg.Nodes)).
		WithPayload("edges", len(cfg.Edges)))
	c.logger.Info("workflow compiled",
		"build_id", run.id,
		"workflow", cfg.Name,
		"nodes", len(cfg.Nodes),
		"edges", len(cfg.Edges),
		"elapsed", time.Since(run.started))
	return g, nil
}

// build carries the state of one compilation.
type build struct {
	c       *Compiler
	cfg     *workflow.Configuration
	id      string
	started time.Time

	// names maps node id to registered name.
	names map[string]string
}

func (r *build) emit(e Event) {
	if r.c.handler != nil {
		r.c.handler(e)
	}
}

func (r *build) fail(err error) {
	e := NewEvent(EventCompileFailed, r.id, r.cfg.Name).
		WithElapsed(time.Since(r.started)).
		WithPayload("error", err.Error())
	attrs := []any{"build_id", r.id, "workflow", r.cfg.Name, "error", err}
	if cfgErr, ok := workflow.AsConfigurationError(err); ok {
		e = e.WithNode(cfgErr.NodeID).WithEdge(cfgErr.EdgeID)
		if cfgErr.NodeID != "" {
			attrs = append(attrs, "node_id", cfgErr.NodeID)
		}
		if cfgErr.EdgeID != "" {
			attrs = append(attrs, "edge_id", cfgErr.EdgeID)
		}
	}
	r.emit(e)
	r.c.logger.Warn("workflow compilation failed", attrs...)
}

// branch is a conditional transition being assembled from one or more
// conditional edges.
type branch struct {
	source   string
	function string
	edgeID   string
	pred     graph.ConditionalFunc
	pathMap  map[string]string
	targetOf map[string]string // result -> declaring edge id
}

func buildInto[G any](r *build, b engine.Builder[G]) (G, error) {
	var zero G

	if err := addNodes(r, b); err != nil {
		return zero, err
	}

	branches, err := addEdges(r, b)
	if err != nil {
		return zero, err
	}
	for _, br := range branches {
		if err := b.AddConditionalEdges(br.source, br.pred, br.pathMap); err != nil {
			return zero, &workflow.ConfigurationError{
				EdgeID: br.edgeID,
				Reason: fmt.Sprintf("registering conditional transition from %q", br.source),
				Err:    err,
			}
		}
	}

	g, err := b.Compile()
	if err != nil {
		return zero, &workflow.ConfigurationError{Reason: "compiling graph", Err: err}
	}
	return g, nil
}

func addNodes[G any](r *build, b engine.Builder[G]) error {
	r.names = make(map[string]string, len(r.cfg.Nodes))
	owners := make(map[string]string, len(r.cfg.Nodes))

	for _, nd := range r.cfg.Nodes {
		if _, dup := r.names[nd.ID]; dup {
			return workflow.NodeError(nd.ID, "duplicate node id")
		}

		name, err := NodeDisplayName(nd)
		if err != nil {
			return err
		}
		if other, dup := owners[name]; dup {
			return workflow.NodeError(nd.ID, fmt.Sprintf("display name %q already used by node %q", name, other))
		}

		fn, err := r.c.factory.CreateNode(nd)
		if err != nil {
			if cfgErr, ok := workflow.AsConfigurationError(err); ok && cfgErr.NodeID == nd.ID {
				return err
			}
			return &workflow.ConfigurationError{
				NodeID: nd.ID,
				Reason: fmt.Sprintf("creating %s node", nd.Type),
				Err:    err,
			}
		}
		if err := b.AddNode(name, fn); err != nil {
			return &workflow.ConfigurationError{
				NodeID: nd.ID,
				Reason: fmt.Sprintf("registering node %q", name),
				Err:    err,
			}
		}

		r.names[nd.ID] = name
		owners[name] = nd.ID
		r.emit(NewEvent(EventNodeRegistered, r.id, r.cfg.Name).
			WithNode(nd.ID).
			WithElapsed(time.Since(r.started)).
			WithPayload("name", name).
			WithPayload("type", string(nd.Type)))
		r.c.logger.Debug("node registered", "build_id", r.id, "node_id", nd.ID, "name", name, "type", nd.Type)
	}
	return nil
}

func addEdges[G any](r *build, b engine.Builder[G]) ([]*branch, error) {
	var branches []*branch
	bySource := make(map[string]*branch)
	entries, exits := 0, 0

	for _, ed := range r.cfg.Edges {
		if ed.Source == workflow.Entry {
			entries++
		}
		if ed.Target == workflow.Exit {
			exits++
		}
		if ed.Source == workflow.Entry && ed.Target == workflow.Exit {
			return nil, workflow.EdgeError(ed.ID, "edge cannot go directly from entry to exit")
		}
		switch ed.Type {
		case workflow.EdgeTypeDirect, workflow.EdgeTypeLoop:
			if ed.Condition != nil {
				return nil, workflow.EdgeError(ed.ID, fmt.Sprintf("%s edge carries a condition", ed.Type))
			}
			from, to, err := r.endpoints(ed)
			if err != nil {
				return nil, err
			}
			if err := b.AddEdge(from, to); err != nil {
				return nil, &workflow.ConfigurationError{
					EdgeID: ed.ID,
					Reason: fmt.Sprintf("adding edge %q -> %q", from, to),
					Err:    err,
				}
			}
			r.edgeRegistered(ed, from, to)

		case workflow.EdgeTypeConditional:
			br, err := r.conditionalEdge(ed, bySource)
			if err != nil {
				return nil, err
			}
			if br != nil {
				branches = append(branches, br)
			}

		default:
			return nil, workflow.EdgeError(ed.ID, fmt.Sprintf("unknown edge type %q", ed.Type))
		}
	}
	if entries == 0 {
		return nil, &workflow.ConfigurationError{Reference: workflow.Entry, Reason: "no edge leaves entry"}
	}
	if exits == 0 {
		return nil, &workflow.ConfigurationError{Reference: workflow.Exit, Reason: "no edge reaches exit"}
	}
	return branches, nil
}

// conditionalEdge folds ed into the branch for its source. It returns the
// branch when ed is the first conditional edge from that source.
func (r *build) conditionalEdge(ed workflow.EdgeDescriptor, bySource map[string]*branch) (*branch, error) {
	if ed.Condition == nil {
		return nil, workflow.EdgeError(ed.ID, "conditional edge has no condition")
	}
	if ed.Source == workflow.Entry {
		return nil, &workflow.ConfigurationError{EdgeID: ed.ID, Reference: ed.Source, Reason: "conditional edge cannot leave entry"}
	}
	from, to, err := r.endpoints(ed)
	if err != nil {
		return nil, err
	}

	fn := ed.Condition.Function
	pred, ok := r.predicate(fn)
	if !ok {
		return nil, &workflow.ConfigurationError{
			EdgeID:    ed.ID,
			Reference: fn,
			Reason:    fmt.Sprintf("undefined conditional function %q", fn),
		}
	}
	if len(ed.Condition.Mapping) == 0 {
		return nil, workflow.EdgeError(ed.ID, "conditional edge has an empty mapping")
	}

	br, existing := bySource[from]
	if existing && br.function != fn {
		return nil, &workflow.ConfigurationError{
			EdgeID:    ed.ID,
			Reference: ed.Source,
			Reason: fmt.Sprintf("source %q uses function %q here but %q on edge %q",
				ed.Source, fn, br.function, br.edgeID),
		}
	}
	if !existing {
		br = &branch{
			source:   from,
			function: fn,
			edgeID:   ed.ID,
			pred:     pred,
			pathMap:  make(map[string]string, len(ed.Condition.Mapping)),
			targetOf: make(map[string]string, len(ed.Condition.Mapping)),
		}
		bySource[from] = br
	}

	for _, m := range ed.Condition.Mapping {
		target, cfgErr := resolveReference(m.Target, r.names, false)
		if cfgErr != nil {
			cfgErr.EdgeID = ed.ID
			cfgErr.Reason = fmt.Sprintf("mapping result %q: %s", m.Result, cfgErr.Reason)
			return nil, cfgErr
		}
		if prev, dup := br.pathMap[m.Result]; dup && prev != target {
			return nil, &workflow.ConfigurationError{
				EdgeID:    ed.ID,
				Reference: m.Target,
				Reason: fmt.Sprintf("result %q already routed to %q by edge %q",
					m.Result, prev, br.targetOf[m.Result]),
			}
		}
		br.pathMap[m.Result] = target
		br.targetOf[m.Result] = ed.ID
	}

	r.edgeRegistered(ed, from, to)
	if existing {
		return nil, nil
	}
	return br, nil
}

// endpoints resolves the source and target of ed.
func (r *build) endpoints(ed workflow.EdgeDescriptor) (string, string, error) {
	from, err := resolveReference(ed.Source, r.names, true)
	if err != nil {
		err.EdgeID = ed.ID
		return "", "", err
	}
	to, err := resolveReference(ed.Target, r.names, false)
	if err != nil {
		err.EdgeID = ed.ID
		return "", "", err
	}
	return from, to, nil
}

func (r *build) predicate(name string) (graph.ConditionalFunc, bool) {
	if r.c.logic == nil || name == "" {
		return nil, false
	}
	return r.c.logic.Predicate(name)
}

func (r *build) edgeRegistered(ed workflow.EdgeDescriptor, from, to string) {
	e := NewEvent(EventEdgeRegistered, r.id, r.cfg.Name).
		WithEdge(ed.ID).
		WithElapsed(time.Since(r.started)).
		WithPayload("type", string(ed.Type)).
		WithPayload("source", from).
		WithPayload("target", to)
	if ed.Condition != nil {
		e = e.WithPayload("function", ed.Condition.Function)
	}
	r.emit(e)
	r.c.logger.Debug("edge registered", "build_id", r.id, "edge_id", ed.ID, "type", ed.Type, "source", from, "target", to)
}
