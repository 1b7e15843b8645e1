// Package hydrate turns node descriptors into executable node bodies. A
// Factory binds the caller's model handles, memory stores, toolkit and role
// constructors once, then builds one graph.NodeFunc per descriptor.
package hydrate

import (
	"fmt"

	"trpc.group/trpc-go/trpc-agent-go/graph"

	"github.com/petal-labs/tradingflow/registry"
	"github.com/petal-labs/tradingflow/workflow"
)

// NodeFactory creates the executable body for a node descriptor.
type NodeFactory interface {
	CreateNode(nd workflow.NodeDescriptor) (graph.NodeFunc, error)
}

// FactoryFunc adapts a function to NodeFactory.
type FactoryFunc func(nd workflow.NodeDescriptor) (graph.NodeFunc, error)

// CreateNode calls f.
func (f FactoryFunc) CreateNode(nd workflow.NodeDescriptor) (graph.NodeFunc, error) {
	return f(nd)
}

// Factory is the NodeFactory for the trading node types.
type Factory struct {
	res Resources
	reg *registry.Registry
}

var _ NodeFactory = (*Factory)(nil)

// NewFactory returns a factory bound to res. Nothing is checked until a
// node that needs a missing collaborator is created.
func NewFactory(res Resources) *Factory {
	return &Factory{res: res, reg: registry.Global()}
}

// CreateNode dispatches on the descriptor's type and returns the node body.
// Every failure is a *workflow.ConfigurationError naming the node. The
// descriptor is never modified and the returned function is never invoked.
func (f *Factory) CreateNode(nd workflow.NodeDescriptor) (graph.NodeFunc, error) {
	spec, err := nd.Spec()
	if err != nil {
		return nil, err
	}

	switch s := spec.(type) {
	case workflow.AnalystSpec:
		ctor, ok := f.res.Agents.Analysts[s.Role]
		if !ok || ctor == nil {
			return nil, missingConstructor(nd, string(s.Role))
		}
		model, err := f.requireModel(nd, s.Tier)
		if err != nil {
			return nil, err
		}
		if f.res.Toolkit == nil {
			return nil, workflow.NodeError(nd.ID, "no toolkit configured")
		}
		return build(nd, func() (graph.NodeFunc, error) { return ctor(model, f.res.Toolkit) })

	case workflow.ResearcherSpec:
		ctor, ok := f.res.Agents.Researchers[s.Role]
		if !ok || ctor == nil {
			return nil, missingConstructor(nd, string(s.Role))
		}
		return f.member(nd, string(s.Role), ctor)

	case workflow.ManagerSpec:
		ctor, ok := f.res.Agents.Managers[s.Role]
		if !ok || ctor == nil {
			return nil, missingConstructor(nd, string(s.Role))
		}
		return f.member(nd, string(s.Role), ctor)

	case workflow.TraderSpec:
		if f.res.Agents.Trader == nil {
			return nil, missingConstructor(nd, string(workflow.NodeTypeTrader))
		}
		return f.member(nd, "", f.res.Agents.Trader)

	case workflow.RiskAnalystSpec:
		ctor, ok := f.res.Agents.RiskAnalysts[s.Role]
		if !ok || ctor == nil {
			return nil, missingConstructor(nd, string(s.Role))
		}
		model, err := f.requireModel(nd, f.tier(nd.Type))
		if err != nil {
			return nil, err
		}
		return build(nd, func() (graph.NodeFunc, error) { return ctor(model) })

	case workflow.ToolNodeSpec:
		if f.res.Toolkit == nil {
			return nil, workflow.NodeError(nd.ID, "no toolkit configured")
		}
		fn, ok := f.res.Toolkit.ToolNode(s.Key())
		if !ok {
			return nil, &workflow.ConfigurationError{
				NodeID:    nd.ID,
				Reference: s.Key(),
				Reason:    fmt.Sprintf("toolkit has no tool node for key %q", s.Key()),
			}
		}
		return fn, nil

	case workflow.MessageClearSpec:
		return MessageClear, nil
	}

	return nil, workflow.NodeError(nd.ID, fmt.Sprintf("no factory for node type %q", nd.Type))
}

// member builds a role bound to a model and the role's memory store.
func (f *Factory) member(nd workflow.NodeDescriptor, role string, ctor MemberFunc) (graph.NodeFunc, error) {
	model, err := f.requireModel(nd, f.tier(nd.Type))
	if err != nil {
		return nil, err
	}
	key, ok := f.reg.Memory(nd.Type, role)
	if !ok {
		return nil, workflow.NodeError(nd.ID, fmt.Sprintf("no memory store defined for %s role %q", nd.Type, role))
	}
	mem, ok := f.res.Memories[key]
	if !ok || mem == nil {
		return nil, &workflow.ConfigurationError{
			NodeID:    nd.ID,
			Reference: string(key),
			Reason:    fmt.Sprintf("memory store %q not configured", key),
		}
	}
	return build(nd, func() (graph.NodeFunc, error) { return ctor(model, mem) })
}

// tier returns the model tier the catalog assigns to a node type.
func (f *Factory) tier(t workflow.NodeType) workflow.ModelTier {
	if def, ok := f.reg.Get(t); ok && def.Tier != "" {
		return def.Tier
	}
	return workflow.TierQuick
}

func (f *Factory) requireModel(nd workflow.NodeDescriptor, tier workflow.ModelTier) (Model, error) {
	model := f.res.model(tier)
	if model == nil {
		return nil, workflow.NodeError(nd.ID, fmt.Sprintf("no %s model configured", tier))
	}
	return model, nil
}

// build runs a role constructor and attaches the node id to any failure.
func build(nd workflow.NodeDescriptor, ctor func() (graph.NodeFunc, error)) (graph.NodeFunc, error) {
	fn, err := ctor()
	if err != nil {
		return nil, &workflow.ConfigurationError{
			NodeID: nd.ID,
			Reason: fmt.Sprintf("constructing %s node", nd.Type),
			Err:    err,
		}
	}
	if fn == nil {
		return nil, workflow.NodeError(nd.ID, fmt.Sprintf("%s constructor returned no node", nd.Type))
	}
	return fn, nil
}

func missingConstructor(nd workflow.NodeDescriptor, role string) *workflow.ConfigurationError {
	return &workflow.ConfigurationError{
		NodeID:    nd.ID,
		Reference: role,
		Reason:    fmt.Sprintf("no constructor registered for %s role %q", nd.Type, role),
	}
}
