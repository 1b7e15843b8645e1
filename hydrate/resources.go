package hydrate

import (
	"trpc.group/trpc-go/trpc-agent-go/graph"

	"github.com/petal-labs/tradingflow/workflow"
)

// Model is an opaque language-model handle. The factory only selects
// between the quick and deep handles; node bodies decide how to use them.
type Model interface {
	Name() string
}

// Memory is an opaque per-role memory store.
type Memory interface {
	Name() string
}

// Toolkit provides the pre-built tool-invocation node for an analyst's
// toolkit key ("market", "social", "news", "fundamentals").
type Toolkit interface {
	ToolNode(key string) (graph.NodeFunc, bool)
}

// ToolMap is a Toolkit backed by a map.
type ToolMap map[string]graph.NodeFunc

// ToolNode implements Toolkit.
func (m ToolMap) ToolNode(key string) (graph.NodeFunc, bool) {
	fn, ok := m[key]
	return fn, ok && fn != nil
}

// Role constructors. Each returns the node body for one agent role bound to
// the collaborators the factory selected.
type (
	AnalystFunc func(model Model, toolkit Toolkit) (graph.NodeFunc, error)
	MemberFunc  func(model Model, memory Memory) (graph.NodeFunc, error)
	DebatorFunc func(model Model) (graph.NodeFunc, error)
)

// Agents holds a constructor per role.
type Agents struct {
	Analysts     map[workflow.AnalystRole]AnalystFunc
	Researchers  map[workflow.ResearcherRole]MemberFunc
	Managers     map[workflow.ManagerRole]MemberFunc
	Trader       MemberFunc
	RiskAnalysts map[workflow.RiskRole]DebatorFunc
}

// Resources is the collaborator bundle a Factory binds into node bodies.
// It is supplied once and never modified by this package.
type Resources struct {
	QuickModel Model
	DeepModel  Model
	Toolkit    Toolkit
	Memories   map[workflow.MemoryKey]Memory
	Agents     Agents
}

// model returns the handle for tier.
func (r Resources) model(tier workflow.ModelTier) Model {
	if tier == workflow.TierDeep {
		return r.DeepModel
	}
	return r.QuickModel
}
