package hydrate

import (
	"context"

	"trpc.group/trpc-go/trpc-agent-go/graph"

	"github.com/petal-labs/tradingflow/engine"
	"github.com/petal-labs/tradingflow/workflow"
)

// Handle is a named Model or Memory with no behavior.
type Handle string

// Name returns the handle's name.
func (h Handle) Name() string { return string(h) }

// Placeholders returns resources for dry runs and validation. Every role
// has a constructor and every memory store and tool key is present; the
// node bodies only record themselves as the sender and touch no external
// service.
func Placeholders(quickModel, deepModel string) Resources {
	if quickModel == "" {
		quickModel = string(workflow.TierQuick)
	}
	if deepModel == "" {
		deepModel = string(workflow.TierDeep)
	}

	res := Resources{
		QuickModel: Handle(quickModel),
		DeepModel:  Handle(deepModel),
		Toolkit:    ToolMap{},
		Memories:   make(map[workflow.MemoryKey]Memory),
		Agents: Agents{
			Analysts:     make(map[workflow.AnalystRole]AnalystFunc),
			Researchers:  make(map[workflow.ResearcherRole]MemberFunc),
			Managers:     make(map[workflow.ManagerRole]MemberFunc),
			RiskAnalysts: make(map[workflow.RiskRole]DebatorFunc),
		},
	}

	tools := res.Toolkit.(ToolMap)
	for _, role := range workflow.AnalystRoles() {
		sender := string(role)
		res.Agents.Analysts[role] = func(Model, Toolkit) (graph.NodeFunc, error) {
			return senderNode(sender), nil
		}
		tools[role.ToolKey()] = senderNode("tools_" + role.ToolKey())
	}
	for _, role := range []workflow.ResearcherRole{workflow.BullResearcher, workflow.BearResearcher} {
		res.Agents.Researchers[role] = memberPlaceholder(string(role))
	}
	for _, role := range []workflow.ManagerRole{workflow.ResearchManager, workflow.RiskManager} {
		res.Agents.Managers[role] = memberPlaceholder(string(role))
	}
	res.Agents.Trader = memberPlaceholder(string(workflow.NodeTypeTrader))
	for _, role := range []workflow.RiskRole{workflow.AggressiveDebator, workflow.ConservativeDebator, workflow.NeutralDebator} {
		sender := string(role)
		res.Agents.RiskAnalysts[role] = func(Model) (graph.NodeFunc, error) {
			return senderNode(sender), nil
		}
	}
	for _, key := range []workflow.MemoryKey{
		workflow.MemoryBull,
		workflow.MemoryBear,
		workflow.MemoryTrader,
		workflow.MemoryInvestJudge,
		workflow.MemoryRiskManager,
	} {
		res.Memories[key] = Handle(key)
	}
	return res
}

func memberPlaceholder(sender string) MemberFunc {
	return func(Model, Memory) (graph.NodeFunc, error) {
		return senderNode(sender), nil
	}
}

func senderNode(sender string) graph.NodeFunc {
	return func(context.Context, graph.State) (any, error) {
		return graph.State{engine.StateKeySender: sender}, nil
	}
}
