package registry

import "github.com/petal-labs/tradingflow/workflow"

// analystRoles lists the analyst-keyed roles shared by analyst, tool and
// message-clear nodes, with the short label each is displayed under.
var analystRoles = []struct {
	role  workflow.AnalystRole
	label string
}{
	{workflow.MarketAnalyst, "Market"},
	{workflow.SocialMediaAnalyst, "Social"},
	{workflow.NewsAnalyst, "News"},
	{workflow.FundamentalsAnalyst, "Fundamentals"},
}

// registerBuiltins registers the closed set of trading node types.
// Called once by Global() during singleton initialization.
func registerBuiltins(r *Registry) {
	analysts := make([]RoleDef, 0, len(analystRoles))
	tools := make([]RoleDef, 0, len(analystRoles))
	clears := make([]RoleDef, 0, len(analystRoles))
	for _, a := range analystRoles {
		analysts = append(analysts, RoleDef{Role: string(a.role), DisplayName: a.label + " Analyst"})
		tools = append(tools, RoleDef{Role: string(a.role), DisplayName: ToolNodeName(a.role.ToolKey())})
		clears = append(clears, RoleDef{Role: string(a.role), DisplayName: MessageClearName(a.label)})
	}

	r.Register(NodeTypeDef{
		Type:        workflow.NodeTypeAnalyst,
		Category:    workflow.CategoryAnalyst,
		DisplayName: "Analyst",
		Description: "Gathers one kind of market evidence, calling tools until it has a report",
		RoleKey:     workflow.ConfigAgentType,
		Roles:       analysts,
	})

	r.Register(NodeTypeDef{
		Type:        workflow.NodeTypeResearcher,
		Category:    workflow.CategoryResearcher,
		DisplayName: "Researcher",
		Description: "Argues one side of the investment debate",
		Tier:        workflow.TierQuick,
		RoleKey:     workflow.ConfigAgentType,
		Roles: []RoleDef{
			{Role: string(workflow.BullResearcher), DisplayName: "Bull Researcher", Memory: workflow.MemoryBull},
			{Role: string(workflow.BearResearcher), DisplayName: "Bear Researcher", Memory: workflow.MemoryBear},
		},
	})

	r.Register(NodeTypeDef{
		Type:        workflow.NodeTypeManager,
		Category:    workflow.CategoryManager,
		DisplayName: "Manager",
		Description: "Judges a debate and writes the decision it settles on",
		Tier:        workflow.TierDeep,
		RoleKey:     workflow.ConfigAgentType,
		Roles: []RoleDef{
			{Role: string(workflow.ResearchManager), DisplayName: "Research Manager", Memory: workflow.MemoryInvestJudge},
			{Role: string(workflow.RiskManager), DisplayName: "Risk Judge", Memory: workflow.MemoryRiskManager},
		},
	})

	r.Register(NodeTypeDef{
		Type:        workflow.NodeTypeTrader,
		Category:    workflow.CategoryTrader,
		DisplayName: "Trader",
		Description: "Turns the investment plan into a trading proposal",
		Tier:        workflow.TierQuick,
		Memory:      workflow.MemoryTrader,
	})

	r.Register(NodeTypeDef{
		Type:        workflow.NodeTypeRiskAnalyst,
		Category:    workflow.CategoryRisk,
		DisplayName: "Risk Analyst",
		Description: "Argues one risk stance on the trading proposal",
		Tier:        workflow.TierQuick,
		RoleKey:     workflow.ConfigAgentType,
		Roles: []RoleDef{
			{Role: string(workflow.AggressiveDebator), DisplayName: "Risky Analyst"},
			{Role: string(workflow.ConservativeDebator), DisplayName: "Safe Analyst"},
			{Role: string(workflow.NeutralDebator), DisplayName: "Neutral Analyst"},
		},
	})

	r.Register(NodeTypeDef{
		Type:        workflow.NodeTypeToolNode,
		Category:    workflow.CategoryTool,
		DisplayName: "Tool Node",
		Description: "Runs the tool calls requested by an analyst",
		RoleKey:     workflow.ConfigAgentType,
		Roles:       tools,
	})

	r.Register(NodeTypeDef{
		Type:        workflow.NodeTypeMessageClear,
		Category:    workflow.CategoryUtility,
		DisplayName: "Message Clear",
		Description: "Drops the message history before the next analyst runs",
		RoleKey:     workflow.ConfigAgentType,
		Roles:       clears,
	})
}

// ToolNodeName renders the display name of a tool node for a toolkit key.
func ToolNodeName(key string) string {
	return "tools_" + key
}

// MessageClearName renders the display name of a message-clear node.
func MessageClearName(label string) string {
	return "Msg Clear " + label
}
