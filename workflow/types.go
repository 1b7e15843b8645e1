// Package workflow defines the declarative configuration model for
// tradingflow pipelines: node and edge descriptors, the typed node variants
// decoded from them, and the diagnostics and errors shared by the compiler
// and validator.
//
// A Configuration is plain data. It round-trips through JSON (and YAML via
// the loader package) without any transformation step, and nothing in this
// package executes or instantiates a node.
package workflow

import "strings"

// NodeType identifies which factory handles a node and which naming
// convention applies. The set is closed.
type NodeType string

const (
	NodeTypeAnalyst      NodeType = "analyst"
	NodeTypeResearcher   NodeType = "researcher"
	NodeTypeManager      NodeType = "manager"
	NodeTypeTrader       NodeType = "trader"
	NodeTypeRiskAnalyst  NodeType = "risk_analyst"
	NodeTypeToolNode     NodeType = "tool_node"
	NodeTypeMessageClear NodeType = "message_clear"
)

// NodeTypes returns every node type in catalog order.
func NodeTypes() []NodeType {
	return []NodeType{
		NodeTypeAnalyst,
		NodeTypeResearcher,
		NodeTypeManager,
		NodeTypeTrader,
		NodeTypeRiskAnalyst,
		NodeTypeToolNode,
		NodeTypeMessageClear,
	}
}

// Valid reports whether t is one of the closed node types.
func (t NodeType) Valid() bool {
	for _, known := range NodeTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// String returns the string representation of the NodeType.
func (t NodeType) String() string {
	return string(t)
}

// EdgeType identifies how an edge is compiled.
type EdgeType string

const (
	EdgeTypeDirect      EdgeType = "direct"
	EdgeTypeConditional EdgeType = "conditional"
	// EdgeTypeLoop compiles exactly like EdgeTypeDirect. It marks an edge
	// that re-enters a previously visited node for readers and editors.
	EdgeTypeLoop EdgeType = "loop"
)

// Valid reports whether t is one of the closed edge types.
func (t EdgeType) Valid() bool {
	switch t {
	case EdgeTypeDirect, EdgeTypeConditional, EdgeTypeLoop:
		return true
	}
	return false
}

// Sentinel edge endpoints. Entry may only appear as an edge source and
// Exit only as an edge target.
const (
	Entry = "entry"
	Exit  = "exit"
)

// AnalystRole is the role played by an analyst node.
type AnalystRole string

const (
	MarketAnalyst       AnalystRole = "market_analyst"
	SocialMediaAnalyst  AnalystRole = "social_media_analyst"
	NewsAnalyst         AnalystRole = "news_analyst"
	FundamentalsAnalyst AnalystRole = "fundamentals_analyst"
)

// AnalystRoles returns the analyst roles in canonical pipeline order.
func AnalystRoles() []AnalystRole {
	return []AnalystRole{MarketAnalyst, SocialMediaAnalyst, NewsAnalyst, FundamentalsAnalyst}
}

// Valid reports whether r is a known analyst role.
func (r AnalystRole) Valid() bool {
	for _, known := range AnalystRoles() {
		if r == known {
			return true
		}
	}
	return false
}

// ToolKey returns the key the toolkit uses for this analyst's tool node.
func (r AnalystRole) ToolKey() string {
	return ToolKey(string(r))
}

// ToolKey derives a toolkit key from a raw analyst role string by stripping
// the "_analyst" suffix. Social media keys as "social".
func ToolKey(role string) string {
	if role == string(SocialMediaAnalyst) {
		return "social"
	}
	return strings.TrimSuffix(role, "_analyst")
}

// ResearcherRole is the side argued by a researcher node.
type ResearcherRole string

const (
	BullResearcher ResearcherRole = "bull_researcher"
	BearResearcher ResearcherRole = "bear_researcher"
)

// Valid reports whether r is a known researcher role.
func (r ResearcherRole) Valid() bool {
	return r == BullResearcher || r == BearResearcher
}

// ManagerRole is the role played by a manager node.
type ManagerRole string

const (
	ResearchManager ManagerRole = "research_manager"
	RiskManager     ManagerRole = "risk_manager"
)

// Valid reports whether r is a known manager role.
func (r ManagerRole) Valid() bool {
	return r == ResearchManager || r == RiskManager
}

// RiskRole is the stance taken by a risk debator node.
type RiskRole string

const (
	AggressiveDebator   RiskRole = "aggressive_debator"
	ConservativeDebator RiskRole = "conservative_debator"
	NeutralDebator      RiskRole = "neutral_debator"
)

// Valid reports whether r is a known risk debator role.
func (r RiskRole) Valid() bool {
	switch r {
	case AggressiveDebator, ConservativeDebator, NeutralDebator:
		return true
	}
	return false
}

// ModelTier selects which language-model handle a node is bound to.
type ModelTier string

const (
	// TierQuick is the fast, cheap model. It is the default.
	TierQuick ModelTier = "quick"
	TierDeep  ModelTier = "deep"
)

// ParseModelTier maps a config value to a tier. Empty selects TierQuick;
// "fast" is accepted as an alias for quick.
func ParseModelTier(s string) (ModelTier, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "quick", "fast":
		return TierQuick, true
	case "deep":
		return TierDeep, true
	}
	return "", false
}

// MemoryKey names a per-role memory store.
type MemoryKey string

const (
	MemoryBull        MemoryKey = "bull_memory"
	MemoryBear        MemoryKey = "bear_memory"
	MemoryTrader      MemoryKey = "trader_memory"
	MemoryInvestJudge MemoryKey = "invest_judge_memory"
	MemoryRiskManager MemoryKey = "risk_manager_memory"
)

// Config keys read from NodeDescriptor.Config.
const (
	ConfigAgentType = "agent_type"
	ConfigLLMType   = "llm_type"
)
