package workflow

import "fmt"

// NodeSpec is the typed view of a node descriptor's config. Each variant
// carries only the fields its node type uses. Obtain one with
// NodeDescriptor.Spec.
type NodeSpec interface {
	NodeType() NodeType
	isNodeSpec()
}

// AnalystSpec is an analyst node bound to a model tier.
type AnalystSpec struct {
	Role AnalystRole
	Tier ModelTier
}

// ResearcherSpec is a bull or bear researcher node.
type ResearcherSpec struct {
	Role ResearcherRole
}

// ManagerSpec is a research or risk manager node.
type ManagerSpec struct {
	Role ManagerRole
}

// TraderSpec is the single trader archetype.
type TraderSpec struct{}

// RiskAnalystSpec is one of the risk debators.
type RiskAnalystSpec struct {
	Role RiskRole
}

// ToolNodeSpec is a tool-invocation node for an analyst. AgentType is kept
// as written because the toolkit, not this package, decides which keys exist.
type ToolNodeSpec struct {
	AgentType string
}

// Key returns the toolkit key for this tool node.
func (s ToolNodeSpec) Key() string {
	return ToolKey(s.AgentType)
}

// MessageClearSpec is a message-pruning node. AgentType is optional and
// only used for naming.
type MessageClearSpec struct {
	AgentType string
}

func (AnalystSpec) NodeType() NodeType      { return NodeTypeAnalyst }
func (ResearcherSpec) NodeType() NodeType   { return NodeTypeResearcher }
func (ManagerSpec) NodeType() NodeType      { return NodeTypeManager }
func (TraderSpec) NodeType() NodeType       { return NodeTypeTrader }
func (RiskAnalystSpec) NodeType() NodeType  { return NodeTypeRiskAnalyst }
func (ToolNodeSpec) NodeType() NodeType     { return NodeTypeToolNode }
func (MessageClearSpec) NodeType() NodeType { return NodeTypeMessageClear }

func (AnalystSpec) isNodeSpec()      {}
func (ResearcherSpec) isNodeSpec()   {}
func (ManagerSpec) isNodeSpec()      {}
func (TraderSpec) isNodeSpec()       {}
func (RiskAnalystSpec) isNodeSpec()  {}
func (ToolNodeSpec) isNodeSpec()     {}
func (MessageClearSpec) isNodeSpec() {}

// Spec decodes the descriptor's config into its typed variant. A missing or
// unrecognized role fails with a *ConfigurationError naming the node.
func (nd NodeDescriptor) Spec() (NodeSpec, error) {
	role := nd.AgentType()

	switch nd.Type {
	case NodeTypeAnalyst:
		if role == "" {
			return nil, missingRole(nd)
		}
		r := AnalystRole(role)
		if !r.Valid() {
			return nil, unknownRole(nd, role)
		}
		llm, _ := nd.Config[ConfigLLMType].(string)
		tier, ok := ParseModelTier(llm)
		if !ok {
			return nil, NodeError(nd.ID, fmt.Sprintf("unknown llm_type %q", llm))
		}
		return AnalystSpec{Role: r, Tier: tier}, nil

	case NodeTypeResearcher:
		if role == "" {
			return nil, missingRole(nd)
		}
		r := ResearcherRole(role)
		if !r.Valid() {
			return nil, unknownRole(nd, role)
		}
		return ResearcherSpec{Role: r}, nil

	case NodeTypeManager:
		if role == "" {
			return nil, missingRole(nd)
		}
		r := ManagerRole(role)
		if !r.Valid() {
			return nil, unknownRole(nd, role)
		}
		return ManagerSpec{Role: r}, nil

	case NodeTypeTrader:
		return TraderSpec{}, nil

	case NodeTypeRiskAnalyst:
		if role == "" {
			return nil, missingRole(nd)
		}
		r := RiskRole(role)
		if !r.Valid() {
			return nil, unknownRole(nd, role)
		}
		return RiskAnalystSpec{Role: r}, nil

	case NodeTypeToolNode:
		if role == "" {
			return nil, missingRole(nd)
		}
		return ToolNodeSpec{AgentType: role}, nil

	case NodeTypeMessageClear:
		return MessageClearSpec{AgentType: role}, nil
	}

	return nil, NodeError(nd.ID, fmt.Sprintf("unknown node type %q", nd.Type))
}

func missingRole(nd NodeDescriptor) *ConfigurationError {
	return NodeError(nd.ID, fmt.Sprintf("%s node is missing config.%s", nd.Type, ConfigAgentType))
}

func unknownRole(nd NodeDescriptor, role string) *ConfigurationError {
	return &ConfigurationError{
		NodeID:    nd.ID,
		Reference: role,
		Reason:    fmt.Sprintf("unrecognized %s role %q", nd.Type, role),
	}
}

// Node categories written by the typed constructors. Category is
// informational only.
const (
	CategoryAnalyst    = "analyst"
	CategoryResearcher = "researcher"
	CategoryManager    = "manager"
	CategoryTrader     = "trader"
	CategoryRisk       = "risk"
	CategoryTool       = "tool"
	CategoryUtility    = "utility"
)

// NewAnalystNode builds an analyst descriptor.
func NewAnalystNode(id, name string, role AnalystRole, tier ModelTier) NodeDescriptor {
	if tier == "" {
		tier = TierQuick
	}
	return NodeDescriptor{
		ID:       id,
		Type:     NodeTypeAnalyst,
		Name:     name,
		Category: CategoryAnalyst,
		Config: map[string]any{
			ConfigAgentType: string(role),
			ConfigLLMType:   string(tier),
		},
	}
}

// NewResearcherNode builds a researcher descriptor.
func NewResearcherNode(id, name string, role ResearcherRole) NodeDescriptor {
	return NodeDescriptor{
		ID:       id,
		Type:     NodeTypeResearcher,
		Name:     name,
		Category: CategoryResearcher,
		Config:   map[string]any{ConfigAgentType: string(role)},
	}
}

// NewManagerNode builds a manager descriptor.
func NewManagerNode(id, name string, role ManagerRole) NodeDescriptor {
	return NodeDescriptor{
		ID:       id,
		Type:     NodeTypeManager,
		Name:     name,
		Category: CategoryManager,
		Config: map[string]any{
			ConfigAgentType: string(role),
			ConfigLLMType:   string(TierDeep),
		},
	}
}

// NewTraderNode builds the trader descriptor.
func NewTraderNode(id, name string) NodeDescriptor {
	return NodeDescriptor{
		ID:       id,
		Type:     NodeTypeTrader,
		Name:     name,
		Category: CategoryTrader,
	}
}

// NewRiskAnalystNode builds a risk debator descriptor.
func NewRiskAnalystNode(id, name string, role RiskRole) NodeDescriptor {
	return NodeDescriptor{
		ID:       id,
		Type:     NodeTypeRiskAnalyst,
		Name:     name,
		Category: CategoryRisk,
		Config:   map[string]any{ConfigAgentType: string(role)},
	}
}

// NewToolNode builds the tool-invocation descriptor serving an analyst.
func NewToolNode(id, name string, role AnalystRole) NodeDescriptor {
	return NodeDescriptor{
		ID:       id,
		Type:     NodeTypeToolNode,
		Name:     name,
		Category: CategoryTool,
		Config:   map[string]any{ConfigAgentType: string(role)},
	}
}

// NewMessageClearNode builds a message-pruning descriptor that follows an analyst.
func NewMessageClearNode(id, name string, role AnalystRole) NodeDescriptor {
	return NodeDescriptor{
		ID:       id,
		Type:     NodeTypeMessageClear,
		Name:     name,
		Category: CategoryUtility,
		Config:   map[string]any{ConfigAgentType: string(role)},
	}
}
