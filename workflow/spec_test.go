package workflow

import (
	"errors"
	"strings"
	"testing"
)

func TestSpec_ConstructorsRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		nd   NodeDescriptor
		want NodeSpec
	}{
		{"analyst quick", NewAnalystNode("a", "Market Analyst", MarketAnalyst, ""), AnalystSpec{Role: MarketAnalyst, Tier: TierQuick}},
		{"analyst deep", NewAnalystNode("a", "", NewsAnalyst, TierDeep), AnalystSpec{Role: NewsAnalyst, Tier: TierDeep}},
		{"researcher", NewResearcherNode("r", "", BearResearcher), ResearcherSpec{Role: BearResearcher}},
		{"manager", NewManagerNode("m", "", RiskManager), ManagerSpec{Role: RiskManager}},
		{"trader", NewTraderNode("t", "Trader"), TraderSpec{}},
		{"risk", NewRiskAnalystNode("k", "", NeutralDebator), RiskAnalystSpec{Role: NeutralDebator}},
		{"tool", NewToolNode("x", "", SocialMediaAnalyst), ToolNodeSpec{AgentType: "social_media_analyst"}},
		{"clear", NewMessageClearNode("c", "", FundamentalsAnalyst), MessageClearSpec{AgentType: "fundamentals_analyst"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.nd.Spec()
			if err != nil {
				t.Fatalf("Spec() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Spec() = %#v, want %#v", got, tt.want)
			}
			if got.NodeType() != tt.nd.Type {
				t.Errorf("NodeType() = %q, want %q", got.NodeType(), tt.nd.Type)
			}
		})
	}
}

func TestSpec_MissingRole(t *testing.T) {
	for _, typ := range []NodeType{NodeTypeAnalyst, NodeTypeResearcher, NodeTypeManager, NodeTypeRiskAnalyst, NodeTypeToolNode} {
		nd := NodeDescriptor{ID: "n1", Type: typ}
		_, err := nd.Spec()
		if err == nil {
			t.Fatalf("%s: expected error for missing role", typ)
		}
		cfgErr, ok := AsConfigurationError(err)
		if !ok {
			t.Fatalf("%s: error %T is not a *ConfigurationError", typ, err)
		}
		if cfgErr.NodeID != "n1" {
			t.Errorf("%s: NodeID = %q, want %q", typ, cfgErr.NodeID, "n1")
		}
		if !strings.Contains(err.Error(), "agent_type") {
			t.Errorf("%s: error %q does not mention agent_type", typ, err)
		}
	}
}

func TestSpec_UnknownRole(t *testing.T) {
	nd := NodeDescriptor{ID: "r1", Type: NodeTypeResearcher, Config: map[string]any{ConfigAgentType: "market_analyst"}}
	_, err := nd.Spec()
	cfgErr, ok := AsConfigurationError(err)
	if !ok {
		t.Fatalf("error = %v, want *ConfigurationError", err)
	}
	if cfgErr.Reference != "market_analyst" {
		t.Errorf("Reference = %q, want %q", cfgErr.Reference, "market_analyst")
	}
}

func TestSpec_UnknownLLMType(t *testing.T) {
	nd := NewAnalystNode("a", "", MarketAnalyst, TierQuick)
	nd.Config[ConfigLLMType] = "huge"
	if _, err := nd.Spec(); err == nil {
		t.Fatal("expected error for unknown llm_type")
	}
}

func TestSpec_MessageClearWithoutRole(t *testing.T) {
	nd := NodeDescriptor{ID: "c", Type: NodeTypeMessageClear}
	got, err := nd.Spec()
	if err != nil {
		t.Fatalf("Spec() error = %v", err)
	}
	if got != (MessageClearSpec{}) {
		t.Errorf("Spec() = %#v, want empty MessageClearSpec", got)
	}
}

func TestSpec_UnknownNodeType(t *testing.T) {
	nd := NodeDescriptor{ID: "z", Type: "webhook"}
	if _, err := nd.Spec(); err == nil {
		t.Fatal("expected error for unknown node type")
	}
}

func TestToolKey(t *testing.T) {
	tests := map[string]string{
		"market_analyst":       "market",
		"news_analyst":         "news",
		"fundamentals_analyst": "fundamentals",
		"social_media_analyst": "social",
		"custom":               "custom",
	}
	for role, want := range tests {
		if got := ToolKey(role); got != want {
			t.Errorf("ToolKey(%q) = %q, want %q", role, got, want)
		}
	}
}

func TestParseModelTier(t *testing.T) {
	tests := []struct {
		in   string
		want ModelTier
		ok   bool
	}{
		{"", TierQuick, true},
		{"quick", TierQuick, true},
		{"Fast", TierQuick, true},
		{"deep", TierDeep, true},
		{"medium", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseModelTier(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseModelTier(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestConfigurationError_Format(t *testing.T) {
	cause := errors.New("boom")
	err := &ConfigurationError{EdgeID: "e1", Reason: "bad target", Err: cause}
	want := `configuration error at edge "e1": bad target: boom`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}

	nodeErr := NodeError("n1", "missing role")
	if nodeErr.Error() != `configuration error at node "n1": missing role` {
		t.Errorf("Error() = %q", nodeErr.Error())
	}
}
