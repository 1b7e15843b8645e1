package conditional

import (
	"context"
	"testing"

	"trpc.group/trpc-go/trpc-agent-go/graph"

	"github.com/petal-labs/tradingflow/engine"
	"github.com/petal-labs/tradingflow/workflow"
)

type fakeMessage struct{ calls int }

func (m fakeMessage) HasToolCalls() bool { return m.calls > 0 }

func route(t *testing.T, s *Set, name string, state graph.State) string {
	t.Helper()
	fn, ok := s.Predicate(name)
	if !ok {
		t.Fatalf("predicate %q not registered", name)
	}
	got, err := fn(context.Background(), state)
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	return got
}

func TestSet_RegisterAndLookup(t *testing.T) {
	s := NewSet()
	s.Register("b", func(context.Context, graph.State) (string, error) { return "x", nil })
	s.Register("a", func(context.Context, graph.State) (string, error) { return "y", nil })
	s.Register("nil", nil)

	if _, ok := s.Predicate("a"); !ok {
		t.Error("Predicate(a) not found")
	}
	if _, ok := s.Predicate("missing"); ok {
		t.Error("Predicate(missing) found")
	}
	if _, ok := s.Predicate("nil"); ok {
		t.Error("nil predicate should count as absent")
	}
	names := s.Names()
	if len(names) != 3 || names[0] != "a" || names[1] != "b" {
		t.Errorf("Names() = %v, want sorted [a b nil]", names)
	}

	var nilSet *Set
	if _, ok := nilSet.Predicate("a"); ok {
		t.Error("nil set should have no predicates")
	}
}

func TestFunc_AdaptsToLogic(t *testing.T) {
	var logic Logic = Func(func(name string) (graph.ConditionalFunc, bool) {
		return nil, name == "yes"
	})
	if _, ok := logic.Predicate("yes"); !ok {
		t.Error("Func.Predicate(yes) = false")
	}
}

func TestStandard_Names(t *testing.T) {
	want := []string{
		"should_continue_debate",
		"should_continue_fundamentals",
		"should_continue_market",
		"should_continue_news",
		"should_continue_risk_analysis",
		"should_continue_social",
	}
	got := Standard(1, 1).Names()
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestStandard_AnalystRouting(t *testing.T) {
	s := Standard(1, 1)
	tests := []struct {
		role  workflow.AnalystRole
		state graph.State
		want  string
	}{
		{workflow.MarketAnalyst, graph.State{engine.StateKeyMessages: []any{
			map[string]any{"role": "assistant", "tool_calls": []any{map[string]any{"name": "get_prices"}}},
		}}, "tools_market"},
		{workflow.MarketAnalyst, graph.State{engine.StateKeyMessages: []any{
			map[string]any{"role": "assistant", "tool_calls": []any{}},
		}}, "Msg Clear Market"},
		{workflow.SocialMediaAnalyst, graph.State{engine.StateKeyMessages: []any{fakeMessage{calls: 1}}}, "tools_social"},
		{workflow.NewsAnalyst, graph.State{engine.StateKeyMessages: []map[string]any{{"content": "done"}}}, "Msg Clear News"},
		{workflow.FundamentalsAnalyst, graph.State{}, "Msg Clear Fundamentals"},
	}
	for _, tt := range tests {
		if got := route(t, s, AnalystPredicate(tt.role), tt.state); got != tt.want {
			t.Errorf("%s: route = %q, want %q", tt.role, got, tt.want)
		}
	}
}

func TestStandard_DebateRouting(t *testing.T) {
	s := Standard(2, 1)
	tests := []struct {
		name  string
		state graph.State
		want  string
	}{
		{"fresh debate", graph.State{}, "Bull Researcher"},
		{"after bull", graph.State{engine.StateKeyInvestmentDebate: map[string]any{
			"count": 1, "current_response": "Bull Analyst: buy",
		}}, "Bear Researcher"},
		{"after bear", graph.State{engine.StateKeyInvestmentDebate: DebateState{
			Count: 2, CurrentResponse: "Bear Analyst: sell",
		}}, "Bull Researcher"},
		{"rounds exhausted", graph.State{engine.StateKeyInvestmentDebate: &DebateState{
			Count: 4, CurrentResponse: "Bull Analyst: buy",
		}}, "Research Manager"},
		{"json numbers", graph.State{engine.StateKeyInvestmentDebate: map[string]any{
			"count": float64(4),
		}}, "Research Manager"},
	}
	for _, tt := range tests {
		if got := route(t, s, ShouldContinueDebate, tt.state); got != tt.want {
			t.Errorf("%s: route = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestStandard_RiskRouting(t *testing.T) {
	s := Standard(1, 1)
	tests := []struct {
		speaker string
		count   int
		want    string
	}{
		{"", 0, "Risky Analyst"},
		{"Risky Analyst", 1, "Safe Analyst"},
		{"Safe Analyst", 2, "Neutral Analyst"},
		{"Neutral Analyst", 2, "Risky Analyst"},
		{"Neutral Analyst", 3, "Risk Judge"},
	}
	for _, tt := range tests {
		state := graph.State{engine.StateKeyRiskDebate: RiskDebateState{Count: tt.count, LatestSpeaker: tt.speaker}}
		if got := route(t, s, ShouldContinueRiskAnalysis, state); got != tt.want {
			t.Errorf("speaker %q count %d: route = %q, want %q", tt.speaker, tt.count, got, tt.want)
		}
	}
}

func TestStandard_MinimumRounds(t *testing.T) {
	s := Standard(0, -3)
	state := graph.State{engine.StateKeyInvestmentDebate: DebateState{Count: 2}}
	if got := route(t, s, ShouldContinueDebate, state); got != "Research Manager" {
		t.Errorf("route = %q, want %q", got, "Research Manager")
	}
}

func TestStandard_BadState(t *testing.T) {
	s := Standard(1, 1)
	fn, _ := s.Predicate(ShouldContinueDebate)
	if _, err := fn(context.Background(), graph.State{engine.StateKeyInvestmentDebate: "nope"}); err == nil {
		t.Error("expected error for unsupported debate state type")
	}
	fn, _ = s.Predicate(ShouldContinueRiskAnalysis)
	if _, err := fn(context.Background(), graph.State{engine.StateKeyRiskDebate: map[string]any{"count": "three"}}); err == nil {
		t.Error("expected error for non-numeric count")
	}
}
