package defaults

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"trpc.group/trpc-go/trpc-agent-go/graph"

	"github.com/petal-labs/tradingflow/compiler"
	"github.com/petal-labs/tradingflow/conditional"
	"github.com/petal-labs/tradingflow/engine"
	"github.com/petal-labs/tradingflow/hydrate"
	"github.com/petal-labs/tradingflow/loader"
	"github.com/petal-labs/tradingflow/workflow"
)

func allAnalysts() []workflow.AnalystRole {
	return workflow.AnalystRoles()
}

func TestGenerate_Validates(t *testing.T) {
	cfg, err := Generate(allAnalysts())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	diags := compiler.Validate(cfg, compiler.WithConditionalLogic(conditional.Standard(1, 1)))
	if len(diags) != 0 {
		t.Errorf("Validate() = %v, want no diagnostics", workflow.Messages(diags))
	}
	if !cfg.IsDefault() {
		t.Error("IsDefault() = false, want true")
	}
	if cfg.Author() != Author {
		t.Errorf("Author() = %q, want %q", cfg.Author(), Author)
	}
}

func TestGenerate_Shape(t *testing.T) {
	cfg, err := Generate([]workflow.AnalystRole{workflow.MarketAnalyst, workflow.NewsAnalyst})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	// 3 per analyst + bull, bear, research manager, trader + 3 risk + judge.
	if got, want := len(cfg.Nodes), 2*3+4+4; got != want {
		t.Errorf("len(Nodes) = %d, want %d", got, want)
	}

	first := cfg.Edges[0]
	if first.Source != workflow.Entry || first.Target != string(workflow.MarketAnalyst) {
		t.Errorf("first edge = %s -> %s, want entry -> market_analyst", first.Source, first.Target)
	}
	last := cfg.Edges[len(cfg.Edges)-1]
	if last.Source != IDRiskJudge || last.Target != workflow.Exit {
		t.Errorf("last edge = %s -> %s, want risk_judge -> exit", last.Source, last.Target)
	}

	loops := 0
	for _, ed := range cfg.Edges {
		if ed.Type == workflow.EdgeTypeLoop {
			loops++
		}
	}
	if loops != 2 {
		t.Errorf("loop edges = %d, want 2", loops)
	}

	if got := cfg.Parameters[ParamSelectedAnalysts]; !reflect.DeepEqual(got, []string{"market_analyst", "news_analyst"}) {
		t.Errorf("selected_analysts = %v", got)
	}
}

func TestGenerate_CanonicalOrder(t *testing.T) {
	cfg, err := Generate([]workflow.AnalystRole{workflow.FundamentalsAnalyst, workflow.MarketAnalyst})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if cfg.Nodes[0].ID != string(workflow.MarketAnalyst) {
		t.Errorf("first node = %q, want market_analyst", cfg.Nodes[0].ID)
	}
	if cfg.Nodes[3].ID != string(workflow.FundamentalsAnalyst) {
		t.Errorf("fourth node = %q, want fundamentals_analyst", cfg.Nodes[3].ID)
	}
}

func TestGenerate_Options(t *testing.T) {
	cfg, err := Generate([]workflow.AnalystRole{workflow.MarketAnalyst},
		WithDebateRounds(3), WithRiskRounds(2), WithTier(workflow.TierDeep), WithDebateRounds(0))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if cfg.Parameters[ParamMaxDebateRounds] != 3 {
		t.Errorf("max_debate_rounds = %v, want 3", cfg.Parameters[ParamMaxDebateRounds])
	}
	if cfg.Parameters[ParamMaxRiskRounds] != 2 {
		t.Errorf("max_risk_discuss_rounds = %v, want 2", cfg.Parameters[ParamMaxRiskRounds])
	}
	spec, err := cfg.Nodes[0].Spec()
	if err != nil {
		t.Fatalf("Spec() error = %v", err)
	}
	if tier := spec.(workflow.AnalystSpec).Tier; tier != workflow.TierDeep {
		t.Errorf("analyst tier = %q, want deep", tier)
	}
}

func TestGenerate_Errors(t *testing.T) {
	if _, err := Generate(nil); !errors.Is(err, ErrNoAnalysts) {
		t.Errorf("Generate(nil) error = %v, want ErrNoAnalysts", err)
	}
	if _, err := Generate([]workflow.AnalystRole{workflow.NewsAnalyst, workflow.NewsAnalyst}); err == nil {
		t.Error("Generate(duplicate) error = nil")
	}
	if _, err := Generate([]workflow.AnalystRole{"crypto_analyst"}); err == nil {
		t.Error("Generate(unknown) error = nil")
	}
}

func TestGenerate_RoundTrip(t *testing.T) {
	cfg, err := Generate(allAnalysts(), WithDebateRounds(2))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	cond := firstConditional(t, cfg)

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	// The typed codecs keep mapping order.
	var typed workflow.Configuration
	if err := json.Unmarshal(data, &typed); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got := typed.Edges[cond].Condition.Mapping.Results(); !reflect.DeepEqual(got, cfg.Edges[cond].Condition.Mapping.Results()) {
		t.Errorf("JSON mapping order = %v, want %v", got, cfg.Edges[cond].Condition.Mapping.Results())
	}

	yamlData, err := loader.Marshal(cfg, loader.FormatYAML)
	if err != nil {
		t.Fatalf("Marshal(yaml) error = %v", err)
	}
	fromYAML, err := loader.Parse(yamlData, loader.FormatYAML)
	if err != nil {
		t.Fatalf("Parse(yaml) error = %v", err)
	}
	if got := fromYAML.Edges[cond].Condition.Mapping.Results(); !reflect.DeepEqual(got, cfg.Edges[cond].Condition.Mapping.Results()) {
		t.Errorf("YAML mapping order = %v, want %v", got, cfg.Edges[cond].Condition.Mapping.Results())
	}

	// A plain map, as a generic store would hold it, keeps content but not order.
	var plain map[string]any
	if err := json.Unmarshal(data, &plain); err != nil {
		t.Fatalf("Unmarshal(plain) error = %v", err)
	}
	data, err = json.Marshal(plain)
	if err != nil {
		t.Fatalf("Marshal(plain) error = %v", err)
	}
	var back workflow.Configuration
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !workflow.Equal(cfg, &back) {
		t.Error("round trip changed the configuration")
	}
	if len(back.Nodes) != len(cfg.Nodes) || len(back.Edges) != len(cfg.Edges) {
		t.Errorf("round trip sizes = %d/%d, want %d/%d", len(back.Nodes), len(back.Edges), len(cfg.Nodes), len(cfg.Edges))
	}
	if got, want := back.Edges[cond].Condition.Mapping.Map(), cfg.Edges[cond].Condition.Mapping.Map(); !reflect.DeepEqual(got, want) {
		t.Errorf("mapping = %v, want %v", got, want)
	}
}

// firstConditional returns the index of the first conditional edge whose
// mapping has more than one result.
func firstConditional(t *testing.T, cfg *workflow.Configuration) int {
	t.Helper()
	for i, ed := range cfg.Edges {
		if ed.Condition != nil && len(ed.Condition.Mapping) > 1 {
			return i
		}
	}
	t.Fatal("no conditional edge with several results")
	return -1
}

func TestGenerate_CompilesAndRoutes(t *testing.T) {
	cfg, err := Generate(allAnalysts())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	c := compiler.New(hydrate.NewFactory(hydrate.Placeholders("", "")), conditional.Standard(1, 1))
	bp, err := c.Blueprint(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Blueprint() error = %v", err)
	}
	if len(bp.Nodes) != len(cfg.Nodes) {
		t.Errorf("len(Nodes) = %d, want %d", len(bp.Nodes), len(cfg.Nodes))
	}

	tests := []struct {
		from  string
		state graph.State
		want  string
	}{
		{
			from:  "Market Analyst",
			state: graph.State{engine.StateKeyMessages: []any{map[string]any{"tool_calls": []any{"get_prices"}}}},
			want:  "tools_market",
		},
		{
			from:  "Market Analyst",
			state: graph.State{engine.StateKeyMessages: []any{map[string]any{"content": "report"}}},
			want:  "Msg Clear Market",
		},
		{
			from:  "Bull Researcher",
			state: graph.State{engine.StateKeyInvestmentDebate: map[string]any{"count": 1, "current_response": "Bull: buy"}},
			want:  "Bear Researcher",
		},
		{
			from:  "Bear Researcher",
			state: graph.State{engine.StateKeyInvestmentDebate: map[string]any{"count": 2, "current_response": "Bear: sell"}},
			want:  "Research Manager",
		},
		{
			from:  "Neutral Analyst",
			state: graph.State{engine.StateKeyRiskDebate: map[string]any{"count": 3, "latest_speaker": "Neutral"}},
			want:  "Risk Judge",
		},
	}
	for _, tt := range tests {
		got, err := bp.Route(context.Background(), tt.from, tt.state)
		if err != nil {
			t.Errorf("Route(%q) error = %v", tt.from, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Route(%q) = %q, want %q", tt.from, got, tt.want)
		}
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	c := compiler.New(hydrate.NewFactory(hydrate.Placeholders("", "")), conditional.Standard(1, 1))

	var sets [][]string
	for i := 0; i < 2; i++ {
		cfg, err := Generate(allAnalysts())
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		bp, err := c.Blueprint(context.Background(), cfg)
		if err != nil {
			t.Fatalf("Blueprint() error = %v", err)
		}
		sets = append(sets, bp.EdgeSet())
	}
	if !reflect.DeepEqual(sets[0], sets[1]) {
		t.Errorf("edge sets differ:\n%v\n%v", sets[0], sets[1])
	}
}

func TestAnalystsFromStrings(t *testing.T) {
	got, err := AnalystsFromStrings([]string{"market, News_Analyst", "", "social"})
	if err != nil {
		t.Fatalf("AnalystsFromStrings() error = %v", err)
	}
	want := []workflow.AnalystRole{workflow.MarketAnalyst, workflow.NewsAnalyst, workflow.SocialMediaAnalyst}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AnalystsFromStrings() = %v, want %v", got, want)
	}

	if _, err := AnalystsFromStrings([]string{"crypto"}); err == nil {
		t.Error("AnalystsFromStrings(crypto) error = nil")
	}
}
