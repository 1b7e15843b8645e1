// Package defaults generates the reference trading pipeline as a
// workflow.Configuration. The output is used when no stored configuration
// exists and as a starting template for editors.
package defaults

import (
	"errors"
	"fmt"
	"strings"

	"github.com/petal-labs/tradingflow/conditional"
	"github.com/petal-labs/tradingflow/registry"
	"github.com/petal-labs/tradingflow/workflow"
)

// Identity of generated configurations.
const (
	Name        = "Default Trading Workflow"
	Version     = "1.0.0"
	Description = "Analysts gather evidence, researchers debate it, the trader proposes and the risk team signs off"
	Author      = "system"
)

// Parameter keys written into the generated configuration.
const (
	ParamSelectedAnalysts = "selected_analysts"
	ParamMaxDebateRounds  = "max_debate_rounds"
	ParamMaxRiskRounds    = "max_risk_discuss_rounds"
)

// ErrNoAnalysts is returned when the analyst selection is empty.
var ErrNoAnalysts = errors.New("defaults: at least one analyst must be selected")

// Node ids used by the generated configuration. Analyst nodes use their
// role as id, tool nodes "tools_<key>" and message-clear nodes
// "msg_clear_<key>".
const (
	IDBull        = "bull_researcher"
	IDBear        = "bear_researcher"
	IDResearchMgr = "research_manager"
	IDTrader      = "trader"
	IDRisky       = "risky_analyst"
	IDSafe        = "safe_analyst"
	IDNeutral     = "neutral_analyst"
	IDRiskJudge   = "risk_judge"
)

const (
	toolIDPrefix  = "tools_"
	clearIDPrefix = "msg_clear_"

	// Editor layout grid.
	columnSpacing = 260.0
	rowSpacing    = 140.0
)

type options struct {
	debateRounds int
	riskRounds   int
	tier         workflow.ModelTier
}

// Option configures Generate.
type Option func(*options)

// WithDebateRounds sets max_debate_rounds. Values below one are ignored.
func WithDebateRounds(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.debateRounds = n
		}
	}
}

// WithRiskRounds sets max_risk_discuss_rounds. Values below one are ignored.
func WithRiskRounds(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.riskRounds = n
		}
	}
}

// WithTier sets the model tier written into every analyst's llm_type.
func WithTier(tier workflow.ModelTier) Option {
	return func(o *options) {
		o.tier = tier
	}
}

// Generate returns the reference pipeline for the selected analysts.
//
// Analysts run in canonical order (market, social, news, fundamentals)
// whatever order they are given in. Each analyst loops through its tool
// node until it stops requesting tools, then its history is cleared and
// the next analyst starts. After the last analyst the bull and bear
// researchers debate, the research manager rules, the trader proposes,
// the three risk debators argue and the risk judge decides.
func Generate(analysts []workflow.AnalystRole, opts ...Option) (*workflow.Configuration, error) {
	o := options{
		debateRounds: 1,
		riskRounds:   1,
		tier:         workflow.TierQuick,
	}
	for _, opt := range opts {
		opt(&o)
	}

	selected, err := canonical(analysts)
	if err != nil {
		return nil, err
	}

	g := &generator{reg: registry.Global()}
	g.analysts(selected, o.tier)
	g.debate()
	g.risk()

	selectedNames := make([]string, 0, len(selected))
	for _, r := range selected {
		selectedNames = append(selectedNames, string(r))
	}
	cfg := workflow.New(Name, Version, g.nodes, g.edges, map[string]any{
		ParamSelectedAnalysts: selectedNames,
		ParamMaxDebateRounds:  o.debateRounds,
		ParamMaxRiskRounds:    o.riskRounds,
	})
	cfg.Description = Description
	cfg.Metadata[workflow.MetaIsDefault] = true
	cfg.Metadata[workflow.MetaAuthor] = Author
	return cfg, nil
}

// canonical checks the selection and sorts it into pipeline order.
func canonical(analysts []workflow.AnalystRole) ([]workflow.AnalystRole, error) {
	if len(analysts) == 0 {
		return nil, ErrNoAnalysts
	}
	seen := make(map[workflow.AnalystRole]bool, len(analysts))
	for _, r := range analysts {
		if !r.Valid() {
			return nil, fmt.Errorf("defaults: unknown analyst %q", r)
		}
		if seen[r] {
			return nil, fmt.Errorf("defaults: analyst %q selected twice", r)
		}
		seen[r] = true
	}
	out := make([]workflow.AnalystRole, 0, len(analysts))
	for _, r := range workflow.AnalystRoles() {
		if seen[r] {
			out = append(out, r)
		}
	}
	return out, nil
}

// AnalystsFromStrings parses analyst selections from user input. Full role
// names ("news_analyst") and tool keys ("news") are both accepted, case
// insensitively. Empty entries are skipped.
func AnalystsFromStrings(values []string) ([]workflow.AnalystRole, error) {
	byKey := make(map[string]workflow.AnalystRole)
	for _, r := range workflow.AnalystRoles() {
		byKey[string(r)] = r
		byKey[r.ToolKey()] = r
	}

	var out []workflow.AnalystRole
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			key := strings.ToLower(strings.TrimSpace(part))
			if key == "" {
				continue
			}
			r, ok := byKey[key]
			if !ok {
				return nil, fmt.Errorf("unknown analyst %q", part)
			}
			out = append(out, r)
		}
	}
	return out, nil
}

// generator accumulates nodes and edges in declaration order.
type generator struct {
	reg   *registry.Registry
	nodes []workflow.NodeDescriptor
	edges []workflow.EdgeDescriptor
}

func (g *generator) node(nd workflow.NodeDescriptor, col, row int) {
	nd.Position = &workflow.Position{X: float64(col) * columnSpacing, Y: float64(row) * rowSpacing}
	g.nodes = append(g.nodes, nd)
}

func (g *generator) edge(source, target string, typ workflow.EdgeType, cond *workflow.ConditionDescriptor) {
	g.edges = append(g.edges, workflow.EdgeDescriptor{
		ID:        fmt.Sprintf("e%d", len(g.edges)+1),
		Source:    source,
		Target:    target,
		Type:      typ,
		Condition: cond,
	})
}

func (g *generator) name(t workflow.NodeType, role string) string {
	name, _ := g.reg.DisplayName(t, role)
	return name
}

// analysts emits one analyst, tool node and message-clear node per role and
// chains them from entry to the bull researcher.
func (g *generator) analysts(selected []workflow.AnalystRole, tier workflow.ModelTier) {
	prev := workflow.Entry
	for row, role := range selected {
		id := string(role)
		toolID := toolIDPrefix + role.ToolKey()
		clearID := clearIDPrefix + role.ToolKey()

		analystName := g.name(workflow.NodeTypeAnalyst, id)
		toolName := g.name(workflow.NodeTypeToolNode, id)
		clearName := g.name(workflow.NodeTypeMessageClear, id)

		g.node(workflow.NewAnalystNode(id, analystName, role, tier), 0, row)
		g.node(workflow.NewToolNode(toolID, toolName, role), 1, row)
		g.node(workflow.NewMessageClearNode(clearID, clearName, role), 2, row)

		g.edge(prev, id, workflow.EdgeTypeDirect, nil)
		g.edge(id, toolID, workflow.EdgeTypeConditional, &workflow.ConditionDescriptor{
			Function: conditional.AnalystPredicate(role),
			Mapping:  workflow.Mapping(toolName, toolID, clearName, clearID),
		})
		g.edge(toolID, id, workflow.EdgeTypeLoop, nil)

		prev = clearID
	}
	g.edge(prev, IDBull, workflow.EdgeTypeDirect, nil)
}

// debate emits the bull/bear debate judged by the research manager, and the
// trader that follows it.
func (g *generator) debate() {
	row := len(g.nodes) / 3
	bull := g.name(workflow.NodeTypeResearcher, string(workflow.BullResearcher))
	bear := g.name(workflow.NodeTypeResearcher, string(workflow.BearResearcher))
	judge := g.name(workflow.NodeTypeManager, string(workflow.ResearchManager))

	g.node(workflow.NewResearcherNode(IDBull, bull, workflow.BullResearcher), 0, row)
	g.node(workflow.NewResearcherNode(IDBear, bear, workflow.BearResearcher), 1, row)
	g.node(workflow.NewManagerNode(IDResearchMgr, judge, workflow.ResearchManager), 2, row)
	g.node(workflow.NewTraderNode(IDTrader, g.name(workflow.NodeTypeTrader, "")), 2, row+1)

	g.edge(IDBull, IDBear, workflow.EdgeTypeConditional, &workflow.ConditionDescriptor{
		Function: conditional.ShouldContinueDebate,
		Mapping:  workflow.Mapping(bear, IDBear, judge, IDResearchMgr),
	})
	g.edge(IDBear, IDBull, workflow.EdgeTypeConditional, &workflow.ConditionDescriptor{
		Function: conditional.ShouldContinueDebate,
		Mapping:  workflow.Mapping(bull, IDBull, judge, IDResearchMgr),
	})
	g.edge(IDResearchMgr, IDTrader, workflow.EdgeTypeDirect, nil)
}

// risk emits the three risk debators and the risk judge that ends the run.
func (g *generator) risk() {
	row := len(g.nodes)/3 + 1
	risky := g.name(workflow.NodeTypeRiskAnalyst, string(workflow.AggressiveDebator))
	safe := g.name(workflow.NodeTypeRiskAnalyst, string(workflow.ConservativeDebator))
	neutral := g.name(workflow.NodeTypeRiskAnalyst, string(workflow.NeutralDebator))
	judge := g.name(workflow.NodeTypeManager, string(workflow.RiskManager))

	g.node(workflow.NewRiskAnalystNode(IDRisky, risky, workflow.AggressiveDebator), 0, row)
	g.node(workflow.NewRiskAnalystNode(IDSafe, safe, workflow.ConservativeDebator), 1, row)
	g.node(workflow.NewRiskAnalystNode(IDNeutral, neutral, workflow.NeutralDebator), 2, row)
	g.node(workflow.NewManagerNode(IDRiskJudge, judge, workflow.RiskManager), 1, row+1)

	g.edge(IDTrader, IDRisky, workflow.EdgeTypeDirect, nil)
	g.edge(IDRisky, IDSafe, workflow.EdgeTypeConditional, &workflow.ConditionDescriptor{
		Function: conditional.ShouldContinueRiskAnalysis,
		Mapping:  workflow.Mapping(safe, IDSafe, judge, IDRiskJudge),
	})
	g.edge(IDSafe, IDNeutral, workflow.EdgeTypeConditional, &workflow.ConditionDescriptor{
		Function: conditional.ShouldContinueRiskAnalysis,
		Mapping:  workflow.Mapping(neutral, IDNeutral, judge, IDRiskJudge),
	})
	g.edge(IDNeutral, IDRisky, workflow.EdgeTypeConditional, &workflow.ConditionDescriptor{
		Function: conditional.ShouldContinueRiskAnalysis,
		Mapping:  workflow.Mapping(risky, IDRisky, judge, IDRiskJudge),
	})
	g.edge(IDRiskJudge, workflow.Exit, workflow.EdgeTypeDirect, nil)
}
