package engine

import (
	"reflect"

	"trpc.group/trpc-go/trpc-agent-go/graph"
)

// State keys shared by the trading node bodies and predicates.
const (
	StateKeyMessages             = "messages"
	StateKeyCompany              = "company_of_interest"
	StateKeyTradeDate            = "trade_date"
	StateKeySender               = "sender"
	StateKeyMarketReport         = "market_report"
	StateKeySentimentReport      = "sentiment_report"
	StateKeyNewsReport           = "news_report"
	StateKeyFundamentalsReport   = "fundamentals_report"
	StateKeyInvestmentDebate     = "investment_debate_state"
	StateKeyInvestmentPlan       = "investment_plan"
	StateKeyTraderInvestmentPlan = "trader_investment_plan"
	StateKeyRiskDebate           = "risk_debate_state"
	StateKeyFinalTradeDecision   = "final_trade_decision"
)

// DefaultSchema returns the state schema for trading pipelines. Every field
// is last-writer-wins, so a node that returns "messages" replaces the
// history rather than appending to it.
func DefaultSchema() *graph.StateSchema {
	schema := graph.NewStateSchema()

	schema.AddField(StateKeyMessages, graph.StateField{
		Type:    reflect.TypeOf([]any{}),
		Reducer: graph.DefaultReducer,
		Default: func() any { return []any{} },
	})
	for _, key := range []string{
		StateKeyCompany,
		StateKeyTradeDate,
		StateKeySender,
		StateKeyMarketReport,
		StateKeySentimentReport,
		StateKeyNewsReport,
		StateKeyFundamentalsReport,
		StateKeyInvestmentPlan,
		StateKeyTraderInvestmentPlan,
		StateKeyFinalTradeDecision,
	} {
		schema.AddField(key, graph.StateField{
			Type:    reflect.TypeOf(""),
			Reducer: graph.DefaultReducer,
		})
	}
	for _, key := range []string{StateKeyInvestmentDebate, StateKeyRiskDebate} {
		schema.AddField(key, graph.StateField{
			Type:    reflect.TypeOf(map[string]any{}),
			Reducer: graph.DefaultReducer,
			Default: func() any { return map[string]any{} },
		})
	}
	return schema
}

// StateGraphBuilder is a Builder over the trpc-agent-go StateGraph.
type StateGraphBuilder struct {
	sg    *graph.StateGraph
	nodes nodeSet
}

var _ Builder[*graph.Graph] = (*StateGraphBuilder)(nil)

// NewStateGraphBuilder returns a builder over a fresh StateGraph. A nil
// schema selects DefaultSchema.
func NewStateGraphBuilder(schema *graph.StateSchema) *StateGraphBuilder {
	if schema == nil {
		schema = DefaultSchema()
	}
	return &StateGraphBuilder{
		sg:    graph.NewStateGraph(schema),
		nodes: newNodeSet(),
	}
}

// AddNode registers fn under name.
func (b *StateGraphBuilder) AddNode(name string, fn graph.NodeFunc) error {
	if err := b.nodes.addNode(name, fn); err != nil {
		return err
	}
	b.sg.AddNode(name, fn)
	return nil
}

// AddEdge adds a direct transition. Edges from Start become entry points and
// edges to End become finish points.
func (b *StateGraphBuilder) AddEdge(from, to string) error {
	if err := b.nodes.checkEdge(from, to); err != nil {
		return err
	}
	switch {
	case from == Start:
		b.sg.SetEntryPoint(to)
	case to == End:
		b.sg.SetFinishPoint(from)
	default:
		b.sg.AddEdge(from, to)
	}
	return nil
}

// AddConditionalEdges routes from through cond and pathMap.
func (b *StateGraphBuilder) AddConditionalEdges(from string, cond graph.ConditionalFunc, pathMap map[string]string) error {
	if err := b.nodes.checkConditional(from, cond, pathMap); err != nil {
		return err
	}
	b.sg.AddConditionalEdges(from, cond, copyPathMap(pathMap))
	return nil
}

// Compile validates and returns the executable graph.
func (b *StateGraphBuilder) Compile() (*graph.Graph, error) {
	if b.nodes.compiled {
		return nil, ErrCompiled
	}
	g, err := b.sg.Compile()
	if err != nil {
		return nil, err
	}
	b.nodes.compiled = true
	return g, nil
}

func copyPathMap(pathMap map[string]string) map[string]string {
	out := make(map[string]string, len(pathMap))
	for k, v := range pathMap {
		out[k] = v
	}
	return out
}
