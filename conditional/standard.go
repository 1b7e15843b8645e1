package conditional

import (
	"context"
	"fmt"
	"strings"

	"trpc.group/trpc-go/trpc-agent-go/graph"

	"github.com/petal-labs/tradingflow/engine"
	"github.com/petal-labs/tradingflow/registry"
	"github.com/petal-labs/tradingflow/workflow"
)

// Predicate names used by the default configuration.
const (
	ShouldContinueDebate        = "should_continue_debate"
	ShouldContinueRiskAnalysis  = "should_continue_risk_analysis"
	shouldContinueAnalystPrefix = "should_continue_"
)

// AnalystPredicate returns the predicate name routing an analyst between its
// tool node and its message-clear node, e.g. "should_continue_market".
func AnalystPredicate(role workflow.AnalystRole) string {
	return shouldContinueAnalystPrefix + role.ToolKey()
}

// DebateState is the investment debate progress read by
// should_continue_debate.
type DebateState struct {
	Count           int    `json:"count"`
	CurrentResponse string `json:"current_response"`
	History         string `json:"history,omitempty"`
	BullHistory     string `json:"bull_history,omitempty"`
	BearHistory     string `json:"bear_history,omitempty"`
	JudgeDecision   string `json:"judge_decision,omitempty"`
}

// RiskDebateState is the risk debate progress read by
// should_continue_risk_analysis.
type RiskDebateState struct {
	Count         int    `json:"count"`
	LatestSpeaker string `json:"latest_speaker"`
	History       string `json:"history,omitempty"`
	JudgeDecision string `json:"judge_decision,omitempty"`
}

// ToolCaller is implemented by message values that can report pending
// tool calls.
type ToolCaller interface {
	HasToolCalls() bool
}

// Standard returns the trading predicates. Rounds below one are treated as
// one.
//
// The analyst predicates route to the analyst's tool node while the last
// message requests tool calls and to its message-clear node afterwards. The
// debate predicate alternates bull and bear until 2*maxDebateRounds turns
// have been taken, then hands over to the research manager. The risk
// predicate cycles risky, safe and neutral until 3*maxRiskRounds turns, then
// hands over to the risk judge.
func Standard(maxDebateRounds, maxRiskRounds int) *Set {
	if maxDebateRounds < 1 {
		maxDebateRounds = 1
	}
	if maxRiskRounds < 1 {
		maxRiskRounds = 1
	}

	s := NewSet()
	for _, role := range workflow.AnalystRoles() {
		s.Register(AnalystPredicate(role), analystRouter(role))
	}
	s.Register(ShouldContinueDebate, debateRouter(maxDebateRounds))
	s.Register(ShouldContinueRiskAnalysis, riskRouter(maxRiskRounds))
	return s
}

func analystRouter(role workflow.AnalystRole) graph.ConditionalFunc {
	tools, _ := registry.Global().DisplayName(workflow.NodeTypeToolNode, string(role))
	msgClear, _ := registry.Global().DisplayName(workflow.NodeTypeMessageClear, string(role))
	return func(_ context.Context, state graph.State) (string, error) {
		if LastMessageHasToolCalls(state) {
			return tools, nil
		}
		return msgClear, nil
	}
}

func debateRouter(rounds int) graph.ConditionalFunc {
	bull, _ := registry.Global().DisplayName(workflow.NodeTypeResearcher, string(workflow.BullResearcher))
	bear, _ := registry.Global().DisplayName(workflow.NodeTypeResearcher, string(workflow.BearResearcher))
	judge, _ := registry.Global().DisplayName(workflow.NodeTypeManager, string(workflow.ResearchManager))
	return func(_ context.Context, state graph.State) (string, error) {
		ds, err := ReadDebateState(state)
		if err != nil {
			return "", err
		}
		switch {
		case ds.Count >= 2*rounds:
			return judge, nil
		case strings.HasPrefix(ds.CurrentResponse, "Bull"):
			return bear, nil
		default:
			return bull, nil
		}
	}
}

func riskRouter(rounds int) graph.ConditionalFunc {
	name := func(r workflow.RiskRole) string {
		n, _ := registry.Global().DisplayName(workflow.NodeTypeRiskAnalyst, string(r))
		return n
	}
	risky, safe, neutral := name(workflow.AggressiveDebator), name(workflow.ConservativeDebator), name(workflow.NeutralDebator)
	judge, _ := registry.Global().DisplayName(workflow.NodeTypeManager, string(workflow.RiskManager))
	return func(_ context.Context, state graph.State) (string, error) {
		rs, err := ReadRiskDebateState(state)
		if err != nil {
			return "", err
		}
		switch {
		case rs.Count >= 3*rounds:
			return judge, nil
		case strings.HasPrefix(rs.LatestSpeaker, "Risky"):
			return safe, nil
		case strings.HasPrefix(rs.LatestSpeaker, "Safe"):
			return neutral, nil
		default:
			return risky, nil
		}
	}
}

// LastMessageHasToolCalls reports whether the final entry of the state's
// message history requests tool calls. Messages may be ToolCaller values or
// maps carrying a non-empty "tool_calls" entry.
func LastMessageHasToolCalls(state graph.State) bool {
	var last any
	switch msgs := state[engine.StateKeyMessages].(type) {
	case []any:
		if len(msgs) > 0 {
			last = msgs[len(msgs)-1]
		}
	case []map[string]any:
		if len(msgs) > 0 {
			last = msgs[len(msgs)-1]
		}
	case []ToolCaller:
		if len(msgs) > 0 {
			last = msgs[len(msgs)-1]
		}
	}

	switch m := last.(type) {
	case ToolCaller:
		return m.HasToolCalls()
	case map[string]any:
		switch calls := m["tool_calls"].(type) {
		case []any:
			return len(calls) > 0
		case []map[string]any:
			return len(calls) > 0
		case nil:
			return false
		default:
			return true
		}
	}
	return false
}

// ReadDebateState extracts the investment debate state. A missing entry is
// a fresh debate.
func ReadDebateState(state graph.State) (DebateState, error) {
	switch v := state[engine.StateKeyInvestmentDebate].(type) {
	case nil:
		return DebateState{}, nil
	case DebateState:
		return v, nil
	case *DebateState:
		if v == nil {
			return DebateState{}, nil
		}
		return *v, nil
	case map[string]any:
		count, err := intValue(v["count"])
		if err != nil {
			return DebateState{}, fmt.Errorf("%s.count: %w", engine.StateKeyInvestmentDebate, err)
		}
		return DebateState{
			Count:           count,
			CurrentResponse: stringValue(v["current_response"]),
			History:         stringValue(v["history"]),
			BullHistory:     stringValue(v["bull_history"]),
			BearHistory:     stringValue(v["bear_history"]),
			JudgeDecision:   stringValue(v["judge_decision"]),
		}, nil
	default:
		return DebateState{}, fmt.Errorf("%s has unsupported type %T", engine.StateKeyInvestmentDebate, v)
	}
}

// ReadRiskDebateState extracts the risk debate state. A missing entry is a
// fresh debate.
func ReadRiskDebateState(state graph.State) (RiskDebateState, error) {
	switch v := state[engine.StateKeyRiskDebate].(type) {
	case nil:
		return RiskDebateState{}, nil
	case RiskDebateState:
		return v, nil
	case *RiskDebateState:
		if v == nil {
			return RiskDebateState{}, nil
		}
		return *v, nil
	case map[string]any:
		count, err := intValue(v["count"])
		if err != nil {
			return RiskDebateState{}, fmt.Errorf("%s.count: %w", engine.StateKeyRiskDebate, err)
		}
		return RiskDebateState{
			Count:         count,
			LatestSpeaker: stringValue(v["latest_speaker"]),
			History:       stringValue(v["history"]),
			JudgeDecision: stringValue(v["judge_decision"]),
		}, nil
	default:
		return RiskDebateState{}, fmt.Errorf("%s has unsupported type %T", engine.StateKeyRiskDebate, v)
	}
}

func intValue(v any) (int, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	case float32:
		return int(n), nil
	}
	return 0, fmt.Errorf("expected a number, got %T", v)
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}
