package hydrate

import (
	"context"

	"trpc.group/trpc-go/trpc-agent-go/graph"

	"github.com/petal-labs/tradingflow/engine"
)

// ContinueMessage is the placeholder left in the history after it is
// cleared. Some providers reject an empty message list.
var ContinueMessage = map[string]any{"role": "user", "content": "Continue"}

// MessageClear replaces the message history with a single ContinueMessage so
// the next analyst starts from a clean context. It is stateless.
func MessageClear(_ context.Context, _ graph.State) (any, error) {
	placeholder := make(map[string]any, len(ContinueMessage))
	for k, v := range ContinueMessage {
		placeholder[k] = v
	}
	return graph.State{engine.StateKeyMessages: []any{placeholder}}, nil
}
