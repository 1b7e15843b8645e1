package compiler

import "time"

// EventKind identifies the type of event emitted by the compiler.
type EventKind string

const (
	// EventCompileStarted is emitted when a compilation begins.
	EventCompileStarted EventKind = "compile.started"

	// EventNodeRegistered is emitted after a node is added to the graph.
	EventNodeRegistered EventKind = "node.registered"

	// EventEdgeRegistered is emitted after an edge is added to the graph.
	// Conditional edges merged into one transition each emit their own event.
	EventEdgeRegistered EventKind = "edge.registered"

	// EventCompileFinished is emitted when a compilation succeeds.
	EventCompileFinished EventKind = "compile.finished"

	// EventCompileFailed is emitted when a compilation aborts.
	EventCompileFailed EventKind = "compile.failed"

	// EventValidateFinished is emitted when a validation pass completes.
	EventValidateFinished EventKind = "validate.finished"
)

// String returns the string representation of the EventKind.
func (k EventKind) String() string {
	return string(k)
}

// Event is a record of one step of a compilation or validation pass.
type Event struct {
	// Kind identifies the event type.
	Kind EventKind

	// BuildID identifies the compilation or validation pass.
	BuildID string

	// Workflow is the configuration name.
	Workflow string

	// NodeID is the node the event concerns (node.registered, or a failure
	// attributed to a node).
	NodeID string

	// EdgeID is the edge the event concerns.
	EdgeID string

	// Time is when the event occurred.
	Time time.Time

	// Elapsed is the duration since the pass started.
	Elapsed time.Duration

	// Payload contains event-specific data.
	Payload map[string]any

	// TraceID and SpanID are set by tracing-aware handlers.
	TraceID string
	SpanID  string
}

// NewEvent creates a new event with the current timestamp.
func NewEvent(kind EventKind, buildID, workflow string) Event {
	return Event{
		Kind:     kind,
		BuildID:  buildID,
		Workflow: workflow,
		Time:     time.Now(),
		Payload:  make(map[string]any),
	}
}

// WithNode sets the node id on the event.
func (e Event) WithNode(nodeID string) Event {
	e.NodeID = nodeID
	return e
}

// WithEdge sets the edge id on the event.
func (e Event) WithEdge(edgeID string) Event {
	e.EdgeID = edgeID
	return e
}

// WithElapsed sets the elapsed duration on the event.
func (e Event) WithElapsed(elapsed time.Duration) Event {
	e.Elapsed = elapsed
	return e
}

// WithPayload sets a payload entry and returns the event.
func (e Event) WithPayload(key string, value any) Event {
	if e.Payload == nil {
		e.Payload = make(map[string]any)
	}
	e.Payload[key] = value
	return e
}

// EventHandler is a function type for handling events.
type EventHandler func(Event)

// MultiEventHandler combines multiple handlers into one. Nil handlers are
// skipped.
func MultiEventHandler(handlers ...EventHandler) EventHandler {
	return func(e Event) {
		for _, h := range handlers {
			if h != nil {
				h(e)
			}
		}
	}
}

// ChannelEventHandler returns a handler that sends events to a channel.
// Events are dropped if the channel is full.
func ChannelEventHandler(ch chan<- Event) EventHandler {
	return func(e Event) {
		select {
		case ch <- e:
		default:
		}
	}
}
