// Package otel provides OpenTelemetry integration for tradingflow compiler events.
package otel

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/petal-labs/tradingflow/compiler"
)

// TracingHandler translates compiler events into OpenTelemetry spans.
// Each compilation becomes one span keyed by build id; node and edge
// registrations are recorded as span events on it. Validation passes
// become standalone spans.
type TracingHandler struct {
	tracer trace.Tracer

	mu    sync.RWMutex
	spans map[string]trace.Span // buildID -> span
}

// NewTracingHandler creates a new TracingHandler that uses the given tracer
// to create spans from compiler events.
func NewTracingHandler(tracer trace.Tracer) *TracingHandler {
	return &TracingHandler{
		tracer: tracer,
		spans:  make(map[string]trace.Span),
	}
}

// Handle processes a compiler event and creates or ends spans accordingly.
// It has compiler.EventHandler semantics.
func (h *TracingHandler) Handle(e compiler.Event) {
	switch e.Kind {
	case compiler.EventCompileStarted:
		h.handleCompileStarted(e)
	case compiler.EventNodeRegistered, compiler.EventEdgeRegistered:
		h.handleRegistration(e)
	case compiler.EventCompileFinished:
		h.handleCompileEnded(e, "")
	case compiler.EventCompileFailed:
		errMsg := "compile failed"
		if s := payloadString(e, "error"); s != "" {
			errMsg = s
		}
		h.handleCompileEnded(e, errMsg)
	case compiler.EventValidateFinished:
		h.handleValidateFinished(e)
	}
}

// handleCompileStarted creates the root span for a compilation.
func (h *TracingHandler) handleCompileStarted(e compiler.Event) {
	_, span := h.tracer.Start(context.Background(), spanName("compile", e),
		trace.WithAttributes(
			attribute.String("tradingflow.build_id", e.BuildID),
			attribute.String("tradingflow.workflow", e.Workflow),
			attribute.Int("tradingflow.nodes", payloadInt(e, "nodes")),
			attribute.Int("tradingflow.edges", payloadInt(e, "edges")),
		),
		trace.WithTimestamp(e.Time),
	)

	h.mu.Lock()
	h.spans[e.BuildID] = span
	h.mu.Unlock()
}

// handleRegistration adds a span event for node.registered and
// edge.registered events.
func (h *TracingHandler) handleRegistration(e compiler.Event) {
	h.mu.RLock()
	span, ok := h.spans[e.BuildID]
	h.mu.RUnlock()

	if !ok {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("tradingflow.event_kind", string(e.Kind)),
	}
	if e.NodeID != "" {
		attrs = append(attrs, attribute.String("tradingflow.node_id", e.NodeID))
	}
	if e.EdgeID != "" {
		attrs = append(attrs, attribute.String("tradingflow.edge_id", e.EdgeID))
	}
	for _, key := range []string{"name", "type", "source", "target", "function"} {
		if s := payloadString(e, key); s != "" {
			attrs = append(attrs, attribute.String("tradingflow."+key, s))
		}
	}

	span.AddEvent(string(e.Kind), trace.WithTimestamp(e.Time), trace.WithAttributes(attrs...))
}

// handleCompileEnded ends the root span. A non-empty errMsg marks it failed.
func (h *TracingHandler) handleCompileEnded(e compiler.Event, errMsg string) {
	h.mu.Lock()
	span, ok := h.spans[e.BuildID]
	if ok {
		delete(h.spans, e.BuildID)
	}
	h.mu.Unlock()

	if !ok {
		return
	}

	span.SetAttributes(attribute.String("tradingflow.duration", e.Elapsed.String()))
	if errMsg == "" {
		span.SetStatus(codes.Ok, "")
		span.End(trace.WithTimestamp(e.Time))
		return
	}

	if e.NodeID != "" {
		span.SetAttributes(attribute.String("tradingflow.node_id", e.NodeID))
	}
	if e.EdgeID != "" {
		span.SetAttributes(attribute.String("tradingflow.edge_id", e.EdgeID))
	}
	span.SetStatus(codes.Error, errMsg)
	span.RecordError(spanError(errMsg), trace.WithTimestamp(e.Time))
	span.End(trace.WithTimestamp(e.Time))
}

// handleValidateFinished records a validation pass as a complete span
// covering its elapsed time.
func (h *TracingHandler) handleValidateFinished(e compiler.Event) {
	errs := payloadInt(e, "errors")
	_, span := h.tracer.Start(context.Background(), spanName("validate", e),
		trace.WithAttributes(
			attribute.String("tradingflow.build_id", e.BuildID),
			attribute.Int("tradingflow.errors", errs),
			attribute.Int("tradingflow.warnings", payloadInt(e, "warnings")),
		),
		trace.WithTimestamp(e.Time.Add(-e.Elapsed)),
	)
	if e.Workflow != "" {
		span.SetAttributes(attribute.String("tradingflow.workflow", e.Workflow))
	}
	if errs > 0 {
		span.SetStatus(codes.Error, "configuration has errors")
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End(trace.WithTimestamp(e.Time))
}

// ActiveSpanContext returns the SpanContext of the compilation identified
// by buildID. Returns an empty SpanContext if not found.
func (h *TracingHandler) ActiveSpanContext(buildID string) trace.SpanContext {
	h.mu.RLock()
	span, ok := h.spans[buildID]
	h.mu.RUnlock()

	if !ok {
		return trace.SpanContext{}
	}
	return span.SpanContext()
}

func spanName(prefix string, e compiler.Event) string {
	if e.Workflow != "" {
		return prefix + ":" + e.Workflow
	}
	return prefix + ":" + e.BuildID
}

func payloadString(e compiler.Event, key string) string {
	if v, ok := e.Payload[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func payloadInt(e compiler.Event, key string) int {
	if v, ok := e.Payload[key]; ok {
		if n, ok := v.(int); ok {
			return n
		}
	}
	return 0
}

// spanError is a simple error type for recording span errors.
type spanError string

func (e spanError) Error() string { return string(e) }
