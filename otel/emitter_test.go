package otel_test

import (
	"testing"

	"github.com/petal-labs/tradingflow/compiler"
	tfotel "github.com/petal-labs/tradingflow/otel"
)

func TestEnrichHandler_PopulatesTraceFields(t *testing.T) {
	_, tp := newTestTracer()
	h := tfotel.NewTracingHandler(tp.Tracer("test"))

	h.Handle(compiler.NewEvent(compiler.EventCompileStarted, "build-1", "w"))

	expected := h.ActiveSpanContext("build-1")
	if !expected.IsValid() {
		t.Fatal("expected valid span context")
	}

	var received compiler.Event
	enriched := tfotel.EnrichHandler(func(e compiler.Event) { received = e }, h)

	enriched(compiler.NewEvent(compiler.EventNodeRegistered, "build-1", "w").WithNode("a"))

	if received.TraceID != expected.TraceID().String() {
		t.Errorf("TraceID: got %q, want %q", received.TraceID, expected.TraceID().String())
	}
	if received.SpanID != expected.SpanID().String() {
		t.Errorf("SpanID: got %q, want %q", received.SpanID, expected.SpanID().String())
	}
}

func TestEnrichHandler_NoActiveSpan(t *testing.T) {
	_, tp := newTestTracer()
	h := tfotel.NewTracingHandler(tp.Tracer("test"))

	var received compiler.Event
	enriched := tfotel.EnrichHandler(func(e compiler.Event) { received = e }, h)

	enriched(compiler.NewEvent(compiler.EventValidateFinished, "v-1", "w"))

	if received.Kind != compiler.EventValidateFinished {
		t.Fatalf("event not passed through: %+v", received)
	}
	if received.TraceID != "" || received.SpanID != "" {
		t.Errorf("expected empty trace fields, got %q/%q", received.TraceID, received.SpanID)
	}
}

func TestEnrichHandler_WithMultiEventHandler(t *testing.T) {
	_, tp := newTestTracer()
	h := tfotel.NewTracingHandler(tp.Tracer("test"))

	ch := make(chan compiler.Event, 4)
	handler := compiler.MultiEventHandler(h.Handle, tfotel.EnrichHandler(compiler.ChannelEventHandler(ch), h))

	handler(compiler.NewEvent(compiler.EventCompileStarted, "build-1", "w"))
	handler(compiler.NewEvent(compiler.EventCompileFinished, "build-1", "w"))
	close(ch)

	var events []compiler.Event
	for e := range ch {
		events = append(events, e)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].TraceID == "" {
		t.Error("compile.started not enriched")
	}
	// The span ends before the finished event reaches the enricher.
	if events[1].TraceID != "" {
		t.Errorf("compile.finished enriched after span ended: %q", events[1].TraceID)
	}
}
