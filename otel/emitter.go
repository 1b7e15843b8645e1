package otel

import (
	"github.com/petal-labs/tradingflow/compiler"
)

// EnrichHandler wraps an EventHandler with OpenTelemetry trace context.
// Events of a compilation with an active span get its TraceID and SpanID
// before being passed on. Other events pass through unchanged.
//
// Register the TracingHandler ahead of the handler returned here so the
// span exists by the time compile.started reaches it.
func EnrichHandler(next compiler.EventHandler, tracing *TracingHandler) compiler.EventHandler {
	return func(e compiler.Event) {
		if e.BuildID != "" {
			sc := tracing.ActiveSpanContext(e.BuildID)
			if sc.IsValid() {
				e.TraceID = sc.TraceID().String()
				e.SpanID = sc.SpanID().String()
			}
		}
		next(e)
	}
}
