package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/petal-labs/tradingflow/compiler"
)

// MetricsHandler translates compiler events into OpenTelemetry metrics.
// It counts compilations and failures, records compile durations, and
// counts the diagnostics produced by validation passes.
type MetricsHandler struct {
	compiles    metric.Int64Counter
	failures    metric.Int64Counter
	duration    metric.Float64Histogram
	diagnostics metric.Int64Counter
}

// NewMetricsHandler creates a MetricsHandler that uses the given meter to
// create its instruments.
func NewMetricsHandler(meter metric.Meter) (*MetricsHandler, error) {
	compiles, err := meter.Int64Counter("tradingflow.compile.total",
		metric.WithDescription("Number of workflow compilations"),
	)
	if err != nil {
		return nil, err
	}

	failures, err := meter.Int64Counter("tradingflow.compile.failures",
		metric.WithDescription("Number of failed workflow compilations"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram("tradingflow.compile.duration",
		metric.WithDescription("Duration of workflow compilation in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	diagnostics, err := meter.Int64Counter("tradingflow.validate.diagnostics",
		metric.WithDescription("Number of diagnostics reported by validation"),
	)
	if err != nil {
		return nil, err
	}

	return &MetricsHandler{
		compiles:    compiles,
		failures:    failures,
		duration:    duration,
		diagnostics: diagnostics,
	}, nil
}

// Handle processes a compiler event and records the appropriate metrics.
// It has compiler.EventHandler semantics.
func (h *MetricsHandler) Handle(e compiler.Event) {
	switch e.Kind {
	case compiler.EventCompileFinished:
		h.handleCompileEnded(e, "ok")
	case compiler.EventCompileFailed:
		h.handleCompileEnded(e, "failed")
	case compiler.EventValidateFinished:
		h.handleValidateFinished(e)
	}
}

// handleCompileEnded counts the compilation and records its duration.
func (h *MetricsHandler) handleCompileEnded(e compiler.Event, status string) {
	ctx := context.Background()
	attrs := metric.WithAttributes(
		attribute.String("workflow", e.Workflow),
		attribute.String("status", status),
	)
	h.compiles.Add(ctx, 1, attrs)
	h.duration.Record(ctx, e.Elapsed.Seconds(), attrs)
	if status == "failed" {
		h.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("workflow", e.Workflow)))
	}
}

// handleValidateFinished adds the error and warning counts.
func (h *MetricsHandler) handleValidateFinished(e compiler.Event) {
	ctx := context.Background()
	for _, severity := range []string{"error", "warning"} {
		n := payloadInt(e, severity+"s")
		if n == 0 {
			continue
		}
		h.diagnostics.Add(ctx, int64(n), metric.WithAttributes(
			attribute.String("workflow", e.Workflow),
			attribute.String("severity", severity),
		))
	}
}
