package otel

import (
	"context"
	"fmt"
	"strings"

	otelapi "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/petal-labs/tradingflow/compiler"
)

// InstrumentationName names the tracer and meter used by tradingflow.
const InstrumentationName = "github.com/petal-labs/tradingflow"

// ShutdownFunc flushes and stops exporters.
type ShutdownFunc func(context.Context) error

// Setup exports compiler spans over OTLP/HTTP to endpoint and returns a
// handler that feeds them. endpoint is either host:port (plain HTTP) or a
// full http(s) URL. Metrics go to the global meter provider.
//
// An empty endpoint returns a nil handler and a no-op shutdown.
func Setup(ctx context.Context, endpoint string) (compiler.EventHandler, ShutdownFunc, error) {
	if endpoint == "" {
		return nil, func(context.Context) error { return nil }, nil
	}

	var opts []otlptracehttp.Option
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		opts = append(opts, otlptracehttp.WithEndpointURL(endpoint))
	} else {
		opts = append(opts, otlptracehttp.WithEndpoint(endpoint), otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("creating otlp exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", "tradingflow"),
		)),
	)

	handler, err := NewHandler(tp.Tracer(InstrumentationName))
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, nil, err
	}
	return handler, tp.Shutdown, nil
}

// NewHandler combines tracing and metrics into one compiler.EventHandler.
// Metrics use the global meter provider.
func NewHandler(tracer trace.Tracer) (compiler.EventHandler, error) {
	metrics, err := NewMetricsHandler(otelapi.Meter(InstrumentationName))
	if err != nil {
		return nil, fmt.Errorf("creating metrics handler: %w", err)
	}
	tracing := NewTracingHandler(tracer)
	return compiler.MultiEventHandler(tracing.Handle, metrics.Handle), nil
}
