// Package tracing wires an optional per-request span around each HTTP
// handler invocation. Exports over OTLP/HTTP when
// OTEL_EXPORTER_OTLP_ENDPOINT is set; otherwise every span is recorded by
// a no-op tracer so the cost of instrumentation is zero when tracing
// isn't configured.
package tracing

import (
	"context"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Provider wraps a trace.TracerProvider and its shutdown hook. The zero
// value is unused; construct with New.
type Provider struct {
	tp       trace.TracerProvider
	shutdown func(context.Context) error
}

// New builds a Provider. If OTEL_EXPORTER_OTLP_ENDPOINT is unset, it
// returns the global no-op TracerProvider — spans are created but
// discarded, at negligible cost. serviceName identifies this process in
// exported spans.
func New(ctx context.Context, serviceName string) (*Provider, error) {
	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint == "" {
		return &Provider{tp: otel.GetTracerProvider(), shutdown: func(context.Context) error { return nil }}, nil
	}

	exp, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(endpoint))
	if err != nil {
		return nil, err
	}
	res, err := resource.Merge(resource.Default(),
		resource.NewSchemaless(semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	return &Provider{tp: tp, shutdown: tp.Shutdown}, nil
}

// Tracer returns a trace.Tracer named after the router using it.
func (p *Provider) Tracer(name string) trace.Tracer { return p.tp.Tracer(name) }

// Shutdown flushes any buffered spans. Safe to call on the no-op Provider.
func (p *Provider) Shutdown(ctx context.Context) error { return p.shutdown(ctx) }

// StartHandlerSpan starts a span named "<method> <route>" for one handler
// invocation. Callers end the span when the handler (and its Before/After
// hooks) finish.
func (p *Provider) StartHandlerSpan(ctx context.Context, method, route string) (context.Context, trace.Span) {
	return p.Tracer("loom/httpcore").Start(ctx, method+" "+route)
}
