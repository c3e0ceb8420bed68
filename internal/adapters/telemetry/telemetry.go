// Package telemetry configures OpenTelemetry trace export for the engine.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// InstrumentationName names the engine's tracer.
const InstrumentationName = "github.com/satishbabariya/prisma-engine"

// Provider owns the tracer handed to the executor and shuts the export
// pipeline down.
type Provider struct {
	tracer trace.Tracer
	sdk    *sdktrace.TracerProvider
}

// Tracer returns the engine tracer.
func (p *Provider) Tracer() trace.Tracer { return p.tracer }

// ForceFlush exports pending spans without stopping the provider.
func (p *Provider) ForceFlush(ctx context.Context) error {
	if p.sdk == nil {
		return nil
	}
	return p.sdk.ForceFlush(ctx)
}

// Shutdown flushes pending spans and stops export.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.sdk == nil {
		return nil
	}
	return p.sdk.Shutdown(ctx)
}

// Setup exports spans over OTLP/gRPC to endpoint. An empty endpoint
// returns a provider with a no-op tracer.
func Setup(ctx context.Context, endpoint, service string) (*Provider, error) {
	if endpoint == "" {
		return Noop(), nil
	}
	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}
	return FromExporter(exp, service), nil
}

// FromExporter builds a provider that batches spans into exp.
func FromExporter(exp sdktrace.SpanExporter, service string) *Provider {
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)
	return &Provider{tracer: tp.Tracer(InstrumentationName), sdk: tp}
}

// Noop returns a provider whose tracer records nothing.
func Noop() *Provider {
	return &Provider{tracer: noop.NewTracerProvider().Tracer(InstrumentationName)}
}
