package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"

	"github.com/satishbabariya/prisma-engine/internal/adapters/telemetry"
)

func TestSetupWithoutEndpoint(t *testing.T) {
	p, err := telemetry.Setup(context.Background(), "", "svc")
	require.NoError(t, err)
	_, span := p.Tracer().Start(context.Background(), "query.execute")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestFromExporterFlushes(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	p := telemetry.FromExporter(exp, "prisma-engine-test")

	_, span := p.Tracer().Start(context.Background(), "query.execute")
	span.End()
	require.NoError(t, p.ForceFlush(context.Background()))

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "query.execute", spans[0].Name)
	assert.Contains(t, spans[0].Resource.Attributes(), semconv.ServiceName("prisma-engine-test"))
	assert.NoError(t, p.Shutdown(context.Background()))
}
