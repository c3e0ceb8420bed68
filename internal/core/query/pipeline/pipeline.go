// Package pipeline couples one query graph with the interpreter that runs
// it and the serializer that renders its result.
package pipeline

import (
	"context"
	"errors"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/satishbabariya/prisma-engine/internal/core/coreerrors"
	"github.com/satishbabariya/prisma-engine/internal/core/query/graph"
	"github.com/satishbabariya/prisma-engine/internal/core/query/interpreter"
	"github.com/satishbabariya/prisma-engine/internal/core/query/ir"
)

// ErrAlreadyExecuted is returned by a second call to Execute.
var ErrAlreadyExecuted = errors.New("pipeline already executed")

// Pipeline is single use.
type Pipeline struct {
	graph       *graph.Graph
	interpreter *interpreter.Interpreter
	serializer  *ir.Serializer
	tracer      trace.Tracer
	used        atomic.Bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTracer sets the tracer for the pipeline span.
func WithTracer(t trace.Tracer) Option {
	return func(p *Pipeline) { p.tracer = t }
}

// New creates a pipeline.
func New(g *graph.Graph, in *interpreter.Interpreter, s *ir.Serializer, opts ...Option) *Pipeline {
	p := &Pipeline{
		graph:       g,
		interpreter: in,
		serializer:  s,
		tracer:      noop.NewTracerProvider().Tracer(""),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Execute runs the graph and serializes its result.
//
// On success it returns the response and a nil error. When the graph
// fails it returns an error response together with the graph error, and
// the caller should roll back. A hard failure (connector error or
// cancellation) returns a nil response.
func (p *Pipeline) Execute(ctx context.Context) (*ir.Response, error) {
	if !p.used.CompareAndSwap(false, true) {
		return nil, ErrAlreadyExecuted
	}

	ctx, span := p.tracer.Start(ctx, "query.pipeline", trace.WithAttributes(
		attribute.String("query.key", p.serializer.Key),
		attribute.Int("query.nodes", p.graph.Len()),
	))
	defer span.End()

	res, err := p.interpreter.Run(ctx, p.graph)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if coreerrors.IsConnector(err) {
			return nil, err
		}
		return ir.ErrorResponse(p.serializer.Key, err), err
	}
	return p.serializer.Respond(res), nil
}
