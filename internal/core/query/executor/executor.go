// Package executor runs query documents: it builds one graph per
// operation and runs each graph in its own transaction.
package executor

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/satishbabariya/prisma-engine/internal/adapters/connector"
	"github.com/satishbabariya/prisma-engine/internal/core/coreerrors"
	"github.com/satishbabariya/prisma-engine/internal/core/query/builder"
	"github.com/satishbabariya/prisma-engine/internal/core/query/document"
	"github.com/satishbabariya/prisma-engine/internal/core/query/interpreter"
	"github.com/satishbabariya/prisma-engine/internal/core/query/ir"
	"github.com/satishbabariya/prisma-engine/internal/core/query/pipeline"
	"github.com/satishbabariya/prisma-engine/internal/core/schema"
)

// QueryExecutor executes query documents.
type QueryExecutor interface {
	// Execute returns one response per operation, in document order. A
	// non-nil error means the request was aborted.
	Execute(ctx context.Context, doc *document.Document, s *schema.Schema) ([]*ir.Response, error)

	// PrimaryConnector names the connector queries run against.
	PrimaryConnector() string
}

// InterpretingExecutor runs graphs with the interpreter. Each graph gets
// its own transaction; there is no atomicity across graphs.
type InterpretingExecutor struct {
	connector   connector.Connector
	logger      *slog.Logger
	tracer      trace.Tracer
	builderOpts []builder.Option
}

var _ QueryExecutor = (*InterpretingExecutor)(nil)

// Option configures an InterpretingExecutor.
type Option func(*InterpretingExecutor)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *InterpretingExecutor) { e.logger = l }
}

// WithTracer sets the tracer.
func WithTracer(t trace.Tracer) Option {
	return func(e *InterpretingExecutor) { e.tracer = t }
}

// WithBuilderOptions passes options to the graph builder.
func WithBuilderOptions(opts ...builder.Option) Option {
	return func(e *InterpretingExecutor) { e.builderOpts = append(e.builderOpts, opts...) }
}

// NewInterpretingExecutor creates an executor over c.
func NewInterpretingExecutor(c connector.Connector, opts ...Option) *InterpretingExecutor {
	e := &InterpretingExecutor{
		connector: c,
		logger:    slog.New(slog.DiscardHandler),
		tracer:    noop.NewTracerProvider().Tracer(""),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// PrimaryConnector implements QueryExecutor.
func (e *InterpretingExecutor) PrimaryConnector() string {
	return e.connector.Name()
}

// Execute implements QueryExecutor.
func (e *InterpretingExecutor) Execute(ctx context.Context, doc *document.Document, s *schema.Schema) (_ []*ir.Response, err error) {
	ctx, requestID := EnsureRequestID(ctx)
	logger := e.logger.With("request_id", requestID, "connector", e.connector.Name())

	ctx, span := e.tracer.Start(ctx, "query.execute", trace.WithAttributes(
		attribute.String("request.id", requestID),
		attribute.String("db.system", e.connector.Name()),
		attribute.Int("query.operations", len(doc.Operations)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	conn, err := e.connector.GetConnection(ctx)
	if err != nil {
		logger.Error("failed to acquire connection", "error", err)
		return nil, err
	}
	defer conn.Close()

	queries := builder.New(s, e.builderOpts...).Build(doc)
	responses := make([]*ir.Response, 0, len(queries))
	for i, q := range queries {
		if q.Err != nil {
			logger.Debug("operation rejected", "key", q.Key, "error", q.Err)
			responses = append(responses, ir.ErrorResponse(q.Key, q.Err))
			continue
		}
		if logger.Enabled(ctx, slog.LevelDebug) {
			logger.Debug("running query graph", "key", q.Key, "index", i, "plan", q.Graph.String())
		}
		resp, err := e.runGraph(ctx, logger, conn, q)
		if err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, nil
}

// runGraph runs one graph in a fresh transaction. The transaction is
// committed when the graph succeeds and rolled back otherwise.
func (e *InterpretingExecutor) runGraph(ctx context.Context, logger *slog.Logger, conn connector.Connection, q builder.Query) (*ir.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tx, err := conn.StartTransaction(ctx)
	if err != nil {
		logger.Error("failed to start transaction", "key", q.Key, "error", err)
		return nil, err
	}

	in := interpreter.New(tx, interpreter.WithLogger(logger), interpreter.WithTracer(e.tracer))
	resp, runErr := pipeline.New(q.Graph, in, q.Serializer, pipeline.WithTracer(e.tracer)).Execute(ctx)
	if runErr != nil {
		if rbErr := rollback(ctx, tx); rbErr != nil {
			logger.Error("rollback failed", "key", q.Key, "error", rbErr)
			return nil, abortError(errors.Join(rbErr, runErr), "rollback of %s failed", q.Key)
		}
		if resp == nil {
			logger.Warn("request aborted", "key", q.Key, "error", runErr)
			return nil, runErr
		}
		logger.Debug("query graph failed", "key", q.Key, "error", runErr)
		return resp, nil
	}

	if err := tx.Commit(ctx); err != nil {
		logger.Error("commit failed", "key", q.Key, "error", err)
		cause := err
		if rbErr := rollback(ctx, tx); rbErr != nil {
			cause = errors.Join(err, rbErr)
		}
		return nil, abortError(cause, "commit of %s failed", q.Key)
	}
	return resp, nil
}

// abortError reports a failed commit or rollback as a connector error so
// that callers abort the request. The code of a connector error already in
// cause is kept; anything else becomes a transaction API error.
func abortError(cause error, format string, args ...any) error {
	code := coreerrors.CodeTransaction
	if e, ok := coreerrors.As(cause); ok && e.Kind == coreerrors.KindConnector {
		code = e.Code
	}
	return coreerrors.Connectorf(code, format, args...).WithCause(cause)
}

// rollback uses a context that survives cancellation of the request so
// that the transaction is never left open.
func rollback(ctx context.Context, tx connector.Transaction) error {
	err := tx.Rollback(context.WithoutCancel(ctx))
	if err != nil {
		return coreerrors.ClassifyError(err)
	}
	return nil
}
