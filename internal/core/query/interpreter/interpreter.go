// Package interpreter runs query graphs against a connector transaction.
package interpreter

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/satishbabariya/prisma-engine/internal/adapters/connector"
	"github.com/satishbabariya/prisma-engine/internal/core/coreerrors"
	"github.com/satishbabariya/prisma-engine/internal/core/query/filter"
	"github.com/satishbabariya/prisma-engine/internal/core/query/graph"
	"github.com/satishbabariya/prisma-engine/internal/core/query/ir"
	"github.com/satishbabariya/prisma-engine/internal/core/value"
)

// State is the lifecycle state of one node during a run.
type State int

const (
	Pending State = iota
	Ready
	Running
	Completed
	Failed
)

var stateNames = [...]string{
	Pending:   "pending",
	Ready:     "ready",
	Running:   "running",
	Completed: "completed",
	Failed:    "failed",
}

func (s State) String() string { return stateNames[s] }

// Interpreter executes graphs inside one transaction. It does not own the
// transaction: committing or rolling back is the caller's job.
type Interpreter struct {
	tx     connector.Transaction
	logger *slog.Logger
	tracer trace.Tracer
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithLogger sets the logger node transitions are written to.
func WithLogger(l *slog.Logger) Option {
	return func(in *Interpreter) { in.logger = l }
}

// WithTracer sets the tracer that opens one span per node.
func WithTracer(t trace.Tracer) Option {
	return func(in *Interpreter) { in.tracer = t }
}

// New creates an interpreter bound to tx.
func New(tx connector.Transaction, opts ...Option) *Interpreter {
	in := &Interpreter{
		tx:     tx,
		logger: slog.New(slog.DiscardHandler),
		tracer: noop.NewTracerProvider().Tracer(""),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// output is what a completed node produced.
type output struct {
	records  []value.Record
	affected int
}

// run is the state of one graph execution.
type run struct {
	g       *graph.Graph
	states  []State
	outputs []*output
}

// Run executes g and returns the result tree rooted at the result node.
//
// Connector errors and context errors are returned unchanged so that the
// caller can abort the request. Any other node failure is returned as an
// execution error for this graph only.
func (in *Interpreter) Run(ctx context.Context, g *graph.Graph) (*ir.Result, error) {
	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, err
	}
	resultID, ok := g.Result()
	if !ok {
		return nil, fmt.Errorf("query graph: no result node")
	}

	r := &run{g: g, states: make([]State, g.Len()), outputs: make([]*output, g.Len())}
	for _, id := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r.transition(in.logger, id, Ready)
		if err := in.runNode(ctx, r, id); err != nil {
			r.transition(in.logger, id, Failed)
			if coreerrors.IsConnector(err) {
				return nil, err
			}
			if _, ok := coreerrors.As(err); !ok {
				err = coreerrors.Executionf("", "%s", err.Error()).WithModel(g.Node(id).Model().Name).WithCause(err)
			}
			return nil, err
		}
		r.transition(in.logger, id, Completed)
	}
	return r.result(resultID), nil
}

func (r *run) transition(logger *slog.Logger, id graph.NodeID, s State) {
	from := r.states[id]
	r.states[id] = s
	logger.Debug("query graph node", "node", int(id), "from", from.String(), "to", s.String())
}

func (in *Interpreter) runNode(ctx context.Context, r *run, id graph.NodeID) error {
	n := r.g.Node(id)
	ctx, span := in.tracer.Start(ctx, "query.node", trace.WithAttributes(
		attribute.Int("node.id", int(id)),
		attribute.String("node.kind", nodeKind(n)),
		attribute.String("node.model", n.Model().Name),
	))
	defer span.End()

	r.transition(in.logger, id, Running)
	out, err := in.execute(ctx, r, id, n)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetAttributes(attribute.Int("node.records", len(out.records)), attribute.Int("node.affected", out.affected))
	r.outputs[id] = out
	return nil
}

// constraints turns the bindings of id's incoming data edges into
// predicates. ok is false when a binding has no values, in which case
// the node cannot match anything.
func (r *run) constraints(id graph.NodeID) (ps []filter.Predicate, ok bool) {
	for _, e := range r.g.Parents(id) {
		if e.Kind != graph.Data || e.Binding == nil {
			continue
		}
		values := value.Column(r.outputs[e.From].records, e.Binding.ParentField)
		if len(values) == 0 {
			return nil, false
		}
		ps = append(ps, filter.InList{Field: e.Binding.ChildField, Values: values})
	}
	return ps, true
}

// input returns the records of id's first unbound data parent.
func (r *run) input(id graph.NodeID) []value.Record {
	for _, e := range r.g.Parents(id) {
		if e.Kind == graph.Data && e.Binding == nil {
			return r.outputs[e.From].records
		}
	}
	return nil
}

func (in *Interpreter) execute(ctx context.Context, r *run, id graph.NodeID, n graph.Node) (*output, error) {
	constraints, ok := r.constraints(id)
	if !ok {
		in.logger.Debug("query graph node skipped on empty binding", "node", int(id))
		return &output{}, nil
	}

	switch n := n.(type) {
	case *graph.Read:
		return in.read(ctx, n, constraints)
	case *graph.ReadRelated:
		return in.read(ctx, &n.Read, constraints)
	case *graph.Create:
		rec, err := in.tx.CreateRecord(ctx, n.On, n.Data)
		if err != nil {
			return nil, err
		}
		return &output{records: []value.Record{rec}, affected: 1}, nil
	case *graph.Update:
		count, err := in.tx.UpdateRecords(ctx, n.On, withConstraints(n.Filter, constraints), n.Data)
		if err != nil {
			return nil, err
		}
		return &output{affected: count}, nil
	case *graph.Delete:
		count, err := in.tx.DeleteRecords(ctx, n.On, withConstraints(n.Filter, constraints))
		if err != nil {
			return nil, err
		}
		return &output{affected: count}, nil
	case *graph.Expect:
		records := r.input(id)
		if len(records) == 0 {
			return nil, coreerrors.Executionf(coreerrors.CodeRecordNotFound,
				"An operation failed because it depends on one or more records that were required but not found. Record to %s not found.",
				n.Operation).WithModel(n.On.Name).WithMeta("cause", fmt.Sprintf("Record to %s not found.", n.Operation)).
				WithCause(coreerrors.ErrNotFound)
		}
		return &output{records: records}, nil
	}
	return nil, fmt.Errorf("query graph: unknown node %T", n)
}

func (in *Interpreter) read(ctx context.Context, n *graph.Read, constraints []filter.Predicate) (*output, error) {
	records, err := in.tx.ReadRecords(ctx, n.On, connector.ReadArgs{
		Filter:  withConstraints(n.Filter, constraints),
		OrderBy: n.OrderBy,
		Skip:    n.Skip,
		Take:    n.Take,
		Fields:  n.Fields,
	})
	if err != nil {
		return nil, err
	}
	return &output{records: records}, nil
}

func withConstraints(p filter.Predicate, constraints []filter.Predicate) filter.Predicate {
	if p == nil {
		p = filter.True()
	}
	if len(constraints) == 0 {
		return p
	}
	return filter.AndOf(append([]filter.Predicate{p}, constraints...)...)
}

// result assembles the result tree below id from the relation reads that
// hang off it.
func (r *run) result(id graph.NodeID) *ir.Result {
	out := r.outputs[id]
	res := &ir.Result{Records: out.records, Affected: out.affected}
	for _, e := range r.g.Children(id) {
		rel, ok := r.g.Node(e.To).(*graph.ReadRelated)
		if !ok || e.Kind != graph.Data {
			continue
		}
		if res.Related == nil {
			res.Related = make(map[string]*ir.Result)
		}
		res.Related[rel.Key] = r.result(e.To)
	}
	return res
}

func nodeKind(n graph.Node) string {
	switch n.(type) {
	case *graph.Read:
		return "read"
	case *graph.ReadRelated:
		return "read_related"
	case *graph.Create:
		return "create"
	case *graph.Update:
		return "update"
	case *graph.Delete:
		return "delete"
	case *graph.Expect:
		return "expect"
	}
	return "unknown"
}
