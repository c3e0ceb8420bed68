// Package builder compiles the operations of a query document into query
// graphs and the serializers that render their results.
package builder

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/satishbabariya/prisma-engine/internal/core/coreerrors"
	"github.com/satishbabariya/prisma-engine/internal/core/query/document"
	"github.com/satishbabariya/prisma-engine/internal/core/query/domain"
	"github.com/satishbabariya/prisma-engine/internal/core/query/filter"
	"github.com/satishbabariya/prisma-engine/internal/core/query/graph"
	"github.com/satishbabariya/prisma-engine/internal/core/query/ir"
	"github.com/satishbabariya/prisma-engine/internal/core/schema"
)

// Query is one compiled operation. Either Err is set, or Graph and
// Serializer are.
type Query struct {
	Key        string
	Graph      *graph.Graph
	Serializer *ir.Serializer
	Err        error
}

// Builder compiles operations against one schema. It holds no per-request
// state and is safe for concurrent use.
type Builder struct {
	schema   *schema.Schema
	resolver *filter.Resolver
	now      func() time.Time
	newID    func() string
}

// Option configures a Builder.
type Option func(*Builder)

// WithClock sets the clock used for now() defaults and @updatedAt.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// WithIDGenerator sets the generator used for uuid() defaults.
func WithIDGenerator(newID func() string) Option {
	return func(b *Builder) { b.newID = newID }
}

// New creates a builder for s.
func New(s *schema.Schema, opts ...Option) *Builder {
	b := &Builder{
		schema:   s,
		resolver: filter.NewResolver(s),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build compiles every operation of doc, in document order. A failing
// operation yields a Query carrying its validation error and does not
// affect the others.
func (b *Builder) Build(doc *document.Document) []Query {
	out := make([]Query, len(doc.Operations))
	for i, op := range doc.Operations {
		g, s, err := b.BuildOperation(op)
		out[i] = Query{Key: op.Key, Graph: g, Serializer: s, Err: err}
	}
	return out
}

// allowedArgs lists the arguments each action accepts.
var allowedArgs = map[domain.Action][]string{
	domain.FindMany:   {"where", "orderBy", "skip", "take"},
	domain.FindFirst:  {"where", "orderBy", "skip", "take"},
	domain.FindUnique: {"where"},
	domain.Count:      {"where", "skip", "take"},
	domain.CreateOne:  {"data"},
	domain.UpdateOne:  {"where", "data"},
	domain.UpdateMany: {"where", "data"},
	domain.DeleteOne:  {"where"},
	domain.DeleteMany: {"where"},
}

// BuildOperation compiles one operation.
func (b *Builder) BuildOperation(op document.Operation) (*graph.Graph, *ir.Serializer, error) {
	model, ok := b.schema.Model(op.Model)
	if !ok {
		return nil, nil, coreerrors.Validationf("unknown model %s in %s", op.Model, op.Key)
	}
	allowed, ok := allowedArgs[op.Action]
	if !ok {
		return nil, nil, coreerrors.Validationf("unknown action %s", op.Action).WithModel(model.Name)
	}
	for name := range op.Arguments {
		if !contains(allowed, name) {
			return nil, nil, coreerrors.Validationf("unknown argument %s for %s", name, op.Action).WithModel(model.Name)
		}
	}

	ob := &opBuilder{Builder: b, op: op, model: model, g: graph.New()}
	shape, err := ob.build()
	if err != nil {
		return nil, nil, err
	}
	if err := ob.g.Validate(); err != nil {
		return nil, nil, fmt.Errorf("build %s: %w", op.Key, err)
	}
	return ob.g, &ir.Serializer{Key: op.Key, Shape: shape}, nil
}

// opBuilder holds the state of one operation's compilation.
type opBuilder struct {
	*Builder
	op    document.Operation
	model *schema.Model
	g     *graph.Graph
}

func (ob *opBuilder) build() (ir.Shape, error) {
	switch ob.op.Action {
	case domain.FindMany:
		return ob.findMany(ir.Many, nil)
	case domain.FindFirst:
		one := 1
		return ob.findMany(ir.OptionalOne, &one)
	case domain.FindUnique:
		return ob.findUnique()
	case domain.Count:
		return ob.count()
	case domain.CreateOne:
		return ob.createOne()
	case domain.UpdateOne:
		return ob.updateOne()
	case domain.UpdateMany:
		return ob.updateMany()
	case domain.DeleteOne:
		return ob.deleteOne()
	case domain.DeleteMany:
		return ob.deleteMany()
	}
	return ir.Shape{}, coreerrors.Validationf("unknown action %s", ob.op.Action)
}

func (ob *opBuilder) where() (filter.Predicate, error) {
	return ob.resolver.Resolve(ob.model, ob.op.Arguments["where"])
}

func (ob *opBuilder) findMany(card ir.Cardinality, defaultTake *int) (ir.Shape, error) {
	where, err := ob.where()
	if err != nil {
		return ir.Shape{}, err
	}
	orderBy, err := ob.orderBy(ob.model, ob.op.Arguments["orderBy"])
	if err != nil {
		return ir.Shape{}, err
	}
	skip, err := ob.nonNegative("skip")
	if err != nil {
		return ir.Shape{}, err
	}
	take, err := ob.optionalNonNegative("take")
	if err != nil {
		return ir.Shape{}, err
	}
	if take == nil {
		take = defaultTake
	}

	read := &graph.Read{On: ob.model, Filter: where, OrderBy: orderBy, Skip: skip, Take: take}
	id := ob.g.Add(read)
	ob.g.SetResult(id)
	fields, _, err := ob.attach(id, read, ob.model, ob.op.Selection)
	if err != nil {
		return ir.Shape{}, err
	}
	return ir.Shape{Cardinality: card, Fields: fields}, nil
}

func (ob *opBuilder) findUnique() (ir.Shape, error) {
	if err := ob.requireUnique(); err != nil {
		return ir.Shape{}, err
	}
	where, err := ob.where()
	if err != nil {
		return ir.Shape{}, err
	}
	read := &graph.Read{On: ob.model, Filter: where}
	id := ob.g.Add(read)
	ob.g.SetResult(id)
	fields, _, err := ob.attach(id, read, ob.model, ob.op.Selection)
	if err != nil {
		return ir.Shape{}, err
	}
	return ir.Shape{Cardinality: ir.OptionalOne, Fields: fields}, nil
}

func (ob *opBuilder) count() (ir.Shape, error) {
	where, err := ob.where()
	if err != nil {
		return ir.Shape{}, err
	}
	skip, err := ob.nonNegative("skip")
	if err != nil {
		return ir.Shape{}, err
	}
	take, err := ob.optionalNonNegative("take")
	if err != nil {
		return ir.Shape{}, err
	}
	pk := ob.model.ID().Name
	id := ob.g.Add(&graph.Read{
		On:      ob.model,
		Filter:  where,
		OrderBy: []domain.OrderBy{{Field: pk, Direction: domain.Asc}},
		Skip:    skip,
		Take:    take,
		Fields:  []string{pk},
	})
	ob.g.SetResult(id)
	return ir.Shape{Cardinality: ir.Count}, nil
}

func (ob *opBuilder) createOne() (ir.Shape, error) {
	data, err := ob.createData()
	if err != nil {
		return ir.Shape{}, err
	}
	pk := ob.model.ID().Name
	create := ob.g.Add(&graph.Create{On: ob.model, Data: data})

	read := &graph.Read{On: ob.model, Filter: filter.True()}
	id := ob.g.Add(read)
	if err := ob.g.AddDataDependency(create, id, &graph.Binding{ParentField: pk, ChildField: pk}); err != nil {
		return ir.Shape{}, err
	}
	ob.g.SetResult(id)
	fields, _, err := ob.attach(id, read, ob.model, ob.op.Selection)
	if err != nil {
		return ir.Shape{}, err
	}
	return ir.Shape{Cardinality: ir.One, Fields: fields}, nil
}

func (ob *opBuilder) updateOne() (ir.Shape, error) {
	if err := ob.requireUnique(); err != nil {
		return ir.Shape{}, err
	}
	where, err := ob.where()
	if err != nil {
		return ir.Shape{}, err
	}
	data, err := ob.updateData()
	if err != nil {
		return ir.Shape{}, err
	}
	pk := ob.model.ID().Name
	byPK := &graph.Binding{ParentField: pk, ChildField: pk}

	find := ob.g.Add(&graph.Read{On: ob.model, Filter: where, Fields: []string{pk}})
	expect := ob.g.Add(&graph.Expect{On: ob.model, Operation: "update"})
	update := ob.g.Add(&graph.Update{On: ob.model, Filter: filter.True(), Data: data})

	read := &graph.Read{On: ob.model, Filter: filter.True()}
	if newPK, ok := data[pk]; ok {
		// The key changed, so the updated record is found by its new key.
		read.Filter = filter.Compare{Field: pk, Op: filter.Equals, Value: newPK}
	}
	result := ob.g.Add(read)

	deps := []error{
		ob.g.AddDataDependency(find, expect, nil),
		ob.g.AddDataDependency(expect, update, byPK),
		ob.g.AddOrderDependency(update, result),
	}
	if _, changed := data[pk]; !changed {
		deps = append(deps, ob.g.AddDataDependency(expect, result, byPK))
	}
	if err := firstError(deps); err != nil {
		return ir.Shape{}, err
	}
	ob.g.SetResult(result)

	fields, _, err := ob.attach(result, read, ob.model, ob.op.Selection)
	if err != nil {
		return ir.Shape{}, err
	}
	return ir.Shape{Cardinality: ir.One, Fields: fields}, nil
}

func (ob *opBuilder) updateMany() (ir.Shape, error) {
	where, err := ob.where()
	if err != nil {
		return ir.Shape{}, err
	}
	data, err := ob.updateData()
	if err != nil {
		return ir.Shape{}, err
	}
	ob.g.SetResult(ob.g.Add(&graph.Update{On: ob.model, Filter: where, Data: data}))
	return ir.Shape{Cardinality: ir.Affected}, nil
}

func (ob *opBuilder) deleteOne() (ir.Shape, error) {
	if err := ob.requireUnique(); err != nil {
		return ir.Shape{}, err
	}
	where, err := ob.where()
	if err != nil {
		return ir.Shape{}, err
	}
	pk := ob.model.ID().Name

	read := &graph.Read{On: ob.model, Filter: where}
	find := ob.g.Add(read)
	ob.g.SetResult(find)
	fields, related, err := ob.attach(find, read, ob.model, ob.op.Selection)
	if err != nil {
		return ir.Shape{}, err
	}
	read.Fields = appendField(read.Fields, pk)

	expect := ob.g.Add(&graph.Expect{On: ob.model, Operation: "delete"})
	del := ob.g.Add(&graph.Delete{On: ob.model, Filter: filter.True()})
	deps := []error{
		ob.g.AddDataDependency(find, expect, nil),
		ob.g.AddDataDependency(expect, del, &graph.Binding{ParentField: pk, ChildField: pk}),
	}
	// Related records must be read before the parent disappears.
	for _, r := range related {
		deps = append(deps, ob.g.AddOrderDependency(r, del))
	}
	if err := firstError(deps); err != nil {
		return ir.Shape{}, err
	}
	return ir.Shape{Cardinality: ir.One, Fields: fields}, nil
}

func (ob *opBuilder) deleteMany() (ir.Shape, error) {
	where, err := ob.where()
	if err != nil {
		return ir.Shape{}, err
	}
	ob.g.SetResult(ob.g.Add(&graph.Delete{On: ob.model, Filter: where}))
	return ir.Shape{Cardinality: ir.Affected}, nil
}

func firstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func appendField(fields []string, name string) []string {
	if contains(fields, name) {
		return fields
	}
	return append(fields, name)
}
