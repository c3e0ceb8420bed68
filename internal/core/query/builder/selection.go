package builder

import (
	"github.com/satishbabariya/prisma-engine/internal/core/coreerrors"
	"github.com/satishbabariya/prisma-engine/internal/core/query/document"
	"github.com/satishbabariya/prisma-engine/internal/core/query/graph"
	"github.com/satishbabariya/prisma-engine/internal/core/query/ir"
	"github.com/satishbabariya/prisma-engine/internal/core/schema"
)

// nestedArgs lists the arguments a relation selection accepts.
var nestedArgs = []string{"where", "orderBy"}

// attach sets the fields read selects and adds a ReadRelated node below
// it for every relation in sels. It returns the output fields and the IDs
// of every relation read added, at any depth.
func (ob *opBuilder) attach(id graph.NodeID, read *graph.Read, model *schema.Model, sels []document.Selection) ([]ir.OutputField, []graph.NodeID, error) {
	if len(sels) == 0 {
		return nil, nil, coreerrors.Validationf("empty selection on %s", model.Name).WithModel(model.Name)
	}

	var (
		out     []ir.OutputField
		related []graph.NodeID
	)
	for _, sel := range sels {
		f, ok := model.Field(sel.Name)
		if !ok {
			return nil, nil, coreerrors.Validationf("unknown field %s on %s", sel.Name, model.Name).
				WithModel(model.Name).WithField(sel.Name)
		}
		if !f.IsRelation() {
			if sel.IsNested() || len(sel.Arguments) > 0 {
				return nil, nil, coreerrors.Validationf("scalar field %s.%s takes no arguments or selection", model.Name, sel.Name).
					WithModel(model.Name).WithField(sel.Name)
			}
			read.Fields = appendField(read.Fields, f.Name)
			out = append(out, ir.OutputField{Key: sel.Key, Name: f.Name})
			continue
		}

		if !sel.IsNested() {
			return nil, nil, coreerrors.Validationf("relation %s.%s needs a selection", model.Name, sel.Name).
				WithModel(model.Name).WithField(sel.Name)
		}
		rel, ids, err := ob.relation(id, read, model, f, sel)
		if err != nil {
			return nil, nil, err
		}
		related = append(related, ids...)
		out = append(out, ir.OutputField{Key: sel.Key, Name: f.Name, Relation: rel})
	}
	return out, related, nil
}

func (ob *opBuilder) relation(parentID graph.NodeID, parent *graph.Read, model *schema.Model, f *schema.Field, sel document.Selection) (*ir.RelationShape, []graph.NodeID, error) {
	target, ok := ob.schema.Model(f.Relation.Model)
	if !ok {
		return nil, nil, coreerrors.Validationf("unknown model %s", f.Relation.Model)
	}
	for name := range sel.Arguments {
		if !contains(nestedArgs, name) {
			return nil, nil, coreerrors.Validationf("unknown argument %s on relation %s.%s", name, model.Name, f.Name).
				WithModel(model.Name).WithField(f.Name)
		}
	}
	where, err := ob.resolver.Resolve(target, sel.Arguments["where"])
	if err != nil {
		return nil, nil, err
	}
	orderBy, err := ob.orderBy(target, sel.Arguments["orderBy"])
	if err != nil {
		return nil, nil, err
	}

	link := f.Relation.Link
	parent.Fields = appendField(parent.Fields, link.ParentField)

	child := &graph.ReadRelated{
		Read:     graph.Read{On: target, Filter: where, OrderBy: orderBy},
		Relation: f.Name,
		Key:      sel.Key,
	}
	id := ob.g.Add(child)
	binding := &graph.Binding{ParentField: link.ParentField, ChildField: link.ChildField}
	if err := ob.g.AddDataDependency(parentID, id, binding); err != nil {
		return nil, nil, err
	}

	fields, nested, err := ob.attach(id, &child.Read, target, sel.Nested)
	if err != nil {
		return nil, nil, err
	}
	child.Fields = appendField(child.Fields, link.ChildField)

	return &ir.RelationShape{
		ParentField: link.ParentField,
		ChildField:  link.ChildField,
		List:        f.List,
		Shape:       ir.Shape{Cardinality: ir.Many, Fields: fields},
	}, append([]graph.NodeID{id}, nested...), nil
}
