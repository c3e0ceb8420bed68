// Package ir turns interpreter results into response payloads.
package ir

import (
	"github.com/satishbabariya/prisma-engine/internal/core/value"
)

// Cardinality says how the result node's records become a payload.
type Cardinality int

const (
	// Many renders a list of objects.
	Many Cardinality = iota
	// One renders a single object; no record renders null.
	One
	// OptionalOne renders the first record or null.
	OptionalOne
	// Count renders the number of records as an integer.
	Count
	// Affected renders {"count": n} from the number of affected records.
	Affected
)

// Shape describes the payload of one model level.
type Shape struct {
	Cardinality Cardinality
	Fields      []OutputField
}

// OutputField is one selected field. Exactly one of Scalar or Relation
// applies: a nil Relation means a scalar field.
type OutputField struct {
	Key      string
	Name     string
	Relation *RelationShape
}

// RelationShape renders related records nested under each parent.
type RelationShape struct {
	ParentField string
	ChildField  string
	List        bool
	Shape       Shape
}

// Result is what the interpreter hands to the serializer: the result
// node's records plus the records of every relation read below it, keyed
// by output key.
type Result struct {
	Records  []value.Record
	Affected int
	Related  map[string]*Result
}

// Serializer renders one graph's result under its response key. It is
// immutable.
type Serializer struct {
	Key   string
	Shape Shape
}

// Serialize renders res as the operation payload.
func (s *Serializer) Serialize(res *Result) any {
	if res == nil {
		res = &Result{}
	}
	switch s.Shape.Cardinality {
	case Count:
		return int64(len(res.Records))
	case Affected:
		o := NewObject(1)
		o.Set("count", int64(res.Affected))
		return o
	case One, OptionalOne:
		if len(res.Records) == 0 {
			return nil
		}
		return renderRecord(res.Records[0], s.Shape.Fields, res.Related)
	}
	return renderList(res.Records, s.Shape.Fields, res.Related)
}

// Respond wraps the rendered payload in a success response.
func (s *Serializer) Respond(res *Result) *Response {
	return &Response{Key: s.Key, Data: s.Serialize(res)}
}

func renderList(records []value.Record, fields []OutputField, related map[string]*Result) []any {
	out := make([]any, len(records))
	for i, rec := range records {
		out[i] = renderRecord(rec, fields, related)
	}
	return out
}

func renderRecord(rec value.Record, fields []OutputField, related map[string]*Result) *Object {
	o := NewObject(len(fields))
	for _, f := range fields {
		if f.Relation == nil {
			o.Set(f.Key, rec[f.Name])
			continue
		}
		o.Set(f.Key, renderRelation(rec, f, related[f.Key]))
	}
	return o
}

func renderRelation(parent value.Record, f OutputField, res *Result) any {
	rel := f.Relation
	var children []value.Record
	if link := parent[rel.ParentField]; !link.IsNull() && res != nil {
		key := link.Key()
		for _, child := range res.Records {
			if child[rel.ChildField].Key() == key {
				children = append(children, child)
			}
		}
	}
	var nested map[string]*Result
	if res != nil {
		nested = res.Related
	}
	if rel.List {
		return renderList(children, rel.Shape.Fields, nested)
	}
	if len(children) == 0 {
		return nil
	}
	return renderRecord(children[0], rel.Shape.Fields, nested)
}
