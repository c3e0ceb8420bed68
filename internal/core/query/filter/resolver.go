package filter

import (
	"sort"

	"github.com/satishbabariya/prisma-engine/internal/core/coreerrors"
	"github.com/satishbabariya/prisma-engine/internal/core/schema"
	"github.com/satishbabariya/prisma-engine/internal/core/value"
)

// Field filter operators accepted inside a field object.
const (
	opEquals = "equals"
	opNot    = "not"
	opIn     = "in"
	opNotIn  = "notIn"
	opGt     = "gt"
	opGte    = "gte"
	opLt     = "lt"
	opLte    = "lte"
)

var comparisonOps = map[string]Op{
	opGt:  Gt,
	opGte: Gte,
	opLt:  Lt,
	opLte: Lte,
}

// Resolver turns where arguments into canonical predicates. It is
// stateless apart from the schema and safe for concurrent use.
type Resolver struct {
	schema *schema.Schema
}

// NewResolver creates a resolver for s.
func NewResolver(s *schema.Schema) *Resolver {
	return &Resolver{schema: s}
}

// Resolve normalizes a where argument for model. A nil argument matches
// every record. The only possible error is a validation error.
func (r *Resolver) Resolve(model *schema.Model, where any) (Predicate, error) {
	if where == nil {
		return True(), nil
	}
	obj, ok := where.(map[string]any)
	if !ok {
		return nil, coreerrors.Validationf("where on %s must be an object", model.Name).WithModel(model.Name)
	}
	return r.resolveObject(model, obj)
}

func (r *Resolver) resolveObject(model *schema.Model, obj map[string]any) (Predicate, error) {
	parts := make([]Predicate, 0, len(obj))
	for _, key := range sortedKeys(obj) {
		raw := obj[key]
		var (
			p   Predicate
			err error
		)
		switch key {
		case "AND":
			p, err = r.resolveCombinator(model, key, raw, AndOf)
		case "OR":
			p, err = r.resolveCombinator(model, key, raw, OrOf)
		case "NOT":
			var inner []Predicate
			inner, err = r.resolveList(model, key, raw)
			for i, c := range inner {
				inner[i] = Negate(c)
			}
			p = AndOf(inner...)
		default:
			p, err = r.resolveField(model, key, raw)
		}
		if err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	return AndOf(parts...), nil
}

func (r *Resolver) resolveCombinator(model *schema.Model, key string, raw any, combine func(...Predicate) Predicate) (Predicate, error) {
	children, err := r.resolveList(model, key, raw)
	if err != nil {
		return nil, err
	}
	if key == "OR" && len(children) == 0 {
		return False(), nil
	}
	return combine(children...), nil
}

// resolveList accepts a single object or a list of objects.
func (r *Resolver) resolveList(model *schema.Model, key string, raw any) ([]Predicate, error) {
	switch v := raw.(type) {
	case map[string]any:
		p, err := r.resolveObject(model, v)
		if err != nil {
			return nil, err
		}
		return []Predicate{p}, nil
	case []any:
		out := make([]Predicate, 0, len(v))
		for _, el := range v {
			obj, ok := el.(map[string]any)
			if !ok {
				return nil, coreerrors.Validationf("%s on %s expects objects", key, model.Name).WithModel(model.Name)
			}
			p, err := r.resolveObject(model, obj)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
		return out, nil
	}
	return nil, coreerrors.Validationf("%s on %s expects an object or a list of objects", key, model.Name).WithModel(model.Name)
}

func (r *Resolver) resolveField(model *schema.Model, name string, raw any) (Predicate, error) {
	f, ok := model.Field(name)
	if !ok {
		return nil, coreerrors.Validationf("unknown field %s on %s", name, model.Name).WithModel(model.Name).WithField(name)
	}
	if f.IsRelation() {
		return nil, coreerrors.Validationf("filtering on relation field %s.%s is not supported", model.Name, name).WithModel(model.Name).WithField(name)
	}
	if ops, ok := raw.(map[string]any); ok {
		return r.resolveOperators(model, f, ops)
	}
	return r.resolveEquals(model, f, raw)
}

func (r *Resolver) resolveOperators(model *schema.Model, f *schema.Field, ops map[string]any) (Predicate, error) {
	parts := make([]Predicate, 0, len(ops))
	for _, op := range sortedKeys(ops) {
		raw := ops[op]
		var (
			p   Predicate
			err error
		)
		switch op {
		case opEquals:
			p, err = r.resolveEquals(model, f, raw)
		case opNot:
			p, err = r.resolveNot(model, f, raw)
		case opIn, opNotIn:
			p, err = r.resolveIn(model, f, op, raw)
		case opGt, opGte, opLt, opLte:
			p, err = r.resolveComparison(model, f, op, raw)
		default:
			err = fieldError(model, f, "unknown filter operator %q", op)
		}
		if err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	return AndOf(parts...), nil
}

// resolveNot handles `not: v` and `not: { ... }`. The object form is
// resolved positively and then negated, which applies the rewrite table
// gt→lte, gte→lt, lt→gte, lte→gt, in→notIn and equals→notEquals.
func (r *Resolver) resolveNot(model *schema.Model, f *schema.Field, raw any) (Predicate, error) {
	if ops, ok := raw.(map[string]any); ok {
		p, err := r.resolveOperators(model, f, ops)
		if err != nil {
			return nil, err
		}
		return Negate(p), nil
	}
	p, err := r.resolveEquals(model, f, raw)
	if err != nil {
		return nil, err
	}
	return Negate(p), nil
}

func (r *Resolver) resolveEquals(model *schema.Model, f *schema.Field, raw any) (Predicate, error) {
	if raw == nil {
		return IsNull{Field: f.Name}, nil
	}
	v, err := r.coerce(model, f, raw)
	if err != nil {
		return nil, err
	}
	return Compare{Field: f.Name, Op: Equals, Value: v}, nil
}

func (r *Resolver) resolveComparison(model *schema.Model, f *schema.Field, op string, raw any) (Predicate, error) {
	if !f.Scalar.Ordered() {
		return nil, fieldError(model, f, "%s is not supported on %s fields", op, f.Type)
	}
	if raw == nil {
		return nil, fieldError(model, f, "%s does not accept null", op)
	}
	v, err := r.coerce(model, f, raw)
	if err != nil {
		return nil, err
	}
	return Compare{Field: f.Name, Op: comparisonOps[op], Value: v}, nil
}

func (r *Resolver) resolveIn(model *schema.Model, f *schema.Field, op string, raw any) (Predicate, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, fieldError(model, f, "%s expects a list", op)
	}
	values := make([]value.Value, 0, len(list))
	for _, el := range list {
		if el == nil {
			return nil, fieldError(model, f, "%s does not accept null elements", op)
		}
		v, err := r.coerce(model, f, el)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return InList{Field: f.Name, Negated: op == opNotIn, Values: values}, nil
}

func (r *Resolver) coerce(model *schema.Model, f *schema.Field, raw any) (value.Value, error) {
	v, err := r.schema.Coerce(f, raw)
	if err != nil {
		return value.Value{}, fieldError(model, f, "invalid value for %s: %v", f.Name, err).WithCause(err)
	}
	return v, nil
}

func fieldError(model *schema.Model, f *schema.Field, format string, args ...any) *coreerrors.Error {
	return coreerrors.Validationf("%s.%s: "+format, append([]any{model.Name, f.Name}, args...)...).
		WithModel(model.Name).
		WithField(f.Name)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
