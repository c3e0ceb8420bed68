package builder

import (
	"sort"

	"github.com/satishbabariya/prisma-engine/internal/core/coreerrors"
	"github.com/satishbabariya/prisma-engine/internal/core/query/domain"
	"github.com/satishbabariya/prisma-engine/internal/core/schema"
	"github.com/satishbabariya/prisma-engine/internal/core/value"
)

// orderBy reads an orderBy argument: an object with one field, or a list
// of such objects. The primary key is appended as a tie breaker so that
// results are stable on every connector.
func (ob *opBuilder) orderBy(model *schema.Model, raw any) ([]domain.OrderBy, error) {
	var entries []any
	switch v := raw.(type) {
	case nil:
	case []any:
		entries = v
	case map[string]any:
		entries = []any{v}
	default:
		return nil, coreerrors.Validationf("orderBy on %s must be an object or a list", model.Name).WithModel(model.Name)
	}

	var keys []domain.OrderBy
	for _, e := range entries {
		obj, ok := e.(map[string]any)
		if !ok || len(obj) != 1 {
			return nil, coreerrors.Validationf("orderBy entries on %s must be objects with exactly one field", model.Name).WithModel(model.Name)
		}
		for name, dir := range obj {
			f, ok := model.Field(name)
			if !ok || f.IsRelation() {
				return nil, coreerrors.Validationf("cannot order %s by %s", model.Name, name).WithModel(model.Name).WithField(name)
			}
			d, _ := dir.(string)
			switch domain.SortDirection(d) {
			case domain.Asc, domain.Desc:
			default:
				return nil, coreerrors.Validationf("invalid sort direction %v for %s.%s", dir, model.Name, name).
					WithModel(model.Name).WithField(name)
			}
			keys = append(keys, domain.OrderBy{Field: name, Direction: domain.SortDirection(d)})
		}
	}

	pk := model.ID().Name
	for _, k := range keys {
		if k.Field == pk {
			return keys, nil
		}
	}
	return append(keys, domain.OrderBy{Field: pk, Direction: domain.Asc}), nil
}

func (ob *opBuilder) nonNegative(name string) (int, error) {
	n, err := ob.optionalNonNegative(name)
	if err != nil || n == nil {
		return 0, err
	}
	return *n, nil
}

func (ob *opBuilder) optionalNonNegative(name string) (*int, error) {
	raw, ok := ob.op.Arguments[name]
	if !ok || raw == nil {
		return nil, nil
	}
	i, ok := raw.(int64)
	if !ok || i < 0 || i > int64(^uint32(0)>>1) {
		return nil, coreerrors.Validationf("%s must be a non-negative integer, got %v", name, raw).WithModel(ob.model.Name)
	}
	n := int(i)
	return &n, nil
}

// requireUnique checks that where addresses a single record through an
// @id or @unique field compared to a plain value.
func (ob *opBuilder) requireUnique() error {
	obj, _ := ob.op.Arguments["where"].(map[string]any)
	for name, raw := range obj {
		if ob.model.IsUnique(name) && isPlain(raw) {
			return nil
		}
	}
	return coreerrors.Validationf("%s on %s needs a where argument with a unique field", ob.op.Action, ob.model.Name).
		WithModel(ob.model.Name)
}

func isPlain(raw any) bool {
	switch v := raw.(type) {
	case nil, []any:
		return false
	case map[string]any:
		eq, ok := v["equals"]
		return ok && len(v) == 1 && isPlain(eq)
	}
	return true
}

// data coerces a data argument. Relation fields and unknown fields are
// rejected; null is rejected on required fields.
func (ob *opBuilder) data() (value.Record, error) {
	raw, ok := ob.op.Arguments["data"]
	if !ok {
		return nil, coreerrors.Validationf("%s on %s needs a data argument", ob.op.Action, ob.model.Name).WithModel(ob.model.Name)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, coreerrors.Validationf("data on %s must be an object", ob.model.Name).WithModel(ob.model.Name)
	}

	names := make([]string, 0, len(obj))
	for name := range obj {
		names = append(names, name)
	}
	sort.Strings(names)

	rec := make(value.Record, len(obj))
	for _, name := range names {
		f, ok := ob.model.Field(name)
		if !ok {
			return nil, coreerrors.Validationf("unknown field %s on %s", name, ob.model.Name).WithModel(ob.model.Name).WithField(name)
		}
		if f.IsRelation() {
			return nil, coreerrors.Validationf("nested writes through %s.%s are not supported", ob.model.Name, name).
				WithModel(ob.model.Name).WithField(name)
		}
		v, err := ob.schema.Coerce(f, obj[name])
		if err != nil {
			return nil, coreerrors.Validationf("invalid value for %s.%s: %v", ob.model.Name, name, err).
				WithModel(ob.model.Name).WithField(name).WithCause(err)
		}
		if v.IsNull() && f.Required {
			return nil, coreerrors.Validationf("%s.%s must not be null", ob.model.Name, name).
				WithModel(ob.model.Name).WithField(name)
		}
		rec[name] = v
	}
	return rec, nil
}

// createData applies defaults computed in the core and checks that every
// required field has a value. Autoincrement keys are left to the
// connector.
func (ob *opBuilder) createData() (value.Record, error) {
	rec, err := ob.data()
	if err != nil {
		return nil, err
	}
	for _, f := range ob.model.ScalarFields() {
		if _, ok := rec[f.Name]; ok {
			continue
		}
		if f.UpdatedAt {
			rec[f.Name] = value.DateTime(ob.now())
			continue
		}
		if f.Default != nil {
			switch f.Default.Kind {
			case schema.DefaultAutoincrement:
				continue
			case schema.DefaultUUID:
				rec[f.Name] = value.String(ob.newID())
			case schema.DefaultNow:
				rec[f.Name] = value.DateTime(ob.now())
			case schema.DefaultLiteral:
				rec[f.Name] = f.Default.Value
			}
			continue
		}
		if f.Required {
			return nil, coreerrors.Validationf("argument %s for %s is missing", f.Name, ob.model.Name).
				WithModel(ob.model.Name).WithField(f.Name)
		}
	}
	return rec, nil
}

// updateData stamps @updatedAt fields the request does not set.
func (ob *opBuilder) updateData() (value.Record, error) {
	rec, err := ob.data()
	if err != nil {
		return nil, err
	}
	for _, f := range ob.model.ScalarFields() {
		if _, ok := rec[f.Name]; !ok && f.UpdatedAt {
			rec[f.Name] = value.DateTime(ob.now())
		}
	}
	return rec, nil
}
