package memory

import (
	"time"

	"github.com/google/uuid"

	"github.com/satishbabariya/prisma-engine/internal/core/coreerrors"
	"github.com/satishbabariya/prisma-engine/internal/core/query/filter"
	"github.com/satishbabariya/prisma-engine/internal/core/schema"
	"github.com/satishbabariya/prisma-engine/internal/core/value"
)

// state is one version of the store. Records inside are never mutated in
// place; writers replace them, so clone only copies slices.
type state struct {
	tables   map[string][]value.Record
	counters map[string]int64
}

func newState() *state {
	return &state{
		tables:   make(map[string][]value.Record),
		counters: make(map[string]int64),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, rows := range s.tables {
		c.tables[k] = append([]value.Record(nil), rows...)
	}
	for k, n := range s.counters {
		c.counters[k] = n
	}
	return c
}

func (s *state) insert(model *schema.Model, data value.Record, mode filter.NullMode) (value.Record, error) {
	rec := make(value.Record, len(model.Fields))
	for _, f := range model.ScalarFields() {
		v, present := data[f.Name]
		if !present {
			if gen, ok := s.generate(model, f); ok {
				v, present = gen, true
			}
		}
		if !present {
			if mode == filter.Document {
				continue
			}
			v = value.Null()
		}
		if v.IsNull() && f.Required && mode == filter.Relational {
			return nil, coreerrors.Executionf(coreerrors.CodeNullConstraint,
				"Null constraint violation on the fields: (`%s`)", f.Name).
				WithModel(model.Name).WithField(f.Name).WithCause(coreerrors.ErrNullConstraint)
		}
		rec[f.Name] = v
	}
	if err := s.checkUnique(model, rec, -1); err != nil {
		return nil, err
	}
	s.tables[model.Name] = append(s.tables[model.Name], rec)
	return rec.Clone(), nil
}

// generate produces connector-side defaults. Literal, uuid and now
// defaults are applied by the query builder before data reaches the
// connector; seeding bypasses the builder, so they are handled here too.
func (s *state) generate(model *schema.Model, f *schema.Field) (value.Value, bool) {
	if f.Default == nil {
		return value.Value{}, false
	}
	switch f.Default.Kind {
	case schema.DefaultAutoincrement:
		key := model.Name + "." + f.Name
		next := s.counters[key] + 1
		for _, r := range s.tables[model.Name] {
			if v, ok := r[f.Name]; ok && !v.IsNull() && v.AsInt() >= next {
				next = v.AsInt() + 1
			}
		}
		s.counters[key] = next
		if f.Scalar == value.KindBigInt {
			return value.BigInt(next), true
		}
		return value.Int(next), true
	case schema.DefaultUUID:
		return value.String(uuid.NewString()), true
	case schema.DefaultNow:
		return value.DateTime(time.Now()), true
	case schema.DefaultLiteral:
		return f.Default.Value, true
	}
	return value.Value{}, false
}

// checkUnique rejects rec when it collides with another row on the
// primary key or a unique field. skip is the index of the row being
// replaced, or -1.
func (s *state) checkUnique(model *schema.Model, rec value.Record, skip int) error {
	for _, f := range model.ScalarFields() {
		if !f.IsID && !f.IsUnique {
			continue
		}
		v, ok := rec[f.Name]
		if !ok || v.IsNull() {
			continue
		}
		for i, other := range s.tables[model.Name] {
			if i == skip {
				continue
			}
			if value.Equal(other[f.Name], v) {
				return coreerrors.Executionf(coreerrors.CodeUniqueViolation,
					"Unique constraint failed on the fields: (`%s`)", f.Name).
					WithModel(model.Name).WithField(f.Name).
					WithMeta("target", []string{f.Name}).
					WithCause(coreerrors.ErrUniqueConstraint)
			}
		}
	}
	return nil
}

func (s *state) update(model *schema.Model, where filter.Predicate, data value.Record, mode filter.NullMode) (int, error) {
	rows := s.tables[model.Name]
	count := 0
	for i, rec := range rows {
		if !filter.Evaluate(where, rec, mode) {
			continue
		}
		next := rec.Clone()
		for k, v := range data {
			next[k] = v
		}
		for _, f := range model.ScalarFields() {
			if v, ok := next[f.Name]; ok && v.IsNull() && f.Required && mode == filter.Relational {
				return 0, coreerrors.Executionf(coreerrors.CodeNullConstraint,
					"Null constraint violation on the fields: (`%s`)", f.Name).
					WithModel(model.Name).WithField(f.Name).WithCause(coreerrors.ErrNullConstraint)
			}
		}
		if err := s.checkUnique(model, next, i); err != nil {
			return 0, err
		}
		rows[i] = next
		count++
	}
	return count, nil
}

func (s *state) delete(model *schema.Model, where filter.Predicate, mode filter.NullMode) int {
	rows := s.tables[model.Name]
	kept := rows[:0:0]
	for _, rec := range rows {
		if !filter.Evaluate(where, rec, mode) {
			kept = append(kept, rec)
		}
	}
	s.tables[model.Name] = kept
	return len(rows) - len(kept)
}
