package filter

import (
	"github.com/satishbabariya/prisma-engine/internal/core/value"
)

// NullMode selects how a field missing from a record is treated.
type NullMode int

const (
	// Relational stores have a column for every field; an absent field is
	// null.
	Relational NullMode = iota
	// Document stores distinguish an absent field from a stored null.
	// Absent fields are neither null nor non-null, so IsNull is unknown.
	Document
)

type truth int8

const (
	falsy truth = iota
	unknown
	truthy
)

func (t truth) not() truth { return truthy - t }

func of(b bool) truth {
	if b {
		return truthy
	}
	return falsy
}

// Evaluate reports whether rec satisfies p under SQL three-valued logic:
// comparisons involving null are unknown, and unknown does not match.
func Evaluate(p Predicate, rec value.Record, mode NullMode) bool {
	return eval(p, rec, mode) == truthy
}

func eval(p Predicate, rec value.Record, mode NullMode) truth {
	switch p := p.(type) {
	case And:
		result := truthy
		for _, c := range p.Predicates {
			result = min(result, eval(c, rec, mode))
			if result == falsy {
				return falsy
			}
		}
		return result
	case Or:
		result := falsy
		for _, c := range p.Predicates {
			result = max(result, eval(c, rec, mode))
			if result == truthy {
				return truthy
			}
		}
		return result
	case Not:
		return eval(p.Predicate, rec, mode).not()
	case IsNull:
		v, present := rec[p.Field]
		if !present {
			if mode == Document {
				return unknown
			}
			v = value.Null()
		}
		return of(v.IsNull() != p.Negated)
	case Compare:
		c, ok := value.Compare(rec[p.Field], p.Value)
		if !ok {
			return unknown
		}
		switch p.Op {
		case Equals:
			return of(c == 0)
		case NotEquals:
			return of(c != 0)
		case Gt:
			return of(c > 0)
		case Gte:
			return of(c >= 0)
		case Lt:
			return of(c < 0)
		case Lte:
			return of(c <= 0)
		}
	case InList:
		if len(p.Values) == 0 {
			return of(p.Negated)
		}
		v := rec[p.Field]
		if v.IsNull() {
			return unknown
		}
		for _, candidate := range p.Values {
			if value.Equal(v, candidate) {
				return of(!p.Negated)
			}
		}
		return of(p.Negated)
	}
	return unknown
}

// Filter returns the records matching p, preserving order.
func Filter(records []value.Record, p Predicate, mode NullMode) []value.Record {
	out := make([]value.Record, 0, len(records))
	for _, rec := range records {
		if Evaluate(p, rec, mode) {
			out = append(out, rec)
		}
	}
	return out
}
