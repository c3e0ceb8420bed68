// Package filter resolves request-level where arguments into canonical
// predicates and evaluates them against records.
//
// Predicates form a closed set of variants. Resolution pushes every
// negation down to the leaves, so a resolved predicate never contains a
// Not node; Not remains available for predicates built in code.
package filter

import (
	"strings"

	"github.com/satishbabariya/prisma-engine/internal/core/value"
)

// Predicate is a boolean condition over one record.
type Predicate interface {
	String() string
	predicate()
}

// Op is a scalar comparison operator.
type Op int

const (
	Equals Op = iota
	NotEquals
	Gt
	Gte
	Lt
	Lte
)

var opNames = [...]string{
	Equals:    "=",
	NotEquals: "<>",
	Gt:        ">",
	Gte:       ">=",
	Lt:        "<",
	Lte:       "<=",
}

func (o Op) String() string { return opNames[o] }

// Negate returns the operator selecting exactly the non-null records o
// rejects: gt→lte, gte→lt, lt→gte, lte→gt, equals↔notEquals.
func (o Op) Negate() Op {
	switch o {
	case Equals:
		return NotEquals
	case NotEquals:
		return Equals
	case Gt:
		return Lte
	case Gte:
		return Lt
	case Lt:
		return Gte
	}
	return Gt
}

// And is true when every child is true. An empty And is true.
type And struct {
	Predicates []Predicate
}

// Or is true when any child is true. An empty Or is false.
type Or struct {
	Predicates []Predicate
}

// Not inverts its child.
type Not struct {
	Predicate Predicate
}

// Compare tests a field against a non-null value.
type Compare struct {
	Field string
	Op    Op
	Value value.Value
}

// InList tests membership of a field in a set of non-null values.
type InList struct {
	Field   string
	Negated bool
	Values  []value.Value
}

// IsNull tests a field for null.
type IsNull struct {
	Field   string
	Negated bool
}

func (And) predicate() {}
func (Or) predicate() {}
func (Not) predicate() {}
func (Compare) predicate() {}
func (InList) predicate() {}
func (IsNull) predicate() {}

// True is the predicate matching every record.
func True() Predicate { return And{} }

// False is the predicate matching no record.
func False() Predicate { return Or{} }

// AndOf conjoins ps, flattening nested conjunctions. A single operand is
// returned as is.
func AndOf(ps ...Predicate) Predicate {
	var out []Predicate
	for _, p := range ps {
		if a, ok := p.(And); ok {
			out = append(out, a.Predicates...)
			continue
		}
		out = append(out, p)
	}
	if len(out) == 1 {
		return out[0]
	}
	return And{Predicates: out}
}

// OrOf disjoins ps, flattening nested disjunctions. A single operand is
// returned as is.
func OrOf(ps ...Predicate) Predicate {
	var out []Predicate
	for _, p := range ps {
		if o, ok := p.(Or); ok {
			out = append(out, o.Predicates...)
			continue
		}
		out = append(out, p)
	}
	if len(out) == 1 {
		return out[0]
	}
	return Or{Predicates: out}
}

// Negate returns the canonical negation of p, pushing the negation down to
// the leaves with De Morgan's laws. Negating a leaf preserves SQL null
// semantics: a comparison against null stays unknown either way.
func Negate(p Predicate) Predicate {
	switch p := p.(type) {
	case And:
		out := make([]Predicate, len(p.Predicates))
		for i, c := range p.Predicates {
			out[i] = Negate(c)
		}
		return OrOf(out...)
	case Or:
		out := make([]Predicate, len(p.Predicates))
		for i, c := range p.Predicates {
			out[i] = Negate(c)
		}
		return AndOf(out...)
	case Not:
		return p.Predicate
	case Compare:
		return Compare{Field: p.Field, Op: p.Op.Negate(), Value: p.Value}
	case InList:
		return InList{Field: p.Field, Negated: !p.Negated, Values: p.Values}
	case IsNull:
		return IsNull{Field: p.Field, Negated: !p.Negated}
	}
	return Not{Predicate: p}
}

func joinPredicates(ps []Predicate, sep, empty string) string {
	if len(ps) == 0 {
		return empty
	}
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.String()
	}
	return "(" + strings.Join(parts, sep) + ")"
}

func (p And) String() string { return joinPredicates(p.Predicates, " AND ", "TRUE") }
func (p Or) String() string { return joinPredicates(p.Predicates, " OR ", "FALSE") }
func (p Not) String() string { return "NOT " + p.Predicate.String() }

func (p Compare) String() string {
	return p.Field + " " + p.Op.String() + " " + p.Value.String()
}

func (p InList) String() string {
	parts := make([]string, len(p.Values))
	for i, v := range p.Values {
		parts[i] = v.String()
	}
	op := " IN "
	if p.Negated {
		op = " NOT IN "
	}
	return p.Field + op + "[" + strings.Join(parts, ", ") + "]"
}

func (p IsNull) String() string {
	if p.Negated {
		return p.Field + " IS NOT NULL"
	}
	return p.Field + " IS NULL"
}

// Fields returns the fields p refers to, in first-use order.
func Fields(p Predicate) []string {
	var out []string
	seen := map[string]bool{}
	add := func(f string) {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	var walk func(Predicate)
	walk = func(p Predicate) {
		switch p := p.(type) {
		case And:
			for _, c := range p.Predicates {
				walk(c)
			}
		case Or:
			for _, c := range p.Predicates {
				walk(c)
			}
		case Not:
			walk(p.Predicate)
		case Compare:
			add(p.Field)
		case InList:
			add(p.Field)
		case IsNull:
			add(p.Field)
		}
	}
	walk(p)
	return out
}
