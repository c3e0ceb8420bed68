package filter_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/satishbabariya/prisma-engine/internal/core/query/filter"
	"github.com/satishbabariya/prisma-engine/internal/core/value"
)

func bigintRecords() []value.Record {
	return []value.Record{
		{"id": value.Int(1), "bInt": value.BigInt(5)},
		{"id": value.Int(2), "bInt": value.BigInt(1)},
		{"id": value.Int(3), "bInt": value.Null()},
	}
}

func ids(records []value.Record) []int64 {
	out := make([]int64, 0, len(records))
	for _, r := range records {
		out = append(out, r["id"].AsInt())
	}
	return out
}

// Every comparison and its rewritten negation partition the non-null
// records, and neither side ever selects a null.
func TestNegationComplement(t *testing.T) {
	ops := []filter.Op{filter.Equals, filter.NotEquals, filter.Gt, filter.Gte, filter.Lt, filter.Lte}
	var records []value.Record
	for i := int64(-1); i <= 3; i++ {
		records = append(records, value.Record{"v": value.BigInt(i)})
	}
	records = append(records, value.Record{"v": value.Null()}, value.Record{})

	for _, op := range ops {
		for b := int64(-2); b <= 4; b++ {
			p := filter.Compare{Field: "v", Op: op, Value: value.BigInt(b)}
			n := filter.Negate(p)
			t.Run(fmt.Sprintf("%s %d", op, b), func(t *testing.T) {
				for _, rec := range records {
					got, gotNeg := filter.Evaluate(p, rec, filter.Relational), filter.Evaluate(n, rec, filter.Relational)
					if rec["v"].IsNull() {
						assert.False(t, got, "null selected by %s", p)
						assert.False(t, gotNeg, "null selected by %s", n)
						continue
					}
					assert.NotEqual(t, got, gotNeg, "record %s under %s / %s", rec, p, n)
				}
			})
		}
	}
}

func TestNegateInvolution(t *testing.T) {
	preds := []filter.Predicate{
		filter.Compare{Field: "a", Op: filter.Gt, Value: value.Int(1)},
		filter.InList{Field: "a", Values: []value.Value{value.Int(1)}},
		filter.IsNull{Field: "a"},
	}
	for _, p := range preds {
		assert.Equal(t, p.String(), filter.Negate(filter.Negate(p)).String())
	}
}

func TestEvaluate(t *testing.T) {
	five, one := value.BigInt(5), value.BigInt(1)
	tests := []struct {
		name string
		p    filter.Predicate
		want []int64
	}{
		{name: "equals", p: filter.Compare{Field: "bInt", Op: filter.Equals, Value: five}, want: []int64{1}},
		{name: "not equals excludes null", p: filter.Compare{Field: "bInt", Op: filter.NotEquals, Value: one}, want: []int64{1}},
		{name: "is null", p: filter.IsNull{Field: "bInt"}, want: []int64{3}},
		{name: "is not null", p: filter.IsNull{Field: "bInt", Negated: true}, want: []int64{1, 2}},
		{name: "in", p: filter.InList{Field: "bInt", Values: []value.Value{five, one}}, want: []int64{1, 2}},
		{name: "not in excludes null", p: filter.InList{Field: "bInt", Negated: true, Values: []value.Value{one}}, want: []int64{1}},
		{name: "empty in", p: filter.InList{Field: "bInt"}, want: []int64{}},
		{name: "empty not in", p: filter.InList{Field: "bInt", Negated: true}, want: []int64{1, 2, 3}},
		{name: "empty and", p: filter.And{}, want: []int64{1, 2, 3}},
		{name: "empty or", p: filter.Or{}, want: []int64{}},
		{name: "gt", p: filter.Compare{Field: "bInt", Op: filter.Gt, Value: one}, want: []int64{1}},
		{name: "lte", p: filter.Compare{Field: "bInt", Op: filter.Lte, Value: five}, want: []int64{1, 2}},
		{
			name: "not over unknown stays unknown",
			p:    filter.Not{Predicate: filter.Compare{Field: "bInt", Op: filter.Gt, Value: one}},
			want: []int64{2},
		},
		{
			name: "or with unknown branch",
			p: filter.Or{Predicates: []filter.Predicate{
				filter.Compare{Field: "bInt", Op: filter.Gt, Value: one},
				filter.IsNull{Field: "bInt"},
			}},
			want: []int64{1, 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := filter.Filter(bigintRecords(), tt.p, filter.Relational)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestEvaluateDocumentMode(t *testing.T) {
	records := []value.Record{
		{"id": value.Int(1), "bInt": value.BigInt(5)},
		{"id": value.Int(2), "bInt": value.Null()},
		{"id": value.Int(3)},
	}

	isNull := filter.IsNull{Field: "bInt"}
	assert.Equal(t, []int64{2, 3}, ids(filter.Filter(records, isNull, filter.Relational)))
	assert.Equal(t, []int64{2}, ids(filter.Filter(records, isNull, filter.Document)))

	notNull := filter.IsNull{Field: "bInt", Negated: true}
	assert.Equal(t, []int64{1}, ids(filter.Filter(records, notNull, filter.Relational)))
	assert.Equal(t, []int64{1}, ids(filter.Filter(records, notNull, filter.Document)))
}

func TestFields(t *testing.T) {
	p := filter.AndOf(
		filter.Compare{Field: "b", Op: filter.Gt, Value: value.Int(1)},
		filter.OrOf(filter.IsNull{Field: "a"}, filter.Compare{Field: "b", Op: filter.Lt, Value: value.Int(3)}),
	)
	assert.Equal(t, []string{"b", "a"}, filter.Fields(p))
	assert.Equal(t, "(b > 1 AND (a IS NULL OR b < 3))", p.String())
}
