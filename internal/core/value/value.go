// Package value defines the scalar values that flow between the query
// builder, the predicate evaluator and the connectors.
package value

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/cockroachdb/apd/v3"
)

// Kind identifies the scalar type carried by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBoolean
	KindInt
	KindBigInt
	KindFloat
	KindDecimal
	KindString
	KindDateTime
	KindEnum
)

var kindNames = [...]string{
	KindNull:     "Null",
	KindBoolean:  "Boolean",
	KindInt:      "Int",
	KindBigInt:   "BigInt",
	KindFloat:    "Float",
	KindDecimal:  "Decimal",
	KindString:   "String",
	KindDateTime: "DateTime",
	KindEnum:     "Enum",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Numeric reports whether values of the kind order numerically.
func (k Kind) Numeric() bool {
	switch k {
	case KindInt, KindBigInt, KindFloat, KindDecimal:
		return true
	}
	return false
}

// Ordered reports whether gt/gte/lt/lte are meaningful for the kind.
func (k Kind) Ordered() bool {
	return k.Numeric() || k == KindString || k == KindDateTime
}

// DateTimeLayout is the wire format for DateTime values.
const DateTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Value is an immutable tagged scalar. The zero Value is Null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	d    *apd.Decimal
	s    string
	t    time.Time
}

func Null() Value { return Value{} }
func Bool(b bool) Value { return Value{kind: KindBoolean, b: b} }
func Int(i int64) Value { return Value{kind: KindInt, i: i} }
func BigInt(i int64) Value { return Value{kind: KindBigInt, i: i} }
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }
func String(s string) Value { return Value{kind: KindString, s: s} }
func Enum(s string) Value { return Value{kind: KindEnum, s: s} }
func DateTime(t time.Time) Value {
	return Value{kind: KindDateTime, t: t.UTC().Truncate(time.Millisecond)}
}

// Decimal wraps d. The decimal is copied so later mutation of d is not observed.
func Decimal(d *apd.Decimal) Value {
	c := new(apd.Decimal).Set(d)
	return Value{kind: KindDecimal, d: c}
}

// MustDecimal parses s as a decimal and panics on malformed input.
func MustDecimal(s string) Value {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return Value{kind: KindDecimal, d: d}
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean payload.
func (v Value) AsBool() bool { return v.b }

// AsInt returns the integer payload of Int and BigInt values.
func (v Value) AsInt() int64 { return v.i }

// AsFloat returns the payload of any numeric value as a float64.
func (v Value) AsFloat() float64 {
	switch v.kind {
	case KindInt, KindBigInt:
		return float64(v.i)
	case KindDecimal:
		f, _ := v.d.Float64()
		return f
	}
	return v.f
}

// AsDecimal returns the payload of any numeric value as a decimal.
func (v Value) AsDecimal() *apd.Decimal {
	switch v.kind {
	case KindInt, KindBigInt:
		return apd.New(v.i, 0)
	case KindFloat:
		d, err := new(apd.Decimal).SetFloat64(v.f)
		if err != nil {
			return apd.New(0, 0)
		}
		return d
	case KindDecimal:
		return new(apd.Decimal).Set(v.d)
	}
	return apd.New(0, 0)
}

// AsString returns the payload of String and Enum values.
func (v Value) AsString() string { return v.s }

// AsTime returns the payload of DateTime values.
func (v Value) AsTime() time.Time { return v.t }

// Interface returns the JSON-facing representation of v. BigInt and Decimal
// are rendered as strings so no precision is lost in transit.
func (v Value) Interface() any {
	switch v.kind {
	case KindBoolean:
		return v.b
	case KindInt:
		return v.i
	case KindBigInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return v.f
	case KindDecimal:
		return v.d.Text('f')
	case KindString, KindEnum:
		return v.s
	case KindDateTime:
		return v.t.Format(DateTimeLayout)
	}
	return nil
}

// SQL returns the representation handed to database/sql drivers.
func (v Value) SQL() any {
	switch v.kind {
	case KindBoolean:
		return v.b
	case KindInt, KindBigInt:
		return v.i
	case KindFloat:
		return v.f
	case KindDecimal:
		return v.d.Text('f')
	case KindString, KindEnum:
		return v.s
	case KindDateTime:
		return v.t
	}
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindString, KindEnum, KindBigInt, KindDecimal, KindDateTime:
		return strconv.Quote(fmt.Sprint(v.Interface()))
	}
	return fmt.Sprint(v.Interface())
}

// Compare orders a against b. ok is false when either side is null or the
// kinds cannot be compared; callers treat that as an unknown comparison.
func Compare(a, b Value) (c int, ok bool) {
	if a.IsNull() || b.IsNull() {
		return 0, false
	}
	switch {
	case a.kind.Numeric() && b.kind.Numeric():
		return compareNumeric(a, b), true
	case a.kind != b.kind:
		return 0, false
	}
	switch a.kind {
	case KindBoolean:
		switch {
		case a.b == b.b:
			return 0, true
		case !a.b:
			return -1, true
		}
		return 1, true
	case KindString, KindEnum:
		return cmpOrdered(a.s, b.s), true
	case KindDateTime:
		return a.t.Compare(b.t), true
	}
	return 0, false
}

func compareNumeric(a, b Value) int {
	isInt := func(v Value) bool { return v.kind == KindInt || v.kind == KindBigInt }
	switch {
	case isInt(a) && isInt(b):
		return cmpOrdered(a.i, b.i)
	case a.kind == KindDecimal || b.kind == KindDecimal:
		return a.AsDecimal().Cmp(b.AsDecimal())
	}
	af, bf := a.AsFloat(), b.AsFloat()
	if math.IsNaN(af) || math.IsNaN(bf) {
		return cmpOrdered(fmt.Sprint(af), fmt.Sprint(bf))
	}
	return cmpOrdered(af, bf)
}

func cmpOrdered[T int64 | float64 | string](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Equal reports whether a and b are comparable and equal. Null never
// equals anything, including another null.
func Equal(a, b Value) bool {
	c, ok := Compare(a, b)
	return ok && c == 0
}

// Identical reports whether a and b carry the same kind and payload. Unlike
// Equal, two nulls are identical. Used for grouping and deduplication.
func Identical(a, b Value) bool {
	if a.kind != b.kind {
		if a.kind.Numeric() && b.kind.Numeric() {
			return compareNumeric(a, b) == 0
		}
		return false
	}
	if a.IsNull() {
		return true
	}
	c, ok := Compare(a, b)
	return ok && c == 0
}

// Key returns a string usable as a map key; Identical values share a key.
func (v Value) Key() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindInt, KindBigInt:
		return "n:" + strconv.FormatInt(v.i, 10)
	case KindFloat:
		if v.f == math.Trunc(v.f) && math.Abs(v.f) < 1<<53 {
			return "n:" + strconv.FormatInt(int64(v.f), 10)
		}
		return "f:" + strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindDecimal:
		r := new(apd.Decimal)
		r.Reduce(v.d)
		if i, err := r.Int64(); err == nil && r.Exponent >= 0 {
			return "n:" + strconv.FormatInt(i, 10)
		}
		return "d:" + r.Text('f')
	}
	return v.kind.String() + ":" + fmt.Sprint(v.Interface())
}
