package value

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
)

// TypeError reports a raw input that cannot be read as the requested kind.
type TypeError struct {
	Want Kind
	Got  any
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("expected %s, got %s", e.Want, describe(e.Got))
}

func describe(raw any) string {
	switch r := raw.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(r)
	case []any:
		return "list"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T(%v)", raw, raw)
}

// Coerce reads a request-level literal (nil, bool, integers, float64,
// json.Number, string) as a Value of the requested kind. A nil input always
// yields Null; nullability is enforced by the caller.
func Coerce(raw any, want Kind) (Value, error) {
	if raw == nil {
		return Null(), nil
	}
	if v, ok := raw.(Value); ok {
		return coerceValue(v, want)
	}
	fail := func() (Value, error) { return Value{}, &TypeError{Want: want, Got: raw} }

	switch want {
	case KindBoolean:
		if b, ok := raw.(bool); ok {
			return Bool(b), nil
		}
		return fail()
	case KindInt, KindBigInt:
		i, ok := toInt64(raw, want == KindBigInt)
		if !ok {
			return fail()
		}
		if want == KindInt {
			if i > math.MaxInt32 || i < math.MinInt32 {
				return fail()
			}
			return Int(i), nil
		}
		return BigInt(i), nil
	case KindFloat:
		f, ok := toFloat64(raw)
		if !ok {
			return fail()
		}
		return Float(f), nil
	case KindDecimal:
		d, ok := toDecimal(raw)
		if !ok {
			return fail()
		}
		return Value{kind: KindDecimal, d: d}, nil
	case KindString:
		if s, ok := raw.(string); ok {
			return String(s), nil
		}
		return fail()
	case KindEnum:
		if s, ok := raw.(string); ok {
			return Enum(s), nil
		}
		return fail()
	case KindDateTime:
		switch r := raw.(type) {
		case time.Time:
			return DateTime(r), nil
		case string:
			t, err := ParseDateTime(r)
			if err != nil {
				return fail()
			}
			return DateTime(t), nil
		}
		return fail()
	}
	return fail()
}

func coerceValue(v Value, want Kind) (Value, error) {
	if v.kind == want || v.IsNull() {
		return v, nil
	}
	return Coerce(v.Interface(), want)
}

func toInt64(raw any, allowString bool) (int64, bool) {
	switch r := raw.(type) {
	case int:
		return int64(r), true
	case int32:
		return int64(r), true
	case int64:
		return r, true
	case float64:
		if r != math.Trunc(r) || math.Abs(r) > 1<<53 {
			return 0, false
		}
		return int64(r), true
	case json.Number:
		i, err := r.Int64()
		return i, err == nil
	case string:
		if !allowString {
			return 0, false
		}
		i, err := strconv.ParseInt(strings.TrimSpace(r), 10, 64)
		return i, err == nil
	}
	return 0, false
}

func toFloat64(raw any) (float64, bool) {
	switch r := raw.(type) {
	case int:
		return float64(r), true
	case int32:
		return float64(r), true
	case int64:
		return float64(r), true
	case float64:
		return r, true
	case json.Number:
		f, err := r.Float64()
		return f, err == nil
	}
	return 0, false
}

func toDecimal(raw any) (*apd.Decimal, bool) {
	switch r := raw.(type) {
	case int:
		return apd.New(int64(r), 0), true
	case int64:
		return apd.New(r, 0), true
	case float64:
		d, err := new(apd.Decimal).SetFloat64(r)
		return d, err == nil
	case json.Number:
		d, _, err := apd.NewFromString(string(r))
		return d, err == nil
	case string:
		d, _, err := apd.NewFromString(strings.TrimSpace(r))
		if err != nil || d.Form != apd.Finite {
			return nil, false
		}
		return d, true
	}
	return nil, false
}

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// ParseDateTime accepts RFC 3339 and the textual layouts SQLite and MySQL
// hand back for DATETIME columns.
func ParseDateTime(s string) (time.Time, error) {
	var firstErr error
	for _, layout := range dateTimeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// FromDriver converts a value scanned by database/sql into a Value of the
// column's kind.
func FromDriver(src any, want Kind) (Value, error) {
	switch s := src.(type) {
	case nil:
		return Null(), nil
	case []byte:
		return FromDriver(string(s), want)
	case string:
		switch want {
		case KindBoolean:
			b, err := strconv.ParseBool(s)
			if err != nil {
				return Value{}, &TypeError{Want: want, Got: src}
			}
			return Bool(b), nil
		case KindFloat:
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return Value{}, &TypeError{Want: want, Got: src}
			}
			return Float(f), nil
		case KindInt, KindBigInt:
			i, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return Value{}, &TypeError{Want: want, Got: src}
			}
			return FromDriver(i, want)
		}
	case int64:
		switch want {
		case KindBoolean:
			return Bool(s != 0), nil
		case KindInt:
			return Int(s), nil
		}
	case bool:
		if want == KindInt || want == KindBigInt {
			if s {
				return Coerce(int64(1), want)
			}
			return Coerce(int64(0), want)
		}
	}
	v, err := Coerce(src, want)
	if err != nil {
		return Value{}, err
	}
	if v.kind == KindBigInt && want == KindInt {
		return Int(v.i), nil
	}
	return v, nil
}
