package value

import (
	"sort"
	"strings"
)

// Record is a row keyed by model field name. A missing key means the field
// is absent from the stored document, which is distinct from a stored null.
type Record map[string]Value

// Get returns the field value and whether the field is present.
func (r Record) Get(field string) (Value, bool) {
	v, ok := r[field]
	return v, ok
}

// Clone returns a shallow copy; Values are immutable so this is a deep copy.
func (r Record) Clone() Record {
	c := make(Record, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// Project returns a copy restricted to fields that are present in r.
func (r Record) Project(fields []string) Record {
	c := make(Record, len(fields))
	for _, f := range fields {
		if v, ok := r[f]; ok {
			c[f] = v
		}
	}
	return c
}

func (r Record) String() string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(r[k].String())
	}
	b.WriteByte('}')
	return b.String()
}

// Column collects the values of field across records, skipping records
// where the field is absent or null, and removing duplicates.
func Column(records []Record, field string) []Value {
	seen := make(map[string]struct{}, len(records))
	out := make([]Value, 0, len(records))
	for _, rec := range records {
		v, ok := rec[field]
		if !ok || v.IsNull() {
			continue
		}
		k := v.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out
}
