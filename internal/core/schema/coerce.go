package schema

import (
	"fmt"

	"github.com/satishbabariya/prisma-engine/internal/core/value"
)

// Coerce reads a request literal as a value of field f, checking enum
// membership. Nullability is left to the caller.
func (s *Schema) Coerce(f *Field, raw any) (value.Value, error) {
	if f.IsRelation() {
		return value.Value{}, fmt.Errorf("%s is a relation field", f.Name)
	}
	v, err := value.Coerce(raw, f.Scalar)
	if err != nil {
		return value.Value{}, err
	}
	if f.Kind == FieldEnum && !v.IsNull() {
		e, ok := s.enums[f.Type]
		if !ok || !e.Has(v.AsString()) {
			return value.Value{}, fmt.Errorf("%q is not a member of enum %s", v.AsString(), f.Type)
		}
	}
	return v, nil
}
