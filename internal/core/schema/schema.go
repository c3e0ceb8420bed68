// Package schema holds the datamodel metadata the query builder validates
// requests against, and parses it from Prisma schema text.
package schema

import (
	"github.com/satishbabariya/prisma-engine/internal/core/value"
)

// Schema is a loaded, validated datamodel. It is immutable after Load.
type Schema struct {
	Provider string
	Models   []*Model
	Enums    []*Enum

	models map[string]*Model
	enums  map[string]*Enum
}

// Model returns the model with the given name.
func (s *Schema) Model(name string) (*Model, bool) {
	m, ok := s.models[name]
	return m, ok
}

// Enum returns the enum with the given name.
func (s *Schema) Enum(name string) (*Enum, bool) {
	e, ok := s.enums[name]
	return e, ok
}

// Enum is a named set of string members.
type Enum struct {
	Name   string
	Values []string
}

// Has reports whether v is a member of the enum.
func (e *Enum) Has(v string) bool {
	for _, m := range e.Values {
		if m == v {
			return true
		}
	}
	return false
}

// Model describes one table or collection.
type Model struct {
	Name       string
	DBName     string
	Fields     []*Field
	PrimaryKey string

	fields map[string]*Field
}

// Field returns the field with the given name.
func (m *Model) Field(name string) (*Field, bool) {
	f, ok := m.fields[name]
	return f, ok
}

// ScalarFields returns the non-relation fields in declaration order.
func (m *Model) ScalarFields() []*Field {
	out := make([]*Field, 0, len(m.Fields))
	for _, f := range m.Fields {
		if !f.IsRelation() {
			out = append(out, f)
		}
	}
	return out
}

// ID returns the primary key field.
func (m *Model) ID() *Field {
	return m.fields[m.PrimaryKey]
}

// IsUnique reports whether the named field alone identifies a record.
func (m *Model) IsUnique(name string) bool {
	f, ok := m.fields[name]
	return ok && (f.IsID || f.IsUnique)
}

// FieldKind separates stored scalars from relation navigations.
type FieldKind int

const (
	FieldScalar FieldKind = iota
	FieldEnum
	FieldRelation
)

// Field describes one model field.
type Field struct {
	Name      string
	DBName    string
	Type      string
	Kind      FieldKind
	Scalar    value.Kind
	Required  bool
	List      bool
	IsID      bool
	IsUnique  bool
	UpdatedAt bool
	Default   *Default
	Relation  *Relation
}

func (f *Field) IsRelation() bool { return f.Kind == FieldRelation }

// DefaultKind says how a missing value is produced on create.
type DefaultKind int

const (
	DefaultLiteral DefaultKind = iota
	DefaultAutoincrement
	DefaultUUID
	DefaultNow
)

// Default is the @default of a scalar field.
type Default struct {
	Kind  DefaultKind
	Value value.Value
}

// Relation describes how a relation field links two models.
type Relation struct {
	Name  string
	Model string

	// Fields and References as written in @relation on the side that
	// holds the foreign key. Empty on the back-relation side.
	Fields     []string
	References []string

	// Link is resolved at load time from whichever side holds the key.
	// ParentField lives on the model declaring the relation field,
	// ChildField on the related model.
	Link Link
}

// Link pairs the parent and child fields whose values join two records.
type Link struct {
	ParentField string
	ChildField  string
}
