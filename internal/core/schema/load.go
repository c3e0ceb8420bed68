package schema

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/satishbabariya/prisma-engine/internal/core/value"
)

var scalarTypes = map[string]value.Kind{
	"Int":      value.KindInt,
	"BigInt":   value.KindBigInt,
	"Float":    value.KindFloat,
	"Decimal":  value.KindDecimal,
	"String":   value.KindString,
	"Boolean":  value.KindBoolean,
	"DateTime": value.KindDateTime,
}

// Parse reads and loads a schema from r.
func Parse(filename string, r io.Reader) (*Schema, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return Load(filename, string(raw))
}

// Load parses src and validates the resulting datamodel.
func Load(filename, src string) (*Schema, error) {
	file, err := schemaParser.ParseString(filename, src)
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	l := &loader{
		schema: &Schema{
			models: make(map[string]*Model),
			enums:  make(map[string]*Enum),
		},
	}
	l.load(file)
	if len(l.errs) > 0 {
		return nil, fmt.Errorf("invalid schema %s: %w", filename, errors.Join(l.errs...))
	}
	return l.schema, nil
}

// MustLoad is Load for fixtures; it panics on error.
func MustLoad(src string) *Schema {
	s, err := Load("schema.prisma", src)
	if err != nil {
		panic(err)
	}
	return s
}

type loader struct {
	schema *Schema
	errs   []error
}

func (l *loader) errorf(format string, args ...any) {
	l.errs = append(l.errs, fmt.Errorf(format, args...))
}

func (l *loader) load(file *fileNode) {
	var models []*modelNode
	for _, b := range file.Blocks {
		switch {
		case b.Enum != nil:
			l.addEnum(b.Enum)
		case b.Model != nil:
			if _, dup := l.schema.models[b.Model.Name]; dup {
				l.errorf("%s: model %q is defined more than once", b.Model.Pos, b.Model.Name)
				continue
			}
			m := &Model{Name: b.Model.Name, DBName: b.Model.Name, fields: make(map[string]*Field)}
			l.schema.models[m.Name] = m
			l.schema.Models = append(l.schema.Models, m)
			models = append(models, b.Model)
		case b.Config != nil:
			l.addConfig(b.Config)
		}
	}
	for _, node := range models {
		l.addModel(l.schema.models[node.Name], node)
	}
	for _, m := range l.schema.Models {
		for _, f := range m.Fields {
			if f.IsRelation() {
				l.resolveRelation(m, f)
			}
		}
	}
}

func (l *loader) addEnum(node *enumNode) {
	if _, dup := l.schema.enums[node.Name]; dup {
		l.errorf("%s: enum %q is defined more than once", node.Pos, node.Name)
		return
	}
	e := &Enum{Name: node.Name}
	for _, v := range node.Values {
		e.Values = append(e.Values, v.Name)
	}
	l.schema.enums[e.Name] = e
	l.schema.Enums = append(l.schema.Enums, e)
}

func (l *loader) addConfig(node *configNode) {
	if node.Kind != "datasource" {
		return
	}
	for _, p := range node.Properties {
		if p.Name == "provider" && p.Value.String != nil {
			l.schema.Provider = *p.Value.String
		}
	}
}

func (l *loader) addModel(m *Model, node *modelNode) {
	for _, member := range node.Members {
		if member.Field != nil {
			l.addField(m, member.Field)
		}
	}
	for _, member := range node.Members {
		if member.Attribute != nil {
			l.applyBlockAttribute(m, member.Attribute)
		}
	}

	var ids []string
	for _, f := range m.Fields {
		if f.IsID {
			ids = append(ids, f.Name)
		}
	}
	switch len(ids) {
	case 0:
		l.errorf("%s: model %q has no @id field", node.Pos, m.Name)
	case 1:
		m.PrimaryKey = ids[0]
	default:
		l.errorf("%s: model %q has more than one @id field", node.Pos, m.Name)
	}
}

func (l *loader) addField(m *Model, node *fieldNode) {
	if _, dup := m.fields[node.Name]; dup {
		l.errorf("%s: field %q is defined more than once on %q", node.Pos, node.Name, m.Name)
		return
	}
	f := &Field{
		Name:     node.Name,
		DBName:   node.Name,
		Type:     node.Type,
		List:     node.List,
		Required: !node.Optional && !node.List,
	}
	switch kind, scalar := scalarTypes[node.Type]; {
	case scalar:
		f.Kind, f.Scalar = FieldScalar, kind
	case l.schema.enums[node.Type] != nil:
		f.Kind, f.Scalar = FieldEnum, value.KindEnum
	case l.schema.models[node.Type] != nil:
		f.Kind = FieldRelation
		f.Relation = &Relation{Model: node.Type}
	default:
		l.errorf("%s: field %s.%s has unknown type %q", node.Pos, m.Name, node.Name, node.Type)
		return
	}
	if f.List && !f.IsRelation() {
		l.errorf("%s: field %s.%s: scalar lists are not supported", node.Pos, m.Name, node.Name)
		return
	}

	for _, attr := range node.Attributes {
		l.applyFieldAttribute(m, f, attr)
	}
	m.fields[f.Name] = f
	m.Fields = append(m.Fields, f)
}

func (l *loader) applyFieldAttribute(m *Model, f *Field, attr *attributeNode) {
	where := fmt.Sprintf("%s: @%s on %s.%s", attr.Pos, attr.Name, m.Name, f.Name)
	switch attr.Name {
	case "id":
		f.IsID = true
	case "unique":
		f.IsUnique = true
	case "updatedAt":
		if f.Scalar != value.KindDateTime {
			l.errorf("%s: only DateTime fields can be @updatedAt", where)
		}
		f.UpdatedAt = true
	case "map":
		if name, ok := stringArg(attr.Args, "name"); ok {
			f.DBName = name
		} else {
			l.errorf("%s: expected a string argument", where)
		}
	case "default":
		d, err := l.defaultOf(f, attr.Args)
		if err != nil {
			l.errorf("%s: %v", where, err)
			return
		}
		f.Default = d
	case "relation":
		if !f.IsRelation() {
			l.errorf("%s: not a relation field", where)
			return
		}
		if name, ok := stringArg(attr.Args, "name"); ok {
			f.Relation.Name = name
		}
		f.Relation.Fields = identListArg(attr.Args, "fields")
		f.Relation.References = identListArg(attr.Args, "references")
	default:
		if !strings.HasPrefix(attr.Name, "db.") {
			l.errorf("%s: unsupported attribute", where)
		}
	}
}

func (l *loader) applyBlockAttribute(m *Model, attr *attributeNode) {
	where := fmt.Sprintf("%s: @@%s on %s", attr.Pos, attr.Name, m.Name)
	switch attr.Name {
	case "map":
		if name, ok := stringArg(attr.Args, "name"); ok {
			m.DBName = name
		} else {
			l.errorf("%s: expected a string argument", where)
		}
	case "id", "unique":
		fields := identListArg(attr.Args, "fields")
		if len(fields) != 1 {
			if attr.Name == "id" {
				l.errorf("%s: compound primary keys are not supported", where)
			} else {
				l.errorf("%s: compound unique constraints are not supported", where)
			}
			return
		}
		f, ok := m.fields[fields[0]]
		if !ok {
			l.errorf("%s: unknown field %q", where, fields[0])
			return
		}
		if attr.Name == "id" {
			f.IsID = true
		} else {
			f.IsUnique = true
		}
	case "index":
	default:
		l.errorf("%s: unsupported attribute", where)
	}
}

func (l *loader) defaultOf(f *Field, args []*argumentNode) (*Default, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("expected exactly one argument")
	}
	expr := args[0].Value
	if expr.Call != nil {
		switch expr.Call.Name {
		case "autoincrement":
			if f.Scalar != value.KindInt && f.Scalar != value.KindBigInt {
				return nil, fmt.Errorf("autoincrement() requires an integer field")
			}
			return &Default{Kind: DefaultAutoincrement}, nil
		case "uuid", "cuid":
			if f.Scalar != value.KindString {
				return nil, fmt.Errorf("%s() requires a String field", expr.Call.Name)
			}
			return &Default{Kind: DefaultUUID}, nil
		case "now":
			if f.Scalar != value.KindDateTime {
				return nil, fmt.Errorf("now() requires a DateTime field")
			}
			return &Default{Kind: DefaultNow}, nil
		}
		return nil, fmt.Errorf("unsupported default function %s()", expr.Call.Name)
	}

	raw, err := literalOf(expr)
	if err != nil {
		return nil, err
	}
	if f.Kind == FieldEnum {
		name, _ := raw.(string)
		if !l.schema.enums[f.Type].Has(name) {
			return nil, fmt.Errorf("%v is not a member of enum %s", raw, f.Type)
		}
	}
	v, err := value.Coerce(raw, f.Scalar)
	if err != nil {
		return nil, err
	}
	return &Default{Kind: DefaultLiteral, Value: v}, nil
}

func (l *loader) resolveRelation(m *Model, f *Field) {
	rel := f.Relation
	related := l.schema.models[rel.Model]
	where := fmt.Sprintf("relation field %s.%s", m.Name, f.Name)

	if len(rel.Fields) > 0 || len(rel.References) > 0 {
		if len(rel.Fields) != 1 || len(rel.References) != 1 {
			l.errorf("%s: fields and references must name exactly one field each", where)
			return
		}
		if _, ok := m.fields[rel.Fields[0]]; !ok {
			l.errorf("%s: unknown field %q on %s", where, rel.Fields[0], m.Name)
			return
		}
		if _, ok := related.fields[rel.References[0]]; !ok {
			l.errorf("%s: unknown field %q on %s", where, rel.References[0], related.Name)
			return
		}
		rel.Link = Link{ParentField: rel.Fields[0], ChildField: rel.References[0]}
		return
	}

	var back []*Field
	for _, other := range related.Fields {
		if other == f || !other.IsRelation() || other.Relation.Model != m.Name {
			continue
		}
		if rel.Name != other.Relation.Name {
			continue
		}
		if len(other.Relation.Fields) == 1 && len(other.Relation.References) == 1 {
			back = append(back, other)
		}
	}
	switch len(back) {
	case 0:
		l.errorf("%s: no opposite relation field on %s holds the foreign key", where, related.Name)
	case 1:
		o := back[0].Relation
		rel.Link = Link{ParentField: o.References[0], ChildField: o.Fields[0]}
	default:
		l.errorf("%s: ambiguous relation, name it with @relation(\"...\")", where)
	}
}

func literalOf(e *exprNode) (any, error) {
	switch {
	case e.String != nil:
		return *e.String, nil
	case e.Number != nil:
		if i, err := strconv.ParseInt(*e.Number, 10, 64); err == nil {
			return i, nil
		}
		f, err := strconv.ParseFloat(*e.Number, 64)
		if err != nil {
			return nil, err
		}
		return f, nil
	case e.Ident != nil:
		switch *e.Ident {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return *e.Ident, nil
	}
	return nil, fmt.Errorf("expected a literal value")
}

// stringArg returns the named argument, or the first positional argument,
// as a string.
func stringArg(args []*argumentNode, name string) (string, bool) {
	a := findArg(args, name)
	if a == nil || a.Value.String == nil {
		return "", false
	}
	return *a.Value.String, true
}

func identListArg(args []*argumentNode, name string) []string {
	a := findArg(args, name)
	if a == nil || a.Value.Array == nil {
		return nil
	}
	var out []string
	for _, el := range a.Value.Array.Elements {
		if el.Ident != nil {
			out = append(out, *el.Ident)
		}
	}
	return out
}

func findArg(args []*argumentNode, name string) *argumentNode {
	for _, a := range args {
		if a.Name == name {
			return a
		}
	}
	if len(args) > 0 && args[0].Name == "" {
		return args[0]
	}
	return nil
}
