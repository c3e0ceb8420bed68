package sqlconnector

import (
	"context"
	"fmt"
	"strings"

	"github.com/satishbabariya/prisma-engine/internal/core/schema"
)

// CreateTableSQL renders the CREATE TABLE statement of model.
func (d *Dialect) CreateTableSQL(s *schema.Schema, model *schema.Model) (string, error) {
	var defs []string
	for _, f := range model.ScalarFields() {
		col := d.Quote(f.DBName)
		if f.IsID && f.Default != nil && f.Default.Kind == schema.DefaultAutoincrement {
			defs = append(defs, d.autoinc(col, f.Scalar))
			continue
		}
		typ, ok := d.types[f.Scalar]
		if !ok {
			return "", fmt.Errorf("%s.%s: no %s column type for %s", model.Name, f.Name, d.Name, f.Scalar)
		}
		def := col + " " + typ
		if f.Required {
			def += " NOT NULL"
		}
		if f.IsID {
			def += " PRIMARY KEY"
		} else if f.IsUnique {
			def += " UNIQUE"
		}
		defs = append(defs, def)
	}

	for _, f := range model.Fields {
		if !f.IsRelation() || len(f.Relation.Fields) != 1 {
			continue
		}
		target, ok := s.Model(f.Relation.Model)
		if !ok {
			return "", fmt.Errorf("%s.%s: unknown model %s", model.Name, f.Name, f.Relation.Model)
		}
		local, _ := model.Field(f.Relation.Fields[0])
		remote, _ := target.Field(f.Relation.References[0])
		if local == nil || remote == nil {
			return "", fmt.Errorf("%s.%s: unresolved relation", model.Name, f.Name)
		}
		defs = append(defs, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)",
			d.Quote(local.DBName), d.Quote(target.DBName), d.Quote(remote.DBName)))
	}

	return fmt.Sprintf("CREATE TABLE %s (%s)", d.Quote(model.DBName), strings.Join(defs, ", ")), nil
}

// CreateTables creates a table per model, referenced tables first.
func (c *Connector) CreateTables(ctx context.Context, s *schema.Schema) error {
	for _, model := range creationOrder(s) {
		stmt, err := c.dialect.CreateTableSQL(s, model)
		if err != nil {
			return err
		}
		c.logger.Debug("sql create table", "connector", c.Name(), "sql", stmt)
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return classify(model, fmt.Errorf("create table %s: %w", model.DBName, err))
		}
	}
	return nil
}

// creationOrder lists models so that every foreign key target precedes
// the model referencing it. Self references and cycles keep schema order.
func creationOrder(s *schema.Schema) []*schema.Model {
	done := make(map[string]bool, len(s.Models))
	visiting := make(map[string]bool)
	var out []*schema.Model

	var visit func(m *schema.Model)
	visit = func(m *schema.Model) {
		if done[m.Name] || visiting[m.Name] {
			return
		}
		visiting[m.Name] = true
		for _, f := range m.Fields {
			if f.IsRelation() && len(f.Relation.Fields) > 0 {
				if target, ok := s.Model(f.Relation.Model); ok {
					visit(target)
				}
			}
		}
		visiting[m.Name] = false
		done[m.Name] = true
		out = append(out, m)
	}
	for _, m := range s.Models {
		visit(m)
	}
	return out
}
