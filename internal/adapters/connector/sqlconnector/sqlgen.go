package sqlconnector

import (
	"fmt"
	"strings"

	"github.com/satishbabariya/prisma-engine/internal/adapters/connector"
	"github.com/satishbabariya/prisma-engine/internal/core/query/domain"
	"github.com/satishbabariya/prisma-engine/internal/core/query/filter"
	"github.com/satishbabariya/prisma-engine/internal/core/schema"
	"github.com/satishbabariya/prisma-engine/internal/core/value"
)

// Query is a SQL statement with its arguments.
type Query struct {
	SQL  string
	Args []any
}

// generator renders statements for one model.
type generator struct {
	dialect *Dialect
	model   *schema.Model
	args    []any
}

func newGenerator(d *Dialect, m *schema.Model) *generator {
	return &generator{dialect: d, model: m}
}

func (g *generator) bind(v value.Value) string {
	g.args = append(g.args, v.SQL())
	return g.dialect.Placeholder(len(g.args))
}

func (g *generator) table() string {
	return g.dialect.Quote(g.model.DBName)
}

func (g *generator) column(field string) string {
	if f, ok := g.model.Field(field); ok {
		return g.dialect.Quote(f.DBName)
	}
	return g.dialect.Quote(field)
}

func (g *generator) columns() []string {
	fields := g.model.ScalarFields()
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = g.dialect.Quote(f.DBName)
	}
	return cols
}

func (g *generator) query(sql string) *Query {
	return &Query{SQL: sql, Args: g.args}
}

// where renders a predicate. And{} and Or{} render as constant conditions
// so that TRUE and FALSE survive composition.
func (g *generator) where(p filter.Predicate) string {
	switch p := p.(type) {
	case filter.And:
		return g.junction(p.Predicates, " AND ", "1=1")
	case filter.Or:
		return g.junction(p.Predicates, " OR ", "1=0")
	case filter.Not:
		return "NOT (" + g.where(p.Predicate) + ")"
	case filter.Compare:
		return fmt.Sprintf("%s %s %s", g.column(p.Field), p.Op, g.bind(p.Value))
	case filter.InList:
		if len(p.Values) == 0 {
			if p.Negated {
				return "1=1"
			}
			return "1=0"
		}
		placeholders := make([]string, len(p.Values))
		for i, v := range p.Values {
			placeholders[i] = g.bind(v)
		}
		op := "IN"
		if p.Negated {
			op = "NOT IN"
		}
		return fmt.Sprintf("%s %s (%s)", g.column(p.Field), op, strings.Join(placeholders, ", "))
	case filter.IsNull:
		if p.Negated {
			return g.column(p.Field) + " IS NOT NULL"
		}
		return g.column(p.Field) + " IS NULL"
	}
	panic(fmt.Sprintf("sqlconnector: unknown predicate %T", p))
}

func (g *generator) junction(ps []filter.Predicate, sep, empty string) string {
	if len(ps) == 0 {
		return empty
	}
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = g.where(p)
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + strings.Join(parts, sep) + ")"
}

func (g *generator) orderBy(keys []domain.OrderBy) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		dir := "ASC"
		if k.Direction == domain.Desc {
			dir = "DESC"
		}
		part := g.column(k.Field) + " " + dir
		if g.dialect.nullsOrder {
			if k.Direction == domain.Desc {
				part += " NULLS LAST"
			} else {
				part += " NULLS FIRST"
			}
		}
		parts[i] = part
	}
	return strings.Join(parts, ", ")
}

// Select renders a read of every scalar column.
func (g *generator) Select(args connector.ReadArgs) *Query {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(g.columns(), ", "), g.table())
	if args.Filter != nil {
		b.WriteString(" WHERE " + g.where(args.Filter))
	}
	if len(args.OrderBy) > 0 {
		b.WriteString(" ORDER BY " + g.orderBy(args.OrderBy))
	}
	switch {
	case args.Take != nil:
		b.WriteString(" LIMIT " + g.bind(value.Int(int64(*args.Take))))
	case args.Skip > 0 && g.dialect.noOffset != "":
		b.WriteString(" " + g.dialect.noOffset)
	}
	if args.Skip > 0 {
		b.WriteString(" OFFSET " + g.bind(value.Int(int64(args.Skip))))
	}
	return g.query(b.String())
}

// Insert renders an insert of data, returning every scalar column when
// the dialect supports it.
func (g *generator) Insert(data value.Record) *Query {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s", g.table())

	var cols, placeholders []string
	for _, f := range g.model.ScalarFields() {
		v, ok := data[f.Name]
		if !ok {
			continue
		}
		cols = append(cols, g.dialect.Quote(f.DBName))
		placeholders = append(placeholders, g.bind(v))
	}
	if len(cols) == 0 {
		b.WriteString(" " + g.dialect.emptyInsert)
	} else {
		fmt.Fprintf(&b, " (%s) VALUES (%s)", strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	}
	if g.dialect.Returning {
		b.WriteString(" RETURNING " + strings.Join(g.columns(), ", "))
	}
	return g.query(b.String())
}

// Update renders an update of the rows matching where.
func (g *generator) Update(where filter.Predicate, data value.Record) *Query {
	var sets []string
	for _, f := range g.model.ScalarFields() {
		v, ok := data[f.Name]
		if !ok {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = %s", g.dialect.Quote(f.DBName), g.bind(v)))
	}
	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s", g.table(), strings.Join(sets, ", "), g.where(where))
	return g.query(sql)
}

// Count renders a count of the rows matching where.
func (g *generator) Count(where filter.Predicate) *Query {
	return g.query(fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", g.table(), g.where(where)))
}

// Delete renders a delete of the rows matching where.
func (g *generator) Delete(where filter.Predicate) *Query {
	return g.query(fmt.Sprintf("DELETE FROM %s WHERE %s", g.table(), g.where(where)))
}
