package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/satishbabariya/prisma-engine/internal/core/query/domain"
	"github.com/satishbabariya/prisma-engine/internal/core/query/filter"
	"github.com/satishbabariya/prisma-engine/internal/core/schema"
	"github.com/satishbabariya/prisma-engine/internal/core/value"
)

// Node is one primitive operation. The set of node kinds is closed.
type Node interface {
	// Model is the model the node operates on.
	Model() *schema.Model
	String() string
	node()
}

// Read selects records of a model.
type Read struct {
	On      *schema.Model
	Filter  filter.Predicate
	OrderBy []domain.OrderBy
	Skip    int
	Take    *int
	Fields  []string
}

// ReadRelated selects the records of a relation for the records produced
// by its parent. The parent link arrives as a data edge binding.
type ReadRelated struct {
	Read
	// Relation is the relation field on the parent model.
	Relation string
	// Key is the output key the records are rendered under.
	Key string
}

// Create inserts one record.
type Create struct {
	On   *schema.Model
	Data value.Record
}

// Update sets Data on every record matching Filter.
type Update struct {
	On     *schema.Model
	Filter filter.Predicate
	Data   value.Record
}

// Delete removes every record matching Filter.
type Delete struct {
	On     *schema.Model
	Filter filter.Predicate
}

// Expect passes its parent's records through, failing the graph with a
// record-not-found error when there are none.
type Expect struct {
	On *schema.Model
	// Operation names what needed the record, for the error message.
	Operation string
}

func (n *Read) Model() *schema.Model { return n.On }
func (n *Create) Model() *schema.Model { return n.On }
func (n *Update) Model() *schema.Model { return n.On }
func (n *Delete) Model() *schema.Model { return n.On }
func (n *Expect) Model() *schema.Model { return n.On }

func (*Read) node() {}
func (*ReadRelated) node() {}
func (*Create) node() {}
func (*Update) node() {}
func (*Delete) node() {}
func (*Expect) node() {}

func (n *Read) String() string {
	return "Read " + n.describe()
}

func (n *ReadRelated) String() string {
	return "ReadRelated " + n.Relation + " " + n.describe()
}

func (n *Read) describe() string {
	var b strings.Builder
	b.WriteString(n.On.Name)
	if n.Filter != nil {
		fmt.Fprintf(&b, " where %s", n.Filter)
	}
	if len(n.OrderBy) > 0 {
		parts := make([]string, len(n.OrderBy))
		for i, o := range n.OrderBy {
			parts[i] = o.Field + " " + string(o.Direction)
		}
		fmt.Fprintf(&b, " order by %s", strings.Join(parts, ", "))
	}
	if n.Skip > 0 {
		fmt.Fprintf(&b, " skip %d", n.Skip)
	}
	if n.Take != nil {
		fmt.Fprintf(&b, " take %d", *n.Take)
	}
	fmt.Fprintf(&b, " fields [%s]", strings.Join(n.Fields, " "))
	return b.String()
}

func (n *Create) String() string {
	return "Create " + n.On.Name + " " + describeData(n.Data)
}

func (n *Update) String() string {
	return fmt.Sprintf("Update %s where %s set %s", n.On.Name, n.Filter, describeData(n.Data))
}

func (n *Delete) String() string {
	return fmt.Sprintf("Delete %s where %s", n.On.Name, n.Filter)
}

func (n *Expect) String() string {
	return fmt.Sprintf("Expect %s non-empty (%s)", n.On.Name, n.Operation)
}

func describeData(data value.Record) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + data[k].String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
