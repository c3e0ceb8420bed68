package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/prisma-engine/internal/core/query/filter"
	"github.com/satishbabariya/prisma-engine/internal/core/query/graph"
	"github.com/satishbabariya/prisma-engine/internal/core/schema"
	"github.com/satishbabariya/prisma-engine/internal/core/value"
)

var testModel = schema.MustLoad(`
model User {
  id   Int    @id
  name String
}`)

func user(t *testing.T) *schema.Model {
	t.Helper()
	m, ok := testModel.Model("User")
	require.True(t, ok)
	return m
}

func read(t *testing.T) *graph.Read {
	return &graph.Read{On: user(t), Filter: filter.True(), Fields: []string{"id"}}
}

func TestTopologicalOrderIsDeterministic(t *testing.T) {
	g := graph.New()
	a := g.Add(read(t))
	b := g.Add(read(t))
	c := g.Add(read(t))
	d := g.Add(read(t))

	// d and c are both released by b; the lower ID must come first.
	require.NoError(t, g.AddDataDependency(b, d, nil))
	require.NoError(t, g.AddDataDependency(b, c, nil))
	require.NoError(t, g.AddOrderDependency(a, b))
	g.SetResult(d)

	for range 5 {
		order, err := g.TopologicalOrder()
		require.NoError(t, err)
		assert.Equal(t, []graph.NodeID{a, b, c, d}, order)
	}
	require.NoError(t, g.Validate())
}

func TestIndependentRootsOrderByID(t *testing.T) {
	g := graph.New()
	first := g.Add(read(t))
	second := g.Add(read(t))
	third := g.Add(read(t))
	require.NoError(t, g.AddOrderDependency(third, first))

	order, err := g.TopologicalOrder()
	require.NoError(t, err)
	assert.Equal(t, []graph.NodeID{second, third, first}, order)
}

func TestCyclesAreRejected(t *testing.T) {
	g := graph.New()
	a := g.Add(read(t))
	b := g.Add(read(t))
	c := g.Add(read(t))
	require.NoError(t, g.AddDataDependency(a, b, nil))
	require.NoError(t, g.AddOrderDependency(b, c))

	assert.ErrorIs(t, g.AddOrderDependency(c, a), graph.ErrCycle)
	assert.ErrorIs(t, g.AddDataDependency(a, a, nil), graph.ErrCycle)
	assert.Error(t, g.AddOrderDependency(a, graph.NodeID(9)))
	assert.Len(t, g.Edges(), 2)
}

func TestValidateRequiresResult(t *testing.T) {
	g := graph.New()
	g.Add(read(t))
	assert.Error(t, g.Validate())
}

func TestParentsAndChildren(t *testing.T) {
	g := graph.New()
	a := g.Add(read(t))
	b := g.Add(&graph.Expect{On: user(t), Operation: "update"})
	binding := &graph.Binding{ParentField: "id", ChildField: "id"}
	require.NoError(t, g.AddDataDependency(a, b, binding))

	parents := g.Parents(b)
	require.Len(t, parents, 1)
	assert.Equal(t, graph.Data, parents[0].Kind)
	assert.Same(t, binding, parents[0].Binding)
	assert.Len(t, g.Children(a), 1)
	assert.Empty(t, g.Children(b))
}

func TestString(t *testing.T) {
	m := user(t)
	g := graph.New()
	take := 1
	r := g.Add(&graph.Read{
		On:     m,
		Filter: filter.Compare{Field: "id", Op: filter.Equals, Value: value.Int(1)},
		Take:   &take,
		Fields: []string{"id", "name"},
	})
	e := g.Add(&graph.Expect{On: m, Operation: "update"})
	u := g.Add(&graph.Update{On: m, Filter: filter.True(), Data: value.Record{"name": value.String("b")}})
	require.NoError(t, g.AddDataDependency(r, e, nil))
	require.NoError(t, g.AddDataDependency(e, u, &graph.Binding{ParentField: "id", ChildField: "id"}))
	g.SetResult(u)

	want := ` 0: Read User where id = 1 take 1 fields [id name]
 1: Expect User non-empty (update)
     <- 0 (data)
*2: Update User where TRUE set {name="b"}
     <- 1 (data id=id)
`
	assert.Equal(t, want, g.String())
}
