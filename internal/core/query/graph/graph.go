// Package graph models a compiled query as a directed acyclic graph of
// primitive operations.
//
// Edges are either data dependencies, where the child consumes the
// parent's output, or ordering dependencies, where the child only has to
// wait for the parent. A graph has one result node whose output is
// serialized as the operation's response.
package graph

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// NodeID identifies a node within one graph. IDs are assigned in insertion
// order starting at zero.
type NodeID int

// EdgeKind distinguishes data from ordering dependencies.
type EdgeKind int

const (
	Data EdgeKind = iota
	Order
)

func (k EdgeKind) String() string {
	if k == Data {
		return "data"
	}
	return "order"
}

// Binding narrows a data dependency: the child only sees records whose
// ChildField is among the parent's ParentField values.
type Binding struct {
	ParentField string
	ChildField  string
}

// Edge is a dependency from From to To.
type Edge struct {
	From    NodeID
	To      NodeID
	Kind    EdgeKind
	Binding *Binding
}

// ErrCycle is returned when an edge would make the graph cyclic.
var ErrCycle = errors.New("query graph: cycle")

// Graph is a query graph. It is built once by the builder and then only
// read.
type Graph struct {
	nodes  []Node
	edges  []Edge
	result NodeID
	hasRes bool
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{}
}

// Add appends n and returns its ID.
func (g *Graph) Add(n Node) NodeID {
	g.nodes = append(g.nodes, n)
	return NodeID(len(g.nodes) - 1)
}

// Node returns the node with the given ID.
func (g *Graph) Node(id NodeID) Node {
	return g.nodes[id]
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Edges returns every edge in insertion order.
func (g *Graph) Edges() []Edge { return g.edges }

// AddDataDependency makes to consume the output of from, optionally
// narrowed by b.
func (g *Graph) AddDataDependency(from, to NodeID, b *Binding) error {
	return g.addEdge(Edge{From: from, To: to, Kind: Data, Binding: b})
}

// AddOrderDependency makes to wait until from has completed.
func (g *Graph) AddOrderDependency(from, to NodeID) error {
	return g.addEdge(Edge{From: from, To: to, Kind: Order})
}

func (g *Graph) addEdge(e Edge) error {
	if !g.valid(e.From) || !g.valid(e.To) {
		return fmt.Errorf("query graph: edge %d -> %d references an unknown node", e.From, e.To)
	}
	if e.From == e.To || g.reachable(e.To, e.From) {
		return fmt.Errorf("%w: %d -> %d", ErrCycle, e.From, e.To)
	}
	g.edges = append(g.edges, e)
	return nil
}

func (g *Graph) valid(id NodeID) bool {
	return id >= 0 && int(id) < len(g.nodes)
}

func (g *Graph) reachable(from, to NodeID) bool {
	seen := make([]bool, len(g.nodes))
	stack := []NodeID{from}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == to {
			return true
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		for _, e := range g.edges {
			if e.From == n {
				stack = append(stack, e.To)
			}
		}
	}
	return false
}

// SetResult marks id as the node whose output becomes the response.
func (g *Graph) SetResult(id NodeID) {
	g.result = id
	g.hasRes = true
}

// Result returns the result node.
func (g *Graph) Result() (NodeID, bool) {
	return g.result, g.hasRes
}

// Parents returns the edges ending at id.
func (g *Graph) Parents(id NodeID) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.To == id {
			out = append(out, e)
		}
	}
	return out
}

// Children returns the edges starting at id.
func (g *Graph) Children(id NodeID) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.From == id {
			out = append(out, e)
		}
	}
	return out
}

// Validate checks the structural invariants: a result node exists and the
// graph is acyclic.
func (g *Graph) Validate() error {
	if !g.hasRes || !g.valid(g.result) {
		return errors.New("query graph: no result node")
	}
	_, err := g.TopologicalOrder()
	return err
}

// TopologicalOrder returns every node such that each node comes after all
// of its parents. Among nodes that are ready at the same time the lowest
// ID goes first, so the order is a pure function of the graph.
func (g *Graph) TopologicalOrder() ([]NodeID, error) {
	indegree := make([]int, len(g.nodes))
	for _, e := range g.edges {
		indegree[e.To]++
	}
	var ready []NodeID
	for id := range g.nodes {
		if indegree[id] == 0 {
			ready = append(ready, NodeID(id))
		}
	}

	order := make([]NodeID, 0, len(g.nodes))
	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)
		for _, e := range g.edges {
			if e.From != n {
				continue
			}
			indegree[e.To]--
			if indegree[e.To] == 0 {
				i, _ := slices.BinarySearch(ready, e.To)
				ready = slices.Insert(ready, i, e.To)
			}
		}
	}
	if len(order) != len(g.nodes) {
		return nil, ErrCycle
	}
	return order, nil
}

// String renders the graph as a plan, one node per line in topological
// order, followed by its incoming edges.
func (g *Graph) String() string {
	order, err := g.TopologicalOrder()
	if err != nil {
		return "<cyclic graph>"
	}
	var b strings.Builder
	for _, id := range order {
		marker := " "
		if g.hasRes && id == g.result {
			marker = "*"
		}
		fmt.Fprintf(&b, "%s%d: %s\n", marker, id, g.nodes[id])
		for _, e := range g.Parents(id) {
			fmt.Fprintf(&b, "     <- %d (%s", e.From, e.Kind)
			if e.Binding != nil {
				fmt.Fprintf(&b, " %s=%s", e.Binding.ChildField, e.Binding.ParentField)
			}
			b.WriteString(")\n")
		}
	}
	return b.String()
}
