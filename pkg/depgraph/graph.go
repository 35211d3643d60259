// Package depgraph holds the dependency graph of a scanned catalog and the
// queries that run over it.
//
// An edge From -> To means From depends on To. "Dependencies" of X are the
// targets of its outgoing edges, "dependents" of X are the sources of its
// incoming edges. Every catalog object is a node, even when it has no edges.
package depgraph

import (
	"slices"

	"github.com/leapstack-labs/pgdeps/pkg/catalog"
	"github.com/leapstack-labs/pgdeps/pkg/core"
	"github.com/leapstack-labs/pgdeps/pkg/extract"
)

// Graph is an immutable dependency graph. Nodes live in an arena indexed by
// int in key order, so adjacency lists sorted by index are also sorted by id.
type Graph struct {
	cat   *catalog.Catalog
	ids   []core.ObjectID
	index map[core.ObjectID]int

	out   [][]int // node -> dependencies
	in    [][]int // node -> dependents
	kinds map[[2]int]core.EdgeKinds

	unresolved [][]extract.Unresolved
}

// UnresolvedRef is an unresolved reference together with the object whose
// text contains it.
type UnresolvedRef struct {
	From               core.ObjectID `json:"from" yaml:"from"`
	extract.Unresolved `yaml:",inline"`
}

func newGraph(cat *catalog.Catalog, ids []core.ObjectID) *Graph {
	g := &Graph{
		cat:        cat,
		ids:        ids,
		index:      make(map[core.ObjectID]int, len(ids)),
		out:        make([][]int, len(ids)),
		in:         make([][]int, len(ids)),
		kinds:      make(map[[2]int]core.EdgeKinds),
		unresolved: make([][]extract.Unresolved, len(ids)),
	}
	for i, id := range ids {
		g.index[id] = i
	}
	return g
}

// addEdge records from -> to, unioning kinds with an existing edge.
func (g *Graph) addEdge(from, to int, kinds core.EdgeKinds) {
	key := [2]int{from, to}
	if existing, ok := g.kinds[key]; ok {
		g.kinds[key] = existing.Union(kinds)
		return
	}
	g.kinds[key] = kinds
	g.out[from] = append(g.out[from], to)
	g.in[to] = append(g.in[to], from)
}

// seal sorts adjacency lists. It must run once after the last addEdge.
func (g *Graph) seal() *Graph {
	for i := range g.ids {
		slices.Sort(g.out[i])
		slices.Sort(g.in[i])
	}
	return g
}

func (g *Graph) lookup(id core.ObjectID) (int, error) {
	i, ok := g.index[id]
	if !ok {
		return 0, &core.UnknownObjectError{ID: id}
	}
	return i, nil
}

func (g *Graph) idsOf(indexes []int) []core.ObjectID {
	out := make([]core.ObjectID, len(indexes))
	for i, n := range indexes {
		out[i] = g.ids[n]
	}
	return out
}

// Catalog returns the catalog the graph was built from.
func (g *Graph) Catalog() *catalog.Catalog {
	return g.cat
}

// Has reports whether id is a node.
func (g *Graph) Has(id core.ObjectID) bool {
	_, ok := g.index[id]
	return ok
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	return len(g.ids)
}

// EdgeCount returns the number of (from, to) edges.
func (g *Graph) EdgeCount() int {
	return len(g.kinds)
}

// Nodes returns all node ids in key order.
func (g *Graph) Nodes() []core.ObjectID {
	return slices.Clone(g.ids)
}

// Edges returns all edges ordered by source, then target.
func (g *Graph) Edges() []core.Edge {
	edges := make([]core.Edge, 0, len(g.kinds))
	for from, targets := range g.out {
		for _, to := range targets {
			edges = append(edges, g.edge(from, to))
		}
	}
	return edges
}

func (g *Graph) edge(from, to int) core.Edge {
	return core.Edge{From: g.ids[from], To: g.ids[to], Kinds: g.kinds[[2]int{from, to}]}
}

// Edge returns the edge from -> to if it exists.
func (g *Graph) Edge(from, to core.ObjectID) (core.Edge, bool) {
	f, ok := g.index[from]
	if !ok {
		return core.Edge{}, false
	}
	t, ok := g.index[to]
	if !ok {
		return core.Edge{}, false
	}
	if _, ok := g.kinds[[2]int{f, t}]; !ok {
		return core.Edge{}, false
	}
	return g.edge(f, t), true
}

// DirectDependencies returns the objects id references directly.
func (g *Graph) DirectDependencies(id core.ObjectID) ([]core.ObjectID, error) {
	i, err := g.lookup(id)
	if err != nil {
		return nil, err
	}
	return g.idsOf(g.out[i]), nil
}

// DirectDependents returns the objects that reference id directly.
func (g *Graph) DirectDependents(id core.ObjectID) ([]core.ObjectID, error) {
	i, err := g.lookup(id)
	if err != nil {
		return nil, err
	}
	return g.idsOf(g.in[i]), nil
}

// UnresolvedReferences returns the raw identifiers in id's text that could
// not be bound to a catalog object.
func (g *Graph) UnresolvedReferences(id core.ObjectID) ([]string, error) {
	i, err := g.lookup(id)
	if err != nil {
		return nil, err
	}
	var texts []string
	for _, u := range g.unresolved[i] {
		if !slices.Contains(texts, u.Text) {
			texts = append(texts, u.Text)
		}
	}
	return texts, nil
}

// UnresolvedDetails is UnresolvedReferences with reasons and candidates.
func (g *Graph) UnresolvedDetails(id core.ObjectID) ([]extract.Unresolved, error) {
	i, err := g.lookup(id)
	if err != nil {
		return nil, err
	}
	return slices.Clone(g.unresolved[i]), nil
}

// AllUnresolved returns every unresolved reference in node order.
func (g *Graph) AllUnresolved() []UnresolvedRef {
	var out []UnresolvedRef
	for i, list := range g.unresolved {
		for _, u := range list {
			out = append(out, UnresolvedRef{From: g.ids[i], Unresolved: u})
		}
	}
	return out
}

// Roots returns the nodes without dependencies.
func (g *Graph) Roots() []core.ObjectID {
	var roots []core.ObjectID
	for i, id := range g.ids {
		if len(g.out[i]) == 0 {
			roots = append(roots, id)
		}
	}
	return roots
}

// Leaves returns the nodes nothing depends on.
func (g *Graph) Leaves() []core.ObjectID {
	var leaves []core.ObjectID
	for i, id := range g.ids {
		if len(g.in[i]) == 0 {
			leaves = append(leaves, id)
		}
	}
	return leaves
}

// Subgraph returns the subgraph induced by ids. Ids that are not nodes are
// ignored. Unresolved references of kept nodes are kept.
func (g *Graph) Subgraph(ids []core.ObjectID) *Graph {
	keep := make(map[int]bool, len(ids))
	for _, id := range ids {
		if i, ok := g.index[id]; ok {
			keep[i] = true
		}
	}
	return g.derive(func(i int) bool { return keep[i] }, func(core.Edge) bool { return true })
}

// FilterEdges returns a graph with the same nodes and only the edges keep
// accepts. An edge with several kinds is passed once with all of them.
func (g *Graph) FilterEdges(keep func(core.Edge) bool) *Graph {
	return g.derive(func(int) bool { return true }, keep)
}

// WithoutKinds returns a graph without the given edge kinds. Edges left with
// no kind are dropped.
func (g *Graph) WithoutKinds(kinds ...core.EdgeKind) *Graph {
	drop := core.KindsOf(kinds...)
	return g.derive(func(int) bool { return true }, func(e core.Edge) bool {
		return e.Kinds.Difference(drop).Len() > 0
	}, drop)
}

func (g *Graph) derive(node func(int) bool, keep func(core.Edge) bool, drop ...core.EdgeKinds) *Graph {
	var ids []core.ObjectID
	for i, id := range g.ids {
		if node(i) {
			ids = append(ids, id)
		}
	}
	sub := newGraph(g.cat, ids)
	for _, id := range ids {
		sub.unresolved[sub.index[id]] = g.unresolved[g.index[id]]
	}
	for from, targets := range g.out {
		if !node(from) {
			continue
		}
		for _, to := range targets {
			if !node(to) {
				continue
			}
			e := g.edge(from, to)
			if !keep(e) {
				continue
			}
			kinds := e.Kinds
			for _, d := range drop {
				kinds = kinds.Difference(d)
			}
			sub.addEdge(sub.index[e.From], sub.index[e.To], kinds)
		}
	}
	return sub.seal()
}
