package depgraph

import (
	"fmt"
	"slices"
	"strings"

	"github.com/leapstack-labs/pgdeps/pkg/core"
)

// Direction selects which edges a traversal follows.
type Direction int

const (
	// Downstream follows edges: what an object depends on.
	Downstream Direction = iota
	// Upstream follows edges backwards: what depends on an object.
	Upstream
)

// String returns the canonical name of the direction.
func (d Direction) String() string {
	if d == Upstream {
		return "upstream"
	}
	return "downstream"
}

// ParseDirection parses a direction name.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "downstream", "down", "dependencies", "deps":
		return Downstream, nil
	case "upstream", "up", "dependents":
		return Upstream, nil
	}
	return 0, fmt.Errorf("unknown direction %q (want upstream or downstream)", s)
}

func (g *Graph) neighbors(i int, dir Direction) []int {
	if dir == Upstream {
		return g.in[i]
	}
	return g.out[i]
}

// TransitiveClosure returns every object reachable from id in the given
// direction within maxDepth hops, mapped to its shortest distance. id itself
// is included at depth 0. A negative maxDepth means no limit.
func (g *Graph) TransitiveClosure(id core.ObjectID, dir Direction, maxDepth int) (map[core.ObjectID]int, error) {
	start, err := g.lookup(id)
	if err != nil {
		return nil, err
	}
	depths := g.bfs([]int{start}, dir, maxDepth)
	out := make(map[core.ObjectID]int, len(depths))
	for n, d := range depths {
		out[g.ids[n]] = d
	}
	return out, nil
}

// bfs layers the graph from the start nodes. Depth is the shortest distance.
func (g *Graph) bfs(starts []int, dir Direction, maxDepth int) map[int]int {
	depths := make(map[int]int, len(starts))
	queue := make([]int, 0, len(starts))
	for _, s := range starts {
		if _, seen := depths[s]; !seen {
			depths[s] = 0
			queue = append(queue, s)
		}
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		d := depths[n]
		if maxDepth >= 0 && d >= maxDepth {
			continue
		}
		for _, m := range g.neighbors(n, dir) {
			if _, seen := depths[m]; !seen {
				depths[m] = d + 1
				queue = append(queue, m)
			}
		}
	}
	return depths
}

// Cycle is a strongly connected component that contains a cycle.
type Cycle struct {
	// Members is the component, sorted.
	Members []core.ObjectID `json:"members" yaml:"members"`
	// Walk is a shortest closed walk through the first member following
	// dependency edges. Its first and last elements are equal.
	Walk []core.ObjectID `json:"walk" yaml:"walk"`
}

// DetectCycles returns every strongly connected component with more than one
// member, and every self-referencing object, ordered by first member.
//
// Components are found with an iterative Tarjan's algorithm, so deep
// dependency chains cannot overflow the goroutine stack. Total work is
// linear in nodes plus edges.
func (g *Graph) DetectCycles() []Cycle {
	var cycles []Cycle
	for _, scc := range g.components() {
		if len(scc) == 1 && !g.hasSelfLoop(scc[0]) {
			continue
		}
		slices.Sort(scc)
		cycles = append(cycles, Cycle{
			Members: g.idsOf(scc),
			Walk:    g.idsOf(g.shortestCycle(scc)),
		})
	}
	slices.SortFunc(cycles, func(a, b Cycle) int {
		return core.CompareIDs(a.Members[0], b.Members[0])
	})
	return cycles
}

func (g *Graph) hasSelfLoop(n int) bool {
	_, ok := g.kinds[[2]int{n, n}]
	return ok
}

// components returns all strongly connected components.
func (g *Graph) components() [][]int {
	const unvisited = -1

	var (
		counter  int
		index    = make([]int, len(g.ids))
		lowLink  = make([]int, len(g.ids))
		onStack  = make([]bool, len(g.ids))
		sccStack []int
		sccs     [][]int
	)
	for i := range index {
		index[i] = unvisited
	}

	// callFrame replaces a recursive strongconnect call.
	type callFrame struct {
		node      int
		edgeIndex int // next outgoing edge to look at
		phase     int // 0=enter, 1=edges, 2=after child, 3=finish
		child     int
	}

	for root := range g.ids {
		if index[root] != unvisited {
			continue
		}
		callStack := []callFrame{{node: root}}
		for len(callStack) > 0 {
			frame := &callStack[len(callStack)-1]
			switch frame.phase {
			case 0:
				index[frame.node] = counter
				lowLink[frame.node] = counter
				counter++
				sccStack = append(sccStack, frame.node)
				onStack[frame.node] = true
				frame.phase = 1

			case 1:
				edges := g.out[frame.node]
				pushed := false
				for frame.edgeIndex < len(edges) {
					next := edges[frame.edgeIndex]
					frame.edgeIndex++
					if index[next] == unvisited {
						frame.phase = 2
						frame.child = next
						callStack = append(callStack, callFrame{node: next})
						pushed = true
						break
					}
					if onStack[next] && index[next] < lowLink[frame.node] {
						lowLink[frame.node] = index[next]
					}
				}
				if !pushed {
					frame.phase = 3
				}

			case 2:
				if lowLink[frame.child] < lowLink[frame.node] {
					lowLink[frame.node] = lowLink[frame.child]
				}
				frame.phase = 1

			case 3:
				if lowLink[frame.node] == index[frame.node] {
					var scc []int
					for {
						w := sccStack[len(sccStack)-1]
						sccStack = sccStack[:len(sccStack)-1]
						onStack[w] = false
						scc = append(scc, w)
						if w == frame.node {
							break
						}
					}
					sccs = append(sccs, scc)
				}
				callStack = callStack[:len(callStack)-1]
			}
		}
	}
	return sccs
}

// shortestCycle returns a shortest closed walk from the first member of a
// sorted component back to itself, staying inside the component.
func (g *Graph) shortestCycle(scc []int) []int {
	start := scc[0]
	if g.hasSelfLoop(start) {
		return []int{start, start}
	}
	member := make(map[int]bool, len(scc))
	for _, n := range scc {
		member[n] = true
	}

	parent := map[int]int{start: start}
	queue := []int{start}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, m := range g.out[n] {
			if m == start {
				walk := []int{start}
				for c := n; c != start; c = parent[c] {
					walk = append(walk, c)
				}
				walk = append(walk, start)
				// walk is start, n, ..., first hop, start; reverse the middle.
				slices.Reverse(walk[1 : len(walk)-1])
				return walk
			}
			if _, seen := parent[m]; !seen && member[m] {
				parent[m] = n
				queue = append(queue, m)
			}
		}
	}
	// Unreachable for a strongly connected component.
	return append(slices.Clone(scc), start)
}

// TopologicalOrder returns all nodes with every dependency before its
// dependents. Among nodes that are ready at the same time, the smaller key
// comes first. A cyclic graph fails with *core.CyclicGraphError.
func (g *Graph) TopologicalOrder() ([]core.ObjectID, error) {
	levels, err := g.kahn()
	if err != nil {
		return nil, err
	}
	order := make([]core.ObjectID, 0, len(g.ids))
	for _, level := range levels {
		order = append(order, g.idsOf(level)...)
	}
	return order, nil
}

// Levels groups nodes by depth in the dependency order: level 0 has no
// dependencies and every node's dependencies sit in earlier levels. Objects
// in one level can be created in parallel.
func (g *Graph) Levels() ([][]core.ObjectID, error) {
	levels, err := g.kahn()
	if err != nil {
		return nil, err
	}
	out := make([][]core.ObjectID, len(levels))
	for i, level := range levels {
		out[i] = g.idsOf(level)
	}
	return out, nil
}

// kahn runs Kahn's algorithm level by level over reverse edges. Each level
// is sorted by index, which is key order.
func (g *Graph) kahn() ([][]int, error) {
	pending := make([]int, len(g.ids)) // unmet dependencies
	var ready []int
	for i := range g.ids {
		pending[i] = len(g.out[i])
		if pending[i] == 0 {
			ready = append(ready, i)
		}
	}

	var levels [][]int
	placed := 0
	for len(ready) > 0 {
		levels = append(levels, ready)
		placed += len(ready)
		var next []int
		for _, n := range ready {
			for _, dependent := range g.in[n] {
				pending[dependent]--
				if pending[dependent] == 0 {
					next = append(next, dependent)
				}
			}
		}
		slices.Sort(next)
		ready = next
	}

	if placed < len(g.ids) {
		cycles := g.DetectCycles()
		return nil, &core.CyclicGraphError{Cycle: cycles[0].Walk}
	}
	return levels, nil
}

// ImpactSet returns the objects that transitively depend on any of ids,
// excluding ids themselves: what breaks if they are dropped.
func (g *Graph) ImpactSet(ids []core.ObjectID) ([]core.ObjectID, error) {
	starts := make([]int, 0, len(ids))
	seed := make(map[int]bool, len(ids))
	for _, id := range ids {
		i, err := g.lookup(id)
		if err != nil {
			return nil, err
		}
		starts = append(starts, i)
		seed[i] = true
	}

	var impacted []int
	for n := range g.bfs(starts, Upstream, -1) {
		if !seed[n] {
			impacted = append(impacted, n)
		}
	}
	slices.Sort(impacted)
	return g.idsOf(impacted), nil
}

// Path returns a shortest dependency path from -> ... -> to following edges
// in dir, or nil when to is not reachable within maxDepth hops. A negative
// maxDepth means no limit.
func (g *Graph) Path(from, to core.ObjectID, dir Direction, maxDepth int) ([]core.ObjectID, error) {
	f, err := g.lookup(from)
	if err != nil {
		return nil, err
	}
	t, err := g.lookup(to)
	if err != nil {
		return nil, err
	}

	parent := map[int]int{f: f}
	depth := map[int]int{f: 0}
	queue := []int{f}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if n == t {
			var path []int
			for c := t; c != f; c = parent[c] {
				path = append(path, c)
			}
			path = append(path, f)
			slices.Reverse(path)
			return g.idsOf(path), nil
		}
		if maxDepth >= 0 && depth[n] >= maxDepth {
			continue
		}
		for _, m := range g.neighbors(n, dir) {
			if _, seen := parent[m]; !seen {
				parent[m] = n
				depth[m] = depth[n] + 1
				queue = append(queue, m)
			}
		}
	}
	return nil, nil
}
