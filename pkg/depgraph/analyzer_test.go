package depgraph

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/pgdeps/internal/testutil"
	"github.com/leapstack-labs/pgdeps/pkg/catalog"
	"github.com/leapstack-labs/pgdeps/pkg/core"
)

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in      string
		want    Direction
		wantErr bool
	}{
		{in: "downstream", want: Downstream},
		{in: "Down", want: Downstream},
		{in: "dependencies", want: Downstream},
		{in: "upstream", want: Upstream},
		{in: " UP ", want: Upstream},
		{in: "dependents", want: Upstream},
		{in: "sideways", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDirection(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// The shortest path from order_items to base_entities is
// order_items -> supplier_products -> suppliers -> categories -> base_entities.
func TestScenario_FourLevelClosure(t *testing.T) {
	g := buildFixture(t, testutil.OrderSchema())
	orderItems := testutil.ID("order_items", core.KindTable)
	base := testutil.ID("base_entities", core.KindTable)

	closure, err := g.TransitiveClosure(orderItems, Downstream, 4)
	require.NoError(t, err)
	assert.Equal(t, 0, closure[orderItems])
	assert.Equal(t, 4, closure[base])
	assert.Equal(t, 1, closure[testutil.ID("orders", core.KindTable)])
	assert.Equal(t, 1, closure[testutil.ID("supplier_products", core.KindTable)])
	assert.Equal(t, 2, closure[testutil.ID("customers", core.KindTable)])
	assert.Equal(t, 3, closure[testutil.ID("categories", core.KindTable)])

	closure, err = g.TransitiveClosure(orderItems, Downstream, 3)
	require.NoError(t, err)
	assert.NotContains(t, closure, base)

	path, err := g.Path(orderItems, base, Downstream, -1)
	require.NoError(t, err)
	assert.Len(t, path, 5)
}

func TestScenario_TriggerFunction(t *testing.T) {
	g := buildFixture(t, testutil.OrderSchema())
	fn := testutil.ID("update_product_stock", core.KindFunction)

	e, ok := g.Edge(fn, testutil.ID("order_items", core.KindTable))
	require.True(t, ok)
	assert.True(t, e.Kinds.Has(core.EdgeTriggerTarget))

	e, ok = g.Edge(fn, testutil.ID("products", core.KindTable))
	require.True(t, ok)
	assert.True(t, e.Kinds.Has(core.EdgeTableReference))

	assert.Empty(t, g.DetectCycles())
}

func TestScenario_MutualRecursion(t *testing.T) {
	g := buildFixture(t, testutil.RecursiveOrderSchema())
	calc := testutil.ID("calculate_order_total", core.KindFunction)
	update := testutil.ID("update_order_status", core.KindFunction)

	cycles := g.DetectCycles()
	require.Len(t, cycles, 1)
	assert.Equal(t, []core.ObjectID{calc, update}, cycles[0].Members)
	assert.Equal(t, []core.ObjectID{calc, update, calc}, cycles[0].Walk)

	_, err := g.TopologicalOrder()
	var cyclic *core.CyclicGraphError
	require.True(t, errors.As(err, &cyclic))
	assert.Contains(t, cyclic.Cycle, calc)
	assert.Contains(t, cyclic.Cycle, update)
	assert.Contains(t, err.Error(), "test.calculate_order_total -> test.update_order_status")

	_, err = g.Levels()
	assert.True(t, errors.As(err, &cyclic))
}

func TestTransitiveClosure_MonotoneInDepth(t *testing.T) {
	g := buildFixture(t, testutil.OrderSchema())

	for _, id := range g.Nodes() {
		for _, dir := range []Direction{Downstream, Upstream} {
			prev, err := g.TransitiveClosure(id, dir, 0)
			require.NoError(t, err)
			assert.Equal(t, map[core.ObjectID]int{id: 0}, prev)

			for depth := 1; depth <= 6; depth++ {
				cur, err := g.TransitiveClosure(id, dir, depth)
				require.NoError(t, err)
				for member, d := range prev {
					assert.Equal(t, d, cur[member], "%s %s depth %d", id, dir, depth)
				}
				for _, d := range cur {
					assert.LessOrEqual(t, d, depth)
				}
				prev = cur
			}

			unbounded, err := g.TransitiveClosure(id, dir, -1)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, len(unbounded), len(prev))
		}
	}
}

func TestTransitiveClosure_Directions(t *testing.T) {
	g := stubGraph(t, map[string][]string{
		"b": {"a"},
		"c": {"b"},
	})

	down, err := g.TransitiveClosure(node("c"), Downstream, -1)
	require.NoError(t, err)
	assert.Equal(t, map[core.ObjectID]int{node("c"): 0, node("b"): 1, node("a"): 2}, down)

	up, err := g.TransitiveClosure(node("a"), Upstream, -1)
	require.NoError(t, err)
	assert.Equal(t, map[core.ObjectID]int{node("a"): 0, node("b"): 1, node("c"): 2}, up)
}

func TestTransitiveClosure_ShortestDepthWins(t *testing.T) {
	// d -> c -> b -> a and d -> a
	g := stubGraph(t, map[string][]string{
		"b": {"a"},
		"c": {"b"},
		"d": {"c", "a"},
	})

	closure, err := g.TransitiveClosure(node("d"), Downstream, -1)
	require.NoError(t, err)
	assert.Equal(t, 1, closure[node("a")])
}

func TestTopologicalOrder_RespectsEdges(t *testing.T) {
	g := buildFixture(t, testutil.OrderSchema())

	order, err := g.TopologicalOrder()
	require.NoError(t, err)
	require.Len(t, order, g.NodeCount())

	pos := make(map[core.ObjectID]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	for _, e := range g.Edges() {
		assert.Less(t, pos[e.To], pos[e.From], "%s must come before %s", e.To, e.From)
	}
}

func TestTopologicalOrder_TiesByKey(t *testing.T) {
	g := stubGraph(t, map[string][]string{
		"z": {"m"},
	}, "b", "a")

	order, err := g.TopologicalOrder()
	require.NoError(t, err)
	assert.Equal(t, []core.ObjectID{node("a"), node("b"), node("m"), node("z")}, order)
}

func TestLevels(t *testing.T) {
	g := stubGraph(t, map[string][]string{
		"b": {"a"},
		"c": {"a"},
		"d": {"b", "c"},
	}, "e")

	levels, err := g.Levels()
	require.NoError(t, err)
	assert.Equal(t, [][]core.ObjectID{
		{node("a"), node("e")},
		{node("b"), node("c")},
		{node("d")},
	}, levels)
}

func TestDetectCycles_SelfLoop(t *testing.T) {
	cat, err := catalog.Ingest([]core.RawObject{
		{Schema: "public", Name: "fact", Kind: "function"},
		{Schema: "public", Name: "t", Kind: "table"},
	})
	require.NoError(t, err)
	fact := core.NewObjectID("public", "fact", core.KindFunction)

	g := Build(cat, WithExtractor(stubExtractor{"fact": {{Target: fact, Kind: core.EdgeFunctionCall}}}))

	cycles := g.DetectCycles()
	require.Len(t, cycles, 1)
	assert.Equal(t, []core.ObjectID{fact}, cycles[0].Members)
	assert.Equal(t, []core.ObjectID{fact, fact}, cycles[0].Walk)
}

func TestDetectCycles_ShortestWalk(t *testing.T) {
	// a -> b -> c -> d -> a plus the chord a -> d.
	g := stubGraph(t, map[string][]string{
		"a": {"b", "d"},
		"b": {"c"},
		"c": {"d"},
		"d": {"a"},
		"x": {"a"},
	})

	cycles := g.DetectCycles()
	require.Len(t, cycles, 1)
	assert.Equal(t, []core.ObjectID{node("a"), node("b"), node("c"), node("d")}, cycles[0].Members)
	assert.Equal(t, []core.ObjectID{node("a"), node("d"), node("a")}, cycles[0].Walk)
}

func TestDetectCycles_DeepChain(t *testing.T) {
	// Deep enough that a recursive strongconnect would be a poor idea.
	const n = 20000
	edges := make(map[string][]string, n)
	for i := 1; i < n; i++ {
		edges[fmt.Sprintf("t%05d", i)] = []string{fmt.Sprintf("t%05d", i-1)}
	}
	edges["t00000"] = []string{fmt.Sprintf("t%05d", n-1)}
	g := stubGraph(t, edges)

	cycles := g.DetectCycles()
	require.Len(t, cycles, 1)
	assert.Len(t, cycles[0].Members, n)
	assert.Len(t, cycles[0].Walk, n+1)
}

func TestImpactSet(t *testing.T) {
	g := buildFixture(t, testutil.OrderSchema())

	impacted, err := g.ImpactSet([]core.ObjectID{testutil.ID("products", core.KindTable)})
	require.NoError(t, err)

	assert.Contains(t, impacted, testutil.ID("supplier_products", core.KindTable))
	assert.Contains(t, impacted, testutil.ID("order_items", core.KindTable))
	assert.Contains(t, impacted, testutil.ID("update_product_stock", core.KindFunction))
	assert.Contains(t, impacted, testutil.ID("product_sales", core.KindMaterializedView))
	assert.NotContains(t, impacted, testutil.ID("products", core.KindTable))
	assert.NotContains(t, impacted, testutil.ID("categories", core.KindTable))

	none, err := g.ImpactSet(nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestPath(t *testing.T) {
	g := stubGraph(t, map[string][]string{
		"b": {"a"},
		"c": {"b"},
	}, "island")

	path, err := g.Path(node("c"), node("a"), Downstream, -1)
	require.NoError(t, err)
	assert.Equal(t, []core.ObjectID{node("c"), node("b"), node("a")}, path)

	path, err = g.Path(node("a"), node("c"), Upstream, -1)
	require.NoError(t, err)
	assert.Equal(t, []core.ObjectID{node("a"), node("b"), node("c")}, path)

	path, err = g.Path(node("c"), node("a"), Downstream, 1)
	require.NoError(t, err)
	assert.Nil(t, path)

	path, err = g.Path(node("c"), node("island"), Downstream, -1)
	require.NoError(t, err)
	assert.Nil(t, path)
}
