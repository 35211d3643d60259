package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/pgdeps/internal/cli/output"
	"github.com/leapstack-labs/pgdeps/pkg/core"
	"github.com/leapstack-labs/pgdeps/pkg/depgraph"
)

// NewDepsCommand creates the deps command.
func NewDepsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "deps <object>",
		Short: "Show direct dependencies and dependents of an object",
		Long: `Display the objects an object references directly (dependencies) and the
objects that reference it directly (dependents), with the kind of each edge.

Objects are named schema.name, or schema.name:kind when a name is shared
by objects of different kinds.`,
		Example: `  # Direct neighbours of a table
  pgdeps deps public.orders

  # Disambiguate by kind
  pgdeps deps public.order_status:type`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeps(cmd, args[0])
		},
	}
}

type depJSON struct {
	Object objectJSON `json:"object"`
	Kinds  []string   `json:"kinds"`
}

func runDeps(cmd *cobra.Command, ref string) error {
	cmdCtx := NewCommandContext(cmd)
	res, err := cmdCtx.Scan()
	if err != nil {
		return err
	}
	g := res.Graph
	id, err := resolveObject(g, ref)
	if err != nil {
		return err
	}

	deps, err := g.DirectDependencies(id)
	if err != nil {
		return err
	}
	dependents, err := g.DirectDependents(id)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(map[string]any{
			"object":       toJSON([]core.ObjectID{id})[0],
			"dependencies": edgesJSON(g, id, deps, false),
			"dependents":   edgesJSON(g, id, dependents, true),
		})
	}

	r.Header(1, id.String())
	r.Header(2, "Depends on")
	r.Table([]string{"Object", "Kind", "Edge"}, edgeRows(g, id, deps, false))
	r.Println("")
	r.Header(2, "Used by")
	r.Table([]string{"Object", "Kind", "Edge"}, edgeRows(g, id, dependents, true))
	return nil
}

func edgeKinds(g *depgraph.Graph, id, other core.ObjectID, incoming bool) core.EdgeKinds {
	from, to := id, other
	if incoming {
		from, to = other, id
	}
	e, _ := g.Edge(from, to)
	return e.Kinds
}

func edgeRows(g *depgraph.Graph, id core.ObjectID, others []core.ObjectID, incoming bool) [][]string {
	rows := objectRows(others)
	for i, other := range others {
		rows[i] = append(rows[i], edgeKinds(g, id, other, incoming).String())
	}
	return rows
}

func edgesJSON(g *depgraph.Graph, id core.ObjectID, others []core.ObjectID, incoming bool) []depJSON {
	out := make([]depJSON, len(others))
	for i, obj := range toJSON(others) {
		out[i] = depJSON{Object: obj, Kinds: edgeKinds(g, id, others[i], incoming).Strings()}
	}
	return out
}
