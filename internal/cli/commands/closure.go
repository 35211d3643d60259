package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/pgdeps/internal/cli/output"
	"github.com/leapstack-labs/pgdeps/pkg/depgraph"
)

// NewClosureCommand creates the closure command.
func NewClosureCommand() *cobra.Command {
	var direction *string
	cmd := &cobra.Command{
		Use:   "closure <object>",
		Short: "Show everything an object reaches, by depth",
		Long: `Display the transitive closure of an object: every object reachable by
following dependency edges (downstream) or reverse edges (upstream), grouped
by shortest distance.

Downstream answers "what does this object need?"; upstream answers "what
breaks if this object changes?".`,
		Example: `  # Everything order_items depends on, up to four levels deep
  pgdeps closure public.order_items --max-depth 4

  # Everything that depends on a table
  pgdeps closure public.products -d upstream`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClosure(cmd, args[0], *direction)
		},
	}
	direction = addDirectionFlag(cmd, "downstream")
	addDepthFlag(cmd)
	return cmd
}

type closureLevelJSON struct {
	Depth   int          `json:"depth"`
	Objects []objectJSON `json:"objects"`
}

func runClosure(cmd *cobra.Command, ref, direction string) error {
	dir, err := depgraph.ParseDirection(direction)
	if err != nil {
		return err
	}
	cmdCtx := NewCommandContext(cmd)
	res, err := cmdCtx.Scan()
	if err != nil {
		return err
	}
	id, err := resolveObject(res.Graph, ref)
	if err != nil {
		return err
	}

	closure, err := res.Graph.TransitiveClosure(id, dir, cmdCtx.Cfg.MaxDepth)
	if err != nil {
		return err
	}
	levels := byDepth(closure)

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		out := make([]closureLevelJSON, 0, len(levels))
		for d, ids := range levels {
			out = append(out, closureLevelJSON{Depth: d, Objects: toJSON(ids)})
		}
		return r.JSON(map[string]any{
			"root":      toJSON(levels[0])[0],
			"direction": dir.String(),
			"max_depth": cmdCtx.Cfg.MaxDepth,
			"levels":    out,
		})
	}

	r.Header(1, fmt.Sprintf("%s closure of %s", dir, id))
	for d, ids := range levels[1:] {
		r.Header(2, fmt.Sprintf("Depth %d", d+1))
		r.Table([]string{"Object", "Kind"}, objectRows(ids))
		r.Println("")
	}
	r.Println(r.Muted(fmt.Sprintf("Total: %d objects", len(closure)-1)))
	return nil
}
