package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/pgdeps/internal/cli/output"
)

// NewImpactCommand creates the impact command.
func NewImpactCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "impact <object>...",
		Short: "Show what breaks if objects are dropped or changed",
		Long: `Display every object that transitively depends on any of the given objects,
excluding the objects themselves.`,
		Example: `  # What depends on products, directly or not
  pgdeps impact public.products

  # Combined impact of several objects
  pgdeps impact public.products public.order_status:type`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImpact(cmd, args)
		},
	}
}

func runImpact(cmd *cobra.Command, refs []string) error {
	cmdCtx := NewCommandContext(cmd)
	res, err := cmdCtx.Scan()
	if err != nil {
		return err
	}
	ids, err := resolveObjects(res.Graph, refs)
	if err != nil {
		return err
	}
	impacted, err := res.Graph.ImpactSet(ids)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(map[string]any{"changed": toJSON(ids), "impacted": toJSON(impacted)})
	}
	r.Header(1, "Impact")
	r.Table([]string{"Object", "Kind"}, objectRows(impacted))
	r.Println("")
	r.Println(r.Muted(fmt.Sprintf("Total: %d objects affected", len(impacted))))
	return nil
}
