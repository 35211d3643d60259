package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/pgdeps/internal/cli/output"
)

// NewOrderCommand creates the order command.
func NewOrderCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Print a safe creation order",
		Long: `Print every object so that each one comes after everything it depends on.
Replaying DDL in this order recreates the schema; reverse it to drop.

A cyclic graph has no such order. Use --exclude to ignore edge kinds that
do not constrain creation, such as function_call for plpgsql routines.`,
		Example: `  # Creation order
  pgdeps order

  # Ignore routine calls when ordering
  pgdeps order --exclude function_call,trigger_target`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOrder(cmd)
		},
	}
	addExcludeFlag(cmd)
	return cmd
}

// NewLevelsCommand creates the levels command.
func NewLevelsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "levels",
		Short: "Group objects into creation levels",
		Long: `Group objects by depth in the creation order. Level 0 depends on nothing;
every object depends only on objects in earlier levels, so the objects of
one level can be created in parallel.`,
		Example: `  # Creation levels
  pgdeps levels -o markdown`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLevels(cmd)
		},
	}
	addExcludeFlag(cmd)
	return cmd
}

func runOrder(cmd *cobra.Command) error {
	cmdCtx := NewCommandContext(cmd)
	res, err := cmdCtx.Scan()
	if err != nil {
		return err
	}
	order, err := cmdCtx.withoutExcluded(res.Graph).TopologicalOrder()
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(map[string]any{"order": toJSON(order)})
	}
	r.Header(1, "Creation Order")
	rows := objectRows(order)
	for i := range rows {
		rows[i] = append([]string{fmt.Sprintf("%d", i+1)}, rows[i]...)
	}
	r.Table([]string{"#", "Object", "Kind"}, rows)
	return nil
}

func runLevels(cmd *cobra.Command) error {
	cmdCtx := NewCommandContext(cmd)
	res, err := cmdCtx.Scan()
	if err != nil {
		return err
	}
	levels, err := cmdCtx.withoutExcluded(res.Graph).Levels()
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		out := make([][]objectJSON, len(levels))
		for i, level := range levels {
			out[i] = toJSON(level)
		}
		return r.JSON(map[string]any{"levels": out})
	}

	r.Header(1, "Creation Levels")
	for i, level := range levels {
		name := fmt.Sprintf("Level %d", i)
		if i == 0 {
			name = "Level 0 (no dependencies)"
		}
		r.Header(2, name)
		r.Table([]string{"Object", "Kind"}, objectRows(level))
		r.Println("")
	}
	r.Println(r.Muted(fmt.Sprintf("Total: %d levels", len(levels))))
	return nil
}
