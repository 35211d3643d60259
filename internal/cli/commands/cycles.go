package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/pgdeps/internal/cli/output"
	"github.com/leapstack-labs/pgdeps/pkg/core"
)

// NewCyclesCommand creates the cycles command.
func NewCyclesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cycles",
		Short: "List dependency cycles",
		Long: `Detect strongly connected components in the dependency graph. Each cycle
is shown with its members and a shortest closed walk through them.

Cycles usually come from mutually recursive routines or from triggers whose
functions write back to the table they fire on.`,
		Example: `  # All cycles
  pgdeps cycles

  # Cycles that remain when calls are ignored
  pgdeps cycles --exclude function_call`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCycles(cmd)
		},
	}
	addExcludeFlag(cmd)
	return cmd
}

func runCycles(cmd *cobra.Command) error {
	cmdCtx := NewCommandContext(cmd)
	res, err := cmdCtx.Scan()
	if err != nil {
		return err
	}
	cycles := cmdCtx.withoutExcluded(res.Graph).DetectCycles()

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(map[string]any{"cycles": cycles})
	}

	r.Header(1, "Dependency Cycles")
	if len(cycles) == 0 {
		r.Println(r.Styles().Success.Render("No cycles found"))
		return nil
	}
	for i, c := range cycles {
		r.Header(2, fmt.Sprintf("Cycle %d (%d objects)", i+1, len(c.Members)))
		r.Printf("  %s\n\n", walkString(c.Walk))
	}
	r.Println(r.Muted(fmt.Sprintf("Total: %d cycles", len(cycles))))
	return nil
}

func walkString(walk []core.ObjectID) string {
	parts := make([]string, len(walk))
	for i, id := range walk {
		parts[i] = id.Qualified()
	}
	return strings.Join(parts, " -> ")
}
