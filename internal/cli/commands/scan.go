package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/pgdeps/internal/cli/output"
	"github.com/leapstack-labs/pgdeps/pkg/core"
	"github.com/leapstack-labs/pgdeps/pkg/scan"
)

// NewScanCommand creates the scan command.
func NewScanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Scan a catalog snapshot and summarize its dependency graph",
		Long: `Load a catalog snapshot, extract the references in every definition and
report object, edge, unresolved and cycle counts.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format (agent-friendly)
  - JSON: Machine-readable format`,
		Example: `  # Summarize a snapshot
  pgdeps scan --snapshot catalog.yaml

  # Machine-readable summary
  pgdeps scan --snapshot catalog.yaml -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScan(cmd)
		},
	}
}

func runScan(cmd *cobra.Command) error {
	cmdCtx := NewCommandContext(cmd)
	res, err := cmdCtx.Scan()
	if err != nil {
		return err
	}
	sum := res.Summary()
	r := cmdCtx.Renderer

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(sum)
	}
	scanText(r, sum)
	return nil
}

func scanText(r *output.Renderer, sum scan.Summary) {
	r.Header(1, "Scan "+sum.ScanID)

	var rows [][]string
	for _, kind := range core.AllKinds {
		if n := sum.ByKind[kind]; n > 0 {
			rows = append(rows, []string{string(kind), strconv.Itoa(n)})
		}
	}
	r.Table([]string{"Kind", "Objects"}, rows)
	r.Println("")

	r.Println(r.Muted(fmt.Sprintf("Total: %d objects, %d dependencies, %d unresolved references, %d cycles (%s)",
		sum.Objects, sum.Edges, sum.Unresolved, sum.Cycles, sum.Duration)))
	if sum.Unresolved > 0 {
		r.Warn(fmt.Sprintf("%d references could not be resolved; see 'pgdeps unresolved'", sum.Unresolved))
	}
}
