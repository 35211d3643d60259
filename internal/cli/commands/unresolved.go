package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/pgdeps/internal/cli/output"
	"github.com/leapstack-labs/pgdeps/pkg/depgraph"
)

// NewUnresolvedCommand creates the unresolved command.
func NewUnresolvedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unresolved [object]",
		Short: "List references that could not be bound",
		Long: `List identifiers found in definitions that did not resolve to exactly one
catalog object. "unknown" means nothing matched; "ambiguous" means several
objects in different schemas matched a name written without a schema.`,
		Example: `  # Everything unresolved
  pgdeps unresolved

  # Unresolved references of one view
  pgdeps unresolved reporting.recent_orders`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUnresolved(cmd, args)
		},
	}
}

func runUnresolved(cmd *cobra.Command, args []string) error {
	cmdCtx := NewCommandContext(cmd)
	res, err := cmdCtx.Scan()
	if err != nil {
		return err
	}
	g := res.Graph

	var refs []depgraph.UnresolvedRef
	if len(args) == 1 {
		id, err := resolveObject(g, args[0])
		if err != nil {
			return err
		}
		details, err := g.UnresolvedDetails(id)
		if err != nil {
			return err
		}
		for _, u := range details {
			refs = append(refs, depgraph.UnresolvedRef{From: id, Unresolved: u})
		}
	} else {
		refs = g.AllUnresolved()
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		if refs == nil {
			refs = []depgraph.UnresolvedRef{}
		}
		return r.JSON(map[string]any{"unresolved": refs})
	}

	r.Header(1, "Unresolved References")
	rows := make([][]string, len(refs))
	for i, u := range refs {
		candidates := make([]string, len(u.Candidates))
		for j, c := range u.Candidates {
			candidates[j] = c.Key()
		}
		rows[i] = []string{u.From.Qualified(), u.Text, string(u.Reason), strings.Join(candidates, ", ")}
	}
	r.Table([]string{"Object", "Reference", "Reason", "Candidates"}, rows)
	r.Println("")
	r.Println(r.Muted(fmt.Sprintf("Total: %d unresolved references", len(refs))))
	return nil
}
