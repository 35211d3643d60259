package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/pgdeps/internal/cli/output"
	"github.com/leapstack-labs/pgdeps/pkg/core"
	"github.com/leapstack-labs/pgdeps/pkg/depgraph"
)

// NewWhyCommand creates the why command.
func NewWhyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "why <from> <to>",
		Short: "Explain how one object depends on another",
		Long: `Print a shortest chain of dependency edges from one object to another,
with the kind of every hop. Nothing is printed when <from> does not depend
on <to>, directly or transitively.`,
		Example: `  # Why does order_items depend on base_entities?
  pgdeps why public.order_items public.base_entities`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWhy(cmd, args[0], args[1])
		},
	}
	addDepthFlag(cmd)
	return cmd
}

type hopJSON struct {
	From  objectJSON `json:"from"`
	To    objectJSON `json:"to"`
	Kinds []string   `json:"kinds"`
}

func runWhy(cmd *cobra.Command, fromRef, toRef string) error {
	cmdCtx := NewCommandContext(cmd)
	res, err := cmdCtx.Scan()
	if err != nil {
		return err
	}
	g := res.Graph
	ids, err := resolveObjects(g, []string{fromRef, toRef})
	if err != nil {
		return err
	}

	path, err := g.Path(ids[0], ids[1], depgraph.Downstream, cmdCtx.Cfg.MaxDepth)
	if err != nil {
		return err
	}
	hops := make([]hopJSON, 0, len(path))
	for i := 1; i < len(path); i++ {
		e, _ := g.Edge(path[i-1], path[i])
		ends := toJSON([]core.ObjectID{path[i-1], path[i]})
		hops = append(hops, hopJSON{From: ends[0], To: ends[1], Kinds: e.Kinds.Strings()})
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(map[string]any{"found": path != nil, "path": hops})
	}

	if path == nil {
		r.Println(r.Muted(fmt.Sprintf("%s does not depend on %s", ids[0], ids[1])))
		return nil
	}
	r.Header(1, fmt.Sprintf("%s depends on %s", ids[0].Qualified(), ids[1].Qualified()))
	rows := make([][]string, len(hops))
	for i, h := range hops {
		rows[i] = []string{path[i].Qualified(), path[i+1].Qualified(), strings.Join(h.Kinds, ",")}
	}
	r.Table([]string{"From", "To", "Edge"}, rows)
	return nil
}
