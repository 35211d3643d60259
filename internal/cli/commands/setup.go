package commands

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/pgdeps/internal/cli/config"
	"github.com/leapstack-labs/pgdeps/internal/cli/output"
	"github.com/leapstack-labs/pgdeps/internal/snapshot"
	"github.com/leapstack-labs/pgdeps/pkg/core"
	"github.com/leapstack-labs/pgdeps/pkg/depgraph"
	"github.com/leapstack-labs/pgdeps/pkg/scan"
)

// CommandContext holds the shared state of one command invocation.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext collects config, logger and renderer from the command.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := config.FromContext(cmd.Context())
	mode, err := output.ParseMode(cfg.OutputFormat)
	if err != nil {
		mode = output.ModeAuto
	}
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode),
	}
}

// Scan loads the configured snapshot and builds its dependency graph.
func (c *CommandContext) Scan() (*scan.Result, error) {
	if err := c.Cfg.RequireSnapshot(); err != nil {
		return nil, err
	}
	rows, err := snapshot.Load(c.Cfg.Snapshot)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("snapshot loaded", "path", c.Cfg.Snapshot, "rows", len(rows))

	res, err := scan.Run(rows, scan.Options{Workers: c.Cfg.Workers, Logger: c.Logger})
	if err != nil {
		return nil, fmt.Errorf("failed to scan snapshot: %w", err)
	}
	return res, nil
}

// withoutExcluded drops the configured order.exclude edge kinds.
func (c *CommandContext) withoutExcluded(g *depgraph.Graph) *depgraph.Graph {
	if len(c.Cfg.Order.Exclude) == 0 {
		return g
	}
	c.Logger.Debug("excluding edge kinds", "kinds", core.KindsOf(c.Cfg.Order.Exclude...).String())
	return g.WithoutKinds(c.Cfg.Order.Exclude...)
}

// resolveObject turns "schema.name" or "schema.name:kind" into a node id.
// Without a kind the name must be unique across kinds.
func resolveObject(g *depgraph.Graph, ref string) (core.ObjectID, error) {
	schema, name, kind, err := core.ParseObjectRef(ref)
	if err != nil {
		return core.ObjectID{}, err
	}
	if kind != "" {
		id := core.NewObjectID(schema, name, kind)
		if !g.Has(id) {
			return core.ObjectID{}, &core.UnknownObjectError{ID: id}
		}
		return id, nil
	}

	var matches []core.ObjectID
	for _, id := range g.Catalog().ByName(name) {
		if id.Schema == schema {
			matches = append(matches, id)
		}
	}
	switch len(matches) {
	case 0:
		return core.ObjectID{}, &core.UnknownObjectError{ID: core.NewObjectID(schema, name, "")}
	case 1:
		return matches[0], nil
	}
	kinds := make([]string, len(matches))
	for i, id := range matches {
		kinds[i] = id.Key()
	}
	return core.ObjectID{}, fmt.Errorf("%s names %d objects: %s\nHint: add the kind, e.g. %s",
		ref, len(matches), strings.Join(kinds, ", "), matches[0].Key())
}

func resolveObjects(g *depgraph.Graph, refs []string) ([]core.ObjectID, error) {
	ids := make([]core.ObjectID, 0, len(refs))
	for _, ref := range refs {
		id, err := resolveObject(g, ref)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// objectRows tabulates ids as name and kind.
func objectRows(ids []core.ObjectID) [][]string {
	rows := make([][]string, len(ids))
	for i, id := range ids {
		rows[i] = []string{id.Qualified(), string(id.Kind)}
	}
	return rows
}

// objectJSON is the JSON form of an id in command output.
type objectJSON struct {
	Schema string `json:"schema"`
	Name   string `json:"name"`
	Kind   string `json:"kind"`
}

func toJSON(ids []core.ObjectID) []objectJSON {
	out := make([]objectJSON, len(ids))
	for i, id := range ids {
		out[i] = objectJSON{Schema: id.Schema, Name: id.Name, Kind: string(id.Kind)}
	}
	return out
}

// byDepth groups a closure by distance, ids sorted within each depth.
func byDepth(closure map[core.ObjectID]int) [][]core.ObjectID {
	maxDepth := 0
	for _, d := range closure {
		maxDepth = max(maxDepth, d)
	}
	groups := make([][]core.ObjectID, maxDepth+1)
	for id, d := range closure {
		groups[d] = append(groups[d], id)
	}
	for _, g := range groups {
		slices.SortFunc(g, core.CompareIDs)
	}
	return groups
}

func completeEdgeKinds(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	names := make([]string, 0, 6)
	for _, k := range core.KindsOf(
		core.EdgeTableReference, core.EdgeViewReference, core.EdgeFunctionCall,
		core.EdgeTriggerTarget, core.EdgeTypeUsage, core.EdgeSequenceUsage,
	).List() {
		names = append(names, k.String())
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

// addExcludeFlag registers --exclude. Its value lands in order.exclude.
func addExcludeFlag(cmd *cobra.Command) {
	cmd.Flags().StringSlice("exclude", nil, "Edge kinds to ignore (e.g. function_call,trigger_target)")
	_ = cmd.RegisterFlagCompletionFunc("exclude", completeEdgeKinds)
}

// addDepthFlag registers --max-depth. Its value lands in max_depth.
func addDepthFlag(cmd *cobra.Command) {
	cmd.Flags().Int("max-depth", config.DefaultMaxDepth, "Max traversal depth (negative = unlimited)")
}

// addDirectionFlag registers --direction and returns its target.
func addDirectionFlag(cmd *cobra.Command, def string) *string {
	dir := cmd.Flags().StringP("direction", "d", def, "Traversal direction: downstream (dependencies) or upstream (dependents)")
	_ = cmd.RegisterFlagCompletionFunc("direction", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"downstream", "upstream"}, cobra.ShellCompDirectiveNoFileComp
	})
	return dir
}
