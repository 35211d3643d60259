package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/pgdeps/pkg/core"
	"github.com/leapstack-labs/pgdeps/pkg/depgraph"
	"github.com/leapstack-labs/pgdeps/pkg/export"
)

// ExportOptions holds options for the export command.
type ExportOptions struct {
	Root      string
	Direction string
	Format    string
	File      string
}

// NewExportCommand creates the export command.
func NewExportCommand() *cobra.Command {
	opts := &ExportOptions{}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the dependency graph for other tools",
		Long: `Write the dependency graph as a JSON or YAML document with stable field
names, or as a Graphviz digraph. With --root only the closure around one
object is exported, each node carrying its distance from the root.`,
		Example: `  # Whole graph as JSON
  pgdeps export --format json > graph.json

  # Closure of one table, rendered with Graphviz
  pgdeps export --root public.orders --max-depth 2 --format dot | dot -Tsvg > orders.svg

  # Write YAML to a file
  pgdeps export --format yaml --file graph.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExport(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Root, "root", "", "Export only the closure of this object")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "json", "Export format: json, yaml, dot")
	cmd.Flags().StringVar(&opts.File, "file", "", "Write to this file instead of stdout")
	opts.Direction = "downstream"
	cmd.Flags().StringVarP(&opts.Direction, "direction", "d", opts.Direction, "Closure direction with --root: downstream or upstream")
	addDepthFlag(cmd)

	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"json", "yaml", "dot"}, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func runExport(cmd *cobra.Command, opts *ExportOptions) error {
	format, err := export.ParseFormat(opts.Format)
	if err != nil {
		return err
	}
	dir, err := depgraph.ParseDirection(opts.Direction)
	if err != nil {
		return err
	}

	cmdCtx := NewCommandContext(cmd)
	res, err := cmdCtx.Scan()
	if err != nil {
		return err
	}

	exportOpts := export.Options{Direction: dir, MaxDepth: cmdCtx.Cfg.MaxDepth, ScanID: res.ID}
	if opts.Root != "" {
		root, err := resolveObject(res.Graph, opts.Root)
		if err != nil {
			return err
		}
		exportOpts.Root = &root
	}
	doc, err := export.Export(res.Graph, exportOpts)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if opts.File != "" {
		f, err := os.Create(opts.File) // #nosec G304 -- output path chosen by the user
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", opts.File, err)
		}
		defer func() { _ = f.Close() }()
		w = f
	}
	if err := export.Write(w, doc, format); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}

	cmdCtx.Logger.Info("graph exported",
		"format", format,
		"nodes", len(doc.Nodes),
		"edges", len(doc.Edges),
		"root", rootKey(exportOpts.Root))
	return nil
}

func rootKey(id *core.ObjectID) string {
	if id == nil {
		return ""
	}
	return id.Key()
}
