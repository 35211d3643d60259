// Package export renders a dependency graph, or the closure around one
// object, as a stable document for other tools.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/pgdeps/pkg/catalog"
	"github.com/leapstack-labs/pgdeps/pkg/core"
	"github.com/leapstack-labs/pgdeps/pkg/depgraph"
	"github.com/leapstack-labs/pgdeps/pkg/extract"
)

// Options selects what Export includes.
type Options struct {
	// Root limits the export to the closure of one object. Nil exports the
	// whole graph.
	Root      *core.ObjectID
	Direction depgraph.Direction
	// MaxDepth bounds the closure. Negative means no limit.
	MaxDepth int
	// ScanID is copied into the document when set.
	ScanID string
}

// Document is the exported form of a graph. Field names are stable.
type Document struct {
	ScanID     string                   `json:"scan_id,omitempty" yaml:"scan_id,omitempty"`
	Root       *core.ObjectID           `json:"root,omitempty" yaml:"root,omitempty"`
	Direction  string                   `json:"direction,omitempty" yaml:"direction,omitempty"`
	Nodes      []Node                   `json:"nodes" yaml:"nodes"`
	Edges      []Edge                   `json:"edges" yaml:"edges"`
	Unresolved []depgraph.UnresolvedRef `json:"unresolved,omitempty" yaml:"unresolved,omitempty"`
}

// Node is one exported object.
type Node struct {
	ID    core.ObjectID   `json:"id" yaml:"id"`
	Kind  core.ObjectKind `json:"kind" yaml:"kind"`
	Label string          `json:"label" yaml:"label"`
	// Depth is the distance from the root in a closure export.
	Depth *int `json:"depth,omitempty" yaml:"depth,omitempty"`
}

// Edge is one exported dependency: From depends on To.
type Edge struct {
	From  core.ObjectID `json:"from" yaml:"from"`
	To    core.ObjectID `json:"to" yaml:"to"`
	Kinds []string      `json:"kinds" yaml:"kinds"`
}

// Export builds a Document from g.
func Export(g *depgraph.Graph, opts Options) (*Document, error) {
	doc := &Document{ScanID: opts.ScanID}
	sub := g
	var depths map[core.ObjectID]int

	if opts.Root != nil {
		closure, err := g.TransitiveClosure(*opts.Root, opts.Direction, opts.MaxDepth)
		if err != nil {
			return nil, fmt.Errorf("export closure: %w", err)
		}
		ids := make([]core.ObjectID, 0, len(closure))
		for id := range closure {
			ids = append(ids, id)
		}
		sub = g.Subgraph(ids)
		depths = closure
		root := *opts.Root
		doc.Root = &root
		doc.Direction = opts.Direction.String()
	}

	for _, id := range sub.Nodes() {
		n := Node{ID: id, Kind: id.Kind, Label: id.Qualified()}
		if d, ok := depths[id]; ok {
			n.Depth = &d
		}
		doc.Nodes = append(doc.Nodes, n)
	}
	for _, e := range sub.Edges() {
		doc.Edges = append(doc.Edges, Edge{From: e.From, To: e.To, Kinds: e.Kinds.Strings()})
	}
	doc.Unresolved = sub.AllUnresolved()
	return doc, nil
}

// Graph rebuilds a dependency graph from the document's nodes and edges.
// Definitions are not part of a document, so the result answers structural
// queries only.
func (d *Document) Graph() (*depgraph.Graph, error) {
	rows := make([]core.RawObject, len(d.Nodes))
	for i, n := range d.Nodes {
		rows[i] = core.RawObject{Schema: n.ID.Schema, Name: n.ID.Name, Kind: string(n.ID.Kind)}
	}
	cat, err := catalog.Ingest(rows)
	if err != nil {
		return nil, fmt.Errorf("rebuild catalog: %w", err)
	}

	refs := make(edgeList)
	for _, e := range d.Edges {
		from := core.NewObjectID(e.From.Schema, e.From.Name, e.From.Kind)
		for _, name := range e.Kinds {
			k, err := core.ParseEdgeKind(name)
			if err != nil {
				return nil, fmt.Errorf("edge %s -> %s: %w", e.From.Qualified(), e.To.Qualified(), err)
			}
			to := core.NewObjectID(e.To.Schema, e.To.Name, e.To.Kind)
			refs[from] = append(refs[from], extract.Reference{Target: to, Kind: k})
		}
	}
	return depgraph.Build(cat, depgraph.WithExtractor(refs), depgraph.WithWorkers(1)), nil
}

// edgeList replays exported edges as extraction results.
type edgeList map[core.ObjectID][]extract.Reference

func (l edgeList) Extract(obj *core.CatalogObject, _ *catalog.Catalog) extract.Result {
	return extract.Result{References: l[obj.ID]}
}

// Format is an output encoding.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatDOT  Format = "dot"
)

// ParseFormat parses a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatYAML, FormatDOT:
		return f, nil
	case "yml":
		return FormatYAML, nil
	case "graphviz", "gv":
		return FormatDOT, nil
	}
	return "", fmt.Errorf("unknown export format %q (want json, yaml or dot)", s)
}

// Write encodes doc to w.
func Write(w io.Writer, doc *Document, format Format) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, doc)
	case FormatYAML:
		return WriteYAML(w, doc)
	case FormatDOT:
		return WriteDOT(w, doc)
	}
	return fmt.Errorf("unknown export format %q", format)
}

// WriteJSON writes doc as indented JSON.
func WriteJSON(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// WriteYAML writes doc as YAML.
func WriteYAML(w io.Writer, doc *Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

// Read decodes a JSON or YAML document. YAML is a superset of JSON, so one
// decoder serves both.
func Read(r io.Reader) (*Document, error) {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &doc, nil
}
