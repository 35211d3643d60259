package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/leapstack-labs/pgdeps/pkg/core"
)

var dotShapes = map[core.ObjectKind]string{
	core.KindTable:            "box",
	core.KindView:             "ellipse",
	core.KindMaterializedView: "box3d",
	core.KindFunction:         "component",
	core.KindProcedure:        "component",
	core.KindTrigger:          "hexagon",
	core.KindSequence:         "cds",
	core.KindType:             "note",
	core.KindIndex:            "invtriangle",
}

// WriteDOT writes doc as a Graphviz digraph. Edges point from dependent to
// dependency and are labeled with their kinds.
func WriteDOT(w io.Writer, doc *Document) error {
	var sb strings.Builder

	sb.WriteString("digraph pgdeps {\n")
	sb.WriteString("    rankdir=LR;\n")
	sb.WriteString("    node [fontname=\"Helvetica\", fontsize=10];\n")
	sb.WriteString("\n")

	for _, n := range doc.Nodes {
		attrs := fmt.Sprintf("label=\"%s\\n(%s)\", shape=%s", escapeDOTLabel(n.Label), n.Kind, dotShapes[n.Kind])
		if doc.Root != nil && n.ID == *doc.Root {
			attrs += ", style=filled, fillcolor=\"#ffd93d\""
		}
		fmt.Fprintf(&sb, "    %s [%s];\n", dotID(n.ID), attrs)
	}

	if len(doc.Edges) > 0 {
		sb.WriteString("\n")
	}
	for _, e := range doc.Edges {
		fmt.Fprintf(&sb, "    %s -> %s [label=\"%s\"];\n", dotID(e.From), dotID(e.To), strings.Join(e.Kinds, ","))
	}

	sb.WriteString("}\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

func dotID(id core.ObjectID) string {
	return `"` + escapeDOTLabel(id.Key()) + `"`
}

func escapeDOTLabel(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`).Replace(s)
}
