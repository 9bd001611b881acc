package diagram

import (
	"fmt"
	"strings"
)

const mermaidIndent = "    "

// RenderMermaid renders d as Mermaid flowchart markup. Declarations appear in
// emission order, followed by class definitions and highlights. Lines are
// joined by "\n" without a trailing newline.
func RenderMermaid(d *Diagram) string {
	lines := make([]string, 0, 1+len(d.Order)+len(d.ClassDefs)+len(d.Highlights))
	lines = append(lines, "flowchart TD")

	for _, el := range d.Order {
		switch el.Kind {
		case ElementNode:
			lines = append(lines, mermaidIndent+mermaidNodeDef(d.Nodes[el.Index]))
		case ElementEdge:
			lines = append(lines, mermaidIndent+mermaidEdgeDef(d.Edges[el.Index]))
		}
	}

	for _, cd := range d.ClassDefs {
		lines = append(lines, fmt.Sprintf("%sclassDef %s %s", mermaidIndent, cd.Name, cd.Style))
	}
	for _, h := range d.Highlights {
		lines = append(lines, fmt.Sprintf("%sstyle %s %s", mermaidIndent, h.NodeID, h.Style))
	}

	return strings.Join(lines, "\n")
}

// mermaidNodeDef returns the node declaration with its shape brackets.
func mermaidNodeDef(n *Node) string {
	var def string
	switch n.Shape {
	case ShapeStadium:
		def = fmt.Sprintf("%s([%s])", n.ID, n.Label)
	case ShapePlain:
		def = fmt.Sprintf("%s[%s]", n.ID, n.Label)
	case ShapeParallelogram:
		def = fmt.Sprintf(`%s[/"%s"/]`, n.ID, n.Label)
	case ShapeHexagon:
		def = fmt.Sprintf(`%s{{"%s"}}`, n.ID, n.Label)
	case ShapeCircle:
		def = n.ID + "(( ))"
	default:
		def = fmt.Sprintf(`%s["%s"]`, n.ID, n.Label)
	}
	if n.Class != ClassNone {
		def += ":::" + string(n.Class)
	}
	return def
}

func mermaidEdgeDef(e Edge) string {
	if e.Label == "" {
		return e.From + " --> " + e.To
	}
	return fmt.Sprintf("%s -->|%s| %s", e.From, e.Label, e.To)
}
