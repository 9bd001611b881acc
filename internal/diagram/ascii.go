package diagram

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// RenderASCII renders d as a column of boxes in emission order. Each box is
// followed by the edges leaving it, so branches and back-edges read as jumps
// to node ids.
func RenderASCII(d *Diagram) string {
	var b strings.Builder

	for i, node := range d.Nodes {
		if i > 0 {
			b.WriteByte('\n')
		}
		for _, line := range makeBox(node).lines {
			b.WriteString(line)
			b.WriteByte('\n')
		}
		for _, edge := range d.Outgoing(node.ID) {
			renderConnector(&b, edge)
		}
	}

	return b.String()
}

// asciiBox holds the rendered lines of a single box.
type asciiBox struct {
	lines []string
}

// makeBox creates an ASCII box for a node.
func makeBox(node *Node) asciiBox {
	content := asciiLabel(node)
	n := utf8.RuneCountInString(content)
	width := n + 4 // 2 border + 2 padding

	top := "┌" + strings.Repeat("─", width-2) + "┐"
	mid := "│ " + content + " │"
	bot := "└" + strings.Repeat("─", width-2) + "┘"

	return asciiBox{lines: []string{top, mid, bot}}
}

// asciiLabel is the box text: the node id and its decoded label.
func asciiLabel(node *Node) string {
	label := graphvizLabel(node.Label)
	switch node.Shape {
	case ShapeCircle:
		label = "( )"
	case ShapeHexagon:
		label = "<" + label + ">"
	case ShapeParallelogram:
		label = "/" + label + "/"
	}
	if node.ID == StartID || node.ID == EndID {
		return label
	}
	return fmt.Sprintf("%s: %s", node.ID, label)
}

// renderConnector draws one outgoing edge under a box.
func renderConnector(b *strings.Builder, edge Edge) {
	b.WriteString("  │\n")
	if edge.Label == "" {
		fmt.Fprintf(b, "  └──▶ %s\n", edge.To)
		return
	}
	fmt.Fprintf(b, "  └─%s─▶ %s\n", edge.Label, edge.To)
}
