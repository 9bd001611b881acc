package diagram

import (
	"bytes"
	"context"
	"strings"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/rendis/codeflow/pkg/schema"
)

// RenderDOT renders d as Graphviz DOT source with layout positions.
func RenderDOT(ctx context.Context, d *Diagram) ([]byte, error) {
	return renderGraphviz(ctx, d, graphviz.XDOT)
}

// RenderSVG renders d as an SVG document.
func RenderSVG(ctx context.Context, d *Diagram) ([]byte, error) {
	return renderGraphviz(ctx, d, graphviz.SVG)
}

// RenderPNG renders d as a PNG image.
func RenderPNG(ctx context.Context, d *Diagram) ([]byte, error) {
	return renderGraphviz(ctx, d, graphviz.PNG)
}

func renderGraphviz(ctx context.Context, d *Diagram, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, renderError("create graphviz", err)
	}
	defer gv.Close()

	gv.SetLayout(graphviz.DOT)

	graph, err := gv.Graph()
	if err != nil {
		return nil, renderError("create graph", err)
	}
	defer graph.Close()

	graph.SetRankDir(cgraph.TBRank)

	styles := nodeStyles(d)
	gvNodes := make(map[string]*cgraph.Node, len(d.Nodes))
	for _, node := range d.Nodes {
		gvNode, nErr := graph.CreateNodeByName(node.ID)
		if nErr != nil {
			return nil, renderError("create node "+node.ID, nErr)
		}
		applyNodeShape(gvNode, node)
		applyNodeStyle(gvNode, node, styles[node.ID])
		gvNodes[node.ID] = gvNode
	}

	for _, edge := range d.Edges {
		fromGV, toGV := gvNodes[edge.From], gvNodes[edge.To]
		if fromGV == nil || toGV == nil {
			continue
		}
		e, eErr := graph.CreateEdgeByName("", fromGV, toGV)
		if eErr != nil {
			return nil, renderError("create edge "+edge.From+"->"+edge.To, eErr)
		}
		if edge.Label != "" {
			e.SetLabel(edge.Label)
		}
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, format, &buf); err != nil {
		return nil, renderError("render "+string(format), err)
	}
	return buf.Bytes(), nil
}

func renderError(op string, err error) error {
	return schema.NewErrorf(schema.ErrCodeRender, "diagram: %s", op).WithCause(err)
}

// applyNodeShape maps a Shape onto Graphviz attributes.
func applyNodeShape(gvNode *cgraph.Node, node *Node) {
	gvNode.SetLabel(graphvizLabel(node.Label))
	switch node.Shape {
	case ShapeStadium:
		gvNode.SetShape(cgraph.BoxShape)
		gvNode.SetStyle(cgraph.NodeStyle("rounded,filled"))
	case ShapeParallelogram:
		gvNode.SetShape(cgraph.ParallelogramShape)
	case ShapeHexagon:
		gvNode.SetShape(cgraph.HexagonShape)
	case ShapeCircle:
		gvNode.SetShape(cgraph.CircleShape)
		gvNode.SetLabel("")
		gvNode.SetWidth(0.2)
		gvNode.SetHeight(0.2)
	default:
		gvNode.SetShape(cgraph.BoxShape)
	}
}

// applyNodeStyle copies fill and text colors from a Mermaid style string.
func applyNodeStyle(gvNode *cgraph.Node, node *Node, style map[string]string) {
	if fill, ok := style["fill"]; ok {
		if node.Shape != ShapeStadium {
			gvNode.SetStyle(cgraph.FilledNodeStyle)
		}
		gvNode.SetFillColor(fill)
	}
	if color, ok := style["color"]; ok {
		gvNode.SetFontColor(color)
	}
}

// nodeStyles resolves the effective style of every classed or highlighted node.
func nodeStyles(d *Diagram) map[string]map[string]string {
	classes := make(map[Class]string, len(d.ClassDefs))
	for _, cd := range d.ClassDefs {
		classes[cd.Name] = cd.Style
	}

	out := make(map[string]map[string]string)
	for _, n := range d.Nodes {
		if style, ok := classes[n.Class]; ok && n.Class != ClassNone {
			out[n.ID] = parseStyle(style)
		}
	}
	for _, h := range d.Highlights {
		out[h.NodeID] = parseStyle(h.Style)
	}
	return out
}

// parseStyle splits "fill:#fff,color:white" into its properties.
func parseStyle(style string) map[string]string {
	props := make(map[string]string)
	for _, part := range strings.Split(style, ",") {
		key, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		props[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return props
}

// graphvizLabel decodes the bracket entities used in Mermaid labels, which
// Graphviz would otherwise print literally in some output formats.
var graphvizLabelReplacer = strings.NewReplacer(
	"&#123;", "{",
	"&#125;", "}",
	"&#91;", "[",
	"&#93;", "]",
)

func graphvizLabel(label string) string {
	return graphvizLabelReplacer.Replace(label)
}
