package diagram

// Fixed node ids.
const (
	StartID = "Start"
	EndID   = "End"
)

// Shape is the visual form of a node. Each shape maps to one Mermaid bracket
// syntax and one Graphviz node shape.
type Shape int

const (
	// ShapeStadium renders as ID([label]). Used by Start and End.
	ShapeStadium Shape = iota
	// ShapePlain renders as ID[label] with the label unquoted. Used by Def nodes.
	ShapePlain
	// ShapeBox renders as ID["label"].
	ShapeBox
	// ShapeParallelogram renders as ID[/"label"/].
	ShapeParallelogram
	// ShapeHexagon renders as ID{{"label"}}.
	ShapeHexagon
	// ShapeCircle renders as ID(( )). The label is ignored.
	ShapeCircle
)

// Class is a style class attached to a node.
type Class string

const (
	ClassNone     Class = ""
	ClassStartEnd Class = "startend"
	ClassProcess  Class = "process"
	ClassDecision Class = "decision"
	ClassIO       Class = "io"
)

// Diagram is the intermediate representation shared by all renderers.
//
// Order records the emission sequence of node and edge declarations. Renderers
// that care about textual order (Mermaid) walk Order; graph renderers may use
// Nodes and Edges directly.
type Diagram struct {
	Nodes      []*Node
	Edges      []Edge
	Order      []Element
	ClassDefs  []ClassDef
	Highlights []Highlight
}

// Node is a single diagram node. Label is already escaped and truncated.
type Node struct {
	ID    string
	Label string
	Shape Shape
	Class Class
}

// Edge is a control edge. Label is empty, "True" or "False".
type Edge struct {
	From  string
	To    string
	Label string
}

// ElementKind tells which slice an Element indexes.
type ElementKind int

const (
	ElementNode ElementKind = iota
	ElementEdge
)

// Element points at the Index-th node or edge of a Diagram.
type Element struct {
	Kind  ElementKind
	Index int
}

// ClassDef is a named style class declaration.
type ClassDef struct {
	Name  Class
	Style string
}

// Highlight styles one node directly.
type Highlight struct {
	NodeID string
	Style  string
}

const (
	styleStartEnd = "fill:#003366,stroke:#333,stroke-width:2px,color:white"
	styleProcess  = "fill:#0070C0,stroke:#333,stroke-width:2px,color:white"
	styleDecision = "fill:#4CAF50,stroke:#333,stroke-width:2px,color:white"
	styleIO       = "fill:#0070C0,stroke:#333,stroke-width:2px,color:white"
)

// DefaultClassDefs returns the class declarations appended to every diagram.
func DefaultClassDefs() []ClassDef {
	return []ClassDef{
		{Name: ClassStartEnd, Style: styleStartEnd},
		{Name: ClassProcess, Style: styleProcess},
		{Name: ClassDecision, Style: styleDecision},
		{Name: ClassIO, Style: styleIO},
	}
}

// AddNode appends n and records it in the emission order.
func (d *Diagram) AddNode(n *Node) {
	d.Order = append(d.Order, Element{Kind: ElementNode, Index: len(d.Nodes)})
	d.Nodes = append(d.Nodes, n)
}

// AddEdge appends e and records it in the emission order.
func (d *Diagram) AddEdge(e Edge) {
	d.Order = append(d.Order, Element{Kind: ElementEdge, Index: len(d.Edges)})
	d.Edges = append(d.Edges, e)
}

// Node returns the node with the given id, or nil.
func (d *Diagram) Node(id string) *Node {
	for _, n := range d.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// Incoming returns the edges ending at id, in emission order.
func (d *Diagram) Incoming(id string) []Edge {
	var out []Edge
	for _, e := range d.Edges {
		if e.To == id {
			out = append(out, e)
		}
	}
	return out
}

// Outgoing returns the edges leaving id, in emission order.
func (d *Diagram) Outgoing(id string) []Edge {
	var out []Edge
	for _, e := range d.Edges {
		if e.From == id {
			out = append(out, e)
		}
	}
	return out
}

// ErrorLabelPrefix starts the label of the degraded diagram.
const ErrorLabelPrefix = "Error parsing Java: "

// ErrorDiagram is the degraded diagram shown when a submission cannot be
// turned into a flowchart. It carries a single plain node and no styles.
func ErrorDiagram(message string) *Diagram {
	d := &Diagram{}
	d.AddNode(&Node{
		ID:    "Error",
		Label: Label(ErrorLabelPrefix + message),
		Shape: ShapePlain,
	})
	return d
}
