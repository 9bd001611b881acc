package javaast

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/rendis/codeflow/pkg/schema"
)

// converter maps tree-sitter nodes onto Stmt variants. src must be the exact
// buffer the tree was parsed from.
type converter struct {
	src []byte
}

// methods collects every method_declaration in document order.
func (c *converter) methods(root *sitter.Node) ([]*Method, error) {
	var out []*Method

	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if n.Type() == "method_declaration" {
			m := &Method{
				Name: c.text(n.ChildByFieldName("name")),
				Line: int(n.StartPoint().Row) + 1,
			}
			if body := n.ChildByFieldName("body"); body != nil {
				stmt, err := c.stmt(body, 0)
				if err != nil {
					return nil, err
				}
				m.Body = asBlock(stmt)
			}
			out = append(out, m)
		}

		for i := int(n.NamedChildCount()) - 1; i >= 0; i-- {
			if child := n.NamedChild(i); child != nil {
				stack = append(stack, child)
			}
		}
	}
	return out, nil
}

func (c *converter) stmt(n *sitter.Node, depth int) (Stmt, error) {
	if n == nil {
		return nil, nil
	}
	if depth > MaxNestingDepth {
		return nil, schema.NewErrorf(schema.ErrCodeTraversal,
			"statements nested deeper than %d levels", MaxNestingDepth).
			WithDetails(map[string]any{"line": int(n.StartPoint().Row) + 1})
	}

	switch n.Type() {
	case "block":
		return c.block(n, depth)

	case "expression_statement":
		return c.expression(n.NamedChild(0)), nil

	case "local_variable_declaration":
		decl := &VarDecl{Type: c.text(n.ChildByFieldName("type"))}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			if child != nil && child.Type() == "variable_declarator" {
				decl.Names = append(decl.Names, c.text(child.ChildByFieldName("name")))
			}
		}
		return decl, nil

	case "if_statement":
		then, err := c.stmt(n.ChildByFieldName("consequence"), depth+1)
		if err != nil {
			return nil, err
		}
		els, err := c.stmt(n.ChildByFieldName("alternative"), depth+1)
		if err != nil {
			return nil, err
		}
		return &If{Cond: c.condition(n.ChildByFieldName("condition")), Then: then, Else: els}, nil

	case "while_statement":
		body, err := c.stmt(n.ChildByFieldName("body"), depth+1)
		if err != nil {
			return nil, err
		}
		return &Loop{Kind: LoopWhile, Cond: c.condition(n.ChildByFieldName("condition")), Body: body}, nil

	case "for_statement":
		body, err := c.stmt(n.ChildByFieldName("body"), depth+1)
		if err != nil {
			return nil, err
		}
		cond := c.text(n.ChildByFieldName("condition"))
		if cond == "" {
			cond = "For Loop"
		}
		return &Loop{Kind: LoopFor, Cond: cond, Body: body}, nil

	case "enhanced_for_statement":
		body, err := c.stmt(n.ChildByFieldName("body"), depth+1)
		if err != nil {
			return nil, err
		}
		name := c.text(n.ChildByFieldName("name"))
		if name == "" {
			name = "item"
		}
		cond := name + " : " + c.text(n.ChildByFieldName("value"))
		return &Loop{Kind: LoopForEach, Cond: cond, Body: body}, nil

	case "return_statement":
		ret := &Return{}
		if n.NamedChildCount() > 0 {
			ret.Value = c.text(n.NamedChild(0))
		}
		return ret, nil

	default:
		return &Unsupported{Kind: n.Type()}, nil
	}
}

// block converts the statements of n. A block adds no nesting level of its
// own unless it is a bare block inside another block.
func (c *converter) block(n *sitter.Node, depth int) (*Block, error) {
	b := &Block{Stmts: make([]Stmt, 0, n.NamedChildCount())}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		childDepth := depth
		if child != nil && child.Type() == "block" {
			childDepth++
		}
		s, err := c.stmt(child, childDepth)
		if err != nil {
			return nil, err
		}
		if s != nil {
			b.Stmts = append(b.Stmts, s)
		}
	}
	return b, nil
}

// expression maps the expression of an expression_statement.
func (c *converter) expression(n *sitter.Node) Stmt {
	if n == nil {
		return &Unsupported{Kind: "expression_statement"}
	}
	switch n.Type() {
	case "method_invocation":
		call := &CallExpr{
			Receiver: c.receiver(n.ChildByFieldName("object")),
			Name:     c.text(n.ChildByFieldName("name")),
		}
		if args := n.ChildByFieldName("arguments"); args != nil {
			for i := 0; i < int(args.NamedChildCount()); i++ {
				call.Args = append(call.Args, c.text(args.NamedChild(i)))
			}
		}
		return call
	case "assignment_expression":
		return &AssignExpr{
			Target:   c.text(n.ChildByFieldName("left")),
			Operator: c.text(n.ChildByFieldName("operator")),
		}
	default:
		return &Unsupported{Kind: n.Type()}
	}
}

// condition returns the text of a condition without its surrounding parentheses.
func (c *converter) condition(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	if n.Type() == "parenthesized_expression" && n.NamedChildCount() == 1 {
		return c.text(n.NamedChild(0))
	}
	text := c.text(n)
	if strings.HasPrefix(text, "(") && strings.HasSuffix(text, ")") {
		text = strings.TrimSpace(text[1 : len(text)-1])
	}
	return text
}

// text returns the node's source with whitespace runs collapsed to one space.
func (c *converter) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return strings.Join(strings.Fields(n.Content(c.src)), " ")
}

// receiver returns the text of a call's object with the whitespace around
// member access dots removed, so "System . out" reads "System.out".
func (c *converter) receiver(n *sitter.Node) string {
	parts := strings.Split(c.text(n), ".")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return strings.Join(parts, ".")
}

func asBlock(s Stmt) *Block {
	if b, ok := s.(*Block); ok {
		return b
	}
	if s == nil {
		return nil
	}
	return &Block{Stmts: []Stmt{s}}
}
