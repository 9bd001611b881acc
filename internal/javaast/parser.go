package javaast

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"

	"github.com/rendis/codeflow/pkg/schema"
)

const (
	// DefaultMaxSourceBytes bounds the accepted submission size.
	DefaultMaxSourceBytes = 1 << 20

	// MaxNestingDepth bounds statement nesting so traversal recursion stays shallow.
	MaxNestingDepth = 256

	classPrefix = "public class TempClass { "
	classSuffix = " }"
	mainPrefix  = "public class TempClass { public static void main(String[] args) { "
	mainSuffix  = " } }"
)

// attempt is one way of embedding the submission before handing it to tree-sitter.
type attempt struct {
	wrap   Wrapping
	prefix string
	suffix string
}

// Parser parses Java snippets. It is safe for concurrent use; every Parse call
// creates its own tree-sitter parser.
type Parser struct {
	maxBytes int
}

// Option configures a Parser.
type Option func(*Parser)

// WithMaxSourceBytes overrides DefaultMaxSourceBytes. Values <= 0 are ignored.
func WithMaxSourceBytes(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.maxBytes = n
		}
	}
}

// NewParser creates a Parser.
func NewParser(opts ...Option) *Parser {
	p := &Parser{maxBytes: DefaultMaxSourceBytes}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse parses code into a File.
//
// Code that does not mention a class is wrapped into one, and when that still
// does not parse, into a main method inside one. If no attempt parses cleanly
// the syntax error of the first attempt is returned.
func (p *Parser) Parse(ctx context.Context, code string) (*File, error) {
	if len(code) > p.maxBytes {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"source is %d bytes, limit is %d", len(code), p.maxBytes)
	}
	if !utf8.ValidString(code) {
		return nil, schema.NewError(schema.ErrCodeValidation, "source is not valid UTF-8")
	}

	var firstErr error
	for _, a := range attemptsFor(code) {
		file, err := p.parseAttempt(ctx, code, a)
		if err == nil {
			return file, nil
		}
		if !schema.IsCode(err, schema.ErrCodeSyntax) {
			return nil, err
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}

func attemptsFor(code string) []attempt {
	if strings.Contains(code, "class ") {
		return []attempt{{wrap: WrapNone}}
	}
	return []attempt{
		{wrap: WrapClass, prefix: classPrefix, suffix: classSuffix},
		{wrap: WrapMain, prefix: mainPrefix, suffix: mainSuffix},
	}
}

func (p *Parser) parseAttempt(ctx context.Context, code string, a attempt) (*File, error) {
	src := []byte(a.prefix + code + a.suffix)

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(java.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		if ctx.Err() != nil {
			return nil, schema.NewError(schema.ErrCodeCancelled, "parse cancelled").WithCause(ctx.Err())
		}
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, schema.NewError(schema.ErrCodeSyntax, "empty syntax tree")
	}
	if root.HasError() {
		return nil, syntaxError(root, src, len(a.prefix))
	}

	c := &converter{src: src}
	methods, err := c.methods(root)
	if err != nil {
		return nil, err
	}
	return &File{Methods: methods, Wrapped: a.wrap}, nil
}

// syntaxError describes the first ERROR or MISSING node in document order.
// Columns on the first line are shifted back by the wrapping prefix.
func syntaxError(root *sitter.Node, src []byte, prefixLen int) error {
	bad := firstErrorNode(root)
	if bad == nil {
		return schema.NewError(schema.ErrCodeSyntax, "syntax error")
	}

	pt := bad.StartPoint()
	line, col := int(pt.Row)+1, int(pt.Column)+1
	if pt.Row == 0 {
		col -= prefixLen
		if col < 1 {
			col = 1
		}
	}

	var what string
	if bad.IsMissing() {
		what = fmt.Sprintf("missing %q", bad.Type())
	} else {
		what = fmt.Sprintf("unexpected %q", snippet(bad.Content(src)))
	}
	return schema.NewErrorf(schema.ErrCodeSyntax, "syntax error at line %d, column %d: %s", line, col, what).
		WithDetails(map[string]any{"line": line, "column": col})
}

func firstErrorNode(root *sitter.Node) *sitter.Node {
	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.Type() == "ERROR" || n.IsMissing() {
			return n
		}
		if !n.HasError() {
			continue
		}
		for i := int(n.ChildCount()) - 1; i >= 0; i-- {
			if child := n.Child(i); child != nil {
				stack = append(stack, child)
			}
		}
	}
	return nil
}

func snippet(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > 20 {
		return string(r[:20]) + "..."
	}
	return s
}
