// Package diagram turns a parsed Java file into a control-flow diagram and
// renders it as Mermaid, Graphviz or plain text.
package diagram

import (
	"context"
	"fmt"

	"github.com/rendis/codeflow/internal/javaast"
	"github.com/rendis/codeflow/pkg/schema"
)

// CallClassifier decides whether a call statement is an I/O call.
type CallClassifier interface {
	IsIO(ctx context.Context, call *javaast.CallExpr) (bool, error)
}

// Builder builds diagrams. It holds no per-build state and is safe for
// concurrent use as long as its classifier is.
type Builder struct {
	classifier CallClassifier
}

// NewBuilder creates a Builder that uses classifier for call statements.
func NewBuilder(classifier CallClassifier) *Builder {
	return &Builder{classifier: classifier}
}

// Build walks every method of file in document order and returns the diagram.
// Errors come from the classifier or from ctx and are TRAVERSAL_ERROR or
// CANCELLED.
func (b *Builder) Build(ctx context.Context, file *javaast.File) (*Diagram, error) {
	st := newBuildState(ctx, b.classifier)

	if file != nil {
		for _, m := range file.Methods {
			st.method(m)
			if st.err != nil {
				return nil, st.err
			}
		}
	}

	st.finish()
	return st.d, nil
}

// buildState is the working state of one Build call.
type buildState struct {
	ctx        context.Context
	classifier CallClassifier

	d       *Diagram
	counter int
	cursor  string
	err     error
}

var _ javaast.Visitor = (*buildState)(nil)

func newBuildState(ctx context.Context, classifier CallClassifier) *buildState {
	st := &buildState{ctx: ctx, classifier: classifier, d: &Diagram{}}
	st.d.AddNode(&Node{ID: StartID, Label: "Start", Shape: ShapeStadium})
	st.cursor = StartID
	return st
}

func (st *buildState) nextID() string {
	id := fmt.Sprintf("N%d", st.counter)
	st.counter++
	return id
}

// emit adds a node wired from the cursor and moves the cursor onto it. label
// must already be rendered.
func (st *buildState) emit(label string, shape Shape, class Class) string {
	id := st.nextID()
	st.d.AddNode(&Node{ID: id, Label: label, Shape: shape, Class: class})
	st.d.AddEdge(Edge{From: st.cursor, To: id})
	st.cursor = id
	return id
}

// branch adds an unclassed placeholder node reached from `from` over a labeled edge.
func (st *buildState) branch(from, label, edgeLabel string) string {
	id := st.nextID()
	st.d.AddNode(&Node{ID: id, Label: label, Shape: ShapeBox})
	st.d.AddEdge(Edge{From: from, To: id, Label: edgeLabel})
	return id
}

func (st *buildState) method(m *javaast.Method) {
	st.emit(Label("Def "+m.Name), ShapePlain, ClassNone)
	if m.Body != nil {
		st.visit(m.Body)
	}
}

func (st *buildState) finish() {
	st.d.AddNode(&Node{ID: EndID, Label: "End", Shape: ShapeStadium, Class: ClassStartEnd})
	st.d.AddEdge(Edge{From: st.cursor, To: EndID})
	st.d.ClassDefs = DefaultClassDefs()
	st.d.Highlights = []Highlight{{NodeID: StartID, Style: styleStartEnd}}
}

func (st *buildState) visit(s javaast.Stmt) {
	if s == nil || st.err != nil {
		return
	}
	s.Accept(st)
}

func (st *buildState) fail(err error) {
	if st.err == nil {
		st.err = err
	}
}

func (st *buildState) VisitBlock(s *javaast.Block) {
	if err := st.ctx.Err(); err != nil {
		st.fail(schema.NewError(schema.ErrCodeCancelled, "build cancelled").WithCause(err))
		return
	}
	for _, child := range s.Stmts {
		st.visit(child)
	}
}

func (st *buildState) VisitCall(s *javaast.CallExpr) {
	isIO := false
	if st.classifier != nil {
		var err error
		isIO, err = st.classifier.IsIO(st.ctx, s)
		if err != nil {
			st.fail(schema.NewErrorf(schema.ErrCodeTraversal, "classify call %q", s.Name).WithCause(err))
			return
		}
	}

	if !isIO {
		st.emit(Label("Call "+s.Name), ShapeBox, ClassProcess)
		return
	}
	callee := s.Name
	if s.Receiver != "" {
		callee = s.Receiver + "." + s.Name
	}
	st.emit(Label(callee+"(...)"), ShapeParallelogram, ClassIO)
}

func (st *buildState) VisitAssign(s *javaast.AssignExpr) {
	st.emit(Label(s.Target+" = ..."), ShapeBox, ClassProcess)
}

func (st *buildState) VisitVarDecl(s *javaast.VarDecl) {
	for _, name := range s.Names {
		st.emit(Label(name+" = ..."), ShapeBox, ClassProcess)
	}
}

func (st *buildState) VisitReturn(*javaast.Return) {
	st.emit("Return", ShapeBox, ClassProcess)
}

func (st *buildState) VisitIf(s *javaast.If) {
	decision := st.emit(DecisionLabel(s.Cond), ShapeHexagon, ClassDecision)

	st.cursor = st.branch(decision, "Yes", "True")
	st.visit(s.Then)
	trueEnd := st.cursor

	st.cursor = st.branch(decision, "No", "False")
	st.visit(s.Else)
	falseEnd := st.cursor

	if st.err != nil {
		return
	}
	merge := st.nextID()
	st.d.AddNode(&Node{ID: merge, Shape: ShapeCircle})
	st.d.AddEdge(Edge{From: trueEnd, To: merge})
	st.d.AddEdge(Edge{From: falseEnd, To: merge})
	st.cursor = merge
}

func (st *buildState) VisitLoop(s *javaast.Loop) {
	loop := st.emit(DecisionLabel(s.Cond), ShapeHexagon, ClassDecision)

	st.cursor = st.branch(loop, "Do", "True")
	st.visit(s.Body)
	if st.err != nil {
		return
	}
	st.d.AddEdge(Edge{From: st.cursor, To: loop})

	st.cursor = st.branch(loop, "End Loop", "False")
}

func (st *buildState) VisitUnsupported(*javaast.Unsupported) {}
