// Package javaast turns Java source text into a small typed statement tree.
//
// Only the constructs that matter for control flow are modelled. Everything
// else becomes an Unsupported statement so callers can skip it explicitly.
package javaast

// File is the result of parsing one submission.
type File struct {
	// Methods holds every method declaration in document order, nested
	// and anonymous class members included.
	Methods []*Method
	// Wrapped records the wrapping applied before the parse succeeded.
	Wrapped Wrapping
}

// Wrapping describes how the submitted text was embedded before parsing.
type Wrapping int

const (
	WrapNone Wrapping = iota
	WrapClass
	WrapMain
)

func (w Wrapping) String() string {
	switch w {
	case WrapClass:
		return "class"
	case WrapMain:
		return "main"
	default:
		return "none"
	}
}

// Method is a method declaration. Body is nil for abstract and interface methods.
type Method struct {
	Name string
	Body *Block
	Line int
}

// Stmt is a statement variant. Accept dispatches to the matching Visitor method.
type Stmt interface {
	Accept(v Visitor)
	stmt()
}

// Visitor has one method per statement kind. Adding a kind adds a method here,
// so every implementation has to handle it.
type Visitor interface {
	VisitBlock(s *Block)
	VisitCall(s *CallExpr)
	VisitAssign(s *AssignExpr)
	VisitVarDecl(s *VarDecl)
	VisitIf(s *If)
	VisitLoop(s *Loop)
	VisitReturn(s *Return)
	VisitUnsupported(s *Unsupported)
}

// Block is a brace-delimited statement list.
type Block struct {
	Stmts []Stmt
}

// CallExpr is an expression statement whose expression is a method invocation.
// Receiver is the source text of the call's object, empty for unqualified calls.
type CallExpr struct {
	Receiver string
	Name     string
	Args     []string
}

// AssignExpr is an expression statement holding an assignment. Target is the
// source text of the left-hand side.
type AssignExpr struct {
	Target   string
	Operator string
}

// VarDecl is a local variable declaration with one or more declarators.
type VarDecl struct {
	Type  string
	Names []string
}

// If is a conditional. Else is nil when there is no else branch.
type If struct {
	Cond string
	Then Stmt
	Else Stmt
}

// LoopKind distinguishes the loop statements that share the while-style shape.
type LoopKind int

const (
	LoopWhile LoopKind = iota
	LoopFor
	LoopForEach
)

// Loop is a while-style loop. Cond is the text shown on the decision node.
type Loop struct {
	Kind LoopKind
	Cond string
	Body Stmt
}

// Return is a return statement.
type Return struct {
	Value string
}

// Unsupported is any statement without a flow mapping. Kind is the grammar
// node type it came from.
type Unsupported struct {
	Kind string
}

func (s *Block) Accept(v Visitor)       { v.VisitBlock(s) }
func (s *CallExpr) Accept(v Visitor)    { v.VisitCall(s) }
func (s *AssignExpr) Accept(v Visitor)  { v.VisitAssign(s) }
func (s *VarDecl) Accept(v Visitor)     { v.VisitVarDecl(s) }
func (s *If) Accept(v Visitor)          { v.VisitIf(s) }
func (s *Loop) Accept(v Visitor)        { v.VisitLoop(s) }
func (s *Return) Accept(v Visitor)      { v.VisitReturn(s) }
func (s *Unsupported) Accept(v Visitor) { v.VisitUnsupported(s) }

func (*Block) stmt()       {}
func (*CallExpr) stmt()    {}
func (*AssignExpr) stmt()  {}
func (*VarDecl) stmt()     {}
func (*If) stmt()          {}
func (*Loop) stmt()        {}
func (*Return) stmt()      {}
func (*Unsupported) stmt() {}
