package javaast

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/codeflow/pkg/schema"
)

func parse(t *testing.T, code string) *File {
	t.Helper()
	file, err := NewParser().Parse(context.Background(), code)
	require.NoError(t, err)
	return file
}

func TestParseWrapsBareMethodInClass(t *testing.T) {
	file := parse(t, `void f(){ System.out.println("hi"); }`)

	assert.Equal(t, WrapClass, file.Wrapped)
	require.Len(t, file.Methods, 1)
	m := file.Methods[0]
	assert.Equal(t, "f", m.Name)
	require.NotNil(t, m.Body)
	require.Len(t, m.Body.Stmts, 1)

	call, ok := m.Body.Stmts[0].(*CallExpr)
	require.True(t, ok, "expected *CallExpr, got %T", m.Body.Stmts[0])
	assert.Equal(t, "System.out", call.Receiver)
	assert.Equal(t, "println", call.Name)
	assert.Equal(t, []string{`"hi"`}, call.Args)
}

func TestParseFullClassIsNotWrapped(t *testing.T) {
	file := parse(t, `public class A { int g() { return 1; } void h() {} }`)

	assert.Equal(t, WrapNone, file.Wrapped)
	require.Len(t, file.Methods, 2)
	assert.Equal(t, "g", file.Methods[0].Name)
	assert.Equal(t, "h", file.Methods[1].Name)
}

func TestParseBareStatementsFallBackToMain(t *testing.T) {
	file := parse(t, `int x = 1; x = x + 1;`)

	assert.Equal(t, WrapMain, file.Wrapped)
	require.Len(t, file.Methods, 1)
	assert.Equal(t, "main", file.Methods[0].Name)
	require.Len(t, file.Methods[0].Body.Stmts, 2)
	assert.IsType(t, &VarDecl{}, file.Methods[0].Body.Stmts[0])
	assert.IsType(t, &AssignExpr{}, file.Methods[0].Body.Stmts[1])
}

func TestParseEmptySource(t *testing.T) {
	file := parse(t, "")
	assert.Empty(t, file.Methods)
}

func TestParseNestedMethodsInDocumentOrder(t *testing.T) {
	code := `class Outer {
		void a() {}
		class Inner { void b() {} }
		void c() {}
	}`
	file := parse(t, code)

	names := make([]string, 0, len(file.Methods))
	for _, m := range file.Methods {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)
}

func TestParseConstructorsAreNotMethods(t *testing.T) {
	file := parse(t, `class A { A() { run(); } void run() {} }`)
	require.Len(t, file.Methods, 1)
	assert.Equal(t, "run", file.Methods[0].Name)
}

func TestParseAbstractMethodHasNoBody(t *testing.T) {
	file := parse(t, `abstract class A { abstract void f(); }`)
	require.Len(t, file.Methods, 1)
	assert.Nil(t, file.Methods[0].Body)
}

func TestParseStatementKinds(t *testing.T) {
	code := `void f() {
		int a, b = 2;
		a = 3;
		if (a > b) { log(a); } else { return; }
		while (a < 10) a++;
		for (int i = 0; i < 3; i++) {}
		for (;;) {}
		for (String s : items) {}
		try { } catch (Exception e) { }
	}`
	file := parse(t, code)
	require.Len(t, file.Methods, 1)
	stmts := file.Methods[0].Body.Stmts
	require.Len(t, stmts, 8)

	decl := stmts[0].(*VarDecl)
	assert.Equal(t, "int", decl.Type)
	assert.Equal(t, []string{"a", "b"}, decl.Names)

	assign := stmts[1].(*AssignExpr)
	assert.Equal(t, "a", assign.Target)
	assert.Equal(t, "=", assign.Operator)

	cond := stmts[2].(*If)
	assert.Equal(t, "a > b", cond.Cond)
	assert.IsType(t, &Block{}, cond.Then)
	require.NotNil(t, cond.Else)

	while := stmts[3].(*Loop)
	assert.Equal(t, LoopWhile, while.Kind)
	assert.Equal(t, "a < 10", while.Cond)
	assert.IsType(t, &Unsupported{}, while.Body)

	forLoop := stmts[4].(*Loop)
	assert.Equal(t, LoopFor, forLoop.Kind)
	assert.Equal(t, "i < 3", forLoop.Cond)

	forever := stmts[5].(*Loop)
	assert.Equal(t, "For Loop", forever.Cond)

	each := stmts[6].(*Loop)
	assert.Equal(t, LoopForEach, each.Kind)
	assert.Equal(t, "s : items", each.Cond)

	unsupported := stmts[7].(*Unsupported)
	assert.Equal(t, "try_statement", unsupported.Kind)
}

func TestParseIfWithoutElse(t *testing.T) {
	file := parse(t, `void f() { if (ok) run(); }`)
	cond := file.Methods[0].Body.Stmts[0].(*If)
	assert.Nil(t, cond.Else)
	assert.IsType(t, &CallExpr{}, cond.Then)
}

func TestParseCollapsesWhitespaceInConditions(t *testing.T) {
	file := parse(t, "void f() { if (a &&\n\t\tb) {} }")
	cond := file.Methods[0].Body.Stmts[0].(*If)
	assert.Equal(t, "a && b", cond.Cond)
}

func TestParseSyntaxError(t *testing.T) {
	_, err := NewParser().Parse(context.Background(), `void f() { System.out.println("hi");`)
	require.Error(t, err)
	assert.True(t, schema.IsCode(err, schema.ErrCodeSyntax))

	var cerr *schema.CodeflowError
	require.ErrorAs(t, err, &cerr)
	assert.True(t, strings.HasPrefix(cerr.Message, "syntax error at line 1"), cerr.Message)
}

func TestParseRejectsOversizedSource(t *testing.T) {
	p := NewParser(WithMaxSourceBytes(8))
	_, err := p.Parse(context.Background(), "void f() {}")
	require.Error(t, err)
	assert.True(t, schema.IsCode(err, schema.ErrCodeValidation))
}

func TestParseRejectsInvalidUTF8(t *testing.T) {
	_, err := NewParser().Parse(context.Background(), "void f() {}\xff")
	require.Error(t, err)
	assert.True(t, schema.IsCode(err, schema.ErrCodeValidation))
}

func nested(n int, open, close string) string {
	var b strings.Builder
	b.WriteString("void f() { ")
	for i := 0; i < n; i++ {
		b.WriteString(open)
	}
	b.WriteString("run(); ")
	for i := 0; i < n; i++ {
		b.WriteString(close)
	}
	b.WriteString("}")
	return b.String()
}

func TestParseRejectsDeepNesting(t *testing.T) {
	_, err := NewParser().Parse(context.Background(), nested(MaxNestingDepth+5, "{ ", "} "))
	require.Error(t, err)
	assert.True(t, schema.IsCode(err, schema.ErrCodeTraversal))
}

func TestParseRejectsDeeplyNestedIfs(t *testing.T) {
	_, err := NewParser().Parse(context.Background(), nested(MaxNestingDepth+1, "if (x) { ", "} "))
	require.Error(t, err)
	assert.True(t, schema.IsCode(err, schema.ErrCodeTraversal))
}

func TestParseCountsEachIfOnce(t *testing.T) {
	file := parse(t, nested(MaxNestingDepth, "if (x) { ", "} "))

	depth := 0
	stmt := file.Methods[0].Body.Stmts[0]
	for {
		cond, ok := stmt.(*If)
		if !ok {
			break
		}
		depth++
		stmt = cond.Then.(*Block).Stmts[0]
	}
	assert.Equal(t, MaxNestingDepth, depth)
	assert.IsType(t, &CallExpr{}, stmt)
}

func TestParseNormalizesReceiverWhitespace(t *testing.T) {
	file := parse(t, "void f() { System . out\n\t. println(\"x\"); }")
	call := file.Methods[0].Body.Stmts[0].(*CallExpr)
	assert.Equal(t, "System.out", call.Receiver)
	assert.Equal(t, "println", call.Name)
}

func TestWrappingString(t *testing.T) {
	assert.Equal(t, "none", WrapNone.String())
	assert.Equal(t, "class", WrapClass.String())
	assert.Equal(t, "main", WrapMain.String())
}
