// Package classify decides which call expressions are I/O calls.
//
// Rules are boolean expressions over the call's receiver, name and argument
// texts. Three engines evaluate them: CEL, expr-lang and jq.
package classify

import (
	"context"

	"github.com/rendis/codeflow/pkg/schema"
)

// Engine evaluates classification rules.
type Engine interface {
	Name() string
	// Compile checks an expression and caches the compiled program.
	Compile(expression string) error
	Evaluate(ctx context.Context, expression string, data map[string]any) (any, error)
}

// Engine names accepted by NewEngine.
const (
	EngineCEL  = "cel"
	EngineExpr = "expr"
	EngineJQ   = "jq"
)

// NewEngine returns the engine registered under name.
func NewEngine(name string) (Engine, error) {
	switch name {
	case EngineCEL, "":
		return NewCELEngine()
	case EngineExpr:
		return NewExprEngine(), nil
	case EngineJQ:
		return NewJQEngine(), nil
	default:
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"unknown classifier engine %q (want cel, expr or jq)", name)
	}
}

// DefaultRules returns the rule set that marks System.out.print and
// System.out.println as I/O, written for the named engine.
func DefaultRules(engine string) []string {
	switch engine {
	case EngineJQ:
		return []string{`.receiver == "System.out" and (.name == "print" or .name == "println")`}
	default:
		return []string{`receiver == "System.out" && name in ["print", "println"]`}
	}
}
