package classify

import (
	"context"
	"fmt"
	"strings"

	"github.com/rendis/codeflow/internal/javaast"
	"github.com/rendis/codeflow/pkg/schema"
)

// Classifier marks a call as I/O when any of its rules evaluates to true.
// It is safe for concurrent use.
type Classifier struct {
	engine Engine
	rules  []string
}

// New compiles rules with engine. An empty rule set falls back to DefaultRules.
func New(engine Engine, rules []string) (*Classifier, error) {
	if engine == nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "classifier engine is nil")
	}
	if len(rules) == 0 {
		rules = DefaultRules(engine.Name())
	}
	for _, rule := range rules {
		if err := engine.Compile(rule); err != nil {
			return nil, err
		}
	}
	return &Classifier{engine: engine, rules: append([]string(nil), rules...)}, nil
}

// NewFromConfig builds the named engine and compiles rules with it.
func NewFromConfig(engineName string, rules []string) (*Classifier, error) {
	engine, err := NewEngine(engineName)
	if err != nil {
		return nil, err
	}
	return New(engine, rules)
}

// Default returns a CEL classifier with the default rules.
func Default() *Classifier {
	c, err := NewFromConfig(EngineCEL, nil)
	if err != nil {
		panic(fmt.Sprintf("classify: default rules do not compile: %v", err))
	}
	return c
}

// Engine returns the name of the engine evaluating the rules.
func (c *Classifier) Engine() string { return c.engine.Name() }

// Rules returns a copy of the compiled rules.
func (c *Classifier) Rules() []string { return append([]string(nil), c.rules...) }

// Fingerprint identifies the engine and rule set. Two classifiers with the
// same fingerprint classify every call the same way.
func (c *Classifier) Fingerprint() string {
	return c.engine.Name() + "\n" + strings.Join(c.rules, "\n")
}

// IsIO reports whether call is an I/O call.
func (c *Classifier) IsIO(ctx context.Context, call *javaast.CallExpr) (bool, error) {
	data := CallData(call)
	for _, rule := range c.rules {
		out, err := c.engine.Evaluate(ctx, rule, data)
		if err != nil {
			return false, err
		}
		matched, ok := out.(bool)
		if !ok {
			return false, schema.NewErrorf(schema.ErrCodeValidation,
				"rule %q returned %T, want bool", rule, out)
		}
		if matched {
			return true, nil
		}
	}
	return false, nil
}

// CallData is the object rules are evaluated against.
func CallData(call *javaast.CallExpr) map[string]any {
	args := make([]any, len(call.Args))
	for i, a := range call.Args {
		args[i] = a
	}
	return map[string]any{
		"receiver": call.Receiver,
		"name":     call.Name,
		"args":     args,
	}
}
