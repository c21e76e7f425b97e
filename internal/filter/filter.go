// Package filter compiles list-filter expressions supplied by API callers.
//
// Filters are CEL expressions over the scheduling fields of a card, e.g.
// `state == "REVIEW" && overdue_days > 2` or `lapses >= 3`. The compiled
// program is evaluated per row; an expression that does not yield a bool is
// rejected at compile time.
package filter

import (
	"github.com/google/cel-go/cel"
	"github.com/pkg/errors"
)

// Variables available to card filter expressions.
var cardFilterEnvOptions = []cel.EnvOption{
	cel.Variable("state", cel.StringType),
	cel.Variable("reps", cel.IntType),
	cel.Variable("lapses", cel.IntType),
	cel.Variable("stability", cel.DoubleType),
	cel.Variable("difficulty", cel.DoubleType),
	cel.Variable("overdue_days", cel.DoubleType),
	cel.Variable("retention", cel.DoubleType),
}

// CardFilter is a compiled filter over card scheduling fields.
type CardFilter struct {
	program cel.Program
}

// CompileCardFilter parses and type-checks a filter expression.
func CompileCardFilter(expression string) (*CardFilter, error) {
	env, err := cel.NewEnv(cardFilterEnvOptions...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create filter environment")
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, errors.Wrapf(issues.Err(), "invalid filter %q", expression)
	}
	if ast.OutputType() != cel.BoolType {
		return nil, errors.Errorf("filter %q must evaluate to a boolean, got %s", expression, ast.OutputType())
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build filter program")
	}
	return &CardFilter{program: program}, nil
}

// Matches evaluates the filter against one card's scheduling fields.
func (f *CardFilter) Matches(fields map[string]any) (bool, error) {
	out, _, err := f.program.Eval(fields)
	if err != nil {
		return false, errors.Wrap(err, "failed to evaluate filter")
	}
	matched, ok := out.Value().(bool)
	if !ok {
		return false, errors.Errorf("filter returned %T, want bool", out.Value())
	}
	return matched, nil
}
