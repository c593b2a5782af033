package engine

import (
	"fmt"

	"github.com/expr-lang/expr"
)

// EvaluateCondition runs an action's guard expression against the execution
// context. An absent or empty condition is true. The expression language is
// expr; the environment exposes `trigger`, `vars` and `outputs`.
func EvaluateCondition(condition *string, env map[string]interface{}) (bool, error) {
	if condition == nil || *condition == "" {
		return true, nil
	}

	program, err := expr.Compile(*condition, expr.Env(env), expr.AsBool())
	if err != nil {
		return false, fmt.Errorf("invalid condition %q: %w", *condition, err)
	}

	result, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("condition %q failed: %w", *condition, err)
	}

	ok, isBool := result.(bool)
	if !isBool {
		return false, fmt.Errorf("condition %q did not evaluate to a boolean", *condition)
	}
	return ok, nil
}
