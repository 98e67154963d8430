package runner

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/graphtune/graphtune/plan"
)

// ExprResult holds the result of evaluating an expectation.
type ExprResult struct {
	Expression string // The expression that was evaluated
	Passed     bool   // Whether the expression evaluated to true
	Error      error  // Any error during compilation or evaluation
}

// BuildEnv constructs the expectation environment for a step result:
//
//	rows      - number of result rows
//	first     - the first row as a map (empty when no rows)
//	operators - plan operator names, pre-order (empty without plan capture)
//	dbHits    - total db hits across the plan
//	has(op)   - true if the plan contains the named operator
//	kind      - the plan's access-operator kind ("index seek", ...)
func BuildEnv(rows []map[string]any, pl *plan.Plan) map[string]any {
	first := make(map[string]any)
	if len(rows) > 0 {
		first = rows[0]
	}

	env := map[string]any{
		"rows":      len(rows),
		"first":     first,
		"operators": pl.Operators(),
		"dbHits":    pl.TotalDBHits(),
		"kind":      pl.AccessKind().String(),
		"has": func(name string) bool {
			return pl.Has(name)
		},
	}

	return env
}

// EvalExpr evaluates a single expression string against an environment.
// Returns the result of the boolean expression, or an error if:
// - The expression fails to compile
// - The expression fails to evaluate
// - The expression doesn't return a boolean.
func EvalExpr(exprStr string, env map[string]any) ExprResult {
	result := ExprResult{Expression: exprStr}

	if strings.TrimSpace(exprStr) == "" {
		result.Passed = true

		return result
	}

	program, err := expr.Compile(exprStr, expr.Env(env), expr.AsBool())
	if err != nil {
		result.Error = fmt.Errorf("compile expression %q: %w", exprStr, err)

		return result
	}

	output, err := expr.Run(program, env)
	if err != nil {
		result.Error = fmt.Errorf("evaluate expression %q: %w", exprStr, err)

		return result
	}

	passed, ok := output.(bool)
	if !ok {
		result.Error = fmt.Errorf("%w: %q returned %T", ErrExprNotBool, exprStr, output)

		return result
	}

	result.Passed = passed

	return result
}
