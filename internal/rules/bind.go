// internal/rules/bind.go
package rules

import (
	"fmt"

	"github.com/solatis/switchboard/internal/types"
)

/*
 * Condition binding.
 *
 * Binds a stored types.Condition to an executable predicate using the
 * operator registry. Binding checks the condition's variables exactly satisfy
 * the operator's declared parameter list: a missing or undeclared variable is
 * a validation error. Variable values are used as stored, no re-casting.
 *
 * Binding answers "does this input satisfy this one condition". Combining
 * conditions into a switch decision belongs to the evaluator, not here.
 */

// CompiledCondition is a condition bound to its operator's predicate.
type CompiledCondition struct {
	ArgumentKey string
	Operator    string
	Negative    bool
	predicate   Predicate
}

// Matches applies the predicate to input, inverted when the condition is negative.
func (c *CompiledCondition) Matches(input any) bool {
	return c.predicate(input) != c.Negative
}

// Bind resolves cond's operator and builds its predicate.
func (r *OperatorRegistry) Bind(cond types.Condition) (*CompiledCondition, error) {
	op, err := r.Lookup(cond.Operator.Name)
	if err != nil {
		return nil, types.NewFieldError(FieldOperator, err)
	}

	vars := make(map[string]any, len(cond.Operator.Variables))
	for _, v := range cond.Operator.Variables {
		vars[v.Name] = v.Value
	}

	declared := make(map[string]bool, len(op.Arguments))
	for _, name := range op.Arguments {
		declared[name] = true
		if _, ok := vars[name]; !ok {
			return nil, types.NewFieldError(name, types.ErrFieldRequired)
		}
	}
	for name := range vars {
		if !declared[name] {
			return nil, types.NewFieldError(name, fmt.Errorf("%w: %s does not accept %q", types.ErrValidation, op.Name, name))
		}
	}

	predicate, err := op.Factory(vars)
	if err != nil {
		return nil, err
	}

	return &CompiledCondition{
		ArgumentKey: cond.ArgumentKey(),
		Operator:    op.Name,
		Negative:    cond.Negative,
		predicate:   predicate,
	}, nil
}
