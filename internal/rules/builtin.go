// internal/rules/builtin.go
package rules

import "github.com/solatis/switchboard/internal/types"

/*
 * Built-in operator catalog.
 *
 * Groups:
 *   - identity: equals, true
 *   - string: equals_strip_ignore_case
 *   - comparable: between, less_than, less_than_or_equal_to, more_than,
 *     more_than_or_equal_to
 *   - misc: percent, percent_range
 *
 * Between is exclusive on both ends. Percent operators bucket the input with
 * xxhash into [0, 100) and match when lower <= bucket < upper.
 */

// Parameter names shared by the built-in operators.
const (
	ParamValue      = "value"
	ParamLowerLimit = "lower_limit"
	ParamUpperLimit = "upper_limit"
	ParamPercentage = "percentage"
)

// DefaultOperators returns a fresh copy of the built-in operator catalog.
func DefaultOperators() []*Operator {
	return []*Operator{
		{
			Name: "equals", Label: "Equals", Preposition: "equal to", Group: "identity",
			Arguments: []string{ParamValue},
			Factory: func(vars map[string]any) (Predicate, error) {
				value, err := variable(vars, ParamValue)
				if err != nil {
					return nil, err
				}
				return func(input any) bool { return compareEqual(input, value) }, nil
			},
		},
		{
			Name: "true", Label: "True", Preposition: "true", Group: "identity",
			Arguments: []string{},
			Factory: func(map[string]any) (Predicate, error) {
				return truthy, nil
			},
		},
		{
			Name: "equals_strip_ignore_case", Label: "Equals (case insensitive)",
			Preposition: "equal to (case insensitive)", Group: "string",
			Arguments: []string{ParamValue},
			Factory: func(vars map[string]any) (Predicate, error) {
				value, err := variable(vars, ParamValue)
				if err != nil {
					return nil, err
				}
				return func(input any) bool { return equalsFolded(input, value) }, nil
			},
		},
		{
			Name: "between", Label: "Between", Preposition: "between", Group: "comparable",
			Arguments: []string{ParamLowerLimit, ParamUpperLimit},
			Factory: func(vars map[string]any) (Predicate, error) {
				lower, err := variable(vars, ParamLowerLimit)
				if err != nil {
					return nil, err
				}
				upper, err := variable(vars, ParamUpperLimit)
				if err != nil {
					return nil, err
				}
				return func(input any) bool {
					lo, ok1 := compareNumeric(input, lower)
					hi, ok2 := compareNumeric(input, upper)
					return ok1 && ok2 && lo > 0 && hi < 0
				}, nil
			},
		},
		thresholdOperator("less_than", "Less Than", "less than", ParamUpperLimit, func(c int) bool { return c < 0 }),
		thresholdOperator("less_than_or_equal_to", "Less Than Or Equal To", "less than or equal to", ParamUpperLimit, func(c int) bool { return c <= 0 }),
		thresholdOperator("more_than", "More Than", "more than", ParamLowerLimit, func(c int) bool { return c > 0 }),
		thresholdOperator("more_than_or_equal_to", "More Than Or Equal To", "more than or equal to", ParamLowerLimit, func(c int) bool { return c >= 0 }),
		{
			Name: "percent", Label: "Percent", Preposition: "in the percentage of", Group: "misc",
			Arguments: []string{ParamPercentage},
			Factory: func(vars map[string]any) (Predicate, error) {
				pct, err := variable(vars, ParamPercentage)
				if err != nil {
					return nil, err
				}
				return func(input any) bool { return inPercentRange(input, float64(0), pct) }, nil
			},
		},
		{
			Name: "percent_range", Label: "Percent Range", Preposition: "in the percentage range of", Group: "misc",
			Arguments: []string{ParamLowerLimit, ParamUpperLimit},
			Factory: func(vars map[string]any) (Predicate, error) {
				lower, err := variable(vars, ParamLowerLimit)
				if err != nil {
					return nil, err
				}
				upper, err := variable(vars, ParamUpperLimit)
				if err != nil {
					return nil, err
				}
				return func(input any) bool { return inPercentRange(input, lower, upper) }, nil
			},
		},
	}
}

// thresholdOperator builds a single-limit comparable operator.
func thresholdOperator(name, label, preposition, param string, accept func(int) bool) *Operator {
	return &Operator{
		Name: name, Label: label, Preposition: preposition, Group: "comparable",
		Arguments: []string{param},
		Factory: func(vars map[string]any) (Predicate, error) {
			limit, err := variable(vars, param)
			if err != nil {
				return nil, err
			}
			return func(input any) bool {
				c, ok := compareNumeric(input, limit)
				return ok && accept(c)
			}, nil
		},
	}
}

func variable(vars map[string]any, name string) (any, error) {
	v, ok := vars[name]
	if !ok {
		return nil, types.NewFieldError(name, types.ErrFieldRequired)
	}
	return v, nil
}
