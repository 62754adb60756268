// internal/rules/materialize.go
package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/solatis/switchboard/internal/types"
	"go.uber.org/multierr"
)

/*
 * Condition materialization.
 *
 * Turns a raw condition row (operator key, argument key, negative token and
 * raw parameter strings) into a validated types.Condition.
 *
 * Workflow:
 *   1. Resolve operator and argument (field errors on "operator"/"argument")
 *   2. Read the operator's declared parameter list
 *   3. Cast every declared parameter with the ARGUMENT's caster
 *   4. Parse negative as an integer; nonzero means negated
 *   5. Emit the condition with variables in declaration order
 *
 * Errors are aggregated with multierr so one submission reports every bad
 * field at once. Each part is a *types.FieldError naming its field.
 *
 * Parameter schema: the fields a row expects depend on whichever operator is
 * selected for that row at validation time. ParameterFields derives that
 * per-row schema from the live selection instead of a fixed form.
 */

// Field names of a condition row that are not operator parameters.
const (
	FieldArgument = "argument"
	FieldOperator = "operator"
	FieldNegative = "negative"
)

// RawCondition is one submitted condition row before validation.
type RawCondition struct {
	Operator string
	Argument string
	Negative string            // stringified integer, "0" means not negated
	Params   map[string]string // raw parameter name -> raw value
}

// ParameterField is one dynamically derived parameter input for a row.
type ParameterField struct {
	Name    string `json:"name"`
	Initial string `json:"initial"`
}

// Materializer validates and casts raw condition rows against explicit registries.
type Materializer struct {
	operators *OperatorRegistry
	arguments *ArgumentRegistry
}

// NewMaterializer creates a materializer bound to the given registries.
func NewMaterializer(operators *OperatorRegistry, arguments *ArgumentRegistry) *Materializer {
	return &Materializer{operators: operators, arguments: arguments}
}

// Operators returns the operator registry the materializer resolves against.
func (m *Materializer) Operators() *OperatorRegistry {
	return m.operators
}

// Arguments returns the argument registry the materializer resolves against.
func (m *Materializer) Arguments() *ArgumentRegistry {
	return m.arguments
}

// Materialize validates raw and returns the typed condition.
// Unknown operator/argument errors wrap types.ErrNotFound; every other
// failure wraps types.ErrValidation.
func (m *Materializer) Materialize(raw RawCondition) (types.Condition, error) {
	var errs error

	op, err := m.operators.Lookup(raw.Operator)
	if err != nil {
		errs = multierr.Append(errs, types.NewFieldError(FieldOperator, err))
	}
	arg, err := m.arguments.Lookup(raw.Argument)
	if err != nil {
		errs = multierr.Append(errs, types.NewFieldError(FieldArgument, err))
	}
	if errs != nil {
		return types.Condition{}, errs
	}

	vars := make([]types.Variable, 0, len(op.Arguments))
	for _, name := range op.Arguments {
		value, ok := raw.Params[name]
		if !ok || value == "" {
			errs = multierr.Append(errs, types.NewFieldError(name, types.ErrFieldRequired))
			continue
		}
		cast, err := arg.Cast(value)
		if err != nil {
			errs = multierr.Append(errs, types.NewFieldError(name, err))
			continue
		}
		vars = append(vars, types.Variable{Name: name, Value: cast})
	}

	negative, err := ParseNegative(raw.Negative)
	if err != nil {
		errs = multierr.Append(errs, types.NewFieldError(FieldNegative, err))
	}

	if errs != nil {
		return types.Condition{}, errs
	}

	return types.Condition{
		Argument:  arg.Owner,
		Attribute: arg.Attribute,
		Operator:  types.BoundOperator{Name: op.Name, Variables: vars},
		Negative:  negative,
	}, nil
}

// ParseNegative parses the negation token: an integer whose truthiness is the flag.
// "0" is false, any other integer is true, anything else fails coercion.
func ParseNegative(token string) (bool, error) {
	n, err := strconv.Atoi(strings.TrimSpace(token))
	if err != nil {
		return false, fmt.Errorf("%w: %q is not an integer", types.ErrCoercionFailed, token)
	}
	return n != 0, nil
}

// ParameterFields derives the parameter inputs for a row whose selected
// operator is operator. value resolves the current text of a field, from
// submitted data or from initial values; absent fields start empty.
func (m *Materializer) ParameterFields(operator string, value func(field string) (string, bool)) []ParameterField {
	names := m.operators.ParameterNames(operator)
	if len(names) == 0 {
		return nil
	}
	fields := make([]ParameterField, 0, len(names))
	for _, name := range names {
		f := ParameterField{Name: name}
		if value != nil {
			if v, ok := value(name); ok {
				f.Initial = v
			}
		}
		fields = append(fields, f)
	}
	return fields
}
