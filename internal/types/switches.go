// internal/types/switches.go
package types

import (
	"encoding/json"
	"fmt"
	"strconv"
)

/*
 * Switch domain types.
 *
 * A Switch owns an ordered list of Conditions. Each Condition references one
 * argument (owner type + attribute) and one operator bound with fully-cast
 * variables. Order is significant to evaluators and is never re-sorted.
 *
 * Key types:
 *   - Switch: header plus ordered conditions
 *   - Condition: argument reference, bound operator, negation flag
 *   - BoundOperator: operator name plus its cast variables in declaration order
 *   - Variable: one named, typed parameter value
 *
 * Variable values are restricted to string, int64, float64 and bool. Those are
 * the only kinds casters produce and the only kinds the payload and store
 * encodings accept.
 */

// Switch is a named feature flag with state and ordered conditions.
// Compounded and Concent are opaque to this module and only carried through.
type Switch struct {
	Name        string      `json:"name" yaml:"name"`
	Label       string      `json:"label" yaml:"label"`
	Description string      `json:"description" yaml:"description"`
	State       SwitchState `json:"state" yaml:"state"`
	Compounded  bool        `json:"compounded" yaml:"compounded"`
	Concent     bool        `json:"concent" yaml:"concent"`
	Conditions  []Condition `json:"conditions" yaml:"conditions"`
}

// Condition is a bound predicate over an argument with a negation flag.
type Condition struct {
	Argument  string        `json:"argument" yaml:"argument"`   // owner type name, e.g. "User"
	Attribute string        `json:"attribute" yaml:"attribute"` // attribute on the owner, e.g. "age"
	Operator  BoundOperator `json:"operator" yaml:"operator"`
	Negative  bool          `json:"negative" yaml:"negative"`
}

// ArgumentKey returns the composite "Owner.attribute" key of the referenced argument.
func (c Condition) ArgumentKey() string {
	return c.Argument + "." + c.Attribute
}

// BoundOperator is an operator instance bound with its cast variables.
type BoundOperator struct {
	Name      string     `json:"name" yaml:"name"`
	Variables []Variable `json:"variables" yaml:"variables"`
}

// Variable returns the value bound to name and whether it exists.
func (b BoundOperator) Variable(name string) (any, bool) {
	for _, v := range b.Variables {
		if v.Name == name {
			return v.Value, true
		}
	}
	return nil, false
}

// VariableKind tags the Go type carried by a Variable.
type VariableKind string

const (
	KindString VariableKind = "string"
	KindInt    VariableKind = "int"
	KindFloat  VariableKind = "float"
	KindBool   VariableKind = "bool"
)

// Variable is one named operator parameter after casting.
type Variable struct {
	Name  string `yaml:"name"`
	Value any    `yaml:"value"`
}

// KindOf returns the kind of a supported variable value.
// Returns ErrUnsupportedValue for any other Go type.
func KindOf(value any) (VariableKind, error) {
	switch value.(type) {
	case string:
		return KindString, nil
	case int64:
		return KindInt, nil
	case float64:
		return KindFloat, nil
	case bool:
		return KindBool, nil
	default:
		return "", fmt.Errorf("%w: %T", ErrUnsupportedValue, value)
	}
}

// variableJSON keeps the kind next to a string rendering so int64 and float64
// survive a JSON round trip without collapsing into float64.
type variableJSON struct {
	Name  string       `json:"name"`
	Kind  VariableKind `json:"kind"`
	Value string       `json:"value"`
}

// MarshalJSON implements json.Marshaler.
func (v Variable) MarshalJSON() ([]byte, error) {
	kind, err := KindOf(v.Value)
	if err != nil {
		return nil, err
	}
	out := variableJSON{Name: v.Name, Kind: kind}
	switch val := v.Value.(type) {
	case string:
		out.Value = val
	case int64:
		out.Value = strconv.FormatInt(val, 10)
	case float64:
		out.Value = strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		out.Value = strconv.FormatBool(val)
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Variable) UnmarshalJSON(data []byte) error {
	var in variableJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	v.Name = in.Name
	switch in.Kind {
	case KindString:
		v.Value = in.Value
	case KindInt:
		n, err := strconv.ParseInt(in.Value, 10, 64)
		if err != nil {
			return fmt.Errorf("variable %s: %w", in.Name, err)
		}
		v.Value = n
	case KindFloat:
		f, err := strconv.ParseFloat(in.Value, 64)
		if err != nil {
			return fmt.Errorf("variable %s: %w", in.Name, err)
		}
		v.Value = f
	case KindBool:
		b, err := strconv.ParseBool(in.Value)
		if err != nil {
			return fmt.Errorf("variable %s: %w", in.Name, err)
		}
		v.Value = b
	default:
		return fmt.Errorf("%w: kind %q", ErrUnsupportedValue, in.Kind)
	}
	return nil
}
