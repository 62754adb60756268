// internal/rules/coercion.go
package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/solatis/switchboard/internal/types"
	"github.com/spf13/cast"
)

/*
 * Type coercion for condition parameters.
 *
 * Every argument carries exactly one Caster. The materializer applies that
 * caster to ALL of a condition's operator parameters, not only to values of
 * the argument's own attribute type. A percent condition over a string-typed
 * argument therefore binds its percentage as a string. Evaluators rely on this
 * coupling, so it is kept as-is.
 *
 * Field types:
 *   - TEXT: identity, raw string kept
 *   - INTEGER: base-10 int64, surrounding whitespace ignored
 *   - NUMERIC: float64, whitespace-only strings rejected
 *   - BOOLEAN: strconv.ParseBool spellings only
 *   - ANY: identity, raw string kept (alias of TEXT for parameters)
 *
 * Casters return types.ErrCoercionFailed (a validation error) on failure.
 */

// FieldType names the value type of an argument's attribute.
type FieldType int

const (
	FieldTypeUnspecified FieldType = iota
	FieldTypeNumeric
	FieldTypeText
	FieldTypeBoolean
	FieldTypeAny
	FieldTypeInteger
)

var fieldTypeNames = map[string]FieldType{
	"string":  FieldTypeText,
	"text":    FieldTypeText,
	"integer": FieldTypeInteger,
	"float":   FieldTypeNumeric,
	"numeric": FieldTypeNumeric,
	"boolean": FieldTypeBoolean,
	"value":   FieldTypeAny,
	"any":     FieldTypeAny,
}

// ParseFieldType maps a configuration type name to a FieldType.
func ParseFieldType(name string) (FieldType, error) {
	ft, ok := fieldTypeNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return FieldTypeUnspecified, fmt.Errorf("unknown argument type %q", name)
	}
	return ft, nil
}

func (ft FieldType) String() string {
	switch ft {
	case FieldTypeNumeric:
		return "float"
	case FieldTypeText:
		return "string"
	case FieldTypeBoolean:
		return "boolean"
	case FieldTypeAny:
		return "value"
	case FieldTypeInteger:
		return "integer"
	default:
		return "unspecified"
	}
}

// Caster converts a raw submitted string into a typed value.
type Caster func(raw string) (any, error)

// CasterFor returns the caster for a field type.
// Unspecified is treated as ANY.
func CasterFor(ft FieldType) Caster {
	switch ft {
	case FieldTypeNumeric:
		return CastFloat
	case FieldTypeInteger:
		return CastInteger
	case FieldTypeBoolean:
		return CastBoolean
	default:
		return CastString
	}
}

// CastString keeps the raw value unchanged.
func CastString(raw string) (any, error) {
	return raw, nil
}

// CastInteger parses a base-10 integer.
// Base 10 is explicit: "010" is ten, not eight.
func CastInteger(raw string) (any, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return nil, coercionError(raw, FieldTypeInteger)
	}
	return n, nil
}

// CastFloat parses a decimal or integer string as float64.
func CastFloat(raw string) (any, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, coercionError(raw, FieldTypeNumeric)
	}
	f, err := cast.ToFloat64E(s)
	if err != nil {
		return nil, coercionError(raw, FieldTypeNumeric)
	}
	return f, nil
}

// CastBoolean accepts the strconv.ParseBool spellings (1, t, true, 0, f, false, ...).
func CastBoolean(raw string) (any, error) {
	b, err := cast.ToBoolE(strings.TrimSpace(raw))
	if err != nil {
		return nil, coercionError(raw, FieldTypeBoolean)
	}
	return b, nil
}

// FormatValue renders a bound value back to the text a form field would submit.
func FormatValue(v any) string {
	return cast.ToString(v)
}

func coercionError(raw string, ft FieldType) error {
	return fmt.Errorf("%w: %q is not a valid %s", types.ErrCoercionFailed, raw, ft)
}
