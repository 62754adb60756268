// internal/rules/operators.go
package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

/*
 * Operator definitions and comparison logic.
 *
 * An Operator is a named, parameterized predicate type. Its Factory receives
 * the cast variables (keyed by declared parameter name) and returns a
 * Predicate over a single input value.
 *
 * Comparison helpers are type-aware: numeric comparison accepts float64,
 * int64, int and numeric strings. Numeric strings matter because parameters
 * are cast with the argument's caster, so a string-typed argument yields
 * string limits. Incomparable values never match.
 */

// Predicate reports whether an input value satisfies a bound operator.
type Predicate func(input any) bool

// Factory builds a predicate from cast variables keyed by parameter name.
type Factory func(vars map[string]any) (Predicate, error)

// Operator describes a predicate type available to conditions.
// Immutable once registered.
type Operator struct {
	Name        string   // unique registry key
	Label       string   // display name
	Preposition string   // phrase shown after the argument, e.g. "less than"
	Group       string   // choice group, case-normalized for display
	Arguments   []string // declared parameter names, in order
	Factory     Factory
}

// compareEqual performs equality comparison with numeric type coercion.
// Handles float64/int64/numeric-string mixing.
func compareEqual(a, b any) bool {
	if na, nb, ok := asNumbers(a, b); ok {
		return na == nb
	}
	return a == b
}

// compareNumeric performs three-way numeric comparison (-1/0/1).
// ok is false for incomparable values.
func compareNumeric(a, b any) (cmp int, ok bool) {
	na, nb, ok := asNumbers(a, b)
	if !ok {
		return 0, false
	}
	switch {
	case na < nb:
		return -1, true
	case na > nb:
		return 1, true
	default:
		return 0, true
	}
}

// asNumbers attempts to convert both values to float64 for numeric comparison.
func asNumbers(a, b any) (float64, float64, bool) {
	na, oka := toFloat64(a)
	nb, okb := toFloat64(b)
	return na, nb, oka && okb
}

// toFloat64 converts numeric values and numeric strings to float64.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// truthy mirrors the usual notion of a "set" value: false, zero, empty and nil are falsy.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	default:
		if n, ok := toFloat64(v); ok {
			return n != 0
		}
		return true
	}
}

// equalsFolded compares strings after trimming whitespace, ignoring case.
// Non-string inputs never match.
func equalsFolded(value, target any) bool {
	vs, ok1 := value.(string)
	ts, ok2 := target.(string)
	if !ok1 || !ok2 {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(vs), strings.TrimSpace(ts))
}

// percentBucket maps an input to a stable bucket in [0, 100).
func percentBucket(input any) float64 {
	return float64(xxhash.Sum64String(fmt.Sprint(input)) % 100)
}

// inPercentRange reports lower <= bucket(input) < upper. Falsy inputs never match.
func inPercentRange(input, lower, upper any) bool {
	if !truthy(input) {
		return false
	}
	bucket := percentBucket(input)
	lo, okLo := toFloat64(lower)
	hi, okHi := toFloat64(upper)
	if !okLo || !okHi {
		return false
	}
	return lo <= bucket && bucket < hi
}
