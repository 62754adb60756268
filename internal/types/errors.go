package types

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// Taxonomy roots. Every error surfaced by the core wraps one of these so callers
// can classify with errors.Is.
var (
	// ErrNotFound indicates an unknown operator, argument or switch key.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates a missing or invalid field, a failed cast, or a
	// name pattern mismatch.
	ErrValidation = errors.New("validation failed")

	// ErrMalformedInput indicates an armor framing violation, corrupt encoding,
	// or a payload that does not decode to a switch collection.
	ErrMalformedInput = errors.New("malformed input")

	// ErrAuthorizationRequired indicates the caller lacks the privilege an
	// operation requires. Enforced by callers of the transport codec.
	ErrAuthorizationRequired = errors.New("authorization required")
)

// Specific errors wrapping the taxonomy roots.
var (
	// ErrOperatorNotFound indicates an operator name missing from the registry.
	ErrOperatorNotFound = classified("invalid operator", ErrNotFound)

	// ErrArgumentNotFound indicates an argument key missing from the registry.
	ErrArgumentNotFound = classified("invalid argument", ErrNotFound)

	// ErrSwitchNotFound indicates a switch name unknown to the manager.
	ErrSwitchNotFound = classified("switch not found", ErrNotFound)

	// ErrFieldRequired indicates a required form field or operator parameter is absent.
	ErrFieldRequired = classified("this field is required", ErrValidation)

	// ErrCoercionFailed indicates a raw string could not be cast to the argument's type.
	ErrCoercionFailed = classified("type coercion failed", ErrValidation)

	// ErrInvalidSwitchName indicates a name outside the identifier pattern.
	ErrInvalidSwitchName = classified("must only be alphanumeric, underscore, and colon characters", ErrValidation)

	// ErrInvalidChoice indicates a selection that is not one of the available choices.
	ErrInvalidChoice = classified("select a valid choice", ErrValidation)

	// ErrUnsupportedValue indicates a variable value of a kind no encoding supports.
	ErrUnsupportedValue = errors.New("unsupported variable value")
)

// classifiedError carries its own message while unwrapping to a taxonomy root,
// so form re-display shows "this field is required" rather than a wrapped chain.
type classifiedError struct {
	msg  string
	root error
}

func classified(msg string, root error) error {
	return &classifiedError{msg: msg, root: root}
}

func (e *classifiedError) Error() string { return e.msg }

func (e *classifiedError) Unwrap() error { return e.root }

// FieldError attributes a failure to a named input field for re-display.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// NewFieldError wraps err with the offending field name.
func NewFieldError(field string, err error) *FieldError {
	return &FieldError{Field: field, Err: err}
}

// FieldErrors flattens an aggregated error into its field-attributed parts.
// Parts that carry no field are returned under the empty field name.
func FieldErrors(err error) []*FieldError {
	var out []*FieldError
	for _, e := range multierr.Errors(err) {
		var fe *FieldError
		if errors.As(e, &fe) {
			out = append(out, fe)
			continue
		}
		out = append(out, &FieldError{Err: e})
	}
	return out
}
