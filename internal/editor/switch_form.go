// internal/editor/switch_form.go
package editor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/solatis/switchboard/internal/types"
	"go.uber.org/multierr"
)

/*
 * Switch header form.
 *
 * Validates the raw header fields of a switch (name, label, description,
 * state, compounded, concent) and carries the condition rows attached to it
 * for re-display. A form is either bound (built from submitted data) or
 * unbound (built from initial values of an existing switch, or blank).
 *
 * Checkbox fields follow browser semantics: an absent field is unchecked.
 * "", "false", "0" and "off" are also unchecked; anything else is checked.
 */

// Switch header field names.
const (
	FieldName        = "name"
	FieldLabel       = "label"
	FieldDescription = "description"
	FieldState       = "state"
	FieldCompounded  = "compounded"
	FieldConcent     = "concent"
	FieldDelete      = "delete"
)

// SwitchForm is the header of one switch in the editor.
type SwitchForm struct {
	Data         map[string]string   // submitted values; nil for unbound forms
	Initial      map[string]string   // values of the existing switch
	Errors       map[string][]string // field -> messages, filled by IsValid
	ReadOnlyName bool                // existing switches cannot be renamed
	Conditions   *ConditionSet       // rows shown under this header

	validated bool
	err       error
	cleaned   *types.Switch
}

// NewSwitchForm creates a bound form from submitted header fields.
func NewSwitchForm(data map[string]string) *SwitchForm {
	if data == nil {
		data = map[string]string{}
	}
	return &SwitchForm{Data: data, Initial: map[string]string{}}
}

// BlankSwitchForm creates the unbound "new switch" form with no rows.
func BlankSwitchForm() *SwitchForm {
	return &SwitchForm{Initial: map[string]string{}, Conditions: &ConditionSet{}}
}

// Bound reports whether the form was built from submitted data.
func (f *SwitchForm) Bound() bool {
	return f.Data != nil
}

// Field returns the submitted value of key, falling back to its initial value.
func (f *SwitchForm) Field(key string) string {
	if v := f.Data[key]; v != "" {
		return v
	}
	return f.Initial[key]
}

// DeleteRequested reports whether the submission asked for deletion.
func (f *SwitchForm) DeleteRequested() bool {
	return checked(f.Data[FieldDelete])
}

// IsValid validates the header once and caches the outcome.
// Unbound forms are never valid.
func (f *SwitchForm) IsValid() bool {
	if !f.validated {
		f.validate()
	}
	return f.err == nil
}

// Err returns the aggregated field errors of the last validation.
func (f *SwitchForm) Err() error {
	f.IsValid()
	return f.err
}

// ToObject returns the validated switch header without conditions.
func (f *SwitchForm) ToObject() (*types.Switch, error) {
	if !f.IsValid() {
		return nil, f.err
	}
	sw := *f.cleaned
	return &sw, nil
}

func (f *SwitchForm) validate() {
	f.validated = true
	f.Errors = map[string][]string{}

	if !f.Bound() {
		f.err = fmt.Errorf("%w: form has no submitted data", types.ErrValidation)
		return
	}

	var errs error

	name := strings.TrimSpace(f.Data[FieldName])
	switch {
	case name == "":
		errs = multierr.Append(errs, types.NewFieldError(FieldName, types.ErrFieldRequired))
	case len(name) > types.MaxSwitchNameLength:
		errs = multierr.Append(errs, types.NewFieldError(FieldName,
			fmt.Errorf("%w: ensure this value has at most %d characters", types.ErrValidation, types.MaxSwitchNameLength)))
	case !types.ValidSwitchName(name):
		errs = multierr.Append(errs, types.NewFieldError(FieldName, types.ErrInvalidSwitchName))
	}

	var state types.SwitchState
	rawState := strings.TrimSpace(f.Data[FieldState])
	if rawState == "" {
		errs = multierr.Append(errs, types.NewFieldError(FieldState, types.ErrFieldRequired))
	} else if n, err := strconv.Atoi(rawState); err != nil {
		errs = multierr.Append(errs, types.NewFieldError(FieldState,
			fmt.Errorf("%w: enter a whole number", types.ErrCoercionFailed)))
	} else if state = types.SwitchState(n); !state.Valid() {
		errs = multierr.Append(errs, types.NewFieldError(FieldState, types.ErrInvalidChoice))
	}

	f.err = errs
	if errs != nil {
		collectErrors(f.Errors, errs)
		return
	}

	f.cleaned = &types.Switch{
		Name:        name,
		Label:       strings.TrimSpace(f.Data[FieldLabel]),
		Description: strings.TrimSpace(f.Data[FieldDescription]),
		State:       state,
		Compounded:  checked(f.Data[FieldCompounded]),
		Concent:     checked(f.Data[FieldConcent]),
	}
}

// checked interprets a checkbox value.
func checked(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "false", "0", "off":
		return false
	default:
		return true
	}
}

// collectErrors files every field error of err under its field name.
func collectErrors(dst map[string][]string, err error) {
	for _, fe := range types.FieldErrors(err) {
		dst[fe.Field] = append(dst[fe.Field], fe.Err.Error())
	}
}

// AllErrors returns the header errors merged with every condition row's
// errors, the latter keyed "form-N-<field>".
func (f *SwitchForm) AllErrors() map[string][]string {
	out := make(map[string][]string, len(f.Errors))
	for field, msgs := range f.Errors {
		out[field] = append(out[field], msgs...)
	}
	if f.Conditions == nil {
		return out
	}
	for _, row := range f.Conditions.Rows {
		for field, msgs := range row.Errors {
			key := rowField(row.Index, field)
			out[key] = append(out[key], msgs...)
		}
	}
	return out
}
