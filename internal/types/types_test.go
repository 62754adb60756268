package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/multierr"
)

func TestValidSwitchName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"colon and underscore", "feature:a_b", true},
		{"plain word", "cool_feature", true},
		{"digits", "release2024", true},
		{"space", "cool feature", false},
		{"at sign", "user@feature", false},
		{"hyphen", "cool-feature", false},
		{"empty", "", false},
		{"too long", strings.Repeat("a", MaxSwitchNameLength+1), false},
		{"max length", strings.Repeat("a", MaxSwitchNameLength), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidSwitchName(tt.input); got != tt.want {
				t.Errorf("ValidSwitchName(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestSwitchState(t *testing.T) {
	for _, s := range []SwitchState{StateDisabled, StateSelective, StateGlobal} {
		if !s.Valid() {
			t.Errorf("%v.Valid() = false, want true", s)
		}
	}
	for _, s := range []SwitchState{0, 4, -1} {
		if s.Valid() {
			t.Errorf("SwitchState(%d).Valid() = true, want false", s)
		}
	}
	if StateSelective.String() != "selective" {
		t.Errorf("String() = %q, want selective", StateSelective.String())
	}
}

func TestVariableJSON_PreservesKind(t *testing.T) {
	in := []Variable{
		{Name: "s", Value: "21"},
		{Name: "i", Value: int64(21)},
		{Name: "f", Value: float64(21)},
		{Name: "b", Value: true},
	}

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var out []Variable
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	for i := range in {
		if out[i].Name != in[i].Name {
			t.Errorf("out[%d].Name = %q, want %q", i, out[i].Name, in[i].Name)
		}
		if out[i].Value != in[i].Value {
			t.Errorf("out[%d].Value = %#v, want %#v", i, out[i].Value, in[i].Value)
		}
	}
}

func TestVariableJSON_RejectsUnsupported(t *testing.T) {
	_, err := json.Marshal(Variable{Name: "x", Value: []string{"a"}})
	if !errors.Is(err, ErrUnsupportedValue) {
		t.Errorf("Marshal() error = %v, want ErrUnsupportedValue", err)
	}

	var v Variable
	err = json.Unmarshal([]byte(`{"name":"x","kind":"complex","value":"1"}`), &v)
	if !errors.Is(err, ErrUnsupportedValue) {
		t.Errorf("Unmarshal() error = %v, want ErrUnsupportedValue", err)
	}
}

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		err  error
		root error
	}{
		{ErrOperatorNotFound, ErrNotFound},
		{ErrArgumentNotFound, ErrNotFound},
		{ErrSwitchNotFound, ErrNotFound},
		{ErrFieldRequired, ErrValidation},
		{ErrCoercionFailed, ErrValidation},
		{ErrInvalidSwitchName, ErrValidation},
		{ErrInvalidChoice, ErrValidation},
	}

	for _, tt := range tests {
		wrapped := NewFieldError("field", tt.err)
		if !errors.Is(wrapped, tt.root) {
			t.Errorf("errors.Is(%v, %v) = false", wrapped, tt.root)
		}
	}
}

func TestFieldErrors(t *testing.T) {
	var err error
	err = multierr.Append(err, NewFieldError("a", ErrFieldRequired))
	err = multierr.Append(err, fmt.Errorf("wrapped: %w", NewFieldError("b", ErrCoercionFailed)))
	err = multierr.Append(err, errors.New("plain"))

	got := FieldErrors(err)
	if len(got) != 3 {
		t.Fatalf("len(FieldErrors) = %d, want 3", len(got))
	}
	if got[0].Field != "a" || got[1].Field != "b" || got[2].Field != "" {
		t.Errorf("fields = [%q %q %q], want [a b \"\"]", got[0].Field, got[1].Field, got[2].Field)
	}
	if FieldErrors(nil) != nil {
		t.Error("FieldErrors(nil) should be nil")
	}
}
