package editor

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/solatis/switchboard/internal/types"
)

func TestSwitchForm_Validation(t *testing.T) {
	tests := []struct {
		name       string
		data       map[string]string
		wantFields []string
	}{
		{"valid", map[string]string{"name": "feature:a_b", "state": "1"}, nil},
		{"missing name", map[string]string{"state": "1"}, []string{"name"}},
		{"space in name", map[string]string{"name": "a b", "state": "1"}, []string{"name"}},
		{"at in name", map[string]string{"name": "a@b", "state": "1"}, []string{"name"}},
		{"name too long", map[string]string{"name": string(make([]byte, 101)), "state": "1"}, []string{"name"}},
		{"missing state", map[string]string{"name": "a"}, []string{"state"}},
		{"state not a number", map[string]string{"name": "a", "state": "on"}, []string{"state"}},
		{"state out of range", map[string]string{"name": "a", "state": "4"}, []string{"state"}},
		{"everything wrong", map[string]string{}, []string{"name", "state"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewSwitchForm(tt.data)
			if got := f.IsValid(); got != (tt.wantFields == nil) {
				t.Fatalf("IsValid() = %v, errors %v", got, f.Errors)
			}
			var fields []string
			for _, fe := range types.FieldErrors(f.Err()) {
				fields = append(fields, fe.Field)
			}
			if diff := cmp.Diff(tt.wantFields, fields); diff != "" {
				t.Errorf("error fields mismatch (-want +got):\n%s", diff)
			}
			for _, field := range tt.wantFields {
				if len(f.Errors[field]) == 0 {
					t.Errorf("Errors[%s] empty", field)
				}
			}
		})
	}
}

func TestSwitchForm_ToObject(t *testing.T) {
	f := NewSwitchForm(map[string]string{
		"name":        " checkout ",
		"label":       "Checkout",
		"description": "New flow",
		"state":       "3",
		"compounded":  "on",
		"concent":     "off",
	})

	sw, err := f.ToObject()
	if err != nil {
		t.Fatalf("ToObject() error = %v", err)
	}
	want := &types.Switch{
		Name:        "checkout",
		Label:       "Checkout",
		Description: "New flow",
		State:       types.StateGlobal,
		Compounded:  true,
	}
	if diff := cmp.Diff(want, sw); diff != "" {
		t.Errorf("ToObject() mismatch (-want +got):\n%s", diff)
	}
}

func TestSwitchForm_Checkboxes(t *testing.T) {
	for _, v := range []string{"", "false", "0", "off", "OFF"} {
		if checked(v) {
			t.Errorf("checked(%q) = true", v)
		}
	}
	for _, v := range []string{"on", "1", "true", "yes"} {
		if !checked(v) {
			t.Errorf("checked(%q) = false", v)
		}
	}
}

func TestSwitchForm_UnboundIsInvalid(t *testing.T) {
	f := BlankSwitchForm()
	if f.Bound() || f.IsValid() {
		t.Error("blank form must be unbound and invalid")
	}
}

func TestSwitchForm_FieldFallsBackToInitial(t *testing.T) {
	f := &SwitchForm{
		Data:    map[string]string{"label": "submitted"},
		Initial: map[string]string{"label": "initial", "name": "existing"},
	}
	if got := f.Field("label"); got != "submitted" {
		t.Errorf("Field(label) = %q", got)
	}
	if got := f.Field("name"); got != "existing" {
		t.Errorf("Field(name) = %q", got)
	}
}
