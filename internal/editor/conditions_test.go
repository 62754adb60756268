package editor

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/solatis/switchboard/internal/rules"
	"github.com/solatis/switchboard/internal/types"
)

func testMaterializer() *rules.Materializer {
	return rules.NewMaterializer(
		rules.NewOperatorRegistry(rules.DefaultOperators()...),
		rules.NewArgumentRegistry(
			rules.NewArgument("User", "age", rules.FieldTypeInteger),
			rules.NewArgument("User", "email", rules.FieldTypeText),
		),
	)
}

func TestConditionSet_FromValues(t *testing.T) {
	values := map[string]string{
		"form-TOTAL_FORMS":   "3",
		"form-0-argument":    "User.age",
		"form-0-operator":    "between",
		"form-0-lower_limit": "18",
		"form-0-upper_limit": "65",
		"form-2-argument":    "User.email",
		"form-2-operator":    "equals",
		"form-2-negative":    "1",
		"form-2-value":       "a@example.com",
	}

	set, err := ConditionSetFromValues(testMaterializer(), values)
	if err != nil {
		t.Fatalf("ConditionSetFromValues error = %v", err)
	}
	if len(set.Rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(set.Rows))
	}

	conds, err := set.Conditions()
	if err != nil {
		t.Fatalf("Conditions error = %v", err)
	}
	want := []types.Condition{
		{Argument: "User", Attribute: "age", Operator: types.BoundOperator{Name: "between", Variables: []types.Variable{
			{Name: "lower_limit", Value: int64(18)},
			{Name: "upper_limit", Value: int64(65)},
		}}},
		{Argument: "User", Attribute: "email", Negative: true, Operator: types.BoundOperator{Name: "equals", Variables: []types.Variable{
			{Name: "value", Value: "a@example.com"},
		}}},
	}
	if diff := cmp.Diff(want, conds); diff != "" {
		t.Errorf("Conditions mismatch (-want +got):\n%s", diff)
	}
}

func TestConditionSet_RowParametersFollowOperator(t *testing.T) {
	set := NewConditionSet(testMaterializer(), []map[string]string{
		{"argument": "User.age", "operator": "percent_range", "lower_limit": "10"},
		{"argument": "User.age", "operator": "true"},
	})

	var names []string
	for _, p := range set.Rows[0].Parameters {
		names = append(names, p.Name+"="+p.Initial)
	}
	if diff := cmp.Diff([]string{"lower_limit=10", "upper_limit="}, names); diff != "" {
		t.Errorf("row 0 parameters mismatch (-want +got):\n%s", diff)
	}
	if len(set.Rows[1].Parameters) != 0 {
		t.Errorf("row 1 parameters = %v, want none", set.Rows[1].Parameters)
	}
}

func TestConditionSet_RowErrors(t *testing.T) {
	set := NewConditionSet(testMaterializer(), []map[string]string{
		{"argument": "User.age", "operator": "more_than", "lower_limit": "ten"},
		{"operator": "equals", "value": "x"},
		{"argument": "User.age", "operator": "true", "negative": "x"},
	})

	if set.IsValid() {
		t.Fatal("IsValid() = true, want false")
	}

	var fields []string
	for _, fe := range types.FieldErrors(set.Err()) {
		fields = append(fields, fe.Field)
	}
	want := []string{"form-0-lower_limit", "form-1-argument", "form-2-negative"}
	if diff := cmp.Diff(want, fields, cmpopts.SortSlices(func(a, b string) bool { return a < b })); diff != "" {
		t.Errorf("error fields mismatch (-want +got):\n%s", diff)
	}
	if len(set.Rows[0].Errors["lower_limit"]) != 1 {
		t.Errorf("row 0 errors = %v", set.Rows[0].Errors)
	}
	if !errors.Is(set.Err(), types.ErrValidation) {
		t.Errorf("Err() = %v, want ErrValidation", set.Err())
	}
}

func TestConditionSet_UnknownOperator(t *testing.T) {
	set := NewConditionSet(testMaterializer(), []map[string]string{
		{"argument": "User.age", "operator": "regex"},
	})
	if !errors.Is(set.Err(), types.ErrNotFound) {
		t.Errorf("Err() = %v, want ErrNotFound", set.Err())
	}
}

func TestConditionSet_EmptyRowsSkipped(t *testing.T) {
	set := NewConditionSet(testMaterializer(), []map[string]string{
		{"argument": " ", "operator": ""},
		{},
	})
	conds, err := set.Conditions()
	if err != nil {
		t.Fatalf("Conditions error = %v", err)
	}
	if len(conds) != 0 {
		t.Errorf("got %d conditions, want 0", len(conds))
	}
}

func TestSplitRows(t *testing.T) {
	tests := []struct {
		name     string
		values   map[string]string
		wantRows int
		wantErr  bool
	}{
		{"inferred from indexes", map[string]string{"form-4-operator": "true"}, 5, false},
		{"explicit total", map[string]string{"form-TOTAL_FORMS": "2"}, 2, false},
		{"no rows", map[string]string{"name": "x"}, 0, false},
		{"ignores foreign keys", map[string]string{"form-x-operator": "true", "other-0-a": "b"}, 0, false},
		{"bad total", map[string]string{"form-TOTAL_FORMS": "many"}, 0, true},
		{"negative total", map[string]string{"form-TOTAL_FORMS": "-1"}, 0, true},
		{"too many rows", map[string]string{"form-5000-operator": "true"}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := splitRows(tt.values)
			if tt.wantErr {
				if !errors.Is(err, types.ErrValidation) {
					t.Errorf("error = %v, want ErrValidation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(rows) != tt.wantRows {
				t.Errorf("got %d rows, want %d", len(rows), tt.wantRows)
			}
		})
	}
}

func TestConditionInitial(t *testing.T) {
	c := types.Condition{
		Argument: "User", Attribute: "age", Negative: true,
		Operator: types.BoundOperator{Name: "between", Variables: []types.Variable{
			{Name: "lower_limit", Value: int64(18)},
			{Name: "upper_limit", Value: 65.5},
		}},
	}
	want := map[string]string{
		"argument":    "User.age",
		"operator":    "between",
		"negative":    "1",
		"lower_limit": "18",
		"upper_limit": "65.5",
	}
	if diff := cmp.Diff(want, ConditionInitial(c)); diff != "" {
		t.Errorf("ConditionInitial mismatch (-want +got):\n%s", diff)
	}
}
