package rules

import (
	"errors"
	"testing"

	"github.com/solatis/switchboard/internal/types"
)

func bindOrFail(t *testing.T, reg *OperatorRegistry, op string, negative bool, vars ...types.Variable) *CompiledCondition {
	t.Helper()
	cc, err := reg.Bind(types.Condition{
		Argument:  "User",
		Attribute: "attr",
		Operator:  types.BoundOperator{Name: op, Variables: vars},
		Negative:  negative,
	})
	if err != nil {
		t.Fatalf("Bind(%s) error = %v", op, err)
	}
	return cc
}

func TestBind_Operators(t *testing.T) {
	reg := NewOperatorRegistry(DefaultOperators()...)

	tests := []struct {
		name  string
		op    string
		vars  []types.Variable
		input any
		want  bool
	}{
		{"equals string", "equals", []types.Variable{{Name: "value", Value: "Jeff"}}, "Jeff", true},
		{"equals mismatch", "equals", []types.Variable{{Name: "value", Value: "Jeff"}}, "jeff", false},
		{"equals numeric string vs int", "equals", []types.Variable{{Name: "value", Value: "21"}}, int64(21), true},
		{"true on set value", "true", nil, "x", true},
		{"true on empty string", "true", nil, "", false},
		{"true on zero", "true", nil, 0, false},
		{"true on nil", "true", nil, nil, false},
		{"strip ignore case", "equals_strip_ignore_case", []types.Variable{{Name: "value", Value: " JEFF "}}, "jeff", true},
		{"strip ignore case non-string", "equals_strip_ignore_case", []types.Variable{{Name: "value", Value: "1"}}, 1, false},
		{"between inside", "between", []types.Variable{{Name: "lower_limit", Value: int64(18)}, {Name: "upper_limit", Value: int64(65)}}, 30, true},
		{"between exclusive lower", "between", []types.Variable{{Name: "lower_limit", Value: int64(18)}, {Name: "upper_limit", Value: int64(65)}}, 18, false},
		{"between string limits", "between", []types.Variable{{Name: "lower_limit", Value: "1.5"}, {Name: "upper_limit", Value: "2.5"}}, 2.0, true},
		{"less than", "less_than", []types.Variable{{Name: "upper_limit", Value: 10.0}}, 9, true},
		{"less than equal boundary", "less_than", []types.Variable{{Name: "upper_limit", Value: 10.0}}, 10, false},
		{"less than or equal boundary", "less_than_or_equal_to", []types.Variable{{Name: "upper_limit", Value: 10.0}}, 10, true},
		{"more than", "more_than", []types.Variable{{Name: "lower_limit", Value: int64(21)}}, int64(22), true},
		{"more than incomparable", "more_than", []types.Variable{{Name: "lower_limit", Value: int64(21)}}, "old", false},
		{"more than or equal boundary", "more_than_or_equal_to", []types.Variable{{Name: "lower_limit", Value: int64(21)}}, 21, true},
		{"percent full", "percent", []types.Variable{{Name: "percentage", Value: "100"}}, "10.0.0.1", true},
		{"percent none", "percent", []types.Variable{{Name: "percentage", Value: int64(0)}}, "10.0.0.1", false},
		{"percent empty input", "percent", []types.Variable{{Name: "percentage", Value: int64(100)}}, "", false},
		{"percent range full", "percent_range", []types.Variable{{Name: "lower_limit", Value: 0.0}, {Name: "upper_limit", Value: 100.0}}, "user-1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cc := bindOrFail(t, reg, tt.op, false, tt.vars...)
			if got := cc.Matches(tt.input); got != tt.want {
				t.Errorf("Matches(%#v) = %v, want %v", tt.input, got, tt.want)
			}

			negated := bindOrFail(t, reg, tt.op, true, tt.vars...)
			if got := negated.Matches(tt.input); got == tt.want {
				t.Errorf("negated Matches(%#v) = %v, want %v", tt.input, got, !tt.want)
			}
		})
	}
}

func TestBind_PercentIsStable(t *testing.T) {
	reg := NewOperatorRegistry(DefaultOperators()...)
	cc := bindOrFail(t, reg, "percent", false, types.Variable{Name: "percentage", Value: int64(50)})

	first := cc.Matches("user-42")
	for i := 0; i < 10; i++ {
		if cc.Matches("user-42") != first {
			t.Fatal("percent bucket changed between calls for the same input")
		}
	}
}

func TestBind_ParameterMismatch(t *testing.T) {
	reg := NewOperatorRegistry(DefaultOperators()...)

	_, err := reg.Bind(types.Condition{Operator: types.BoundOperator{
		Name:      "between",
		Variables: []types.Variable{{Name: "lower_limit", Value: int64(1)}},
	}})
	var fe *types.FieldError
	if !errors.As(err, &fe) || fe.Field != "upper_limit" {
		t.Errorf("Bind() error = %v, want field error on upper_limit", err)
	}

	_, err = reg.Bind(types.Condition{Operator: types.BoundOperator{
		Name:      "true",
		Variables: []types.Variable{{Name: "value", Value: "x"}},
	}})
	if !errors.Is(err, types.ErrValidation) {
		t.Errorf("Bind() with undeclared variable error = %v, want ErrValidation", err)
	}

	_, err = reg.Bind(types.Condition{Operator: types.BoundOperator{Name: "missing"}})
	if !errors.Is(err, types.ErrOperatorNotFound) {
		t.Errorf("Bind() unknown operator error = %v, want ErrOperatorNotFound", err)
	}
}
