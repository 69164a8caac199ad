package condition

import (
	"testing"

	"veridata/gatekeeper/pkg/storage"
)

func TestLeafOperators(t *testing.T) {
	row := storage.Row{
		"Email":       "test@example.com",
		"Address":     "1 Main St",
		"CreditLimit": float64(500000),
		"Status":      "active",
		"Nullable":    nil,
	}

	tests := []struct {
		name string
		cond Condition
		want bool
	}{
		{"equals match", Condition{Field: "Status", Operator: OperatorEqual, Value: "active"}, true},
		{"equals mismatch", Condition{Field: "Status", Operator: OperatorEqual, Value: "inactive"}, false},
		{"not_equals", Condition{Field: "Status", Operator: OperatorNotEqual, Value: "inactive"}, true},
		{"less_than", Condition{Field: "CreditLimit", Operator: OperatorLessThan, Value: 1000000}, true},
		{"greater_than", Condition{Field: "CreditLimit", Operator: OperatorGreaterThan, Value: 1000000}, false},
		{"less_equal boundary", Condition{Field: "CreditLimit", Operator: OperatorLessEqual, Value: 500000}, true},
		{"greater_equal boundary", Condition{Field: "CreditLimit", Operator: OperatorGreaterEqual, Value: 500000}, true},
		{"greater_than on missing", Condition{Field: "Missing", Operator: OperatorGreaterThan, Value: 1000000}, false},
		{"greater_than on nil", Condition{Field: "Nullable", Operator: OperatorGreaterThan, Value: 1000000}, false},
		{"less_than on missing", Condition{Field: "Missing", Operator: OperatorLessThan, Value: 1000000}, false},
		{"less_equal on nil", Condition{Field: "Nullable", Operator: OperatorLessEqual, Value: 0}, false},
		{"greater_equal on missing", Condition{Field: "Missing", Operator: OperatorGreaterEqual, Value: 0}, false},
		{"contains", Condition{Field: "Email", Operator: OperatorContains, Value: "@"}, true},
		{"matches", Condition{Field: "Email", Operator: OperatorMatches, Value: `^[^@]+@[^@]+$`}, true},
		{"matches mismatch", Condition{Field: "Address", Operator: OperatorMatches, Value: `^\d+$`}, false},
		{"in", Condition{Field: "Status", Operator: OperatorIn, Value: []any{"active", "pending"}}, true},
		{"not_in", Condition{Field: "Status", Operator: OperatorNotIn, Value: []any{"closed"}}, true},
		{"not_empty on value", Condition{Field: "Email", Operator: OperatorNotEmpty}, true},
		{"not_empty on missing", Condition{Field: "Missing", Operator: OperatorNotEmpty}, false},
		{"not_empty on nil", Condition{Field: "Nullable", Operator: OperatorNotEmpty}, false},
		{"present", Condition{Field: "Email", Operator: OperatorPresent}, true},
		{"present on nil", Condition{Field: "Nullable", Operator: OperatorPresent}, false},
		{"absent on missing", Condition{Field: "Missing", Operator: OperatorAbsent}, true},
		{"absent on nil", Condition{Field: "Nullable", Operator: OperatorAbsent}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cond.Matches(row)
			if err != nil {
				t.Fatalf("Matches failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEmptyStringIsEmpty(t *testing.T) {
	cond := Condition{Field: "Email", Operator: OperatorNotEmpty}

	got, err := cond.Matches(storage.Row{"Email": ""})
	if err != nil {
		t.Fatalf("Matches failed: %v", err)
	}
	if got {
		t.Error("empty string must not satisfy not_empty")
	}
}

func TestCompositeConditions(t *testing.T) {
	row := storage.Row{"Email": "a@example.com", "Address": "1 Main St"}

	valid := Condition{All: []*Condition{
		{Field: "Email", Operator: OperatorNotEmpty},
		{Field: "Address", Operator: OperatorNotEmpty},
	}}
	got, err := valid.Matches(row)
	if err != nil {
		t.Fatalf("Matches failed: %v", err)
	}
	if !got {
		t.Error("expected all-composite to match")
	}

	got, err = valid.Matches(storage.Row{"Email": "a@example.com"})
	if err != nil {
		t.Fatalf("Matches failed: %v", err)
	}
	if got {
		t.Error("all-composite must fail when one child fails")
	}

	anyCond := Condition{Any: []*Condition{
		{Field: "Email", Operator: OperatorEqual, Value: "other@example.com"},
		{Field: "Address", Operator: OperatorNotEmpty},
	}}
	got, err = anyCond.Matches(row)
	if err != nil {
		t.Fatalf("Matches failed: %v", err)
	}
	if !got {
		t.Error("expected any-composite to match")
	}

	notCond := Condition{Not: &Condition{Field: "Email", Operator: OperatorNotEmpty}}
	got, err = notCond.Matches(row)
	if err != nil {
		t.Fatalf("Matches failed: %v", err)
	}
	if got {
		t.Error("expected negated condition to fail")
	}
}

func TestConditionValidate(t *testing.T) {
	tests := []struct {
		name    string
		cond    Condition
		wantErr bool
	}{
		{"valid leaf", Condition{Field: "Email", Operator: OperatorNotEmpty}, false},
		{"no form", Condition{}, true},
		{"unknown operator", Condition{Field: "Email", Operator: "like"}, true},
		{"two forms", Condition{
			Field: "Email", Operator: OperatorNotEmpty,
			Not: &Condition{Field: "X", Operator: OperatorPresent},
		}, true},
		{"invalid child", Condition{All: []*Condition{{}}}, true},
		{"valid composite", Condition{Any: []*Condition{
			{Field: "A", Operator: OperatorPresent},
			{Field: "B", Operator: OperatorAbsent},
		}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cond.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMatchesBadRegexpErrors(t *testing.T) {
	cond := Condition{Field: "Email", Operator: OperatorMatches, Value: "("}
	if _, err := cond.Matches(storage.Row{"Email": "a"}); err == nil {
		t.Error("expected error for invalid pattern")
	}
}
