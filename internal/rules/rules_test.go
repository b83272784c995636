package rules

import (
	"testing"

	"audiencesync/internal/form"
)

func testForm() *form.Form {
	return &form.Form{
		ID:    7,
		Title: "Contact Us",
		Fields: []form.Field{
			{ID: 1, Type: "text", Label: "Topic"},
			{ID: 2, Type: "text", Label: "Count"},
		},
	}
}

func testEntry(values map[string]string) *form.Entry {
	return &form.Entry{ID: 100, FormID: 7, Values: values}
}

func TestRuleSatisfied(t *testing.T) {
	res := &form.Resolver{}

	tests := []struct {
		name   string
		rule   Rule
		values map[string]string
		want   bool
	}{
		{
			name: "disabled rule is never satisfied",
			rule: Rule{Enabled: false, Decision: DecisionAlways},
			want: false,
		},
		{
			name: "always decision ignores the entry",
			rule: Rule{Enabled: true, Decision: DecisionAlways},
			want: true,
		},
		{
			name:   "if decision matches equal value",
			rule:   Rule{Enabled: true, Decision: DecisionIf, FieldRef: "1", Operator: OpIs, Value: "X"},
			values: map[string]string{"1": "X"},
			want:   true,
		},
		{
			name:   "if decision rejects different value",
			rule:   Rule{Enabled: true, Decision: DecisionIf, FieldRef: "1", Operator: OpIs, Value: "X"},
			values: map[string]string{"1": "Y"},
			want:   false,
		},
		{
			name:   "deleted field cannot gate the rule",
			rule:   Rule{Enabled: true, Decision: DecisionIf, FieldRef: "99", Operator: OpIs, Value: "X"},
			values: map[string]string{},
			want:   true,
		},
		{
			name:   "isnot",
			rule:   Rule{Enabled: true, Decision: DecisionIf, FieldRef: "1", Operator: OpIsNot, Value: "X"},
			values: map[string]string{"1": "Y"},
			want:   true,
		},
		{
			name:   "numeric greater than",
			rule:   Rule{Enabled: true, Decision: DecisionIf, FieldRef: "2", Operator: OpGreaterThan, Value: "9"},
			values: map[string]string{"2": "10"},
			want:   true,
		},
		{
			name:   "numeric less than fails on equal",
			rule:   Rule{Enabled: true, Decision: DecisionIf, FieldRef: "2", Operator: OpLessThan, Value: "10"},
			values: map[string]string{"2": "10"},
			want:   false,
		},
		{
			name:   "contains is case insensitive",
			rule:   Rule{Enabled: true, Decision: DecisionIf, FieldRef: "1", Operator: OpContains, Value: "news"},
			values: map[string]string{"1": "Newsletter signup"},
			want:   true,
		},
		{
			name:   "starts with",
			rule:   Rule{Enabled: true, Decision: DecisionIf, FieldRef: "1", Operator: OpStartsWith, Value: "sup"},
			values: map[string]string{"1": "Support"},
			want:   true,
		},
		{
			name:   "ends with",
			rule:   Rule{Enabled: true, Decision: DecisionIf, FieldRef: "1", Operator: OpEndsWith, Value: "port"},
			values: map[string]string{"1": "Support"},
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.rule.Satisfied(res, testForm(), testEntry(tt.values))
			if got != tt.want {
				t.Fatalf("Satisfied() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
		op   Operator
		out  bool
	}{
		{"numeric equality ignores formatting", "10", "10.0", OpIs, true},
		{"string equality ignores case", "Alpha", "alpha", OpIs, true},
		{"empty operator defaults to is", "a", "a", "", true},
		{"unknown operator is false", "a", "a", Operator("matches"), false},
		{"numeric isnot", "3", "4", OpIsNot, true},
		{"string greater than falls back lexically", "beta", "alpha", OpGreaterThan, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(tt.got, tt.want, tt.op); got != tt.out {
				t.Fatalf("Matches(%q, %q, %q) = %v, want %v", tt.got, tt.want, tt.op, got, tt.out)
			}
		})
	}
}
