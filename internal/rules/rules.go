// Package rules evaluates stored feed conditions against a submission.
package rules

import (
	"strconv"
	"strings"

	"audiencesync/internal/form"
)

// Decision selects between unconditional and conditional rules.
type Decision string

const (
	DecisionAlways Decision = "always"
	DecisionIf     Decision = "if"
)

// Operator compares a submitted value against the stored rule value.
type Operator string

const (
	OpIs          Operator = "is"
	OpIsNot       Operator = "isnot"
	OpGreaterThan Operator = ">"
	OpLessThan    Operator = "<"
	OpContains    Operator = "contains"
	OpStartsWith  Operator = "starts_with"
	OpEndsWith    Operator = "ends_with"
)

// Rule gates one interest category, marketing permission, or feed. TargetID
// names the remote object the rule feeds; it is empty for send conditions.
type Rule struct {
	TargetID string   `json:"target_id,omitempty"`
	Enabled  bool     `json:"enabled"`
	Decision Decision `json:"decision"`
	FieldRef string   `json:"field,omitempty"`
	Operator Operator `json:"operator,omitempty"`
	Value    string   `json:"value,omitempty"`
}

// Satisfied evaluates the rule against the submission. Disabled rules
// contribute false; "always" rules contribute true without looking at the
// entry. A referenced field no longer present on the form cannot gate the
// rule, so it evaluates true.
func (r Rule) Satisfied(res *form.Resolver, f *form.Form, e *form.Entry) bool {
	if !r.Enabled {
		return false
	}
	if r.Decision == DecisionAlways {
		return true
	}
	if f.FieldByRef(r.FieldRef) == nil {
		return true
	}
	value := res.Resolve(f, e, r.FieldRef, "")
	return Matches(value, r.Value, r.Operator)
}

// Matches applies an operator to a submitted and a stored value. String
// comparisons are case-insensitive; when both sides parse as numbers the
// comparison is numeric.
func Matches(got, want string, op Operator) bool {
	switch op {
	case OpIs, "":
		return valuesEqual(got, want)
	case OpIsNot:
		return !valuesEqual(got, want)
	case OpGreaterThan:
		if a, b, ok := bothNumbers(got, want); ok {
			return a > b
		}
		return strings.ToLower(got) > strings.ToLower(want)
	case OpLessThan:
		if a, b, ok := bothNumbers(got, want); ok {
			return a < b
		}
		return strings.ToLower(got) < strings.ToLower(want)
	case OpContains:
		return strings.Contains(strings.ToLower(got), strings.ToLower(want))
	case OpStartsWith:
		return strings.HasPrefix(strings.ToLower(got), strings.ToLower(want))
	case OpEndsWith:
		return strings.HasSuffix(strings.ToLower(got), strings.ToLower(want))
	default:
		return false
	}
}

func valuesEqual(a, b string) bool {
	if x, y, ok := bothNumbers(a, b); ok {
		return x == y
	}
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func bothNumbers(a, b string) (float64, float64, bool) {
	x, errA := strconv.ParseFloat(strings.TrimSpace(a), 64)
	y, errB := strconv.ParseFloat(strings.TrimSpace(b), 64)
	if errA != nil || errB != nil {
		return 0, 0, false
	}
	return x, y, true
}
