package tests

import (
	"testing"

	"audiencesync/internal/form"
	"audiencesync/internal/rules"
)

func BenchmarkRuleSatisfied(b *testing.B) {
	f := &form.Form{ID: 3, Fields: []form.Field{{ID: 5, Type: "text", Label: "Plan"}}}
	e := &form.Entry{ID: 10, FormID: 3, Values: map[string]string{"5": "pro"}}
	r := rules.Rule{Enabled: true, Decision: rules.DecisionIf, FieldRef: "5", Operator: rules.OpIs, Value: "pro"}
	res := &form.Resolver{}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = r.Satisfied(res, f, e)
	}
}

func BenchmarkResolveAddress(b *testing.B) {
	f := &form.Form{ID: 3, Fields: []form.Field{{
		ID:   4,
		Type: form.TypeAddress,
		Inputs: []form.Input{
			{ID: "4.1"}, {ID: "4.2"}, {ID: "4.3"}, {ID: "4.4"}, {ID: "4.5"}, {ID: "4.6"},
		},
	}}}
	e := &form.Entry{ID: 10, FormID: 3, Values: map[string]string{
		"4.1": "1600 Amphitheatre Pkwy",
		"4.3": "Mountain View",
		"4.4": "CA",
		"4.5": "94043",
		"4.6": "United States",
	}}
	res := &form.Resolver{}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = res.Resolve(f, e, "4", "ADDRESS")
	}
}
