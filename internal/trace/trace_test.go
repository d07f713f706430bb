package trace

import (
	"testing"
	"time"

	"github.com/dvloznov/finance-insights/internal/guardrail"
	"github.com/dvloznov/finance-insights/internal/persona"
	"github.com/dvloznov/finance-insights/internal/signals"
	"github.com/dvloznov/finance-insights/internal/store"
)

func testAssignment() *persona.Assignment {
	return &persona.Assignment{
		Primary:   &persona.Scored{PersonaType: persona.TypeHighUtilization, Score: 0.7, CriteriaMet: []string{"max_utilization>=0.5", "paying_interest"}},
		Secondary: &persona.Scored{PersonaType: persona.TypeSubscriptionHeavy, Score: 0.4, CriteriaMet: []string{"recurring_count>=3"}},
	}
}

func TestAssembleAndRoundTrip(t *testing.T) {
	snap := &signals.Snapshot{
		Credit: &signals.CreditSignal{MaxUtilization: 0.72, UtilizationTier: signals.TierHigh},
	}
	eligibility := &guardrail.EligibilityResult{
		Passed: true,
		Results: []guardrail.RuleResult{
			{Rule: guardrail.Rule{Field: "max_utilization", Op: ">=", Value: 0.5}, Passed: true},
		},
	}
	at := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	rulePath := []string{"offer_filter:rules_passed=1", "offer_filter:persona_fit=high_utilization"}

	d := Assemble(snap, testAssignment(), rulePath, eligibility, "offer_utilization_v1", at)

	if len(d.Personas) != 2 {
		t.Fatalf("len(Personas) = %d, want 2", len(d.Personas))
	}
	if d.Personas[0].Rank != 1 || d.Personas[0].PersonaType != persona.TypeHighUtilization {
		t.Errorf("primary entry = %+v", d.Personas[0])
	}
	if d.Personas[1].Rank != 2 {
		t.Errorf("secondary entry = %+v", d.Personas[1])
	}

	raw, err := d.Marshal()
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}

	got, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if got.Version != Version {
		t.Errorf("Version = %d, want %d", got.Version, Version)
	}
	if got.TemplateID != "offer_utilization_v1" {
		t.Errorf("TemplateID = %q", got.TemplateID)
	}
	if len(got.RulePath) != 2 || got.RulePath[0] != rulePath[0] {
		t.Errorf("RulePath = %v, want %v", got.RulePath, rulePath)
	}
	if got.Signals == nil || got.Signals.Credit == nil || got.Signals.Credit.MaxUtilization != 0.72 {
		t.Errorf("Signals = %+v, want the frozen snapshot", got.Signals)
	}
	if got.Eligibility == nil || !got.Eligibility.Passed {
		t.Errorf("Eligibility = %+v", got.Eligibility)
	}
	if !got.GeneratedAt.Equal(at) {
		t.Errorf("GeneratedAt = %v, want %v", got.GeneratedAt, at)
	}
}

func TestAssemble_NoSecondary(t *testing.T) {
	assignment := &persona.Assignment{
		Primary: &persona.Scored{PersonaType: persona.TypeSavingsBuilder, Score: 0.1, CriteriaMet: []string{"default"}},
	}

	d := Assemble(&signals.Snapshot{}, assignment, nil, nil, "edu_generic_v1", time.Now())

	if len(d.Personas) != 1 {
		t.Errorf("len(Personas) = %d, want 1", len(d.Personas))
	}
}

func TestParse_Malformed(t *testing.T) {
	if _, err := Parse(`{broken`); err == nil {
		t.Error("Parse accepted malformed JSON")
	}
}

func TestParseAll_SkipsMalformed(t *testing.T) {
	valid, err := Assemble(&signals.Snapshot{}, testAssignment(), nil, nil, "edu_generic_v1", time.Now()).Marshal()
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}

	rows := []*store.RecommendationRow{
		{RecommendationID: "r-1", DecisionTrace: valid},
		{RecommendationID: "r-2", DecisionTrace: `{not json`},
		{RecommendationID: "r-3", DecisionTrace: ""},
	}

	decisions := ParseAll(rows)

	if len(decisions) != 1 {
		t.Errorf("len(decisions) = %d, want 1 (malformed blobs skipped)", len(decisions))
	}
}
