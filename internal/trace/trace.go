package trace

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dvloznov/finance-insights/internal/guardrail"
	"github.com/dvloznov/finance-insights/internal/persona"
	"github.com/dvloznov/finance-insights/internal/signals"
	"github.com/dvloznov/finance-insights/internal/store"
)

// Version tags the trace schema so older stored traces stay recognizable.
const Version = 1

// PersonaEntry is one ranked persona inside a trace.
type PersonaEntry struct {
	PersonaType string   `json:"persona_type"`
	Score       float64  `json:"score"`
	Rank        int      `json:"rank"`
	CriteriaMet []string `json:"criteria_met,omitempty"`
}

// Decision is the frozen audit record attached to one recommendation. It is
// assembled once at generation time and never regenerated.
type Decision struct {
	Version int `json:"version"`

	Signals  *signals.Snapshot `json:"signals"`
	Personas []PersonaEntry    `json:"personas"`

	// RulePath is the ordered list of filter/threshold tokens that admitted
	// this recommendation.
	RulePath []string `json:"rule_path"`

	// Eligibility carries the per-rule outcome for offer recommendations.
	Eligibility *guardrail.EligibilityResult `json:"eligibility,omitempty"`

	TemplateID string `json:"template_id"`

	GeneratedAt time.Time `json:"generated_at"`
}

// Assemble builds the decision record for one recommendation.
func Assemble(snap *signals.Snapshot, assignment *persona.Assignment, rulePath []string, eligibility *guardrail.EligibilityResult, templateID string, at time.Time) *Decision {
	d := &Decision{
		Version:     Version,
		Signals:     snap,
		RulePath:    rulePath,
		Eligibility: eligibility,
		TemplateID:  templateID,
		GeneratedAt: at,
	}

	if assignment != nil {
		if assignment.Primary != nil {
			d.Personas = append(d.Personas, entryFor(assignment.Primary, 1))
		}
		if assignment.Secondary != nil {
			d.Personas = append(d.Personas, entryFor(assignment.Secondary, 2))
		}
	}
	return d
}

func entryFor(s *persona.Scored, rank int) PersonaEntry {
	return PersonaEntry{
		PersonaType: s.PersonaType,
		Score:       s.Score,
		Rank:        rank,
		CriteriaMet: s.CriteriaMet,
	}
}

// Marshal serializes the decision for storage on a recommendation row.
func (d *Decision) Marshal() (string, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("Decision.Marshal: %w", err)
	}
	return string(data), nil
}

// Parse decodes one stored trace blob. Malformed blobs return an error for
// the caller to skip.
func Parse(raw string) (*Decision, error) {
	var d Decision
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, fmt.Errorf("trace.Parse: %w", err)
	}
	return &d, nil
}

// ParseAll decodes the traces on a set of recommendation rows, skipping rows
// whose blob fails to parse. Aggregation over traces must tolerate individual
// malformed records.
func ParseAll(rows []*store.RecommendationRow) []*Decision {
	var decisions []*Decision
	for _, row := range rows {
		d, err := Parse(row.DecisionTrace)
		if err != nil {
			continue
		}
		decisions = append(decisions, d)
	}
	return decisions
}
