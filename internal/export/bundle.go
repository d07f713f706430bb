package export

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dvloznov/finance-insights/internal/store"
	"github.com/dvloznov/finance-insights/internal/trace"
)

// Bundle is the audit export payload for one user: every recommendation with
// its frozen decision trace, ready for compliance review.
type Bundle struct {
	UserID      string    `json:"user_id"`
	GeneratedAt time.Time `json:"generated_at"`

	Recommendations []BundleEntry `json:"recommendations"`

	// ParseErrors counts rows whose stored trace could not be decoded. The
	// rows still appear in the bundle with a null decision.
	ParseErrors int `json:"parse_errors,omitempty"`
}

// BundleEntry pairs one recommendation with its decoded decision trace.
type BundleEntry struct {
	RecommendationID string    `json:"recommendation_id"`
	RecType          string    `json:"rec_type"`
	Status           string    `json:"status"`
	ReviewState      string    `json:"review_state"`
	ReviewReason     string    `json:"review_reason,omitempty"`
	PersonaType      string    `json:"persona_type"`
	WindowDays       int64     `json:"window_days"`
	Rationale        string    `json:"rationale"`
	CreatedAt        time.Time `json:"created_at"`

	Decision *trace.Decision `json:"decision"`
}

// BuildBundle assembles the audit bundle from stored recommendation rows.
// Malformed traces are counted, not fatal; an audit export must never lose
// the rows around a corrupt one.
func BuildBundle(userID string, rows []*store.RecommendationRow, at time.Time) *Bundle {
	bundle := &Bundle{
		UserID:      userID,
		GeneratedAt: at,
	}

	for _, row := range rows {
		entry := BundleEntry{
			RecommendationID: row.RecommendationID,
			RecType:          row.RecType,
			Status:           row.Status,
			ReviewState:      row.AgenticReviewState,
			PersonaType:      row.PersonaType,
			WindowDays:       row.WindowDays,
			Rationale:        row.Rationale,
			CreatedAt:        row.CreatedTS,
		}
		if row.ReviewReason.Valid {
			entry.ReviewReason = row.ReviewReason.StringVal
		}

		decision, err := trace.Parse(row.DecisionTrace)
		if err != nil {
			bundle.ParseErrors++
		} else {
			entry.Decision = decision
		}

		bundle.Recommendations = append(bundle.Recommendations, entry)
	}

	return bundle
}

// Marshal encodes the bundle as indented JSON.
func (b *Bundle) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("Bundle.Marshal: %w", err)
	}
	return data, nil
}

// ObjectName returns the GCS object path for a user's audit bundle.
func ObjectName(userID string, at time.Time) string {
	return fmt.Sprintf("audit/%s/%s.json", userID, at.UTC().Format("20060102T150405Z"))
}
