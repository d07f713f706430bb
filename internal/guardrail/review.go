package guardrail

import (
	"context"
	"strings"
	"time"

	"github.com/dvloznov/finance-insights/internal/logger"
	"github.com/dvloznov/finance-insights/internal/store"
)

// Reviewer is an external text-compliance collaborator.
type Reviewer interface {
	Review(ctx context.Context, text, personaType, recType string) (*ReviewVerdict, error)
}

// ReviewVerdict is the collaborator's answer for one piece of text.
type ReviewVerdict struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason,omitempty"`
}

// ReviewOutcome is the final review state recorded on a recommendation.
type ReviewOutcome struct {
	State  string
	Reason string

	// Degraded marks an approval granted because the external reviewer
	// failed, not because it judged the text.
	Degraded bool
}

// AgenticReviewer runs the tone blocklist and then, when configured, an
// external compliance reviewer. Without an external reviewer it auto-approves
// any text that clears the blocklist.
type AgenticReviewer struct {
	reviewer Reviewer
	timeout  time.Duration
}

// NewAgenticReviewer creates a reviewer. A nil external reviewer enables stub
// auto-approve mode. A non-positive timeout disables the deadline.
func NewAgenticReviewer(reviewer Reviewer, timeout time.Duration) *AgenticReviewer {
	return &AgenticReviewer{reviewer: reviewer, timeout: timeout}
}

// Review validates the text. The blocklist is a hard fail; the external
// collaborator's failure is fail-open and logged, never silently swallowed.
func (r *AgenticReviewer) Review(ctx context.Context, text, personaType, recType string) *ReviewOutcome {
	log := logger.FromContext(ctx)

	if tone := ValidateTone(text); !tone.Passed {
		return &ReviewOutcome{
			State:  store.ReviewFlagged,
			Reason: "blocked phrases: " + strings.Join(tone.Matches, ", "),
		}
	}

	if r.reviewer == nil {
		return &ReviewOutcome{State: store.ReviewApproved}
	}

	reviewCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		reviewCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	verdict, err := r.reviewer.Review(reviewCtx, text, personaType, recType)
	if err != nil {
		log.Warn().
			Err(err).
			Str("persona_type", personaType).
			Str("rec_type", recType).
			Msg("compliance reviewer unavailable, approving without review")
		return &ReviewOutcome{State: store.ReviewApproved, Degraded: true}
	}

	if !verdict.Approved {
		return &ReviewOutcome{State: store.ReviewFlagged, Reason: verdict.Reason}
	}
	return &ReviewOutcome{State: store.ReviewApproved}
}
