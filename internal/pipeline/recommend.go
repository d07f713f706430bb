package pipeline

import (
	"context"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"

	"github.com/dvloznov/finance-insights/internal/guardrail"
	"github.com/dvloznov/finance-insights/internal/matcher"
	"github.com/dvloznov/finance-insights/internal/rationale"
	"github.com/dvloznov/finance-insights/internal/store"
	"github.com/dvloznov/finance-insights/internal/trace"
)

// Recommendation volume caps per run.
const (
	maxContentRecommendations = 3
	maxOfferRecommendations   = 2
)

// Step 10: BuildRecommendationsStep turns the top matches into
// recommendation rows: rationale, agentic review, and a frozen decision
// trace per row.
type BuildRecommendationsStep struct {
	Reviewer *guardrail.AgenticReviewer
}

func (s *BuildRecommendationsStep) Execute(ctx context.Context, state *PipelineState) error {
	var rows []*store.RecommendationRow

	for i, match := range state.ContentMatches {
		if i >= maxContentRecommendations {
			break
		}
		row, err := s.buildContentRow(ctx, state, match)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	for i, match := range state.OfferMatches {
		if i >= maxOfferRecommendations {
			break
		}
		row, err := s.buildOfferRow(ctx, state, match)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	state.Recommendations = rows
	return nil
}

func (s *BuildRecommendationsStep) buildContentRow(ctx context.Context, state *PipelineState, match *matcher.ContentMatch) (*store.RecommendationRow, error) {
	primary := state.Assignment.Primary
	r := rationale.ForContent(match.Item, state.Snapshot, primary.PersonaType)

	outcome := s.Reviewer.Review(ctx, r.Text, primary.PersonaType, store.RecTypeEducation)

	decision := trace.Assemble(state.Snapshot, state.Assignment, match.RulePath, nil, r.TemplateID, state.AsOf)
	blob, err := decision.Marshal()
	if err != nil {
		return nil, err
	}

	row := newRecommendationRow(state, primary.PersonaType, r.Text, blob, outcome)
	row.RecType = store.RecTypeEducation
	row.ContentID = bigquery.NullString{StringVal: match.Item.ContentID, Valid: true}
	row.SignalsUsed = overlappingTags(match.Item.SignalTags, state.Tags)
	return row, nil
}

func (s *BuildRecommendationsStep) buildOfferRow(ctx context.Context, state *PipelineState, match *matcher.OfferMatch) (*store.RecommendationRow, error) {
	primary := state.Assignment.Primary
	r := rationale.ForOffer(match.Offer, state.Snapshot, primary.PersonaType)

	outcome := s.Reviewer.Review(ctx, r.Text, primary.PersonaType, store.RecTypeOffer)

	decision := trace.Assemble(state.Snapshot, state.Assignment, match.RulePath, match.Eligibility, r.TemplateID, state.AsOf)
	blob, err := decision.Marshal()
	if err != nil {
		return nil, err
	}

	row := newRecommendationRow(state, primary.PersonaType, r.Text, blob, outcome)
	row.RecType = store.RecTypeOffer
	row.OfferID = bigquery.NullString{StringVal: match.Offer.OfferID, Valid: true}
	row.SignalsUsed = match.MatchedSignals
	return row, nil
}

func newRecommendationRow(state *PipelineState, personaType, text, traceBlob string, outcome *guardrail.ReviewOutcome) *store.RecommendationRow {
	row := &store.RecommendationRow{
		RecommendationID:   uuid.NewString(),
		UserID:             state.UserID,
		Rationale:          text,
		PersonaType:        personaType,
		WindowDays:         int64(state.WindowDays),
		DecisionTrace:      traceBlob,
		Status:             store.RecStatusActive,
		AgenticReviewState: outcome.State,
		CreatedTS:          state.AsOf,
	}
	if outcome.Reason != "" {
		row.ReviewReason = bigquery.NullString{StringVal: outcome.Reason, Valid: true}
	}
	return row
}

func overlappingTags(declared []string, tags *matcher.TagSet) []string {
	var out []string
	for _, tag := range declared {
		if tags.Has(tag) {
			out = append(out, tag)
		}
	}
	return out
}
