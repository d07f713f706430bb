package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/finance-insights/internal/store"
)

var _ store.RecommendationStore = (*Repository)(nil)

// ReplaceRecommendations supersedes prior recommendations for (user, window)
// and inserts the given rows. Prior rows are hidden, not deleted; their
// decision traces stay queryable for audit.
func (r *Repository) ReplaceRecommendations(ctx context.Context, userID string, windowDays int, rows []*store.RecommendationRow) error {
	hide := fmt.Sprintf(`
		UPDATE %s
		SET status = @hidden, updated_ts = CURRENT_TIMESTAMP()
		WHERE user_id = @user_id
		  AND window_days = @window_days
		  AND status = @active
	`, r.table("recommendations"))

	err := r.runDML(ctx, hide, []bigquery.QueryParameter{
		{Name: "hidden", Value: store.RecStatusHidden},
		{Name: "user_id", Value: userID},
		{Name: "window_days", Value: int64(windowDays)},
		{Name: "active", Value: store.RecStatusActive},
	})
	if err != nil {
		return fmt.Errorf("ReplaceRecommendations: hiding prior rows: %w", err)
	}

	ins := fmt.Sprintf(`
		INSERT INTO %s (
			recommendation_id, user_id, rec_type, content_id, offer_id,
			rationale, persona_type, window_days, signals_used,
			decision_trace, status, agentic_review_status, review_reason,
			external_reference, created_ts
		)
		VALUES (
			@recommendation_id, @user_id, @rec_type, @content_id, @offer_id,
			@rationale, @persona_type, @window_days, @signals_used,
			@decision_trace, @status, @agentic_review_status, @review_reason,
			@external_reference, @created_ts
		)
	`, r.table("recommendations"))

	for _, row := range rows {
		err := r.runDML(ctx, ins, []bigquery.QueryParameter{
			{Name: "recommendation_id", Value: row.RecommendationID},
			{Name: "user_id", Value: row.UserID},
			{Name: "rec_type", Value: row.RecType},
			{Name: "content_id", Value: row.ContentID},
			{Name: "offer_id", Value: row.OfferID},
			{Name: "rationale", Value: row.Rationale},
			{Name: "persona_type", Value: row.PersonaType},
			{Name: "window_days", Value: row.WindowDays},
			{Name: "signals_used", Value: row.SignalsUsed},
			{Name: "decision_trace", Value: row.DecisionTrace},
			{Name: "status", Value: row.Status},
			{Name: "agentic_review_status", Value: row.AgenticReviewState},
			{Name: "review_reason", Value: row.ReviewReason},
			{Name: "external_reference", Value: row.ExternalReference},
			{Name: "created_ts", Value: row.CreatedTS},
		})
		if err != nil {
			return fmt.Errorf("ReplaceRecommendations: inserting %s: %w", row.RecommendationID, err)
		}
	}

	return nil
}

// ListRecommendationsByUser retrieves all recommendations for a user,
// newest first.
func (r *Repository) ListRecommendationsByUser(ctx context.Context, userID string) ([]*store.RecommendationRow, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE user_id = @user_id
		ORDER BY created_ts DESC
	`, recommendationColumns, r.table("recommendations"))

	q := r.client.Query(query)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	return r.readRecommendations(ctx, q, "ListRecommendationsByUser")
}

// ListFlaggedRecommendations retrieves recommendations pending operator
// review.
func (r *Repository) ListFlaggedRecommendations(ctx context.Context) ([]*store.RecommendationRow, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE agentic_review_status = @flagged
		ORDER BY created_ts
	`, recommendationColumns, r.table("recommendations"))

	q := r.client.Query(query)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "flagged", Value: store.ReviewFlagged},
	}

	return r.readRecommendations(ctx, q, "ListFlaggedRecommendations")
}

// UpdateRecommendationStatus sets the lifecycle status of a recommendation.
func (r *Repository) UpdateRecommendationStatus(ctx context.Context, recommendationID, status string) error {
	stmt := fmt.Sprintf(`
		UPDATE %s
		SET status = @status, updated_ts = CURRENT_TIMESTAMP()
		WHERE recommendation_id = @recommendation_id
	`, r.table("recommendations"))

	err := r.runDML(ctx, stmt, []bigquery.QueryParameter{
		{Name: "status", Value: status},
		{Name: "recommendation_id", Value: recommendationID},
	})
	if err != nil {
		return fmt.Errorf("UpdateRecommendationStatus: %w", err)
	}
	return nil
}

// UpdateReviewStatus sets the agentic review status and reason.
func (r *Repository) UpdateReviewStatus(ctx context.Context, recommendationID, reviewStatus, reason string) error {
	stmt := fmt.Sprintf(`
		UPDATE %s
		SET agentic_review_status = @review_status,
		    review_reason = IF(@reason = '', review_reason, @reason),
		    updated_ts = CURRENT_TIMESTAMP()
		WHERE recommendation_id = @recommendation_id
	`, r.table("recommendations"))

	err := r.runDML(ctx, stmt, []bigquery.QueryParameter{
		{Name: "review_status", Value: reviewStatus},
		{Name: "reason", Value: reason},
		{Name: "recommendation_id", Value: recommendationID},
	})
	if err != nil {
		return fmt.Errorf("UpdateReviewStatus: %w", err)
	}
	return nil
}

// SetExternalReference records an external tracking id for a recommendation.
func (r *Repository) SetExternalReference(ctx context.Context, recommendationID, ref string) error {
	stmt := fmt.Sprintf(`
		UPDATE %s
		SET external_reference = @ref, updated_ts = CURRENT_TIMESTAMP()
		WHERE recommendation_id = @recommendation_id
	`, r.table("recommendations"))

	err := r.runDML(ctx, stmt, []bigquery.QueryParameter{
		{Name: "ref", Value: ref},
		{Name: "recommendation_id", Value: recommendationID},
	})
	if err != nil {
		return fmt.Errorf("SetExternalReference: %w", err)
	}
	return nil
}

// HideActiveRecommendations transitions all of a user's active
// recommendations to hidden and returns how many were affected.
func (r *Repository) HideActiveRecommendations(ctx context.Context, userID string) (int, error) {
	stmt := fmt.Sprintf(`
		UPDATE %s
		SET status = @hidden, updated_ts = CURRENT_TIMESTAMP()
		WHERE user_id = @user_id
		  AND status = @active
	`, r.table("recommendations"))

	affected, err := r.runDMLAffected(ctx, stmt, []bigquery.QueryParameter{
		{Name: "hidden", Value: store.RecStatusHidden},
		{Name: "user_id", Value: userID},
		{Name: "active", Value: store.RecStatusActive},
	})
	if err != nil {
		return 0, fmt.Errorf("HideActiveRecommendations: %w", err)
	}
	return affected, nil
}

const recommendationColumns = `
			recommendation_id,
			user_id,
			rec_type,
			content_id,
			offer_id,
			rationale,
			persona_type,
			window_days,
			signals_used,
			decision_trace,
			status,
			agentic_review_status,
			review_reason,
			external_reference,
			created_ts,
			updated_ts`

func (r *Repository) readRecommendations(ctx context.Context, q *bigquery.Query, op string) ([]*store.RecommendationRow, error) {
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: reading query: %w", op, err)
	}

	var rows []*store.RecommendationRow
	for {
		var row store.RecommendationRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: iterating: %w", op, err)
		}
		rows = append(rows, &row)
	}

	return rows, nil
}
