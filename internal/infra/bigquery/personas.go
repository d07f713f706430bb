package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/finance-insights/internal/store"
)

var _ store.PersonaStore = (*Repository)(nil)

// ReplacePersonaScores deletes prior scores for (user, window) and inserts
// the given rows.
func (r *Repository) ReplacePersonaScores(ctx context.Context, userID string, windowDays int, rows []*store.PersonaScoreRow) error {
	del := fmt.Sprintf(`
		DELETE FROM %s
		WHERE user_id = @user_id
		  AND window_days = @window_days
	`, r.table("persona_scores"))

	err := r.runDML(ctx, del, []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "window_days", Value: int64(windowDays)},
	})
	if err != nil {
		return fmt.Errorf("ReplacePersonaScores: deleting prior rows: %w", err)
	}

	ins := fmt.Sprintf(`
		INSERT INTO %s (
			user_id, persona_type, window_days, score, rank, criteria_met, computed_ts
		)
		VALUES (
			@user_id, @persona_type, @window_days, @score, @rank, @criteria_met, @computed_ts
		)
	`, r.table("persona_scores"))

	for _, row := range rows {
		err := r.runDML(ctx, ins, []bigquery.QueryParameter{
			{Name: "user_id", Value: row.UserID},
			{Name: "persona_type", Value: row.PersonaType},
			{Name: "window_days", Value: row.WindowDays},
			{Name: "score", Value: row.Score},
			{Name: "rank", Value: row.Rank},
			{Name: "criteria_met", Value: row.CriteriaMet},
			{Name: "computed_ts", Value: row.ComputedTS},
		})
		if err != nil {
			return fmt.Errorf("ReplacePersonaScores: inserting %s: %w", row.PersonaType, err)
		}
	}

	return nil
}

// ListPersonaScores retrieves persona scores for a user and window, ordered
// by rank.
func (r *Repository) ListPersonaScores(ctx context.Context, userID string, windowDays int) ([]*store.PersonaScoreRow, error) {
	query := fmt.Sprintf(`
		SELECT
			user_id,
			persona_type,
			window_days,
			score,
			rank,
			criteria_met,
			computed_ts
		FROM %s
		WHERE user_id = @user_id
		  AND window_days = @window_days
		ORDER BY rank
	`, r.table("persona_scores"))

	q := r.client.Query(query)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "window_days", Value: int64(windowDays)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListPersonaScores: reading query: %w", err)
	}

	var rows []*store.PersonaScoreRow
	for {
		var row store.PersonaScoreRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListPersonaScores: iterating: %w", err)
		}
		rows = append(rows, &row)
	}

	return rows, nil
}
