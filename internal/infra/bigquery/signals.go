package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/finance-insights/internal/store"
)

var _ store.SignalStore = (*Repository)(nil)

// UpsertSignal replaces the signal for (user, type, window) with the given
// row. Delete then insert; BigQuery DML has no native upsert for this shape.
func (r *Repository) UpsertSignal(ctx context.Context, row *store.SignalRow) error {
	del := fmt.Sprintf(`
		DELETE FROM %s
		WHERE user_id = @user_id
		  AND signal_type = @signal_type
		  AND window_days = @window_days
	`, r.table("signals"))

	err := r.runDML(ctx, del, []bigquery.QueryParameter{
		{Name: "user_id", Value: row.UserID},
		{Name: "signal_type", Value: row.SignalType},
		{Name: "window_days", Value: row.WindowDays},
	})
	if err != nil {
		return fmt.Errorf("UpsertSignal: deleting prior row: %w", err)
	}

	ins := fmt.Sprintf(`
		INSERT INTO %s (
			signal_id, user_id, signal_type, window_days, payload, computed_ts
		)
		VALUES (
			@signal_id, @user_id, @signal_type, @window_days, @payload, @computed_ts
		)
	`, r.table("signals"))

	err = r.runDML(ctx, ins, []bigquery.QueryParameter{
		{Name: "signal_id", Value: row.SignalID},
		{Name: "user_id", Value: row.UserID},
		{Name: "signal_type", Value: row.SignalType},
		{Name: "window_days", Value: row.WindowDays},
		{Name: "payload", Value: row.Payload},
		{Name: "computed_ts", Value: row.ComputedTS},
	})
	if err != nil {
		return fmt.Errorf("UpsertSignal: inserting row: %w", err)
	}

	return nil
}

// ListSignalsByUser retrieves all signals for a user and window.
func (r *Repository) ListSignalsByUser(ctx context.Context, userID string, windowDays int) ([]*store.SignalRow, error) {
	query := fmt.Sprintf(`
		SELECT
			signal_id,
			user_id,
			signal_type,
			window_days,
			payload,
			computed_ts
		FROM %s
		WHERE user_id = @user_id
		  AND window_days = @window_days
		ORDER BY signal_type
	`, r.table("signals"))

	q := r.client.Query(query)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "window_days", Value: int64(windowDays)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListSignalsByUser: reading query: %w", err)
	}

	var rows []*store.SignalRow
	for {
		var row store.SignalRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListSignalsByUser: iterating: %w", err)
		}
		rows = append(rows, &row)
	}

	return rows, nil
}
