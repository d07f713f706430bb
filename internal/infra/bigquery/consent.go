package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/finance-insights/internal/store"
)

var _ store.ConsentStore = (*Repository)(nil)

// GetConsent reports whether the user has granted data consent. A user with
// no consent row has not granted.
func (r *Repository) GetConsent(ctx context.Context, userID string) (bool, error) {
	query := fmt.Sprintf(`
		SELECT
			user_id,
			data_consent,
			updated_ts
		FROM %s
		WHERE user_id = @user_id
		LIMIT 1
	`, r.table("consents"))

	q := r.client.Query(query)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return false, fmt.Errorf("GetConsent: reading query: %w", err)
	}

	var row store.ConsentRow
	err = it.Next(&row)
	if err == iterator.Done {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("GetConsent: iterating: %w", err)
	}

	return row.DataConsent, nil
}

// SetConsent records the user's consent flag. Delete then insert keeps one
// row per user.
func (r *Repository) SetConsent(ctx context.Context, userID string, granted bool) error {
	del := fmt.Sprintf(`
		DELETE FROM %s
		WHERE user_id = @user_id
	`, r.table("consents"))

	err := r.runDML(ctx, del, []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	})
	if err != nil {
		return fmt.Errorf("SetConsent: deleting prior row: %w", err)
	}

	ins := fmt.Sprintf(`
		INSERT INTO %s (user_id, data_consent, updated_ts)
		VALUES (@user_id, @data_consent, @updated_ts)
	`, r.table("consents"))

	err = r.runDML(ctx, ins, []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "data_consent", Value: granted},
		{Name: "updated_ts", Value: time.Now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("SetConsent: inserting row: %w", err)
	}

	return nil
}
