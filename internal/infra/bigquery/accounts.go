package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/finance-insights/internal/store"
)

var _ store.AccountReader = (*Repository)(nil)

// ListAccountsByUser retrieves all accounts belonging to a user.
func (r *Repository) ListAccountsByUser(ctx context.Context, userID string) ([]*store.AccountRow, error) {
	query := fmt.Sprintf(`
		SELECT
			account_id,
			user_id,
			account_type,
			subtype,
			name,
			current_balance,
			available_balance,
			credit_limit,
			created_ts
		FROM %s
		WHERE user_id = @user_id
		ORDER BY created_ts
	`, r.table("accounts"))

	q := r.client.Query(query)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListAccountsByUser: reading query: %w", err)
	}

	var accounts []*store.AccountRow
	for {
		var row store.AccountRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListAccountsByUser: iterating: %w", err)
		}
		accounts = append(accounts, &row)
	}

	return accounts, nil
}

// ListTransactionsByAccount retrieves transactions for an account within the
// inclusive date range. Pending transactions are excluded; signals only read
// settled activity.
func (r *Repository) ListTransactionsByAccount(ctx context.Context, accountID string, start, end civil.Date) ([]*store.TransactionRow, error) {
	query := fmt.Sprintf(`
		SELECT
			transaction_id,
			account_id,
			user_id,
			transaction_date,
			amount,
			merchant_name,
			category_primary,
			category_detailed,
			is_pending,
			created_ts
		FROM %s
		WHERE account_id = @account_id
		  AND transaction_date BETWEEN @start_date AND @end_date
		  AND is_pending = FALSE
		ORDER BY transaction_date
	`, r.table("transactions"))

	q := r.client.Query(query)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "account_id", Value: accountID},
		{Name: "start_date", Value: start},
		{Name: "end_date", Value: end},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListTransactionsByAccount: reading query: %w", err)
	}

	var txs []*store.TransactionRow
	for {
		var row store.TransactionRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListTransactionsByAccount: iterating: %w", err)
		}
		txs = append(txs, &row)
	}

	return txs, nil
}

// FindLiabilityByAccount retrieves the liability record linked to a credit
// card account. Returns nil if no liability exists.
func (r *Repository) FindLiabilityByAccount(ctx context.Context, accountID string) (*store.LiabilityRow, error) {
	query := fmt.Sprintf(`
		SELECT
			liability_id,
			account_id,
			minimum_payment,
			last_payment_amount,
			is_overdue,
			last_statement_balance
		FROM %s
		WHERE account_id = @account_id
		LIMIT 1
	`, r.table("liabilities"))

	q := r.client.Query(query)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "account_id", Value: accountID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("FindLiabilityByAccount: reading query: %w", err)
	}

	var row store.LiabilityRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindLiabilityByAccount: iterating: %w", err)
	}

	return &row, nil
}
