package signals

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/finance-insights/internal/store"
)

// Input carries everything the analyzers need for one (user, window) run.
// Analyzers are pure functions over an Input; all store reads happen up front
// in the Extractor.
type Input struct {
	UserID     string
	WindowDays int
	AsOf       time.Time

	Accounts []*store.AccountRow

	// Transactions maps account id to that account's transactions inside the
	// window, ordered by date ascending.
	Transactions map[string][]*store.TransactionRow

	// Liabilities maps credit card account id to its liability record.
	Liabilities map[string]*store.LiabilityRow
}

// accountsOfType returns the accounts matching any of the given types,
// preserving store order.
func (in *Input) accountsOfType(types ...string) []*store.AccountRow {
	var out []*store.AccountRow
	for _, a := range in.Accounts {
		for _, t := range types {
			if a.AccountType == t {
				out = append(out, a)
				break
			}
		}
	}
	return out
}

// Extractor loads a user's records and runs the four signal analyzers.
type Extractor struct {
	reader store.AccountReader
}

// NewExtractor creates an extractor backed by the given account reader.
func NewExtractor(reader store.AccountReader) *Extractor {
	return &Extractor{reader: reader}
}

// Load fetches accounts, in-window transactions and credit card liabilities
// for a user. A user with no accounts yields an Input with empty collections,
// not an error.
func (e *Extractor) Load(ctx context.Context, userID string, windowDays int, asOf time.Time) (*Input, error) {
	accounts, err := e.reader.ListAccountsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Extractor.Load: list accounts: %w", err)
	}

	start := civil.DateOf(asOf.AddDate(0, 0, -windowDays))
	end := civil.DateOf(asOf)

	in := &Input{
		UserID:       userID,
		WindowDays:   windowDays,
		AsOf:         asOf,
		Accounts:     accounts,
		Transactions: make(map[string][]*store.TransactionRow, len(accounts)),
		Liabilities:  make(map[string]*store.LiabilityRow),
	}

	for _, account := range accounts {
		txs, err := e.reader.ListTransactionsByAccount(ctx, account.AccountID, start, end)
		if err != nil {
			return nil, fmt.Errorf("Extractor.Load: list transactions for %s: %w", account.AccountID, err)
		}
		in.Transactions[account.AccountID] = txs

		if account.AccountType == store.AccountTypeCreditCard {
			liability, err := e.reader.FindLiabilityByAccount(ctx, account.AccountID)
			if err != nil {
				return nil, fmt.Errorf("Extractor.Load: find liability for %s: %w", account.AccountID, err)
			}
			if liability != nil {
				in.Liabilities[account.AccountID] = liability
			}
		}
	}

	return in, nil
}

// Extract loads the user's records and computes all four signals.
func (e *Extractor) Extract(ctx context.Context, userID string, windowDays int, asOf time.Time) (*Snapshot, error) {
	in, err := e.Load(ctx, userID, windowDays, asOf)
	if err != nil {
		return nil, err
	}
	return ExtractFromInput(in), nil
}

// ExtractFromInput runs the four analyzers over already-loaded records.
func ExtractFromInput(in *Input) *Snapshot {
	return &Snapshot{
		Subscription: DetectSubscriptions(in),
		Savings:      AnalyzeSavings(in),
		Credit:       AnalyzeCredit(in),
		Income:       AnalyzeIncome(in),
	}
}

// monthlyRate normalizes a window total to a 30-day rate.
func monthlyRate(total float64, windowDays int) float64 {
	if windowDays <= 0 {
		return 0
	}
	return total / float64(windowDays) * 30
}

// daysBetween returns the in-days distance from a to b.
func daysBetween(a, b civil.Date) int {
	return b.DaysSince(a)
}
