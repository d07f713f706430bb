package signals

import (
	"math"
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/finance-insights/internal/store"
)

var testAsOf = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func day(offset int) civil.Date {
	return civil.DateOf(testAsOf.AddDate(0, 0, -offset))
}

func checkingAccount(id string, balance float64) *store.AccountRow {
	return &store.AccountRow{AccountID: id, UserID: "user-1", AccountType: store.AccountTypeChecking, CurrentBalance: balance}
}

func outflow(accountID, merchant string, amount float64, daysAgo int) *store.TransactionRow {
	return &store.TransactionRow{
		AccountID:    accountID,
		UserID:       "user-1",
		Date:         day(daysAgo),
		Amount:       -amount,
		MerchantName: merchant,
	}
}

func newInput(windowDays int, accounts []*store.AccountRow, txs []*store.TransactionRow) *Input {
	in := &Input{
		UserID:       "user-1",
		WindowDays:   windowDays,
		AsOf:         testAsOf,
		Accounts:     accounts,
		Transactions: make(map[string][]*store.TransactionRow),
		Liabilities:  make(map[string]*store.LiabilityRow),
	}
	for _, tx := range txs {
		in.Transactions[tx.AccountID] = append(in.Transactions[tx.AccountID], tx)
	}
	return in
}

func TestDetectSubscriptions_MonthlyCadence(t *testing.T) {
	accounts := []*store.AccountRow{checkingAccount("acc-1", 1000)}
	txs := []*store.TransactionRow{
		outflow("acc-1", "StreamFlix", 15.99, 5),
		outflow("acc-1", "StreamFlix", 15.99, 35),
		outflow("acc-1", "StreamFlix", 15.99, 65),
	}

	sig := DetectSubscriptions(newInput(Window180, accounts, txs))

	if sig.RecurringCount != 1 {
		t.Fatalf("RecurringCount = %d, want 1", sig.RecurringCount)
	}
	if sig.RecurringMerchants[0] != "StreamFlix" {
		t.Errorf("RecurringMerchants = %v, want [StreamFlix]", sig.RecurringMerchants)
	}
	if math.Abs(sig.MonthlyRecurringSpend-15.99) > 0.001 {
		t.Errorf("MonthlyRecurringSpend = %f, want 15.99", sig.MonthlyRecurringSpend)
	}
}

func TestDetectSubscriptions_WeeklyCadenceScalesByFour(t *testing.T) {
	accounts := []*store.AccountRow{checkingAccount("acc-1", 1000)}
	txs := []*store.TransactionRow{
		outflow("acc-1", "Lunch Club", 10, 3),
		outflow("acc-1", "Lunch Club", 10, 10),
		outflow("acc-1", "Lunch Club", 10, 17),
		outflow("acc-1", "Lunch Club", 10, 24),
	}

	sig := DetectSubscriptions(newInput(Window30, accounts, txs))

	if sig.RecurringCount != 1 {
		t.Fatalf("RecurringCount = %d, want 1", sig.RecurringCount)
	}
	if math.Abs(sig.MonthlyRecurringSpend-40) > 0.001 {
		t.Errorf("MonthlyRecurringSpend = %f, want 40 (weekly x4)", sig.MonthlyRecurringSpend)
	}
}

func TestDetectSubscriptions_GapOutsideBands(t *testing.T) {
	tests := []struct {
		name string
		gaps []int // days ago per transaction
	}{
		{"spacing at 45 days does not qualify", []int{5, 50, 95}},
		{"spacing at 60 days does not qualify", []int{5, 65, 125}},
		{"mixed bands do not qualify", []int{5, 12, 40}},
		{"same day repeats do not qualify", []int{5, 5, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accounts := []*store.AccountRow{checkingAccount("acc-1", 1000)}
			var txs []*store.TransactionRow
			for _, daysAgo := range tt.gaps {
				txs = append(txs, outflow("acc-1", "Irregular Shop", 20, daysAgo))
			}

			sig := DetectSubscriptions(newInput(Window180, accounts, txs))
			if sig.RecurringCount != 0 {
				t.Errorf("RecurringCount = %d, want 0", sig.RecurringCount)
			}
		})
	}
}

func TestDetectSubscriptions_AmountConsistency(t *testing.T) {
	tests := []struct {
		name    string
		amounts []float64
		want    int
	}{
		{"within 10 percent", []float64{100, 105, 95}, 1},
		{"within flat 5 dollars on small amounts", []float64{10, 14, 12}, 1},
		{"deviation beyond both tolerances", []float64{100, 150, 100}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accounts := []*store.AccountRow{checkingAccount("acc-1", 1000)}
			var txs []*store.TransactionRow
			for i, amount := range tt.amounts {
				txs = append(txs, outflow("acc-1", "Gym Plan", amount, 5+30*i))
			}

			sig := DetectSubscriptions(newInput(Window180, accounts, txs))
			if sig.RecurringCount != tt.want {
				t.Errorf("RecurringCount = %d, want %d", sig.RecurringCount, tt.want)
			}
		})
	}
}

func TestDetectSubscriptions_OldHistoryDoesNotQualify(t *testing.T) {
	// Many older transactions, but only two inside the trailing 90 days.
	accounts := []*store.AccountRow{checkingAccount("acc-1", 1000)}
	txs := []*store.TransactionRow{
		outflow("acc-1", "Legacy Box", 25, 10),
		outflow("acc-1", "Legacy Box", 25, 40),
		outflow("acc-1", "Legacy Box", 25, 100),
		outflow("acc-1", "Legacy Box", 25, 130),
		outflow("acc-1", "Legacy Box", 25, 160),
	}

	sig := DetectSubscriptions(newInput(Window180, accounts, txs))
	if sig.RecurringCount != 0 {
		t.Errorf("RecurringCount = %d, want 0 for merchant with <3 recent transactions", sig.RecurringCount)
	}
}

func TestDetectSubscriptions_SpendShare(t *testing.T) {
	accounts := []*store.AccountRow{checkingAccount("acc-1", 1000)}
	txs := []*store.TransactionRow{
		outflow("acc-1", "StreamFlix", 30, 5),
		outflow("acc-1", "StreamFlix", 30, 35),
		outflow("acc-1", "StreamFlix", 30, 65),
		// Non-recurring spend to dilute the share.
		outflow("acc-1", "One Off Store", 100, 7),
		outflow("acc-1", "Another Store", 50, 12),
	}

	in := newInput(Window180, accounts, txs)
	sig := DetectSubscriptions(in)

	totalMonthly := (30*3 + 100 + 50) / 180.0 * 30
	wantShare := 30 / totalMonthly
	if math.Abs(sig.RecurringSpendShare-wantShare) > 0.0001 {
		t.Errorf("RecurringSpendShare = %f, want %f", sig.RecurringSpendShare, wantShare)
	}
}

func TestDetectSubscriptions_NoData(t *testing.T) {
	sig := DetectSubscriptions(newInput(Window30, nil, nil))

	if sig.RecurringCount != 0 || sig.MonthlyRecurringSpend != 0 || sig.RecurringSpendShare != 0 {
		t.Errorf("expected all-zero signal for empty input, got %+v", sig)
	}
}
