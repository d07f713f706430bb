package signals

import (
	"math"
	"testing"

	"github.com/dvloznov/finance-insights/internal/store"
)

func savingsAccount(id string, balance float64) *store.AccountRow {
	return &store.AccountRow{AccountID: id, UserID: "user-1", AccountType: store.AccountTypeSavings, CurrentBalance: balance}
}

func inflow(accountID string, amount float64, daysAgo int) *store.TransactionRow {
	return &store.TransactionRow{
		AccountID: accountID,
		UserID:    "user-1",
		Date:      day(daysAgo),
		Amount:    amount,
	}
}

func TestAnalyzeSavings_NetInflowAndGrowth(t *testing.T) {
	accounts := []*store.AccountRow{savingsAccount("sav-1", 1200)}
	txs := []*store.TransactionRow{
		inflow("sav-1", 100, 10),
		inflow("sav-1", 100, 40),
		inflow("sav-1", -50, 20),
	}

	sig := AnalyzeSavings(newInput(Window30, accounts, txs))

	if sig.TotalBalance != 1200 {
		t.Errorf("TotalBalance = %f, want 1200", sig.TotalBalance)
	}
	// Net inflow 150 over a 30-day window is already monthly.
	if math.Abs(sig.MonthlyNetInflow-150) > 0.001 {
		t.Errorf("MonthlyNetInflow = %f, want 150", sig.MonthlyNetInflow)
	}
	// Starting balance 1050, growth (1200-1050)/1050.
	wantGrowth := 150.0 / 1050.0
	if math.Abs(sig.GrowthRate-wantGrowth) > 0.0001 {
		t.Errorf("GrowthRate = %f, want %f", sig.GrowthRate, wantGrowth)
	}
}

func TestAnalyzeSavings_GrowthFromZeroStart(t *testing.T) {
	// All of the current balance arrived inside the window.
	accounts := []*store.AccountRow{savingsAccount("sav-1", 500)}
	txs := []*store.TransactionRow{inflow("sav-1", 500, 15)}

	sig := AnalyzeSavings(newInput(Window30, accounts, txs))

	if sig.GrowthRate != 1.0 {
		t.Errorf("GrowthRate = %f, want 1.0 when the derived starting balance is zero", sig.GrowthRate)
	}
}

func TestAnalyzeSavings_EmptyAccounts(t *testing.T) {
	sig := AnalyzeSavings(newInput(Window30, nil, nil))

	if sig.TotalBalance != 0 || sig.GrowthRate != 0 || sig.EmergencyFundMonths != 0 {
		t.Errorf("expected zero signal for empty input, got %+v", sig)
	}
}

func TestAnalyzeSavings_EmergencyFundMonths(t *testing.T) {
	accounts := []*store.AccountRow{
		savingsAccount("sav-1", 3000),
		checkingAccount("chk-1", 800),
	}
	txs := []*store.TransactionRow{
		outflow("chk-1", "Grocer", 600, 5),
		outflow("chk-1", "Utility Co", 400, 12),
	}

	sig := AnalyzeSavings(newInput(Window30, accounts, txs))

	// $1000 monthly checking spend against a $3000 balance.
	if math.Abs(sig.EmergencyFundMonths-3.0) > 0.001 {
		t.Errorf("EmergencyFundMonths = %f, want 3.0", sig.EmergencyFundMonths)
	}
}

func TestAnalyzeSavings_PoolsSavingsLikeAccounts(t *testing.T) {
	accounts := []*store.AccountRow{
		savingsAccount("sav-1", 1000),
		{AccountID: "mm-1", UserID: "user-1", AccountType: store.AccountTypeMoneyMarket, CurrentBalance: 2000},
		{AccountID: "hsa-1", UserID: "user-1", AccountType: store.AccountTypeHSA, CurrentBalance: 500},
		checkingAccount("chk-1", 9999),
	}

	sig := AnalyzeSavings(newInput(Window30, accounts, nil))

	if sig.TotalBalance != 3500 {
		t.Errorf("TotalBalance = %f, want 3500 (checking balance excluded)", sig.TotalBalance)
	}
}
