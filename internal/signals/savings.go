package signals

import (
	"github.com/dvloznov/finance-insights/internal/store"
)

// AnalyzeSavings summarizes net inflow, growth and emergency-fund coverage
// across the user's savings-like accounts.
func AnalyzeSavings(in *Input) *SavingsSignal {
	sig := &SavingsSignal{Version: SchemaVersion}

	savingsAccounts := in.accountsOfType(
		store.AccountTypeSavings,
		store.AccountTypeMoneyMarket,
		store.AccountTypeHSA,
	)

	var currentBalance, rawNetInflow float64
	for _, account := range savingsAccounts {
		currentBalance += account.CurrentBalance
		for _, tx := range in.Transactions[account.AccountID] {
			rawNetInflow += tx.Amount
		}
	}

	sig.TotalBalance = currentBalance
	sig.MonthlyNetInflow = monthlyRate(rawNetInflow, in.WindowDays)

	// The starting balance is approximated by walking the current balance
	// backward by the window's net flow; there is no recorded historical
	// balance to read.
	startingBalance := currentBalance - rawNetInflow
	switch {
	case startingBalance > 0:
		sig.GrowthRate = (currentBalance - startingBalance) / startingBalance
	case currentBalance > 0:
		sig.GrowthRate = 1.0
	default:
		sig.GrowthRate = 0
	}

	monthlyCheckingSpend := monthlyRate(checkingOutflow(in), in.WindowDays)
	if monthlyCheckingSpend > 0 {
		sig.EmergencyFundMonths = currentBalance / monthlyCheckingSpend
	}

	return sig
}

// checkingOutflow sums the absolute outflows on the user's checking accounts
// inside the window.
func checkingOutflow(in *Input) float64 {
	var total float64
	for _, account := range in.accountsOfType(store.AccountTypeChecking) {
		for _, tx := range in.Transactions[account.AccountID] {
			if tx.Amount < 0 {
				total += -tx.Amount
			}
		}
	}
	return total
}
