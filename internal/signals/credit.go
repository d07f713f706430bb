package signals

import (
	"math"
	"sort"
	"strings"

	"github.com/dvloznov/finance-insights/internal/store"
)

// Utilization flag thresholds.
const (
	utilizationCritical = 0.8
	utilizationHigh     = 0.5
	utilizationMedium   = 0.3
)

// minPaymentTolerance is the allowed relative deviation between a payment and
// the on-file minimum for the minimum-payment-only heuristic.
const minPaymentTolerance = 0.10

// minPaymentSampleSize is how many recent credit-card payments the heuristic
// inspects.
const minPaymentSampleSize = 3

// interestMerchantMarker identifies interest-charge transactions by merchant
// name.
const interestMerchantMarker = "Interest"

// categoryCreditCardPayment marks credit-card payment transactions.
const (
	categoryLoanPayments      = "LOAN_PAYMENTS"
	categoryCreditCardPayment = "CREDIT_CARD_PAYMENT"
)

// AnalyzeCredit summarizes credit-card utilization, interest charges and
// payment behavior.
func AnalyzeCredit(in *Input) *CreditSignal {
	sig := &CreditSignal{Version: SchemaVersion, UtilizationTier: TierNone}

	cards := in.accountsOfType(store.AccountTypeCreditCard)
	if len(cards) == 0 {
		return sig
	}

	var maxUtilization float64
	for _, card := range cards {
		utilization, ok := card.Utilization()
		if !ok {
			continue
		}
		sig.Cards = append(sig.Cards, CardUtilization{
			AccountID:   card.AccountID,
			Balance:     card.CurrentBalance,
			Limit:       card.CreditLimit,
			Utilization: utilization,
		})
		if utilization > maxUtilization {
			maxUtilization = utilization
		}
	}

	sig.MaxUtilization = maxUtilization
	sig.UtilizationTier = utilizationTier(maxUtilization)

	var interestTotal float64
	for _, card := range cards {
		for _, tx := range in.Transactions[card.AccountID] {
			if tx.Amount >= 0 {
				continue
			}
			if strings.Contains(tx.MerchantName, interestMerchantMarker) {
				interestTotal += -tx.Amount
			}
		}
	}
	sig.MonthlyInterest = monthlyRate(interestTotal, in.WindowDays)

	for _, liability := range in.Liabilities {
		if liability.IsOverdue {
			sig.IsOverdue = true
			break
		}
	}

	sig.MinimumPaymentOnly = minimumPaymentOnly(in, cards)

	return sig
}

func utilizationTier(maxUtilization float64) string {
	switch {
	case maxUtilization >= utilizationCritical:
		return TierCritical
	case maxUtilization >= utilizationHigh:
		return TierHigh
	case maxUtilization >= utilizationMedium:
		return TierMedium
	default:
		return TierLow
	}
}

// minimumPaymentOnly reports whether the user's recent credit-card payments
// all hover at the minimum payment amount. The comparison reads the liability
// record of the first credit card account only, even when the user holds
// several cards; payments on other cards are still compared against that one
// minimum. This matches the long-standing behavior of the heuristic.
func minimumPaymentOnly(in *Input, cards []*store.AccountRow) bool {
	liability, ok := in.Liabilities[cards[0].AccountID]
	if !ok || liability.MinimumPayment <= 0 {
		return false
	}

	var payments []*store.TransactionRow
	for _, card := range cards {
		for _, tx := range in.Transactions[card.AccountID] {
			if tx.Amount <= 0 {
				continue
			}
			if tx.CategoryPrimary == categoryLoanPayments || tx.CategoryDetailed == categoryCreditCardPayment {
				payments = append(payments, tx)
			}
		}
	}

	if len(payments) < minPaymentSampleSize {
		return false
	}

	sort.Slice(payments, func(i, j int) bool {
		return payments[j].Date.Before(payments[i].Date)
	})
	payments = payments[:minPaymentSampleSize]

	tolerance := liability.MinimumPayment * minPaymentTolerance
	for _, p := range payments {
		if math.Abs(p.Amount-liability.MinimumPayment) > tolerance {
			return false
		}
	}
	return true
}
