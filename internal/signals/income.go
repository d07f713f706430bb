package signals

import (
	"math"
	"sort"
	"strings"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/finance-insights/internal/store"
)

// Income candidates must be inflows above this amount with the income
// category.
const (
	incomeMinAmount = 500.0
	categoryIncome  = "INCOME"
)

// payrollKeywords identify payroll deposits by merchant name,
// case-insensitive substring match.
var payrollKeywords = []string{"payroll", "direct deposit", "adp", "paychex", "salary"}

// Payroll frequency bands in median days between deposits.
const (
	weeklyMedianMin   = 6
	weeklyMedianMax   = 9
	biWeeklyMedianMin = 12
	biWeeklyMedianMax = 18
	monthlyMedianMin  = 25
	monthlyMedianMax  = 35
)

// AnalyzeIncome summarizes payroll cadence, income variability and cash-flow
// buffer across the user's checking accounts.
func AnalyzeIncome(in *Input) *IncomeSignal {
	sig := &IncomeSignal{Version: SchemaVersion, Frequency: FrequencyIrregular}

	checking := in.accountsOfType(store.AccountTypeChecking)

	var incomeTotal float64
	var payrollAmounts []float64
	var payrollDates []civil.Date
	var checkingBalance, checkingSpend float64

	for _, account := range checking {
		checkingBalance += account.CurrentBalance
		for _, tx := range in.Transactions[account.AccountID] {
			if tx.Amount < 0 {
				checkingSpend += -tx.Amount
				continue
			}
			if tx.Amount <= incomeMinAmount || tx.CategoryPrimary != categoryIncome {
				continue
			}
			incomeTotal += tx.Amount
			if isPayrollMerchant(tx.MerchantName) {
				payrollAmounts = append(payrollAmounts, tx.Amount)
				payrollDates = append(payrollDates, tx.Date)
			}
		}
	}

	sig.MonthlyIncome = monthlyRate(incomeTotal, in.WindowDays)
	sig.PayrollCount = len(payrollAmounts)

	monthlySpend := monthlyRate(checkingSpend, in.WindowDays)
	if monthlySpend > 0 {
		sig.CashFlowBufferMonths = checkingBalance / monthlySpend
	}

	// Without payroll deposits the signal stays irregular with the raw income
	// total only; gap and variability math is skipped.
	if len(payrollAmounts) == 0 {
		return sig
	}

	sort.Slice(payrollDates, func(i, j int) bool { return payrollDates[i].Before(payrollDates[j]) })

	gaps := make([]float64, 0, len(payrollDates)-1)
	for i := 1; i < len(payrollDates); i++ {
		gaps = append(gaps, float64(daysBetween(payrollDates[i-1], payrollDates[i])))
	}

	sig.MedianPayGapDays = median(gaps)
	sig.Frequency = frequencyFromMedianGap(sig.MedianPayGapDays)
	sig.Variability = coefficientOfVariation(payrollAmounts)

	return sig
}

func isPayrollMerchant(merchant string) bool {
	lower := strings.ToLower(merchant)
	for _, kw := range payrollKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func frequencyFromMedianGap(gap float64) string {
	switch {
	case gap >= weeklyMedianMin && gap <= weeklyMedianMax:
		return FrequencyWeekly
	case gap >= biWeeklyMedianMin && gap <= biWeeklyMedianMax:
		return FrequencyBiWeekly
	case gap >= monthlyMedianMin && gap <= monthlyMedianMax:
		return FrequencyMonthly
	default:
		return FrequencyIrregular
	}
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// coefficientOfVariation returns the population standard deviation divided by
// the mean, or 0 when the mean is 0.
func coefficientOfVariation(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	if mean == 0 {
		return 0
	}

	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq/float64(len(values))) / mean
}
