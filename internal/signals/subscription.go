package signals

import (
	"math"
	"sort"
	"strings"

	"cloud.google.com/go/civil"
)

// Cadence bands for recurring-merchant detection, in days between
// consecutive transactions.
const (
	monthlyGapMin = 20
	monthlyGapMax = 40
	weeklyGapMin  = 2
	weeklyGapMax  = 12
)

// recurrenceLookbackDays restricts cadence detection to recent activity. A
// merchant with fewer than three qualifying transactions inside this trailing
// window is never recurring, regardless of older history.
const recurrenceLookbackDays = 90

// amount consistency tolerances: each transaction's absolute deviation from
// the group mean must be within 10% of the mean or $5, whichever is looser.
const (
	amountTolerancePct  = 0.10
	amountToleranceFlat = 5.0
)

type merchantGroup struct {
	name    string
	amounts []float64 // absolute values, trailing lookback only
	dates   []civil.Date
}

// DetectSubscriptions finds merchants the user pays on a stable weekly or
// monthly cadence and summarizes their monthly-normalized spend.
func DetectSubscriptions(in *Input) *SubscriptionSignal {
	sig := &SubscriptionSignal{Version: SchemaVersion}

	cutoff := civil.DateOf(in.AsOf.AddDate(0, 0, -recurrenceLookbackDays))

	groups := make(map[string]*merchantGroup)
	var totalOutflow float64

	for _, account := range in.Accounts {
		for _, tx := range in.Transactions[account.AccountID] {
			if tx.Amount >= 0 {
				continue
			}
			totalOutflow += -tx.Amount

			merchant := strings.TrimSpace(tx.MerchantName)
			if merchant == "" {
				continue
			}
			if tx.Date.Before(cutoff) {
				continue
			}

			g, ok := groups[merchant]
			if !ok {
				g = &merchantGroup{name: merchant}
				groups[merchant] = g
			}
			g.amounts = append(g.amounts, -tx.Amount)
			g.dates = append(g.dates, tx.Date)
		}
	}

	var recurring []string
	var monthlySpend float64

	for _, g := range groups {
		cadence, ok := g.cadence()
		if !ok {
			continue
		}
		if !g.amountsConsistent() {
			continue
		}

		recurring = append(recurring, g.name)
		mean := g.meanAmount()
		if cadence == FrequencyWeekly {
			monthlySpend += mean * 4
		} else {
			monthlySpend += mean
		}
	}

	sort.Strings(recurring)

	sig.RecurringCount = len(recurring)
	sig.RecurringMerchants = recurring
	sig.MonthlyRecurringSpend = monthlySpend

	totalMonthly := monthlyRate(totalOutflow, in.WindowDays)
	if totalMonthly > 0 {
		sig.RecurringSpendShare = monthlySpend / totalMonthly
	}

	return sig
}

// cadence reports whether the group's consecutive date gaps all fall in one
// cadence band, and which band that is.
func (g *merchantGroup) cadence() (string, bool) {
	if len(g.dates) < 3 {
		return "", false
	}

	dates := make([]civil.Date, len(g.dates))
	copy(dates, g.dates)
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	monthly, weekly := true, true
	for i := 1; i < len(dates); i++ {
		gap := daysBetween(dates[i-1], dates[i])
		if gap < monthlyGapMin || gap > monthlyGapMax {
			monthly = false
		}
		if gap < weeklyGapMin || gap > weeklyGapMax {
			weekly = false
		}
	}

	switch {
	case monthly:
		return FrequencyMonthly, true
	case weekly:
		return FrequencyWeekly, true
	default:
		return "", false
	}
}

func (g *merchantGroup) meanAmount() float64 {
	if len(g.amounts) == 0 {
		return 0
	}
	var sum float64
	for _, a := range g.amounts {
		sum += a
	}
	return sum / float64(len(g.amounts))
}

func (g *merchantGroup) amountsConsistent() bool {
	mean := g.meanAmount()
	tolerance := math.Max(mean*amountTolerancePct, amountToleranceFlat)
	for _, a := range g.amounts {
		if math.Abs(a-mean) > tolerance {
			return false
		}
	}
	return true
}
