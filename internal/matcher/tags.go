package matcher

import (
	"github.com/dvloznov/finance-insights/internal/guardrail"
	"github.com/dvloznov/finance-insights/internal/signals"
)

// User signal tags derived from the numeric signals. Catalog entries declare
// fit against these same tags.
const (
	TagHighUtilization   = "high_utilization"
	TagPayingInterest    = "paying_interest"
	TagOverduePayments   = "overdue_payments"
	TagMinimumPayments   = "minimum_payments"
	TagSubscriptionHeavy = "subscription_heavy"
	TagVariableIncome    = "variable_income"
	TagLowCashBuffer     = "low_cash_buffer"
	TagSavingsBuilder    = "savings_builder"
	TagLowEmergencyFund  = "low_emergency_fund"
	TagStableIncome      = "stable_income"
)

// TagSet is an order-preserving set of user signal tags.
type TagSet struct {
	tags []string
	seen map[string]bool
}

func newTagSet() *TagSet {
	return &TagSet{seen: make(map[string]bool)}
}

func (t *TagSet) add(tag string) {
	if t.seen[tag] {
		return
	}
	t.seen[tag] = true
	t.tags = append(t.tags, tag)
}

// Has reports whether the tag is present.
func (t *TagSet) Has(tag string) bool {
	return t.seen[tag]
}

// List returns the tags in derivation order.
func (t *TagSet) List() []string {
	return t.tags
}

// DeriveTags maps the signals snapshot onto the discrete tag vocabulary the
// catalogs are annotated with.
func DeriveTags(snap *signals.Snapshot) *TagSet {
	tags := newTagSet()

	if credit := snap.Credit; credit != nil {
		if credit.MaxUtilization >= 0.5 {
			tags.add(TagHighUtilization)
		}
		if credit.MonthlyInterest > 0 {
			tags.add(TagPayingInterest)
		}
		if credit.IsOverdue {
			tags.add(TagOverduePayments)
		}
		if credit.MinimumPaymentOnly {
			tags.add(TagMinimumPayments)
		}
	}

	if sub := snap.Subscription; sub != nil && sub.RecurringCount >= 3 {
		tags.add(TagSubscriptionHeavy)
	}

	if income := snap.Income; income != nil {
		if income.Frequency == signals.FrequencyIrregular {
			tags.add(TagVariableIncome)
		} else if income.PayrollCount > 0 {
			tags.add(TagStableIncome)
		}
		if income.CashFlowBufferMonths < 1 {
			tags.add(TagLowCashBuffer)
		}
	}

	if savings := snap.Savings; savings != nil {
		if savings.MonthlyNetInflow > 0 {
			tags.add(TagSavingsBuilder)
		}
		if savings.EmergencyFundMonths < 3 {
			tags.add(TagLowEmergencyFund)
		}
	}

	return tags
}

// BuildUserData flattens the snapshot into the record eligibility rules
// evaluate against. Absent signals leave their fields out, which fails any
// rule referencing them.
func BuildUserData(snap *signals.Snapshot) guardrail.UserData {
	data := guardrail.UserData{}

	if credit := snap.Credit; credit != nil {
		data["max_utilization"] = credit.MaxUtilization
		data["is_overdue"] = credit.IsOverdue
		data["monthly_interest"] = credit.MonthlyInterest
	}
	if income := snap.Income; income != nil {
		data["monthly_income"] = income.MonthlyIncome
		data["annual_income"] = income.MonthlyIncome * 12
		data["cash_flow_buffer_months"] = income.CashFlowBufferMonths
		data["income_variability"] = income.Variability
	}
	if savings := snap.Savings; savings != nil {
		data["savings_balance"] = savings.TotalBalance
		data["monthly_net_savings"] = savings.MonthlyNetInflow
		data["emergency_fund_months"] = savings.EmergencyFundMonths
	}
	if sub := snap.Subscription; sub != nil {
		data["recurring_monthly_spend"] = sub.MonthlyRecurringSpend
		data["recurring_count"] = float64(sub.RecurringCount)
	}

	return data
}
