package rationale

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dvloznov/finance-insights/internal/signals"
	"github.com/dvloznov/finance-insights/internal/store"
)

// cancellationRate is the assumed share of recurring spend a user could
// cancel, used for projected-savings figures.
const cancellationRate = 0.40

// unfilledToken matches any {token} left in rendered text. Rendered output
// containing one is rejected and the generator falls back to the next
// template in the chain.
var unfilledToken = regexp.MustCompile(`\{[a-z_]+\}`)

// Result is a rendered rationale with the template that produced it.
type Result struct {
	Text       string
	TemplateID string
}

// Topic keyword families, checked in priority order against a content item's
// topic and signal tags.
var (
	creditTopics       = []string{"credit", "utilization", "debt", "interest", "high_utilization", "paying_interest", "overdue_payments", "minimum_payments"}
	subscriptionTopics = []string{"subscription", "recurring", "subscription_heavy"}
	savingsTopics      = []string{"savings", "emergency_fund", "emergency", "savings_builder", "low_emergency_fund"}
	incomeTopics       = []string{"income", "budget", "budgeting", "cash_flow", "variable_income", "low_cash_buffer"}
)

// ForContent renders the education rationale for a content item. The item's
// own tags pick the template; topic templates that cannot be fully
// substituted fall back to a persona-flavored sentence and finally to a fully
// generic one.
func ForContent(item *store.ContentItemRow, snap *signals.Snapshot, personaType string) *Result {
	itemTags := append(append([]string{}, item.TopicTags...), item.SignalTags...)

	if hasAnyTopic(itemTags, creditTopics) {
		if r := renderCreditRationale(snap); r != nil {
			return r
		}
	}
	if hasAnyTopic(itemTags, subscriptionTopics) {
		if r := renderSubscriptionRationale(snap); r != nil {
			return r
		}
	}
	if hasAnyTopic(itemTags, savingsTopics) {
		if r := renderSavingsRationale(snap); r != nil {
			return r
		}
	}
	if hasAnyTopic(itemTags, incomeTopics) {
		if r := renderIncomeRationale(snap); r != nil {
			return r
		}
	}

	if tpl, ok := personaTemplates[personaType]; ok {
		if r := render(tpl, nil); r != nil {
			return r
		}
	}
	return &Result{Text: templateGeneric.Text, TemplateID: templateGeneric.ID}
}

// ForOffer renders the offer rationale from the most salient matched signal
// plus a persona benefit phrase.
func ForOffer(offer *store.OfferRow, snap *signals.Snapshot, personaType string) *Result {
	benefit := benefitPhrases[personaType]
	if offer.Benefit != "" {
		benefit = offer.Benefit
	}
	if benefit == "" {
		benefit = benefitPhraseGeneric
	}
	values := map[string]string{"benefit_phrase": benefit}

	if credit := snap.Credit; credit != nil && credit.MaxUtilization >= 0.5 {
		values["utilization_pct"] = formatPercent(credit.MaxUtilization)
		if r := render(templateOfferUtilization, values); r != nil {
			return r
		}
	}
	if sub := snap.Subscription; sub != nil && sub.RecurringCount >= 3 {
		values["subscription_count"] = fmt.Sprintf("%d", sub.RecurringCount)
		if r := render(templateOfferSubscription, values); r != nil {
			return r
		}
	}

	if r := render(templateOfferGeneric, values); r != nil {
		return r
	}
	return &Result{Text: templateGeneric.Text, TemplateID: templateGeneric.ID}
}

func renderCreditRationale(snap *signals.Snapshot) *Result {
	credit := snap.Credit
	if credit == nil || len(credit.Cards) == 0 {
		return nil
	}

	top := credit.Cards[0]
	for _, card := range credit.Cards[1:] {
		if card.Utilization > top.Utilization {
			top = card
		}
	}

	return render(templateCreditUtilization, map[string]string{
		"utilization_pct": formatPercent(top.Utilization),
		"card_balance":    formatDollars(top.Balance),
	})
}

func renderSubscriptionRationale(snap *signals.Snapshot) *Result {
	sub := snap.Subscription
	if sub == nil || sub.RecurringCount == 0 {
		return nil
	}

	return render(templateSubscriptions, map[string]string{
		"subscription_count": fmt.Sprintf("%d", sub.RecurringCount),
		"recurring_spend":    formatDollars(sub.MonthlyRecurringSpend),
		"projected_savings":  formatDollars(sub.MonthlyRecurringSpend * cancellationRate),
	})
}

func renderSavingsRationale(snap *signals.Snapshot) *Result {
	savings := snap.Savings
	if savings == nil {
		return nil
	}

	return render(templateSavings, map[string]string{
		"emergency_months": fmt.Sprintf("%.1f", savings.EmergencyFundMonths),
	})
}

func renderIncomeRationale(snap *signals.Snapshot) *Result {
	income := snap.Income
	if income == nil {
		return nil
	}

	return render(templateIncome, map[string]string{
		"income_frequency": income.Frequency,
		"monthly_income":   formatDollars(income.MonthlyIncome),
	})
}

// render substitutes values into the template and rejects any output that
// still carries an unfilled token.
func render(tpl Template, values map[string]string) *Result {
	text := tpl.Text
	for token, value := range values {
		text = strings.ReplaceAll(text, "{"+token+"}", value)
	}
	if unfilledToken.MatchString(text) {
		return nil
	}
	return &Result{Text: text, TemplateID: tpl.ID}
}

func hasAnyTopic(itemTags, topics []string) bool {
	for _, tag := range itemTags {
		lower := strings.ToLower(tag)
		for _, topic := range topics {
			if strings.Contains(lower, topic) {
				return true
			}
		}
	}
	return false
}

func formatPercent(fraction float64) string {
	return fmt.Sprintf("%.0f", fraction*100)
}

func formatDollars(amount float64) string {
	return fmt.Sprintf("%.2f", amount)
}
