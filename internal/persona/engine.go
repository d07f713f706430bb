package persona

import (
	"sort"
	"time"

	"github.com/dvloznov/finance-insights/internal/signals"
	"github.com/dvloznov/finance-insights/internal/store"
)

// The five persona types scored by the engine.
const (
	TypeHighUtilization   = "high_utilization"
	TypeVariableIncome    = "variable_income"
	TypeSubscriptionHeavy = "subscription_heavy"
	TypeSavingsBuilder    = "savings_builder"
	TypeNetWorthMaximizer = "net_worth_maximizer"
)

// secondaryThreshold is the minimum score for a persona to fill the
// secondary slot.
const secondaryThreshold = 0.3

// maximizerPrimaryThreshold is the score at which net_worth_maximizer takes
// the primary slot regardless of other scores.
const maximizerPrimaryThreshold = 0.3

// defaultScore is assigned to savings_builder when no persona scores above
// zero, so every user always carries a primary persona.
const defaultScore = 0.1

// Scored is one persona's score with the criteria that produced it.
type Scored struct {
	PersonaType string
	Score       float64
	CriteriaMet []string
}

// Assignment is the primary/secondary persona pair for one (user, window).
type Assignment struct {
	Primary   *Scored
	Secondary *Scored
}

// MaxUtilizationFromAccounts derives the user's maximum credit-card
// utilization directly from live account balances and limits. Persona scoring
// reads this figure instead of the stored credit signal so a stale signal row
// cannot skew an assignment.
func MaxUtilizationFromAccounts(accounts []*store.AccountRow) float64 {
	var max float64
	for _, account := range accounts {
		utilization, ok := account.Utilization()
		if !ok {
			continue
		}
		if utilization > max {
			max = utilization
		}
	}
	return max
}

// ScoreAll computes all five persona scores from the signals snapshot and the
// live max utilization. Personas that score zero are returned too; Assign
// filters them.
func ScoreAll(snap *signals.Snapshot, maxUtilization float64) []*Scored {
	return []*Scored{
		scoreHighUtilization(snap, maxUtilization),
		scoreVariableIncome(snap),
		scoreSubscriptionHeavy(snap),
		scoreSavingsBuilder(snap, maxUtilization),
		scoreNetWorthMaximizer(snap, maxUtilization),
	}
}

func scoreHighUtilization(snap *signals.Snapshot, maxUtilization float64) *Scored {
	s := &Scored{PersonaType: TypeHighUtilization}

	switch {
	case maxUtilization >= 0.8:
		s.add(0.5, "max_utilization>=0.8")
	case maxUtilization >= 0.5:
		s.add(0.3, "max_utilization>=0.5")
	}

	credit := snap.Credit
	if credit == nil {
		return s.clamp()
	}
	if credit.MonthlyInterest > 0 {
		s.add(0.2, "paying_interest")
	}
	if credit.IsOverdue {
		s.add(0.3, "overdue_payments")
	}
	if credit.MinimumPaymentOnly {
		s.add(0.2, "minimum_payments_only")
	}
	return s.clamp()
}

func scoreVariableIncome(snap *signals.Snapshot) *Scored {
	s := &Scored{PersonaType: TypeVariableIncome}

	income := snap.Income
	if income == nil {
		return s
	}

	longGap := income.MedianPayGapDays > 45
	thinBuffer := income.CashFlowBufferMonths < 1

	switch {
	case longGap && thinBuffer:
		s.add(0.7, "pay_gap>45", "cash_buffer<1")
	case longGap:
		s.add(0.4, "pay_gap>45")
	case thinBuffer:
		s.add(0.3, "cash_buffer<1")
	}

	if income.Frequency == signals.FrequencyIrregular {
		s.add(0.2, "frequency=irregular")
	}
	return s.clamp()
}

func scoreSubscriptionHeavy(snap *signals.Snapshot) *Scored {
	s := &Scored{PersonaType: TypeSubscriptionHeavy}

	sub := snap.Subscription
	if sub == nil || sub.RecurringCount < 3 {
		return s
	}

	if sub.MonthlyRecurringSpend >= 50 || sub.RecurringSpendShare >= 0.1 {
		s.add(0.7, "recurring_count>=3", "recurring_spend_material")
	} else {
		s.add(0.4, "recurring_count>=3")
	}
	return s.clamp()
}

func scoreSavingsBuilder(snap *signals.Snapshot, maxUtilization float64) *Scored {
	s := &Scored{PersonaType: TypeSavingsBuilder}

	if maxUtilization >= 0.3 {
		return s
	}
	savings := snap.Savings
	if savings == nil {
		return s
	}

	switch {
	case savings.GrowthRate >= 0.02 || savings.MonthlyNetInflow >= 200:
		s.add(0.7, "max_utilization<0.3", "savings_momentum")
	case savings.MonthlyNetInflow > 0:
		s.add(0.4, "max_utilization<0.3", "positive_net_inflow")
	}
	return s.clamp()
}

func scoreNetWorthMaximizer(snap *signals.Snapshot, maxUtilization float64) *Scored {
	s := &Scored{PersonaType: TypeNetWorthMaximizer}

	savings := snap.Savings
	income := snap.Income
	if savings == nil || income == nil {
		return s
	}

	netSavings := savings.MonthlyNetInflow
	savingsRate := 0.0
	if income.MonthlyIncome > 0 {
		savingsRate = netSavings / income.MonthlyIncome
	}
	buffer := income.CashFlowBufferMonths

	strong := (savingsRate >= 0.3 || netSavings >= 4000 || savings.TotalBalance >= 40000) &&
		maxUtilization < 0.1 && buffer > 6
	moderate := (savingsRate >= 0.2 || netSavings >= 2000) &&
		maxUtilization < 0.2 && buffer > 3

	switch {
	case strong:
		s.add(0.9, "wealth_tier_strong")
	case moderate:
		s.add(0.6, "wealth_tier_moderate")
	}
	return s.clamp()
}

// Assign picks the primary and secondary personas from the scored set.
// net_worth_maximizer takes the primary slot whenever it scores at or above
// 0.3; otherwise the top score wins. A secondary must score at or above 0.3.
// When nothing scores, savings_builder is assigned at 0.1 as the default.
func Assign(scores []*Scored) *Assignment {
	nonzero := make([]*Scored, 0, len(scores))
	var maximizer *Scored
	for _, s := range scores {
		if s.Score <= 0 {
			continue
		}
		nonzero = append(nonzero, s)
		if s.PersonaType == TypeNetWorthMaximizer {
			maximizer = s
		}
	}

	if len(nonzero) == 0 {
		return &Assignment{
			Primary: &Scored{PersonaType: TypeSavingsBuilder, Score: defaultScore, CriteriaMet: []string{"default"}},
		}
	}

	sort.SliceStable(nonzero, func(i, j int) bool {
		return nonzero[i].Score > nonzero[j].Score
	})

	if maximizer != nil && maximizer.Score >= maximizerPrimaryThreshold {
		assignment := &Assignment{Primary: maximizer}
		for _, s := range nonzero {
			if s.PersonaType == TypeNetWorthMaximizer {
				continue
			}
			if s.Score >= secondaryThreshold {
				assignment.Secondary = s
			}
			break
		}
		return assignment
	}

	assignment := &Assignment{Primary: nonzero[0]}
	if len(nonzero) > 1 && nonzero[1].Score >= secondaryThreshold {
		assignment.Secondary = nonzero[1]
	}
	return assignment
}

// Compute scores and assigns personas in one call.
func Compute(snap *signals.Snapshot, maxUtilization float64) *Assignment {
	return Assign(ScoreAll(snap, maxUtilization))
}

// Rows converts an assignment to persona score rows ready for replacement.
func (a *Assignment) Rows(userID string, windowDays int, assignedAt time.Time) []*store.PersonaScoreRow {
	rows := []*store.PersonaScoreRow{rowFor(a.Primary, userID, windowDays, 1, assignedAt)}
	if a.Secondary != nil {
		rows = append(rows, rowFor(a.Secondary, userID, windowDays, 2, assignedAt))
	}
	return rows
}

func rowFor(s *Scored, userID string, windowDays int, rank int64, assignedAt time.Time) *store.PersonaScoreRow {
	return &store.PersonaScoreRow{
		UserID:      userID,
		PersonaType: s.PersonaType,
		WindowDays:  int64(windowDays),
		Score:       s.Score,
		Rank:        rank,
		CriteriaMet: s.CriteriaMet,
		ComputedTS:  assignedAt,
	}
}

func (s *Scored) add(points float64, criteria ...string) {
	s.Score += points
	s.CriteriaMet = append(s.CriteriaMet, criteria...)
}

func (s *Scored) clamp() *Scored {
	if s.Score > 1.0 {
		s.Score = 1.0
	}
	return s
}
