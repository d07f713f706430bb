package signals

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/finance-insights/internal/store"
)

// Signal types keyed with (user, window) in the signal store.
const (
	TypeSubscription = "subscription"
	TypeSavings      = "savings"
	TypeCredit       = "credit"
	TypeIncome       = "income"
)

// Supported analysis windows in days.
const (
	Window30  = 30
	Window180 = 180
)

// SupportedWindow reports whether days is one of the analysis windows the
// signal and persona tables are keyed on.
func SupportedWindow(days int) bool {
	return days == Window30 || days == Window180
}

// SchemaVersion tags every persisted signal payload so older blobs can be
// recognized during aggregation.
const SchemaVersion = 1

// Utilization tiers reported by the credit analyzer.
const (
	TierCritical = "critical"
	TierHigh     = "high"
	TierMedium   = "medium"
	TierLow      = "low"
	TierNone     = "none"
)

// Payroll frequency classifications reported by the income analyzer.
const (
	FrequencyWeekly    = "weekly"
	FrequencyBiWeekly  = "biweekly"
	FrequencyMonthly   = "monthly"
	FrequencyIrregular = "irregular"
)

// SubscriptionSignal summarizes recurring-merchant spend for a user and window.
type SubscriptionSignal struct {
	Version int `json:"version"`

	RecurringCount     int      `json:"recurring_count"`
	RecurringMerchants []string `json:"recurring_merchants"`

	// MonthlyRecurringSpend counts monthly cadences once and scales weekly
	// cadences by four.
	MonthlyRecurringSpend float64 `json:"monthly_recurring_spend"`

	// RecurringSpendShare is the recurring portion of the user's total
	// monthly-normalized spend in the window.
	RecurringSpendShare float64 `json:"recurring_spend_share"`
}

// SavingsSignal summarizes savings behavior across savings-like accounts.
type SavingsSignal struct {
	Version int `json:"version"`

	TotalBalance     float64 `json:"total_balance"`
	MonthlyNetInflow float64 `json:"monthly_net_inflow"`

	// GrowthRate is derived by walking the current balance backward by the
	// window's net flow rather than from a recorded historical balance.
	GrowthRate float64 `json:"growth_rate"`

	// EmergencyFundMonths is months of checking spend covered by the current
	// savings-like balance.
	EmergencyFundMonths float64 `json:"emergency_fund_months"`
}

// CardUtilization is the per-card utilization detail inside a CreditSignal.
type CardUtilization struct {
	AccountID   string  `json:"account_id"`
	Balance     float64 `json:"balance"`
	Limit       float64 `json:"limit"`
	Utilization float64 `json:"utilization"`
}

// CreditSignal summarizes credit-card utilization and payment behavior.
type CreditSignal struct {
	Version int `json:"version"`

	MaxUtilization  float64           `json:"max_utilization"`
	UtilizationTier string            `json:"utilization_tier"`
	Cards           []CardUtilization `json:"cards,omitempty"`

	MonthlyInterest float64 `json:"monthly_interest"`

	IsOverdue          bool `json:"is_overdue"`
	MinimumPaymentOnly bool `json:"minimum_payment_only"`
}

// IncomeSignal summarizes income stability across checking accounts.
type IncomeSignal struct {
	Version int `json:"version"`

	Frequency        string  `json:"frequency"`
	MedianPayGapDays float64 `json:"median_pay_gap_days"`

	// Variability is the population coefficient of variation of payroll
	// amounts.
	Variability float64 `json:"variability"`

	MonthlyIncome        float64 `json:"monthly_income"`
	CashFlowBufferMonths float64 `json:"cash_flow_buffer_months"`

	PayrollCount int `json:"payroll_count"`
}

// Snapshot bundles the four signals computed for one (user, window) run.
// A nil member means the signal could not be decoded from storage.
type Snapshot struct {
	Subscription *SubscriptionSignal `json:"subscription,omitempty"`
	Savings      *SavingsSignal      `json:"savings,omitempty"`
	Credit       *CreditSignal       `json:"credit,omitempty"`
	Income       *IncomeSignal       `json:"income,omitempty"`
}

// Rows converts the snapshot into signal rows ready for upsert.
func (s *Snapshot) Rows(userID string, windowDays int, computedAt time.Time) ([]*store.SignalRow, error) {
	payloads := []struct {
		signalType string
		value      interface{}
	}{
		{TypeSubscription, s.Subscription},
		{TypeSavings, s.Savings},
		{TypeCredit, s.Credit},
		{TypeIncome, s.Income},
	}

	rows := make([]*store.SignalRow, 0, len(payloads))
	for _, p := range payloads {
		data, err := json.Marshal(p.value)
		if err != nil {
			return nil, fmt.Errorf("Snapshot.Rows: marshal %s payload: %w", p.signalType, err)
		}
		rows = append(rows, &store.SignalRow{
			SignalID:   uuid.NewString(),
			UserID:     userID,
			SignalType: p.signalType,
			WindowDays: int64(windowDays),
			Payload:    string(data),
			ComputedTS: computedAt,
		})
	}
	return rows, nil
}

// SnapshotFromRows rebuilds a snapshot from stored signal rows. Rows whose
// payload fails to parse are skipped rather than failing the whole read.
func SnapshotFromRows(rows []*store.SignalRow) *Snapshot {
	snap := &Snapshot{}
	for _, row := range rows {
		switch row.SignalType {
		case TypeSubscription:
			var sig SubscriptionSignal
			if err := json.Unmarshal([]byte(row.Payload), &sig); err == nil {
				snap.Subscription = &sig
			}
		case TypeSavings:
			var sig SavingsSignal
			if err := json.Unmarshal([]byte(row.Payload), &sig); err == nil {
				snap.Savings = &sig
			}
		case TypeCredit:
			var sig CreditSignal
			if err := json.Unmarshal([]byte(row.Payload), &sig); err == nil {
				snap.Credit = &sig
			}
		case TypeIncome:
			var sig IncomeSignal
			if err := json.Unmarshal([]byte(row.Payload), &sig); err == nil {
				snap.Income = &sig
			}
		}
	}
	return snap
}
