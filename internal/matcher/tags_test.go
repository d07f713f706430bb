package matcher

import (
	"testing"

	"github.com/dvloznov/finance-insights/internal/signals"
)

func TestDeriveTags(t *testing.T) {
	tests := []struct {
		name     string
		snap     *signals.Snapshot
		want     []string
		dontWant []string
	}{
		{
			name: "credit distress tags",
			snap: &signals.Snapshot{
				Credit: &signals.CreditSignal{
					MaxUtilization:     0.62,
					MonthlyInterest:    14,
					IsOverdue:          true,
					MinimumPaymentOnly: true,
				},
			},
			want: []string{TagHighUtilization, TagPayingInterest, TagOverduePayments, TagMinimumPayments},
		},
		{
			name: "utilization below threshold untagged",
			snap: &signals.Snapshot{
				Credit: &signals.CreditSignal{MaxUtilization: 0.45},
			},
			dontWant: []string{TagHighUtilization},
		},
		{
			name: "subscription heavy",
			snap: &signals.Snapshot{
				Subscription: &signals.SubscriptionSignal{RecurringCount: 3},
			},
			want: []string{TagSubscriptionHeavy},
		},
		{
			name: "irregular income with thin buffer",
			snap: &signals.Snapshot{
				Income: &signals.IncomeSignal{Frequency: signals.FrequencyIrregular, CashFlowBufferMonths: 0.4},
			},
			want:     []string{TagVariableIncome, TagLowCashBuffer},
			dontWant: []string{TagStableIncome},
		},
		{
			name: "stable payroll",
			snap: &signals.Snapshot{
				Income: &signals.IncomeSignal{Frequency: signals.FrequencyBiWeekly, PayrollCount: 6, CashFlowBufferMonths: 2},
			},
			want:     []string{TagStableIncome},
			dontWant: []string{TagVariableIncome, TagLowCashBuffer},
		},
		{
			name: "savings momentum with low emergency fund",
			snap: &signals.Snapshot{
				Savings: &signals.SavingsSignal{MonthlyNetInflow: 150, EmergencyFundMonths: 1.2},
			},
			want: []string{TagSavingsBuilder, TagLowEmergencyFund},
		},
		{
			name: "empty snapshot only buffer and emergency tags",
			snap: &signals.Snapshot{
				Income:  &signals.IncomeSignal{},
				Savings: &signals.SavingsSignal{},
			},
			want: []string{TagLowCashBuffer, TagLowEmergencyFund},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tags := DeriveTags(tt.snap)
			for _, w := range tt.want {
				if !tags.Has(w) {
					t.Errorf("tags %v missing %q", tags.List(), w)
				}
			}
			for _, dw := range tt.dontWant {
				if tags.Has(dw) {
					t.Errorf("tags %v should not include %q", tags.List(), dw)
				}
			}
		})
	}
}

func TestBuildUserData(t *testing.T) {
	snap := &signals.Snapshot{
		Credit:       &signals.CreditSignal{MaxUtilization: 0.68, IsOverdue: true},
		Income:       &signals.IncomeSignal{MonthlyIncome: 4200, CashFlowBufferMonths: 1.5, Variability: 0.2},
		Savings:      &signals.SavingsSignal{TotalBalance: 8000, MonthlyNetInflow: 300, EmergencyFundMonths: 2.7},
		Subscription: &signals.SubscriptionSignal{RecurringCount: 4, MonthlyRecurringSpend: 85},
	}

	data := BuildUserData(snap)

	if data["max_utilization"] != 0.68 {
		t.Errorf("max_utilization = %v", data["max_utilization"])
	}
	if data["annual_income"] != 4200.0*12 {
		t.Errorf("annual_income = %v", data["annual_income"])
	}
	if data["is_overdue"] != true {
		t.Errorf("is_overdue = %v", data["is_overdue"])
	}
	if data["recurring_count"] != 4.0 {
		t.Errorf("recurring_count = %v", data["recurring_count"])
	}
}

func TestBuildUserData_MissingSignalsLeaveFieldsAbsent(t *testing.T) {
	data := BuildUserData(&signals.Snapshot{})

	if _, ok := data["max_utilization"]; ok {
		t.Error("max_utilization present for nil credit signal")
	}
	if _, ok := data["annual_income"]; ok {
		t.Error("annual_income present for nil income signal")
	}
}
