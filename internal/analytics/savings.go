package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"spendsense/internal/core"
)

// GoalStatus is the progress band of a savings goal.
type GoalStatus string

const (
	GoalNotConfigured GoalStatus = "not_configured"
	GoalAchieved      GoalStatus = "achieved"
	GoalOnTrack       GoalStatus = "on_track"
	GoalBehind        GoalStatus = "behind"
)

// Reasons a projection is not configured.
const (
	ReasonTargetAmount  = "target_amount"
	ReasonTargetDate    = "target_date"
	ReasonMonthlyBudget = "monthly_budget"
)

var half = decimal.NewFromFloat(0.5)

// SavingsProjection is the state of a savings goal for the current month.
// Only Status and Reason are meaningful when Status is GoalNotConfigured.
type SavingsProjection struct {
	Status          GoalStatus      `json:"status"`
	Reason          string          `json:"reason,omitempty"`
	TargetAmount    decimal.Decimal `json:"target_amount"`
	TargetDate      core.Date       `json:"target_date"`
	Saved           decimal.Decimal `json:"saved"`
	MonthsRemaining int             `json:"months_remaining"`
	MonthlyRequired decimal.Decimal `json:"monthly_required"`
	Progress        decimal.Decimal `json:"progress"`
}

// MonthsBetween counts whole calendar months from now's month to target's
// month. Days are ignored.
func MonthsBetween(now, target core.Date) int {
	return (target.Year()-now.Year())*12 + (target.Month() - now.Month())
}

// ProjectSavings measures this month's savings against the goal.
//
// When the target date falls in the current month MonthsRemaining is zero
// and the whole target is required as a single period.
func ProjectSavings(goal core.SavingsGoalContext, budget core.BudgetContext, spentThisMonth decimal.Decimal, now time.Time) SavingsProjection {
	today := core.DateOf(now)
	p := SavingsProjection{
		Status:       GoalNotConfigured,
		TargetAmount: goal.TargetAmount,
		TargetDate:   goal.TargetDate,
	}
	switch {
	case !goal.TargetAmount.IsPositive():
		p.Reason = ReasonTargetAmount
		return p
	case !goal.TargetDate.After(today):
		p.Reason = ReasonTargetDate
		return p
	case !budget.Configured():
		p.Reason = ReasonMonthlyBudget
		return p
	}

	p.Saved = decimal.Max(budget.MonthlyBudget.Sub(spentThisMonth), decimal.Zero)
	p.MonthsRemaining = MonthsBetween(today, goal.TargetDate)
	if p.MonthsRemaining > 0 {
		p.MonthlyRequired = goal.TargetAmount.Div(decimal.NewFromInt(int64(p.MonthsRemaining)))
	} else {
		p.MonthlyRequired = goal.TargetAmount
	}
	p.Progress = clamp(p.Saved.Div(goal.TargetAmount), decimal.Zero, decimal.NewFromInt(1))
	p.Status = statusFor(p.Progress)
	return p
}

func statusFor(progress decimal.Decimal) GoalStatus {
	switch {
	case progress.GreaterThanOrEqual(decimal.NewFromInt(1)):
		return GoalAchieved
	case progress.GreaterThan(half):
		return GoalOnTrack
	default:
		return GoalBehind
	}
}
