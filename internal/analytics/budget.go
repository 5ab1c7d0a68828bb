package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"spendsense/internal/core"
)

// BudgetReport summarises the current calendar month against the monthly
// budget. PercentSpent and Remaining are only valid when Configured.
type BudgetReport struct {
	Year           int                 `json:"year"`
	Month          int                 `json:"month"`
	Configured     bool                `json:"configured"`
	MonthlyBudget  decimal.Decimal     `json:"monthly_budget"`
	TotalSpent     decimal.Decimal     `json:"total_spent"`
	PercentSpent   decimal.NullDecimal `json:"percent_spent"`
	Remaining      decimal.NullDecimal `json:"remaining"`
	Overspent      bool                `json:"overspent"`
	Entries        int                 `json:"entries"`
	CategoryShares []CategoryShare     `json:"category_shares"`
}

// AnalyzeBudget restricts records to now's calendar month and computes
// spend, remaining budget and per-category shares of the month's spend.
//
// A zero budget means "no budget set": the ratio and remaining amount are
// left unset instead of dividing by zero. Remaining can be negative, which
// is reported through Overspent rather than as an error.
func AnalyzeBudget(records []core.Expense, budget core.BudgetContext, now time.Time) BudgetReport {
	today := core.DateOf(now)
	month := FilterByMonth(records, today.Year(), today.Month())
	total := Total(month)

	report := BudgetReport{
		Year:           today.Year(),
		Month:          today.Month(),
		Configured:     budget.Configured(),
		MonthlyBudget:  budget.MonthlyBudget,
		TotalSpent:     total,
		Entries:        len(month),
		CategoryShares: Shares(GroupByCategory(month), total),
	}
	if !report.Configured {
		return report
	}

	remaining := budget.MonthlyBudget.Sub(total)
	report.Remaining = decimal.NewNullDecimal(remaining)
	report.PercentSpent = decimal.NewNullDecimal(clamp(total.Div(budget.MonthlyBudget), decimal.Zero, decimal.NewFromInt(1)))
	report.Overspent = remaining.IsNegative()
	return report
}

func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}
