package analytics

import (
	"time"

	"spendsense/internal/core"
)

// Report is everything derived from one ledger snapshot for one evaluation
// pass.
type Report struct {
	Budget          BudgetReport      `json:"budget"`
	Recommendations []Advice          `json:"recommendations"`
	Coaching        []Advice          `json:"coaching"`
	Forecast        *Forecast         `json:"forecast,omitempty"`
	Savings         SavingsProjection `json:"savings"`
	Trend           []DailyTotal      `json:"trend"`
}

// Evaluate runs every analyzer against records with the same now.
//
// Recommendations and coaching are only produced when the current month
// has entries. The forecast needs a configured budget.
func Evaluate(records []core.Expense, budget core.BudgetContext, goal core.SavingsGoalContext, now time.Time) Report {
	br := AnalyzeBudget(records, budget, now)
	today := core.DateOf(now)

	r := Report{
		Budget:          br,
		Recommendations: make([]Advice, 0),
		Coaching:        make([]Advice, 0),
		Savings:         ProjectSavings(goal, budget, br.TotalSpent, now),
		Trend:           GroupByDate(FilterByMonth(records, today.Year(), today.Month())),
	}
	if br.Entries > 0 {
		r.Recommendations = Recommend(br.CategoryShares)
		r.Coaching = Coach(br.CategoryShares)
	}
	if br.Configured {
		f := GenerateForecast(br.Remaining.Decimal)
		r.Forecast = &f
	}
	return r
}
