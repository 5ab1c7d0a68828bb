// Package analytics derives budget, savings and recommendation metrics from
// a ledger snapshot.
//
// Every function here is pure: results depend only on the records passed
// in, the budget and goal contexts, and the explicit current date. Nothing
// formats currency; amounts stay decimals and categories stay labels.
package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"spendsense/internal/core"
)

var hundred = decimal.NewFromInt(100)

// DailyTotal is the amount spent on one calendar day.
type DailyTotal struct {
	Date   core.Date       `json:"date"`
	Amount decimal.Decimal `json:"amount"`
}

// CategoryTotal is the amount spent in one category.
type CategoryTotal struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// CategoryShare is a category total expressed as a percentage of a larger
// total, in [0, 100].
type CategoryShare struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Percent  decimal.Decimal `json:"percent"`
}

// FilterByRange keeps records dated within [start, end], both inclusive.
// start after end yields an empty result.
func FilterByRange(records []core.Expense, start, end core.Date) []core.Expense {
	out := make([]core.Expense, 0)
	if start.After(end) {
		return out
	}
	for _, r := range records {
		if r.Date.Before(start) || r.Date.After(end) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// FilterByMonth keeps records dated within the given calendar month.
func FilterByMonth(records []core.Expense, year, month int) []core.Expense {
	first := core.NewDate(year, month, 1)
	return FilterByRange(records, first, first.LastOfMonth())
}

// DefaultRange is the earliest..latest record date. ok is false for an
// empty input.
func DefaultRange(records []core.Expense) (start, end core.Date, ok bool) {
	if len(records) == 0 {
		return core.Date{}, core.Date{}, false
	}
	start, end = records[0].Date, records[0].Date
	for _, r := range records[1:] {
		if r.Date.Before(start) {
			start = r.Date
		}
		if r.Date.After(end) {
			end = r.Date
		}
	}
	return start, end, true
}

// Total sums every amount. Empty input sums to zero.
func Total(records []core.Expense) decimal.Decimal {
	sum := decimal.Zero
	for _, r := range records {
		sum = sum.Add(r.Amount)
	}
	return sum
}

// GroupByDate sums amounts per day, ordered by date ascending.
func GroupByDate(records []core.Expense) []DailyTotal {
	byDay := make(map[string]*DailyTotal)
	for _, r := range records {
		key := r.Date.String()
		dt, ok := byDay[key]
		if !ok {
			dt = &DailyTotal{Date: r.Date, Amount: decimal.Zero}
			byDay[key] = dt
		}
		dt.Amount = dt.Amount.Add(r.Amount)
	}
	out := make([]DailyTotal, 0, len(byDay))
	for _, dt := range byDay {
		out = append(out, *dt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// GroupByCategory sums amounts per category. Iteration order carries no
// meaning; use SortCategoryTotals or Shares for ordered output.
func GroupByCategory(records []core.Expense) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, r := range records {
		out[r.Category] = out[r.Category].Add(r.Amount)
	}
	return out
}

// CountByCategory counts entries per category.
func CountByCategory(records []core.Expense) map[string]int {
	out := make(map[string]int)
	for _, r := range records {
		out[r.Category]++
	}
	return out
}

// SortCategoryTotals orders totals by amount descending, ties by name.
func SortCategoryTotals(totals map[string]decimal.Decimal) []CategoryTotal {
	out := make([]CategoryTotal, 0, len(totals))
	for c, amount := range totals {
		out = append(out, CategoryTotal{Category: c, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if cmp := out[i].Amount.Cmp(out[j].Amount); cmp != 0 {
			return cmp > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// Shares converts category totals to percentages of total, ordered by
// category name. A non-positive total yields no shares.
func Shares(totals map[string]decimal.Decimal, total decimal.Decimal) []CategoryShare {
	out := make([]CategoryShare, 0, len(totals))
	if !total.IsPositive() {
		return out
	}
	for c, amount := range totals {
		out = append(out, CategoryShare{
			Category: c,
			Amount:   amount,
			Percent:  amount.Mul(hundred).Div(total),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}
