package analytics

import "github.com/shopspring/decimal"

// Horizons are the forecast lengths in months.
var Horizons = []int{1, 3, 6, 12}

// Projection is the savings expected after Months months.
type Projection struct {
	Months  int             `json:"months"`
	Savings decimal.Decimal `json:"savings"`
}

// Forecast extrapolates the current monthly balance linearly.
type Forecast struct {
	Balance     decimal.Decimal `json:"balance"`
	OverBudget  bool            `json:"over_budget"`
	Projections []Projection    `json:"projections"`
}

// GenerateForecast projects balance*h for every horizon. A non-positive
// balance produces an over budget forecast with no projections.
func GenerateForecast(balance decimal.Decimal) Forecast {
	f := Forecast{Balance: balance, Projections: make([]Projection, 0, len(Horizons))}
	if !balance.IsPositive() {
		f.OverBudget = true
		return f
	}
	for _, h := range Horizons {
		f.Projections = append(f.Projections, Projection{
			Months:  h,
			Savings: balance.Mul(decimal.NewFromInt(int64(h))),
		})
	}
	return f
}

// At returns the projection for months, if that horizon was generated.
func (f Forecast) At(months int) (decimal.Decimal, bool) {
	for _, p := range f.Projections {
		if p.Months == months {
			return p.Savings, true
		}
	}
	return decimal.Decimal{}, false
}
