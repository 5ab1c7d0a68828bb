package analytics

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Level is the severity of a piece of advice. Rendering it is up to the
// presentation layer.
type Level string

const (
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
)

var (
	// HighShareThreshold is the percent-of-month share above which a
	// category is flagged.
	HighShareThreshold = decimal.NewFromInt(40)
	// WatchShareThreshold is the coaching threshold for an informational
	// nudge.
	WatchShareThreshold = decimal.NewFromInt(25)
)

// Advice is one recommendation. Category and Percent are empty for the
// balanced acknowledgment.
type Advice struct {
	Level    Level               `json:"level"`
	Category string              `json:"category,omitempty"`
	Percent  decimal.NullDecimal `json:"percent"`
	Message  string              `json:"message"`
}

const balancedMessage = "Your spending appears balanced. Keep up the good work!"

// Recommend emits a warning for every category whose share exceeds
// HighShareThreshold, in input order. When none does it returns a single
// success acknowledgment.
func Recommend(shares []CategoryShare) []Advice {
	var out []Advice
	for _, s := range shares {
		if !s.Percent.GreaterThan(HighShareThreshold) {
			continue
		}
		out = append(out, Advice{
			Level:    LevelWarning,
			Category: s.Category,
			Percent:  decimal.NewNullDecimal(s.Percent),
			Message: fmt.Sprintf("Your spending on %s is high (%s%%). Consider reducing expenses in this category.",
				s.Category, s.Percent.StringFixed(1)),
		})
	}
	if len(out) == 0 {
		return []Advice{{Level: LevelSuccess, Message: balancedMessage}}
	}
	return out
}

// Coach is the finer grained per-category coaching: above
// HighShareThreshold warns, above WatchShareThreshold informs, anything
// else is silent. An empty result is valid.
func Coach(shares []CategoryShare) []Advice {
	out := make([]Advice, 0)
	for _, s := range shares {
		pct := s.Percent.StringFixed(1)
		switch {
		case s.Percent.GreaterThan(HighShareThreshold):
			out = append(out, Advice{
				Level:    LevelWarning,
				Category: s.Category,
				Percent:  decimal.NewNullDecimal(s.Percent),
				Message:  fmt.Sprintf("You're spending %s%% on %s. Try reducing it to free up funds.", pct, s.Category),
			})
		case s.Percent.GreaterThan(WatchShareThreshold):
			out = append(out, Advice{
				Level:    LevelInfo,
				Category: s.Category,
				Percent:  decimal.NewNullDecimal(s.Percent),
				Message:  fmt.Sprintf("You spend %s%% on %s. Keep an eye on it.", pct, s.Category),
			})
		}
	}
	return out
}
