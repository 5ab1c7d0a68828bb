package analytics

import (
	"errors"
	"strings"
)

// ErrEmptyQuestion is returned by Tip for a blank question.
var ErrEmptyQuestion = errors.New("question is empty")

var tips = []struct {
	keywords []string
	tip      string
}{
	{[]string{"budget"}, "To manage your budget, consider tracking your daily expenses and setting a realistic monthly limit."},
	{[]string{"save", "savings"}, "Try setting up a recurring transfer to your savings account each month. Small amounts add up over time!"},
	{[]string{"expense"}, "Categorizing your expenses can help you identify areas to cut costs. Use the app to analyze your spending patterns."},
	{[]string{"recommendation"}, "Based on your history, focusing on reducing spending in your highest-cost category could free up funds for savings."},
}

const defaultTip = "Keep track of your spending, set realistic goals, and review your expense history regularly for insights."

// Tip answers a money question by keyword. The first matching topic wins.
func Tip(question string) (string, error) {
	q := strings.ToLower(strings.TrimSpace(question))
	if q == "" {
		return "", ErrEmptyQuestion
	}
	for _, t := range tips {
		for _, k := range t.keywords {
			if strings.Contains(q, k) {
				return t.tip, nil
			}
		}
	}
	return defaultTip, nil
}
