package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"spendsense/internal/core"
)

// maxBodyBytes bounds request bodies. Expense payloads are tiny.
const maxBodyBytes = 1 << 16

var errMalformedBody = errors.New("malformed request body")

// flexAmount accepts an amount written either as a JSON string ("12,50")
// or a JSON number (12.5). Numbers are read from their literal text so no
// float rounding is involved.
type flexAmount string

func (a *flexAmount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = flexAmount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*a = flexAmount(n.String())
	return nil
}

// createExpenseRequest is the POST /expenses payload. Date is optional and
// defaults to today.
type createExpenseRequest struct {
	Description string     `json:"description"`
	Amount      flexAmount `json:"amount"`
	Date        string     `json:"date"`
}

// expenseInput is a parsed createExpenseRequest.
type expenseInput struct {
	Description string
	Amount      decimal.Decimal
	Date        core.Date
}

// parseCreateExpense decodes and validates the request body. Input errors
// are *core.ValidationError; anything else is errMalformedBody.
func parseCreateExpense(r *http.Request) (expenseInput, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return expenseInput{}, fmt.Errorf("%w: %v", errMalformedBody, err)
	}

	var req createExpenseRequest
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return expenseInput{}, fmt.Errorf("%w: %v", errMalformedBody, err)
	}

	in := expenseInput{Description: sanitizeInput(req.Description)}

	in.Amount, err = core.ParseAmount(string(req.Amount))
	if err != nil {
		return expenseInput{}, &core.ValidationError{Field: "amount", Err: core.ErrInvalidAmount}
	}

	if d := strings.TrimSpace(req.Date); d != "" {
		in.Date, err = core.ParseDate(d)
		if err != nil {
			return expenseInput{}, err
		}
	}

	if err := core.ValidateInput(in.Description, in.Amount); err != nil {
		return expenseInput{}, err
	}
	return in, nil
}

// parseOptionalAmount reads a non-negative amount from query. Empty and
// zero both mean "not set".
func parseOptionalAmount(query url.Values, field string) (decimal.Decimal, error) {
	v := strings.TrimSpace(query.Get(field))
	if v == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(v, ",", "."))
	if err != nil || d.IsNegative() {
		return decimal.Zero, &core.ValidationError{Field: field, Err: core.ErrInvalidAmount}
	}
	return d, nil
}

// parseContexts extracts the budget and savings goal from GET /insights.
func parseContexts(query url.Values) (core.BudgetContext, core.SavingsGoalContext, error) {
	var (
		budget core.BudgetContext
		goal   core.SavingsGoalContext
		err    error
	)
	if budget.MonthlyBudget, err = parseOptionalAmount(query, "budget"); err != nil {
		return budget, goal, err
	}
	if goal.TargetAmount, err = parseOptionalAmount(query, "goal"); err != nil {
		return budget, goal, err
	}
	if v := strings.TrimSpace(query.Get("goal_date")); v != "" {
		if goal.TargetDate, err = core.ParseDate(v); err != nil {
			return budget, goal, &core.ValidationError{Field: "goal_date", Err: core.ErrInvalidDate}
		}
	}
	return budget, goal, nil
}

// dateRange is an optional from/to filter. A nil bound is open.
type dateRange struct {
	From, To *core.Date
}

func parseRange(query url.Values) (dateRange, error) {
	var rng dateRange
	for _, f := range []struct {
		name string
		dst  **core.Date
	}{{"from", &rng.From}, {"to", &rng.To}} {
		v := strings.TrimSpace(query.Get(f.name))
		if v == "" {
			continue
		}
		d, err := core.ParseDate(v)
		if err != nil {
			return dateRange{}, &core.ValidationError{Field: f.name, Err: core.ErrInvalidDate}
		}
		*f.dst = &d
	}
	return rng, nil
}

// resolve fills open bounds from the records' own min..max dates.
func (r dateRange) resolve(min, max core.Date) (core.Date, core.Date) {
	from, to := min, max
	if r.From != nil {
		from = *r.From
	}
	if r.To != nil {
		to = *r.To
	}
	return from, to
}

// sanitizeInput removes control characters except tab, newline and
// carriage return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
