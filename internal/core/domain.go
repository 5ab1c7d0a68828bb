package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

type (
	// Date is a calendar day. Time-of-day is not tracked.
	Date struct {
		time.Time
	}

	// Expense is a classified expense record. Records are never mutated once
	// appended to a ledger; position in the ledger is their only identity.
	Expense struct {
		Date        Date            `json:"date"`
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
		Category    string          `json:"category"`
	}

	// BudgetContext is the user-declared monthly spending ceiling. The
	// reference month is taken from the evaluation's current date.
	BudgetContext struct {
		MonthlyBudget decimal.Decimal
	}

	// SavingsGoalContext is a target amount to reach by a date.
	SavingsGoalContext struct {
		TargetAmount decimal.Decimal
		TargetDate   Date
	}
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
)

// ValidationError reports a rejected user input. It unwraps to one of the
// sentinel errors above.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an instant to its calendar day in the instant's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a date string in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, &ValidationError{Field: "date", Err: ErrInvalidDate}
	}
	return Date{Time: t}, nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(dateLayout)
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// FirstOfMonth returns the first calendar day of the date's month.
func (d Date) FirstOfMonth() Date {
	return NewDate(d.Year(), d.Month(), 1)
}

// LastOfMonth returns the last calendar day of the date's month.
func (d Date) LastOfMonth() Date {
	// Day 0 of the next month normalises to the last day of this one.
	return NewDate(d.Year(), d.Month()+1, 0)
}

// Before reports whether d is an earlier calendar day than o.
func (d Date) Before(o Date) bool {
	return d.Time.Before(o.Time)
}

// After reports whether d is a later calendar day than o.
func (d Date) After(o Date) bool {
	return d.Time.After(o.Time)
}

// Equal reports whether d and o are the same calendar day.
func (d Date) Equal(o Date) bool {
	return d.Time.Equal(o.Time)
}

// MarshalJSON overrides the promoted time.Time encoding with YYYY-MM-DD.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return &ValidationError{Field: "date", Err: ErrInvalidDate}
	}
	return nil
}

// ValidateInput checks the raw (description, amount) pair before it may be
// classified. Amounts must be strictly positive.
func ValidateInput(description string, amount decimal.Decimal) error {
	if strings.TrimSpace(description) == "" {
		return &ValidationError{Field: "description", Err: ErrEmptyDescription}
	}
	if !amount.IsPositive() {
		return &ValidationError{Field: "amount", Err: ErrInvalidAmount}
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	return ValidateInput(e.Description, e.Amount)
}

// Configured reports whether a monthly budget has been set.
func (b BudgetContext) Configured() bool {
	return b.MonthlyBudget.IsPositive()
}
