package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok {
			assert.NoError(t, err, "case %d", i)
		} else {
			assert.ErrorIs(t, err, ErrInvalidDate, "case %d", i)
		}
	}
}

func TestDateMonthBounds(t *testing.T) {
	cases := []struct {
		d           Date
		first, last Date
	}{
		{NewDate(2026, 10, 14), NewDate(2026, 10, 1), NewDate(2026, 10, 31)},
		{NewDate(2024, 2, 10), NewDate(2024, 2, 1), NewDate(2024, 2, 29)},
		{NewDate(2026, 12, 31), NewDate(2026, 12, 1), NewDate(2026, 12, 31)},
	}
	for _, tc := range cases {
		assert.True(t, tc.d.FirstOfMonth().Equal(tc.first), "first of %s", tc.d)
		assert.True(t, tc.d.LastOfMonth().Equal(tc.last), "last of %s", tc.d)
	}
}

func TestDateOfDropsTimeOfDay(t *testing.T) {
	d := DateOf(time.Date(2026, 10, 14, 23, 59, 0, 0, time.UTC))
	assert.Equal(t, "2026-10-14", d.String())
	assert.True(t, d.Equal(NewDate(2026, 10, 14)))
}

func TestDateJSON(t *testing.T) {
	b, err := json.Marshal(struct{ D Date }{NewDate(2026, 3, 5)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"D":"2026-03-05"}`, string(b))

	var out struct{ D Date }
	require.NoError(t, json.Unmarshal(b, &out))
	assert.True(t, out.D.Equal(NewDate(2026, 3, 5)))

	err = json.Unmarshal([]byte(`{"D":"05/03/2026"}`), &out)
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestValidateInput(t *testing.T) {
	require.NoError(t, ValidateInput("coffee", decimal.NewFromInt(3)))

	err := ValidateInput("  ", decimal.NewFromInt(3))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "description", verr.Field)
	assert.ErrorIs(t, err, ErrEmptyDescription)

	assert.ErrorIs(t, ValidateInput("coffee", decimal.Zero), ErrInvalidAmount)
	assert.ErrorIs(t, ValidateInput("coffee", decimal.NewFromInt(-2)), ErrInvalidAmount)

	long := strings.Repeat("चाय ", 60)
	assert.NoError(t, ValidateInput(long, decimal.NewFromInt(10)), "long descriptions are valid")
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{
		Date:        NewDate(2025, 1, 1),
		Description: "ok",
		Amount:      MustAmount("1.00"),
		Category:    "Food",
	}
	require.NoError(t, good.Validate())

	bads := []Expense{
		{Date: Date{}, Description: "a", Amount: MustAmount("1")},
		{Date: NewDate(2025, 1, 1), Description: "", Amount: MustAmount("1")},
		{Date: NewDate(2025, 1, 1), Description: "a", Amount: decimal.Zero},
	}
	for i, e := range bads {
		assert.Error(t, e.Validate(), "case %d", i)
	}
}

func TestBudgetConfigured(t *testing.T) {
	assert.False(t, BudgetContext{}.Configured())
	assert.True(t, BudgetContext{MonthlyBudget: MustAmount("100")}.Configured())
}
