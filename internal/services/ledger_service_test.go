package services

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"spendsense/internal/analytics"
	"spendsense/internal/core"
	"spendsense/internal/ledger"
	"spendsense/internal/sheets/memory"
)

type mockClassifier struct{ mock.Mock }

func (m *mockClassifier) Classify(ctx context.Context, description string, amount decimal.Decimal) (string, error) {
	args := m.Called(ctx, description, amount)
	return args.String(0), args.Error(1)
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) PublishExpenseRecorded(ctx context.Context, position int, e core.Expense) error {
	return m.Called(ctx, position, e).Error(0)
}

func (m *mockPublisher) PublishLedgerCleared(ctx context.Context, dropped int) error {
	return m.Called(ctx, dropped).Error(0)
}

var fixedNow = time.Date(2026, time.October, 14, 10, 0, 0, 0, time.UTC)

func newService(t *testing.T, opts ...Option) (*LedgerService, *mockClassifier) {
	t.Helper()
	cl := &mockClassifier{}
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewLedgerService(ledger.New(), cl, opts...), cl
}

func TestRecordClassifiesAndAppends(t *testing.T) {
	svc, cl := newService(t)
	ctx := context.Background()
	amount := core.MustAmount("250")
	cl.On("Classify", ctx, "pizza night", amount).Return("Food", nil).Once()

	got, err := svc.Record(ctx, "pizza night", amount, core.NewDate(2026, 10, 2))
	require.NoError(t, err)
	assert.Equal(t, 1, got.Position)
	assert.Equal(t, "Food", got.Expense.Category)
	assert.Equal(t, "2026-10-02", got.Expense.Date.String())

	snap := svc.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, got.Expense, snap[0])
	cl.AssertExpectations(t)
}

func TestRecordDefaultsToToday(t *testing.T) {
	svc, cl := newService(t)
	cl.On("Classify", mock.Anything, "bus", mock.Anything).Return("Transport", nil)

	got, err := svc.Record(context.Background(), "bus", core.MustAmount("20"), core.Date{})
	require.NoError(t, err)
	assert.Equal(t, "2026-10-14", got.Expense.Date.String())
}

func TestRecordValidationErrorLeavesLedgerUntouched(t *testing.T) {
	svc, cl := newService(t)
	verr := &core.ValidationError{Field: "amount", Err: core.ErrInvalidAmount}
	cl.On("Classify", mock.Anything, "x", mock.Anything).Return("", verr)

	_, err := svc.Record(context.Background(), "x", decimal.Zero, core.NewDate(2026, 10, 1))
	var target *core.ValidationError
	require.ErrorAs(t, err, &target)
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
	assert.Empty(t, svc.Snapshot())
}

func TestRecordPublishesAndIgnoresPublishFailure(t *testing.T) {
	pub := &mockPublisher{}
	svc, cl := newService(t, WithPublisher(pub))
	cl.On("Classify", mock.Anything, mock.Anything, mock.Anything).Return("Food", nil)
	pub.On("PublishExpenseRecorded", mock.Anything, 1, mock.AnythingOfType("core.Expense")).Return(errors.New("broker down")).Once()
	pub.On("PublishExpenseRecorded", mock.Anything, 2, mock.AnythingOfType("core.Expense")).Return(nil).Once()

	_, err := svc.Record(context.Background(), "a", core.MustAmount("1"), core.Date{})
	require.NoError(t, err)
	_, err = svc.Record(context.Background(), "b", core.MustAmount("2"), core.Date{})
	require.NoError(t, err)

	assert.Len(t, svc.Snapshot(), 2)
	pub.AssertExpectations(t)
}

func TestClear(t *testing.T) {
	pub := &mockPublisher{}
	svc, cl := newService(t, WithPublisher(pub))
	cl.On("Classify", mock.Anything, mock.Anything, mock.Anything).Return("Food", nil)
	pub.On("PublishExpenseRecorded", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	pub.On("PublishLedgerCleared", mock.Anything, 2).Return(nil).Once()

	for _, d := range []string{"a", "b"} {
		_, err := svc.Record(context.Background(), d, core.MustAmount("1"), core.Date{})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, svc.Clear(context.Background()))
	assert.Empty(t, svc.Snapshot())
	pub.AssertExpectations(t)
}

func TestInsightsUsesServiceClock(t *testing.T) {
	svc, cl := newService(t)
	cl.On("Classify", mock.Anything, "rent", mock.Anything).Return("Housing", nil)
	cl.On("Classify", mock.Anything, "snacks", mock.Anything).Return("Food", nil)

	_, err := svc.Record(context.Background(), "rent", core.MustAmount("900"), core.NewDate(2026, 10, 1))
	require.NoError(t, err)
	_, err = svc.Record(context.Background(), "snacks", core.MustAmount("100"), core.NewDate(2026, 9, 30))
	require.NoError(t, err)

	r := svc.Insights(core.BudgetContext{MonthlyBudget: core.MustAmount("1000")}, core.SavingsGoalContext{})
	assert.True(t, r.Budget.TotalSpent.Equal(core.MustAmount("900")))
	assert.Equal(t, 10, r.Budget.Month)
	require.Len(t, r.Recommendations, 1)
	assert.Equal(t, "Housing", r.Recommendations[0].Category)
	assert.Equal(t, analytics.GoalNotConfigured, r.Savings.Status)
}

func TestExportCSV(t *testing.T) {
	svc, cl := newService(t)
	var buf bytes.Buffer
	_, err := svc.ExportCSV(&buf)
	assert.ErrorIs(t, err, ErrEmptyLedger)
	assert.Zero(t, buf.Len())

	cl.On("Classify", mock.Anything, mock.Anything, mock.Anything).Return("Food", nil)
	_, err = svc.Record(context.Background(), "tea", core.MustAmount("2.5"), core.NewDate(2026, 10, 3))
	require.NoError(t, err)

	n, err := svc.ExportCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "Date,Description,Amount,Predicted Category\n2026-10-03,tea,2.5,Food\n", buf.String())
}

func TestExportSheet(t *testing.T) {
	svc, _ := newService(t)
	_, _, err := svc.ExportSheet(context.Background())
	assert.ErrorIs(t, err, ErrExportNotEnabled)

	store := memory.New()
	svc, cl := newService(t, WithExporter(store))
	_, _, err = svc.ExportSheet(context.Background())
	assert.ErrorIs(t, err, ErrEmptyLedger)

	cl.On("Classify", mock.Anything, mock.Anything, mock.Anything).Return("Food", nil)
	_, err = svc.Record(context.Background(), "tea", core.MustAmount("2.5"), core.NewDate(2026, 10, 3))
	require.NoError(t, err)

	ref, n, err := svc.ExportSheet(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "mem:1:1", ref)
	assert.Equal(t, 1, n)
	assert.Len(t, store.Rows(), 2)
}
