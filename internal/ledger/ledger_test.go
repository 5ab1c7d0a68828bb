package ledger

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendsense/internal/core"
)

func rec(y, m, d int, desc, amount, cat string) core.Expense {
	return core.Expense{Date: core.NewDate(y, m, d), Description: desc, Amount: core.MustAmount(amount), Category: cat}
}

func TestAppendKeepsInsertionOrder(t *testing.T) {
	l := New()
	assert.Equal(t, 1, l.Append(rec(2026, 10, 5, "b", "2", "Food")))
	// Backdated entry still goes to the end.
	assert.Equal(t, 2, l.Append(rec(2026, 9, 1, "a", "1", "Food")))
	assert.Equal(t, 3, l.Append(rec(2026, 9, 1, "a", "1", "Food")))

	snap := l.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "b", snap[0].Description)
	assert.Equal(t, "a", snap[1].Description)
	assert.Equal(t, snap[1], snap[2], "no deduplication")
}

func TestSnapshotIsIdempotentAndDetached(t *testing.T) {
	l := New()
	l.Append(rec(2026, 10, 1, "x", "5", "Other"))

	first := l.Snapshot()
	second := l.Snapshot()
	assert.Equal(t, first, second)

	first[0].Description = "mutated"
	assert.Equal(t, "x", l.Snapshot()[0].Description)
}

func TestClear(t *testing.T) {
	l := New()
	l.Append(rec(2026, 10, 1, "x", "5", "Other"))
	l.Append(rec(2026, 10, 2, "y", "6", "Other"))

	assert.Equal(t, 2, l.Clear())
	assert.Equal(t, 0, l.Len())
	assert.Empty(t, l.Snapshot())
	assert.Equal(t, 0, l.Clear())
}

func TestConcurrentAppendAndSnapshot(t *testing.T) {
	l := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			l.Append(rec(2026, 10, 1, "x", "1", "Food"))
		}()
		go func() {
			defer wg.Done()
			_ = l.Snapshot()
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, l.Len())
}

func TestCSVRoundTrip(t *testing.T) {
	records := []core.Expense{
		rec(2026, 10, 3, "Dinner, with friends", "1250.50", "Food"),
		rec(2026, 9, 28, `Quoted "taxi"`, "300", "Transport"),
		rec(2026, 10, 1, "Rent", "15000", "Housing"),
		{Date: core.NewDate(2026, 10, 2), Description: "Free sample", Amount: decimal.Zero, Category: "Other"},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, records))
	assert.True(t, strings.HasPrefix(buf.String(), "Date,Description,Amount,Predicted Category\n"))

	got, err := ReadCSV(&buf)
	require.NoError(t, err)
	require.Len(t, got, len(records))
	for i := range records {
		assert.True(t, records[i].Date.Equal(got[i].Date))
		assert.Equal(t, records[i].Description, got[i].Description)
		assert.True(t, records[i].Amount.Equal(got[i].Amount))
		assert.Equal(t, records[i].Category, got[i].Category)
	}
}

func TestReadCSVErrors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("When,What,How much,Category\n"))
	assert.ErrorIs(t, err, ErrBadHeader)

	_, err = ReadCSV(strings.NewReader("Date,Description,Amount,Predicted Category\n2026-13-01,x,1,Food\n"))
	assert.ErrorIs(t, err, core.ErrInvalidDate)

	_, err = ReadCSV(strings.NewReader("Date,Description,Amount,Predicted Category\n2026-10-01,x,abc,Food\n"))
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	_, err = ReadCSV(strings.NewReader("Date,Description,Amount,Predicted Category\n2026-10-01,x,-5,Food\n"))
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	got, err := ReadCSV(strings.NewReader("Date,Description,Amount,Predicted Category\n"))
	require.NoError(t, err)
	assert.Empty(t, got)
}
