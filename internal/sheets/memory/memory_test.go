package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendsense/internal/core"
)

func TestStoreExportReplacesTable(t *testing.T) {
	s := New()
	ctx := context.Background()

	ref, err := s.Export(ctx, []core.Expense{
		{Date: core.NewDate(2026, 10, 1), Description: "coffee", Amount: core.MustAmount("3.5"), Category: "Food"},
		{Date: core.NewDate(2026, 10, 2), Description: "bus", Amount: core.MustAmount("2"), Category: "Transport"},
	})
	require.NoError(t, err)
	assert.Equal(t, "mem:1:2", ref)

	rows := s.Rows()
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Date", "Description", "Amount", "Predicted Category"}, rows[0])
	assert.Equal(t, []string{"2026-10-01", "coffee", "3.5", "Food"}, rows[1])

	ref, err = s.Export(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "mem:2:0", ref)
	assert.Len(t, s.Rows(), 1)
	assert.Equal(t, 2, s.Exports())
}

func TestStoreExportRejectsInvalidRecord(t *testing.T) {
	s := New()
	_, err := s.Export(context.Background(), []core.Expense{{Date: core.NewDate(2026, 10, 1), Description: "", Amount: core.MustAmount("1")}})
	assert.ErrorIs(t, err, core.ErrEmptyDescription)
	assert.Equal(t, 0, s.Exports())
}
