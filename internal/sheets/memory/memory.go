// Package memory is an in-process LedgerExporter used when no spreadsheet
// is configured and in tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"spendsense/internal/core"
	"spendsense/internal/ledger"
	ports "spendsense/internal/sheets"
)

var _ ports.LedgerExporter = (*Store)(nil)

type Store struct {
	mu      sync.Mutex
	rows    [][]string
	exports int
}

func New() *Store {
	return &Store{}
}

// Export replaces the stored table with the header and records.
func (s *Store) Export(_ context.Context, records []core.Expense) (string, error) {
	for i, r := range records {
		if err := r.Validate(); err != nil {
			return "", fmt.Errorf("record %d: %w", i+1, err)
		}
	}
	rows := append([][]string{append([]string(nil), ledger.Header...)}, ledger.Rows(records)...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = rows
	s.exports++
	return fmt.Sprintf("mem:%d:%d", s.exports, len(records)), nil
}

// Rows returns a copy of the last exported table, header first.
func (s *Store) Rows() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]string, len(s.rows))
	for i, r := range s.rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

// Exports counts successful exports.
func (s *Store) Exports() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exports
}
