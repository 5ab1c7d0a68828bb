// Package ledger holds the classified expenses of one interactive session.
package ledger

import (
	"sync"

	"spendsense/internal/core"
)

// Ledger is an ordered, append-only collection of expenses. Insertion order
// is entry order, which is not necessarily date order.
//
// The HTTP server serves concurrent requests against one ledger, so every
// operation runs under the same lock and a snapshot never observes a
// partially applied append or clear.
type Ledger struct {
	mu      sync.RWMutex
	records []core.Expense
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{}
}

// Append adds rec to the end and returns its 1-based position. No
// deduplication or validation happens here.
func (l *Ledger) Append(rec core.Expense) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
	return len(l.records)
}

// Clear empties the ledger and reports how many records were dropped.
func (l *Ledger) Clear() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.records)
	l.records = nil
	return n
}

// Snapshot returns a copy of the records in insertion order.
func (l *Ledger) Snapshot() []core.Expense {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]core.Expense, len(l.records))
	copy(out, l.records)
	return out
}

// Len returns the number of records.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}
