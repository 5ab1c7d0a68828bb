package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"spendsense/internal/core"
)

// Event types, also used as the routing key suffix.
const (
	EventExpenseRecorded = "expense.recorded"
	EventLedgerCleared   = "ledger.cleared"
)

// LedgerEvent notifies subscribers of a ledger mutation. Expense and
// Position are set for recorded events, Dropped for cleared ones.
type LedgerEvent struct {
	ID        string        `json:"id"`
	Type      string        `json:"type"`
	Position  int           `json:"position,omitempty"`
	Expense   *core.Expense `json:"expense,omitempty"`
	Dropped   int           `json:"dropped,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// NewExpenseRecorded creates the event for a record appended at position.
func NewExpenseRecorded(position int, e core.Expense) *LedgerEvent {
	return &LedgerEvent{
		ID:        uuid.NewString(),
		Type:      EventExpenseRecorded,
		Position:  position,
		Expense:   &e,
		Timestamp: time.Now().UTC(),
	}
}

// NewLedgerCleared creates the event for a clear that dropped n records.
func NewLedgerCleared(dropped int) *LedgerEvent {
	return &LedgerEvent{
		ID:        uuid.NewString(),
		Type:      EventLedgerCleared,
		Dropped:   dropped,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON parses an event body.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
