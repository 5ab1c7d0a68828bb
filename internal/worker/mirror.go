// Package worker mirrors the server's ledger into an exporter by replaying
// the ledger events it publishes.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"spendsense/internal/amqp"
	"spendsense/internal/cache"
	"spendsense/internal/ledger"
	"spendsense/internal/log"
	"spendsense/internal/sheets"
)

const (
	seenEventsSize = 4096
	seenEventsTTL  = time.Hour

	DefaultFlushInterval = 30 * time.Second
)

// Mirror keeps a replica ledger in step with the event stream and pushes
// it to the exporter whenever it changed. Redelivered events are applied
// once.
type Mirror struct {
	replica  *ledger.Ledger
	exporter sheets.LedgerExporter
	seen     *cache.LRUCache[struct{}]
	logger   *log.Logger

	mu    sync.Mutex
	dirty bool
}

func NewMirror(exporter sheets.LedgerExporter, logger *log.Logger) *Mirror {
	if logger == nil {
		logger = log.Discard()
	}
	return &Mirror{
		replica:  ledger.New(),
		exporter: exporter,
		seen:     cache.NewLRUCache[struct{}](seenEventsSize, seenEventsTTL),
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// SeenEvents exposes the dedup cache so it can be swept periodically.
func (m *Mirror) SeenEvents() cache.Cleaner {
	return m.seen
}

// HandleEvent applies one ledger event to the replica. Events that can
// never apply wrap amqp.ErrInvalidEvent.
func (m *Mirror) HandleEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	if ev.ID != "" {
		if _, dup := m.seen.Get(ev.ID); dup {
			m.logger.DebugContext(ctx, "Skipping redelivered event", "event_id", ev.ID)
			return nil
		}
	}

	switch ev.Type {
	case amqp.EventExpenseRecorded:
		if ev.Expense == nil {
			return fmt.Errorf("event %s: missing expense: %w", ev.ID, amqp.ErrInvalidEvent)
		}
		if err := ev.Expense.Validate(); err != nil {
			return fmt.Errorf("event %s: %v: %w", ev.ID, err, amqp.ErrInvalidEvent)
		}
		pos := m.replica.Append(*ev.Expense)
		if ev.Position != 0 && pos != ev.Position {
			m.logger.WarnContext(ctx, "Replica position differs from source",
				log.FieldPosition, ev.Position,
				"replica_position", pos)
		}

	case amqp.EventLedgerCleared:
		n := m.replica.Clear()
		if n != ev.Dropped {
			m.logger.WarnContext(ctx, "Replica size differed from source at clear",
				"source_dropped", ev.Dropped,
				"replica_dropped", n)
		}

	default:
		m.logger.WarnContext(ctx, "Ignoring unknown event type", "type", ev.Type, "event_id", ev.ID)
		return nil
	}

	if ev.ID != "" {
		m.seen.Set(ev.ID, struct{}{})
	}
	m.mu.Lock()
	m.dirty = true
	m.mu.Unlock()

	m.logger.DebugContext(ctx, "Applied ledger event",
		log.FieldOperation, log.OpReplay,
		"type", ev.Type,
		log.FieldCount, m.replica.Len())
	return nil
}

// Flush exports the replica if it changed since the last successful
// flush. It reports whether an export happened.
func (m *Mirror) Flush(ctx context.Context) (bool, error) {
	m.mu.Lock()
	dirty := m.dirty
	m.dirty = false
	m.mu.Unlock()
	if !dirty {
		return false, nil
	}

	records := m.replica.Snapshot()
	ref, err := m.exporter.Export(ctx, records)
	if err != nil {
		m.mu.Lock()
		m.dirty = true
		m.mu.Unlock()
		return false, fmt.Errorf("flush replica: %w", err)
	}

	m.logger.InfoContext(ctx, "Replica exported",
		log.FieldOperation, log.OpExport,
		log.FieldCount, len(records),
		"ref", ref)
	return true, nil
}

// Run flushes every interval until ctx is done, then flushes once more
// with a fresh context so the last changes are not lost.
func (m *Mirror) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if _, err := m.Flush(final); err != nil {
				m.logger.Error("Final flush failed", log.FieldError, err)
			}
			return
		case <-ticker.C:
			if _, err := m.Flush(ctx); err != nil {
				m.logger.ErrorContext(ctx, "Periodic flush failed", log.FieldError, err)
			}
		}
	}
}

// Len is the replica size.
func (m *Mirror) Len() int {
	return m.replica.Len()
}
