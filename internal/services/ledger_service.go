package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"spendsense/internal/analytics"
	"spendsense/internal/core"
	"spendsense/internal/ledger"
	"spendsense/internal/log"
	"spendsense/internal/sheets"
)

var (
	ErrEmptyLedger      = errors.New("ledger is empty")
	ErrExportNotEnabled = errors.New("sheet export not configured")
)

// Classifier assigns a category to validated input.
type Classifier interface {
	Classify(ctx context.Context, description string, amount decimal.Decimal) (string, error)
}

// EventPublisher announces ledger mutations to other systems.
type EventPublisher interface {
	PublishExpenseRecorded(ctx context.Context, position int, e core.Expense) error
	PublishLedgerCleared(ctx context.Context, dropped int) error
}

// LedgerService owns the session ledger and orchestrates classification,
// storage and notification. The publisher and exporter are optional.
type LedgerService struct {
	ledger     *ledger.Ledger
	classifier Classifier
	publisher  EventPublisher
	exporter   sheets.LedgerExporter
	logger     *log.Logger
	now        func() time.Time
}

// Option configures a LedgerService.
type Option func(*LedgerService)

func WithPublisher(p EventPublisher) Option {
	return func(s *LedgerService) { s.publisher = p }
}

func WithExporter(e sheets.LedgerExporter) Option {
	return func(s *LedgerService) { s.exporter = e }
}

func WithLogger(l *log.Logger) Option {
	return func(s *LedgerService) {
		if l != nil {
			s.logger = l.WithComponent(log.ComponentLedger)
		}
	}
}

// WithClock replaces the wall clock used for default dates and insights.
func WithClock(now func() time.Time) Option {
	return func(s *LedgerService) { s.now = now }
}

func NewLedgerService(l *ledger.Ledger, c Classifier, opts ...Option) *LedgerService {
	s := &LedgerService{
		ledger:     l,
		classifier: c,
		logger:     log.Discard(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Recorded is the outcome of Record.
type Recorded struct {
	Position int          `json:"position"`
	Expense  core.Expense `json:"expense"`
}

// Record classifies the input and appends it. A zero date means today.
// Invalid input returns a *core.ValidationError and leaves the ledger
// untouched. Publishing is best effort.
func (s *LedgerService) Record(ctx context.Context, description string, amount decimal.Decimal, date core.Date) (Recorded, error) {
	if date.IsZero() {
		date = core.DateOf(s.now())
	}

	category, err := s.classifier.Classify(ctx, description, amount)
	if err != nil {
		return Recorded{}, fmt.Errorf("classify expense: %w", err)
	}

	rec := core.Expense{Date: date, Description: description, Amount: amount, Category: category}
	pos := s.ledger.Append(rec)

	s.logger.InfoContext(ctx, "Expense recorded", log.NewFields().
		WithOperation(log.OpAppend).
		WithExpense(rec.Description, rec.Amount.String(), rec.Category, rec.Date.String()).
		ToSlice()...)

	if s.publisher != nil {
		if err := s.publisher.PublishExpenseRecorded(ctx, pos, rec); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish expense event",
				log.FieldPosition, pos, log.FieldError, err)
		}
	}
	return Recorded{Position: pos, Expense: rec}, nil
}

// Clear empties the ledger and returns how many records were dropped.
func (s *LedgerService) Clear(ctx context.Context) int {
	n := s.ledger.Clear()
	s.logger.InfoContext(ctx, "Ledger cleared", log.FieldOperation, log.OpClear, log.FieldCount, n)

	if s.publisher != nil {
		if err := s.publisher.PublishLedgerCleared(ctx, n); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish clear event", log.FieldError, err)
		}
	}
	return n
}

func (s *LedgerService) Snapshot() []core.Expense {
	return s.ledger.Snapshot()
}

// Insights evaluates every analyzer over one snapshot at the service clock.
func (s *LedgerService) Insights(budget core.BudgetContext, goal core.SavingsGoalContext) analytics.Report {
	return analytics.Evaluate(s.ledger.Snapshot(), budget, goal, s.now())
}

// ExportCSV writes the ledger as CSV. An empty ledger is ErrEmptyLedger and
// nothing is written.
func (s *LedgerService) ExportCSV(w io.Writer) (int, error) {
	records := s.ledger.Snapshot()
	if len(records) == 0 {
		return 0, ErrEmptyLedger
	}
	if err := ledger.WriteCSV(w, records); err != nil {
		return 0, err
	}
	return len(records), nil
}

// ExportSheet pushes the ledger to the configured exporter.
func (s *LedgerService) ExportSheet(ctx context.Context) (string, int, error) {
	if s.exporter == nil {
		return "", 0, ErrExportNotEnabled
	}
	records := s.ledger.Snapshot()
	if len(records) == 0 {
		return "", 0, ErrEmptyLedger
	}
	ref, err := s.exporter.Export(ctx, records)
	if err != nil {
		return "", 0, fmt.Errorf("export ledger: %w", err)
	}
	s.logger.InfoContext(ctx, "Ledger exported", log.FieldOperation, log.OpExport, log.FieldCount, len(records), "ref", ref)
	return ref, len(records), nil
}
