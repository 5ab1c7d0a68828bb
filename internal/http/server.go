// Package http exposes the ledger service as a JSON API.
package http

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"spendsense/internal/analytics"
	"spendsense/internal/core"
	"spendsense/internal/log"
	"spendsense/internal/services"
)

// LedgerService is the part of *services.LedgerService the API serves.
type LedgerService interface {
	Record(ctx context.Context, description string, amount decimal.Decimal, date core.Date) (services.Recorded, error)
	Clear(ctx context.Context) int
	Snapshot() []core.Expense
	Insights(budget core.BudgetContext, goal core.SavingsGoalContext) analytics.Report
	ExportCSV(w io.Writer) (int, error)
	ExportSheet(ctx context.Context) (string, int, error)
}

// ReadinessCheck reports whether a dependency is able to serve.
type ReadinessCheck func(ctx context.Context) error

type Server struct {
	http.Server
	svc         LedgerService
	rateLimiter *rateLimiter
	metrics     *securityMetrics
	logger      *log.Logger
	ready       []ReadinessCheck

	shutdownOnce sync.Once
}

// Option configures a Server.
type Option func(*Server)

func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l.WithComponent(log.ComponentHTTP)
		}
	}
}

// WithRateLimit caps POST and DELETE requests per client per minute.
func WithRateLimit(perMinute int) Option {
	return func(s *Server) { s.rateLimiter = newRateLimiter(perMinute) }
}

// WithReadinessCheck adds a check to /readyz.
func WithReadinessCheck(c ReadinessCheck) Option {
	return func(s *Server) { s.ready = append(s.ready, c) }
}

// NewServer configures routes, returning a ready-to-run http.Server.
func NewServer(addr string, svc LedgerService, opts ...Option) *Server {
	s := &Server{
		svc:         svc,
		rateLimiter: newRateLimiter(defaultRateLimit),
		metrics:     &securityMetrics{},
		logger:      log.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /expenses", s.handleCreateExpense)
	mux.HandleFunc("GET /expenses", s.handleListExpenses)
	mux.HandleFunc("DELETE /expenses", s.handleClearExpenses)
	mux.HandleFunc("GET /expenses/export", s.handleExportCSV)
	mux.HandleFunc("POST /expenses/export/sheet", s.handleExportSheet)
	mux.HandleFunc("GET /insights", s.handleInsights)
	mux.HandleFunc("GET /tips", s.handleTips)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.instrument(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.rateLimiter.start()
	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
		s.logger.Info("HTTP server stopped",
			log.FieldOperation, log.OpShutdown,
			"rate_limit_hits", s.metrics.rateLimitHitsCount(),
			"suspicious_requests", s.metrics.suspiciousCount())
	})
	return shutdownErr
}
