package http

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"spendsense/internal/analytics"
	"spendsense/internal/core"
	"spendsense/internal/log"
)

const readyTimeout = 2 * time.Second

// listResponse is the GET /expenses body.
type listResponse struct {
	Expenses   []core.Expense            `json:"expenses"`
	Count      int                       `json:"count"`
	From       *core.Date                `json:"from,omitempty"`
	To         *core.Date                `json:"to,omitempty"`
	Total      decimal.Decimal           `json:"total"`
	Trend      []analytics.DailyTotal    `json:"trend"`
	Categories []categoryCount           `json:"categories"`
	Totals     []analytics.CategoryTotal `json:"totals"`
}

type categoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

type clearResponse struct {
	Dropped int `json:"dropped"`
}

type sheetExportResponse struct {
	Ref     string `json:"ref"`
	Records int    `json:"records"`
}

type tipResponse struct {
	Question string `json:"question"`
	Tip      string `json:"tip"`
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	in, err := parseCreateExpense(r)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	rec, err := s.svc.Record(ctx, in.Description, in.Amount, in.Date)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.Header().Set("Location", "/expenses?from="+rec.Expense.Date.String()+"&to="+rec.Expense.Date.String())
	writeJSON(ctx, w, http.StatusCreated, rec)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rng, err := parseRange(r.URL.Query())
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	records := s.svc.Snapshot()
	resp := listResponse{
		Expenses:   records,
		Trend:      make([]analytics.DailyTotal, 0),
		Categories: make([]categoryCount, 0),
		Totals:     make([]analytics.CategoryTotal, 0),
	}
	if lo, hi, ok := analytics.DefaultRange(records); ok {
		from, to := rng.resolve(lo, hi)
		resp.Expenses = analytics.FilterByRange(records, from, to)
		resp.From, resp.To = &from, &to
	} else {
		resp.From, resp.To = rng.From, rng.To
	}

	resp.Count = len(resp.Expenses)
	resp.Total = analytics.Total(resp.Expenses)
	resp.Trend = analytics.GroupByDate(resp.Expenses)
	resp.Totals = analytics.SortCategoryTotals(analytics.GroupByCategory(resp.Expenses))
	for cat, n := range analytics.CountByCategory(resp.Expenses) {
		resp.Categories = append(resp.Categories, categoryCount{Category: cat, Count: n})
	}
	sort.Slice(resp.Categories, func(i, j int) bool {
		return resp.Categories[i].Category < resp.Categories[j].Category
	})

	writeJSON(ctx, w, http.StatusOK, resp)
}

func (s *Server) handleClearExpenses(w http.ResponseWriter, r *http.Request) {
	n := s.svc.Clear(r.Context())
	writeJSON(r.Context(), w, http.StatusOK, clearResponse{Dropped: n})
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var buf bytes.Buffer
	n, err := s.svc.ExportCSV(&buf)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="expenses.csv"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to write CSV export", log.FieldError, err)
		return
	}
	log.FromContext(ctx).InfoContext(ctx, "Ledger exported as CSV", log.FieldOperation, log.OpExport, log.FieldCount, n)
}

func (s *Server) handleExportSheet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ref, n, err := s.svc.ExportSheet(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, sheetExportResponse{Ref: ref, Records: n})
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	budget, goal, err := parseContexts(r.URL.Query())
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	report := s.svc.Insights(budget, goal)
	log.FromContext(ctx).DebugContext(ctx, "Insights evaluated",
		log.FieldOperation, log.OpEvaluate,
		"entries", report.Budget.Entries,
		"configured", report.Budget.Configured)
	writeJSON(ctx, w, http.StatusOK, report)
}

func (s *Server) handleTips(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := sanitizeInput(r.URL.Query().Get("q"))
	tip, err := analytics.Tip(q)
	if err != nil {
		writeServiceError(ctx, w, &core.ValidationError{Field: "q", Err: err})
		return
	}
	writeJSON(ctx, w, http.StatusOK, tipResponse{Question: q, Tip: tip})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	for i, check := range s.ready {
		if err := check(ctx); err != nil {
			log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", "check", i, log.FieldError, err)
			http.Error(w, fmt.Sprintf("not ready: %v", err), http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
