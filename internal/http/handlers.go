package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"fintrack/internal/apperrors"
	"fintrack/internal/core"
	"fintrack/internal/export"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

type breakdownResponse struct {
	Period     core.Period    `json:"period"`
	Categories core.Breakdown `json:"categories"`
}

type historyResponse struct {
	Limit        string               `json:"limit"`
	Transactions []core.HistoryRecord `json:"transactions"`
}

type trendResponse struct {
	Months int               `json:"months"`
	Points []core.TrendPoint `json:"points"`
}

type categoriesResponse struct {
	Categories []string `json:"categories"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	p, err := parsePeriod(r, s.engine.CurrentPeriod())
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	mb, err := s.engine.MonthlyBalance(ctx, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mb)
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	p, err := parsePeriod(r, s.engine.CurrentPeriod())
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	b, err := s.engine.ExpenseBreakdown(ctx, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, breakdownResponse{Period: p, Categories: b})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := core.LimitOf(s.opts.HistoryLimit)
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := core.ParseLimit(raw)
		if err != nil {
			writeError(w, r, apperrors.InvalidArgument("transaction history", "%v", err))
			return
		}
		limit = parsed
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	records, err := s.engine.TransactionHistory(ctx, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{Limit: limit.String(), Transactions: records})
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	months := s.opts.TrendMonths
	if raw := strings.TrimSpace(r.URL.Query().Get("months")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, apperrors.InvalidArgument("monthly trend", "months %q is not a number", raw))
			return
		}
		months = n
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	points, err := s.engine.MonthlyTrend(ctx, months)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trendResponse{Months: months, Points: points})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	cats, err := s.service.Categories(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categoriesResponse{Categories: cats})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var in services.RecordInput
	if err := dec.Decode(&in); err != nil {
		writeError(w, r, apperrors.InvalidArgument("record transaction", "malformed JSON body: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	t, err := s.service.Record(ctx, in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	log.FromContext(ctx).InfoContext(ctx, "Transaction recorded via API",
		log.FieldTransactionID, t.ID,
		log.FieldCategory, t.Category,
		log.FieldKind, t.Kind.String())
	w.Header().Set("Location", fmt.Sprintf("/api/transactions/%d", t.ID))
	writeJSON(w, http.StatusCreated, core.RecordOf(t))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	t, err := s.service.Get(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, core.RecordOf(t))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := s.service.Delete(ctx, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleExport renders into a buffer first so a failure can still produce a
// JSON error instead of a truncated CSV.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var buf bytes.Buffer
	n, err := export.Export(ctx, s.engine, &buf)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="transactions.csv"`)
	w.Header().Set("X-Row-Count", strconv.Itoa(n))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
