// Package http serves the ledger and its monthly aggregates as a JSON API.
package http

import (
	"context"
	"net/http"
	"time"

	"fintrack/internal/analytics"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
)

// requestTimeout bounds the store work of a single request.
const requestTimeout = 7 * time.Second

// Options tunes the server. Zero values fall back to the defaults below.
type Options struct {
	HistoryLimit int
	TrendMonths  int
	Logger       *log.Logger
	// Ready reports whether dependencies can serve traffic; nil means always.
	Ready func(ctx context.Context) error
}

type Server struct {
	http.Server
	engine  *analytics.Engine
	service *services.TransactionService
	opts    Options
	logger  *log.Logger
	tracer  *trace.Middleware
}

// NewServer configures routes and returns a ready-to-run http.Server.
func NewServer(addr string, engine *analytics.Engine, service *services.TransactionService, opts Options) *Server {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = core.DefaultHistoryLimit
	}
	if opts.TrendMonths <= 0 {
		opts.TrendMonths = analytics.DefaultTrendMonths
	}
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}

	s := &Server{
		engine:  engine,
		service: service,
		opts:    opts,
		logger:  opts.Logger.WithComponent(log.ComponentHTTP),
		tracer:  trace.NewMiddleware(opts.Logger),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/breakdown", s.handleBreakdown)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/trend", s.handleTrend)
	mux.HandleFunc("GET /api/categories", s.handleCategories)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("GET /api/export.csv", s.handleExport)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.tracer.Middleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Metrics exposes the request counters of the trace middleware.
func (s *Server) Metrics() trace.Metrics {
	return s.tracer.GetMetrics()
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Shutting down HTTP server")
	return s.Server.Shutdown(ctx)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.opts.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.opts.Ready(ctx); err != nil {
			s.logger.WarnContext(ctx, "Readiness check failed", log.FieldError, err)
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "not ready"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
