package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"fintrack/internal/apperrors"
	"fintrack/internal/core"
	"fintrack/internal/export"
	"fintrack/internal/log"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// parsePeriod reads year and month from the query. A missing value falls back
// to the current period; a non-numeric one is an error.
func parsePeriod(r *http.Request, current core.Period) (core.Period, error) {
	p := current
	q := r.URL.Query()
	if v := strings.TrimSpace(q.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return core.Period{}, apperrors.InvalidArgument("parse period", "year %q is not a number", v)
		}
		p.Year = y
	}
	if v := strings.TrimSpace(q.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			return core.Period{}, apperrors.InvalidArgument("parse period", "month %q is not a number", v)
		}
		p.Month = m
	}
	return p, nil
}

func parseID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.InvalidArgument("parse id", "invalid transaction id %q", raw)
	}
	return id, nil
}

// statusFor maps error kinds to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperrors.ErrNotFound), errors.Is(err, export.ErrNothingToExport):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrStore):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError logs server-side failures and writes the JSON error body.
// Internal details of 5xx errors are not echoed to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	logger := log.FromContext(r.Context()).WithComponent(log.ComponentHTTP)

	body := errorResponse{Error: err.Error(), Fields: apperrors.FieldsOf(err)}
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", log.FieldPath, r.URL.Path, log.FieldError, err)
		body.Error = http.StatusText(status)
	} else {
		logger.DebugContext(r.Context(), "Request rejected", log.FieldPath, r.URL.Path, log.FieldError, err)
	}
	writeJSON(w, status, body)
}
