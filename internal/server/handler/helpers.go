// Package handler contains the HTTP handlers for the public API. Each
// handler declares the service interface it requires locally so the package
// never depends on concrete service implementations.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/solspore/gaming/internal/domain"
)

// errorBody is the wire shape of every error response.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal","message":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a machine-readable error response with a kind and a
// human-readable message.
func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorBody{Error: kind, Message: message})
}

// writeDomainError maps a service error onto the API's error kinds.
// Unrecognized errors are logged and reported as internal.
func writeDomainError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrMarketNotFound):
		writeError(w, http.StatusNotFound, "market_not_found", "market not found")
	case errors.Is(err, domain.ErrMarketClosed):
		writeError(w, http.StatusConflict, "market_closed", "market close time has passed")
	case errors.Is(err, domain.ErrInvalidOutcome):
		writeError(w, http.StatusBadRequest, "invalid_outcome", "outcome must be yes or no")
	case errors.Is(err, domain.ErrInvalidStake):
		writeError(w, http.StatusBadRequest, "invalid_stake", "stake must be a positive amount")
	case errors.Is(err, domain.ErrMissingFields):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, domain.ErrPaymentUnverified):
		writeError(w, http.StatusPaymentRequired, "payment_unverified", "payment could not be verified on the rail")
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests, slow down")
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid credentials")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", "insufficient privileges")
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "conflict", "resource already exists")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "resource not found")
	default:
		if mu, ok := domain.IsMarketUnavailable(err); ok {
			writeError(w, http.StatusConflict, "market_unavailable", mu.Error())
			return
		}
		logger.ErrorContext(r.Context(), "handler: internal error",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}

// decodeJSON reads the request body into dst, rejecting unknown garbage
// with a 400. Returns false when a response has already been written.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return false
	}
	return true
}

// parseListOpts extracts standard pagination parameters from the query string.
// Defaults: limit=50 (max 500), offset=0.
func parseListOpts(r *http.Request) domain.ListOpts {
	q := r.URL.Query()

	limit := 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 500 {
		limit = 500
	}

	offset := 0
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return domain.ListOpts{
		Limit:  limit,
		Offset: offset,
	}
}

// pathParam extracts a named path parameter from the request using Go 1.22+
// built-in routing (http.Request.PathValue).
func pathParam(r *http.Request, name string) string {
	return r.PathValue(name)
}

// parseTime parses an RFC 3339 timestamp from a request body field.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
