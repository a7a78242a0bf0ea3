// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/concert-ticketing/internal/model"
)

// Error codes returned in the JSON error envelope.
const (
	codeInvalidBody  = "INVALID_BODY"
	codeValidation   = "VALIDATION_ERROR"
	codeNotFound     = "NOT_FOUND"
	codeConflict     = "CONFLICT"
	codeGateway      = "GATEWAY_ERROR"
	codeUnauthorized = "UNAUTHORIZED"
	codeForbidden    = "FORBIDDEN"
	codeInternal     = "INTERNAL_ERROR"
)

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, code string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg, Code: code})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeServiceError maps a service error onto its HTTP status. Unexpected
// errors are logged and hidden behind a generic message.
func writeServiceError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, model.ErrValidation):
		writeError(w, http.StatusBadRequest, model.Message(err, err.Error()), codeValidation)
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, model.Message(err, "not found"), codeNotFound)
	case errors.Is(err, model.ErrConflict):
		writeError(w, http.StatusConflict, model.Message(err, "conflict"), codeConflict)
	case errors.Is(err, model.ErrGateway):
		log.Warn("payment gateway error", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusBadGateway, model.Message(err, "payment gateway unavailable"), codeGateway)
	case errors.Is(err, model.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized", codeUnauthorized)
	case errors.Is(err, model.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", codeForbidden)
	default:
		log.Error(fallback, zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, fallback, codeInternal)
	}
}

// ─── Health check ─────────────────────────────────────────────────────────────

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves GET /health.
type HealthHandler struct {
	db  Pinger
	log *zap.Logger
}

// NewHealthHandler constructs a HealthHandler.
func NewHealthHandler(db Pinger, log *zap.Logger) *HealthHandler {
	return &HealthHandler{db: db, log: log}
}

// HealthCheck handles GET /health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		h.log.Warn("health check: database unreachable", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "database": "down"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": "up"})
}
