// Package api provides HTTP handlers for the coaching API.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/ashureev/coachline/internal/session"
	"github.com/ashureev/coachline/internal/transport"
)

// maxRequestBodySize is the maximum allowed request body size (1MB).
const maxRequestBodySize = 1 << 20

// Handler provides common handler utilities.
type Handler struct {
	logger *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// decode reads a JSON body into v. An empty body leaves v untouched when
// allowEmpty is set.
func decode(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) && allowEmpty {
		return nil
	}
	if err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// sessionError maps orchestrator and provider errors to a status code.
func (h *Handler) sessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrInvalidMode),
		errors.Is(err, session.ErrInvalidLevel),
		errors.Is(err, session.ErrScriptRequired):
		Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrScriptNotFound):
		Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, transport.ErrProvider):
		h.logger.Error("Call provider request failed", "error", err)
		Error(w, http.StatusBadGateway, "call provider unavailable")
	case errors.Is(err, session.ErrShuttingDown):
		Error(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.logger.Error("Session request failed", "error", err)
		Error(w, http.StatusInternalServerError, "internal error")
	}
}
