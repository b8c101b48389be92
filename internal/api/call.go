package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/ashureev/coachline/internal/identity"
	"github.com/ashureev/coachline/internal/transport"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// CallHandler exposes the call provider to browser clients.
type CallHandler struct {
	*Handler
	calls    transport.CallProvider
	tokens   *transport.Tokens
	apiKey   string
	tokenTTL time.Duration
	sessions Sessions
}

// NewCallHandler creates a call handler.
func NewCallHandler(base *Handler, calls transport.CallProvider, tokens *transport.Tokens, apiKey string, tokenTTL time.Duration, sessions Sessions) *CallHandler {
	return &CallHandler{
		Handler:  base,
		calls:    calls,
		tokens:   tokens,
		apiKey:   apiKey,
		tokenTTL: tokenTTL,
		sessions: sessions,
	}
}

// RegisterRoutes registers call routes.
func (h *CallHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/call", func(r chi.Router) {
		r.Get("/token", h.Token)
		r.Post("/create", h.CreateCall)
		r.Post("/join", h.JoinCall)
	})
}

// Token issues a client token. The learner's anonymous id is used unless
// user_id is given.
func (h *CallHandler) Token(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		userID = identity.UserIDFromContext(r.Context())
	}
	if userID == "" {
		Error(w, http.StatusBadRequest, "user_id is required")
		return
	}

	token, err := h.tokens.UserToken(userID, h.tokenTTL)
	if err != nil {
		h.logger.Error("Failed to sign call token", "error", err, "user_id", userID)
		h.sessionError(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]string{
		"token":   token,
		"user_id": userID,
		"api_key": h.apiKey,
	})
}

type createCallRequest struct {
	CallType string `json:"call_type"`
}

// CreateCall creates a call with a fresh id.
func (h *CallHandler) CreateCall(w http.ResponseWriter, r *http.Request) {
	var req createCallRequest
	if err := decode(w, r, &req, true); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	call, err := h.calls.GetOrCreateCall(r.Context(), req.CallType, uuid.NewString())
	if err != nil {
		h.sessionError(w, err)
		return
	}
	JSON(w, http.StatusOK, call)
}

type joinCallRequest struct {
	CallID string `json:"call_id"`
}

// JoinCall brings the default coach into an existing call.
func (h *CallHandler) JoinCall(w http.ResponseWriter, r *http.Request) {
	var req joinCallRequest
	if err := decode(w, r, &req, false); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.CallID) == "" {
		Error(w, http.StatusBadRequest, "call_id is required")
		return
	}

	job, err := h.sessions.Join(r.Context(), req.CallID)
	if err != nil {
		h.sessionError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]string{
		"status":  "joining",
		"call_id": job.SessionID(),
		"message": "Agent is joining the call",
	})
}
