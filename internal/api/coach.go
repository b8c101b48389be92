package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ashureev/coachline/internal/domain"
	"github.com/ashureev/coachline/internal/session"
	"github.com/go-chi/chi/v5"
)

// Sessions is the orchestrator surface used by the coach routes.
type Sessions interface {
	Start(ctx context.Context, req session.StartRequest) (*domain.SessionConfig, error)
	Join(ctx context.Context, sessionID string) (*session.Job, error)
	End(ctx context.Context, report domain.EndReport) error
	Status(sessionID string) (session.Snapshot, bool)
	VoiceAgentConfig(req session.StartRequest) (*session.VoiceAgentConfig, error)
}

// Catalog serves scenario and script documents.
type Catalog interface {
	Scenarios() []domain.ScenarioInfo
	ListScripts() []domain.ScriptSummary
	LoadScript(id string) (*domain.Script, bool)
}

// CoachHandler handles the /api/coach routes.
type CoachHandler struct {
	*Handler
	sessions Sessions
	catalog  Catalog
	events   *EventsHandler
	limit    func(http.Handler) http.Handler
}

// NewCoachHandler creates a coach handler. limit, when non-nil, wraps the
// session start route.
func NewCoachHandler(base *Handler, sessions Sessions, catalog Catalog, events *EventsHandler, limit func(http.Handler) http.Handler) *CoachHandler {
	return &CoachHandler{
		Handler:  base,
		sessions: sessions,
		catalog:  catalog,
		events:   events,
		limit:    limit,
	}
}

// RegisterRoutes registers coach routes.
func (h *CoachHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/coach", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if h.limit != nil {
				r.Use(h.limit)
			}
			r.Post("/session/start", h.StartSession)
		})
		r.Post("/session/{id}/join", h.JoinSession)
		r.Post("/session/{id}/end", h.EndSession)
		r.Get("/session/{id}", h.SessionStatus)
		if h.events != nil {
			r.Get("/session/{id}/events", h.events.ServeHTTP)
		}
		r.Get("/scenarios", h.ListScenarios)
		r.Get("/scripts", h.ListScripts)
		r.Get("/scripts/{id}", h.GetScript)
		r.Post("/voice-agent/config", h.VoiceAgentConfig)
	})
}

type selectionRequest struct {
	Mode     string `json:"mode"`
	Level    string `json:"level"`
	Scenario string `json:"scenario"`
	ScriptID string `json:"script_id"`
}

func (s selectionRequest) toStart() session.StartRequest {
	return session.StartRequest{
		Mode:     s.Mode,
		Level:    s.Level,
		Scenario: s.Scenario,
		ScriptID: s.ScriptID,
	}
}

type startSessionResponse struct {
	SessionID string          `json:"session_id"`
	CallID    string          `json:"call_id"`
	Mode      domain.Mode     `json:"mode"`
	Level     domain.Level    `json:"level"`
	Scenario  domain.Scenario `json:"scenario,omitempty"`
	ScriptID  string          `json:"script_id,omitempty"`
}

// StartSession validates the selection, creates the call and records the session.
func (h *CoachHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := decode(w, r, &req, false); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	cfg, err := h.sessions.Start(r.Context(), req.toStart())
	if err != nil {
		h.sessionError(w, err)
		return
	}

	JSON(w, http.StatusOK, startSessionResponse{
		SessionID: cfg.SessionID,
		CallID:    cfg.SessionID,
		Mode:      cfg.Mode,
		Level:     cfg.Level,
		Scenario:  cfg.Scenario,
		ScriptID:  cfg.ScriptID,
	})
}

// JoinSession schedules the coach to join and returns immediately.
func (h *CoachHandler) JoinSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	job, err := h.sessions.Join(r.Context(), id)
	if err != nil {
		h.sessionError(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]string{
		"status":     "joining",
		"session_id": job.SessionID(),
		"call_id":    job.SessionID(),
		"message":    "Coach is joining the session",
	})
}

type endSessionRequest struct {
	Duration          int `json:"duration"`
	MessagesExchanged int `json:"messages_exchanged"`
}

// EndSession records the client's summary. It never affects a running job.
func (h *CoachHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req endSessionRequest
	if err := decode(w, r, &req, true); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	report := domain.EndReport{
		SessionID:         id,
		DurationSeconds:   req.Duration,
		MessagesExchanged: req.MessagesExchanged,
		ReportedAt:        time.Now(),
	}
	if err := h.sessions.End(r.Context(), report); err != nil {
		h.logger.Warn("Failed to record session end", "session_id", id, "error", err)
	}

	JSON(w, http.StatusOK, map[string]string{
		"status":  "completed",
		"message": "Session ended successfully",
	})
}

// SessionStatus returns the latest job snapshot for a session.
func (h *CoachHandler) SessionStatus(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.sessions.Status(chi.URLParam(r, "id"))
	if !ok {
		Error(w, http.StatusNotFound, "session not found")
		return
	}
	JSON(w, http.StatusOK, snap)
}

// ListScenarios returns the scenario catalog.
func (h *CoachHandler) ListScenarios(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]any{"scenarios": h.catalog.Scenarios()})
}

// ListScripts returns script summaries ordered by category, difficulty and title.
func (h *CoachHandler) ListScripts(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]any{"scripts": h.catalog.ListScripts()})
}

// GetScript returns one full script wrapped as {script}.
func (h *CoachHandler) GetScript(w http.ResponseWriter, r *http.Request) {
	script, ok := h.catalog.LoadScript(chi.URLParam(r, "id"))
	if !ok {
		Error(w, http.StatusNotFound, "script not found")
		return
	}
	JSON(w, http.StatusOK, map[string]any{"script": script})
}

// VoiceAgentConfig returns the prompt, greeting and model routing for a
// client that drives the voice agent itself.
func (h *CoachHandler) VoiceAgentConfig(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := decode(w, r, &req, false); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	cfg, err := h.sessions.VoiceAgentConfig(req.toStart())
	if err != nil {
		h.sessionError(w, err)
		return
	}
	JSON(w, http.StatusOK, cfg)
}
