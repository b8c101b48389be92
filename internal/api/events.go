package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/ashureev/coachline/internal/session"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
)

const (
	eventWriteTimeout = 5 * time.Second
	eventPingInterval = 30 * time.Second
)

// EventsHandler streams a session's lifecycle events over a WebSocket.
type EventsHandler struct {
	*Handler
	hub            *session.Hub
	originPatterns []string
}

// NewEventsHandler creates an events handler accepting the given origin host patterns.
func NewEventsHandler(base *Handler, hub *session.Hub, originPatterns []string) *EventsHandler {
	return &EventsHandler{Handler: base, hub: hub, originPatterns: originPatterns}
}

// OriginPatterns converts allowed origins into WebSocket host patterns.
func OriginPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" {
			patterns = append(patterns, o)
			continue
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
		}
	}
	return patterns
}

// ServeHTTP replays recorded events, then streams new ones until the job
// reaches a terminal state or the client goes away.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.logger.Warn("Failed to accept WebSocket", "error", err, "session_id", sessionID)
		return
	}
	defer func() { _ = ws.CloseNow() }()

	// Nothing is read from clients; CloseRead handles control frames.
	ctx := ws.CloseRead(r.Context())

	backlog, events, cancel := h.hub.Subscribe(sessionID)
	defer cancel()

	for _, ev := range backlog {
		if done := h.send(ctx, ws, ev); done {
			return
		}
	}

	ping := time.NewTicker(eventPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			if err := ws.Ping(ctx); err != nil {
				h.logger.Debug("WebSocket ping failed", "error", err, "session_id", sessionID)
				return
			}
		case ev, ok := <-events:
			if !ok {
				_ = ws.Close(websocket.StatusNormalClosure, "session closed")
				return
			}
			if done := h.send(ctx, ws, ev); done {
				return
			}
		}
	}
}

// send writes ev and reports whether the stream is finished.
func (h *EventsHandler) send(ctx context.Context, ws *websocket.Conn, ev session.Event) bool {
	writeCtx, cancel := context.WithTimeout(ctx, eventWriteTimeout)
	defer cancel()

	if err := wsjson.Write(writeCtx, ws, ev); err != nil {
		h.logger.Debug("WebSocket write error", "error", err, "session_id", ev.SessionID)
		return true
	}
	if ev.State.Terminal() {
		_ = ws.Close(websocket.StatusNormalClosure, string(ev.State))
		return true
	}
	return false
}
