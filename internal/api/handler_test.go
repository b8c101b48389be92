//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/ashureev/coachline/internal/agent"
	"github.com/ashureev/coachline/internal/content"
	"github.com/ashureev/coachline/internal/session"
	"github.com/ashureev/coachline/internal/store"
	"github.com/ashureev/coachline/internal/transport"
	"github.com/go-chi/chi/v5"
)

const greetingScript = `{
  "id": "greeting",
  "title": "Greeting",
  "title_ja": "あいさつ",
  "description": "Say hello",
  "difficulty": "beginner",
  "category": "daily",
  "estimated_minutes": 1,
  "lines": [
    {"id": 1, "speaker": "partner", "text": "Hello"},
    {"id": 2, "speaker": "user", "text": "Hi"}
  ]
}`

type fakeCalls struct {
	mu   sync.Mutex
	fail bool
	ids  []string
}

func (f *fakeCalls) GetOrCreateCall(_ context.Context, callType, callID string) (*transport.Call, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, transport.ErrProvider
	}
	if callType == "" {
		callType = transport.DefaultCallType
	}
	f.ids = append(f.ids, callID)
	return &transport.Call{ID: callID, Type: callType, Created: true}, nil
}

func (f *fakeCalls) EndCall(context.Context, string, string) error { return nil }

// blockingWorker holds every Join until release is closed or ctx ends.
type blockingWorker struct {
	release chan struct{}
}

func (w *blockingWorker) Join(ctx context.Context, req agent.JoinRequest) (*agent.Binding, error) {
	select {
	case <-w.release:
		return &agent.Binding{ID: "bind-" + req.CallID, CallID: req.CallID}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (w *blockingWorker) Respond(context.Context, string, string) error { return nil }
func (w *blockingWorker) Finish(context.Context, string) error          { return nil }
func (w *blockingWorker) Close()                                        {}

type testServer struct {
	router  chi.Router
	calls   *fakeCalls
	worker  *blockingWorker
	orch    *session.Orchestrator
	secret  string
	healthy bool
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ts := &testServer{
		calls:   &fakeCalls{},
		worker:  &blockingWorker{release: make(chan struct{})},
		secret:  "test-secret",
		healthy: true,
	}
	catalog := content.New(fstest.MapFS{"greeting.json": {Data: []byte(greetingScript)}}, nil, nil)
	ts.orch = session.New(session.Config{
		Retry:             session.RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond},
		KeepAliveTicks:    1,
		KeepAliveInterval: time.Millisecond,
		VoiceAPIKey:       "voice-key",
	}, session.Deps{
		Content: catalog,
		Store:   store.NewMemory(100, time.Hour),
		Calls:   ts.calls,
		Worker:  ts.worker,
	}, nil)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = ts.orch.Shutdown(ctx)
	})

	base := NewHandler(nil)
	r := chi.NewRouter()
	NewHealthHandler(base, "Coachline", map[string]Pinger{
		"registry": PingFunc(func(context.Context) error {
			if !ts.healthy {
				return errors.New("down")
			}
			return nil
		}),
	}).RegisterHealth(r)
	NewCoachHandler(base, ts.orch, catalog, NewEventsHandler(base, ts.orch.Hub(), []string{"*"}), nil).RegisterRoutes(r)
	NewCallHandler(base, ts.calls, transport.NewTokens(ts.secret), "stream-key", time.Hour, ts.orch).RegisterRoutes(r)
	ts.router = r
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	var got map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("Failed to decode %s %s response: %v", method, path, err)
		}
	}
	return rec, got
}

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"foo": "bar"}

	JSON(w, http.StatusOK, data)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if got["foo"] != "bar" {
		t.Errorf("Expected foo=bar, got %v", got["foo"])
	}
}

func TestStartAndJoin(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	rec, started := ts.do(t, http.MethodPost, "/api/coach/session/start", `{"mode":"situation","level":"beginner","scenario":"hotel"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	id, _ := started["session_id"].(string)
	if id == "" || started["call_id"] != id {
		t.Fatalf("Expected fresh session id, got %v", started)
	}
	if started["level"] != "beginner" || started["scenario"] != "hotel" || started["mode"] != "situation" {
		t.Errorf("Unexpected echo %v", started)
	}

	// The worker blocks every attach, so join must answer without waiting on it.
	rec, joined := ts.do(t, http.MethodPost, "/api/coach/session/"+id+"/join", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if joined["status"] != "joining" || joined["session_id"] != id {
		t.Errorf("Unexpected join response %v", joined)
	}

	rec, status := ts.do(t, http.MethodGet, "/api/coach/session/"+id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if status["state"] == "completed" || status["state"] == "abandoned" {
		t.Errorf("Job should still be attaching, got %v", status["state"])
	}

	_, second := ts.do(t, http.MethodPost, "/api/coach/session/start", `{"mode":"situation"}`)
	if second["session_id"] == id {
		t.Error("Expected distinct session ids")
	}
}

func TestStartErrors(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed", `{"mode":`, http.StatusBadRequest},
		{"unknown mode", `{"mode":"karaoke"}`, http.StatusBadRequest},
		{"unknown level", `{"mode":"situation","level":"expert"}`, http.StatusBadRequest},
		{"script without id", `{"mode":"script"}`, http.StatusBadRequest},
		{"unknown script", `{"mode":"script","script_id":"nonexistent"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := ts.do(t, http.MethodPost, "/api/coach/session/start", tt.body)
			if rec.Code != tt.want {
				t.Errorf("Expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}

	ts.calls.mu.Lock()
	ts.calls.fail = true
	ts.calls.mu.Unlock()
	if rec, _ := ts.do(t, http.MethodPost, "/api/coach/session/start", `{"mode":"situation"}`); rec.Code != http.StatusBadGateway {
		t.Errorf("Expected 502 on provider failure, got %d", rec.Code)
	}
}

func TestVoiceAgentConfig(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	if rec, _ := ts.do(t, http.MethodPost, "/api/coach/voice-agent/config", `{"mode":"script","level":"beginner"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without script_id, got %d", rec.Code)
	}
	if rec, _ := ts.do(t, http.MethodPost, "/api/coach/voice-agent/config", `{"mode":"script","level":"beginner","script_id":"nonexistent"}`); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown script, got %d", rec.Code)
	}

	rec, got := ts.do(t, http.MethodPost, "/api/coach/voice-agent/config", `{"mode":"script","level":"beginner","script_id":"greeting"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if got["greeting"] != "Hello" || got["api_key"] != "voice-key" {
		t.Errorf("Unexpected config %v", got)
	}
	for _, key := range []string{"prompt", "voice", "listen_model", "think_provider", "think_model"} {
		if s, _ := got[key].(string); s == "" {
			t.Errorf("Missing %s", key)
		}
	}

	_, situation := ts.do(t, http.MethodPost, "/api/coach/voice-agent/config", `{"mode":"situation","scenario":"shopping"}`)
	if prompt, _ := situation["prompt"].(string); !strings.Contains(prompt, "store assistant") {
		t.Error("Expected shopping scenario in prompt")
	}
}

func TestCatalogRoutes(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	_, scenarios := ts.do(t, http.MethodGet, "/api/coach/scenarios", "")
	if list, _ := scenarios["scenarios"].([]any); len(list) != 4 {
		t.Errorf("Expected 4 scenarios, got %v", scenarios)
	}

	_, scripts := ts.do(t, http.MethodGet, "/api/coach/scripts", "")
	list, _ := scripts["scripts"].([]any)
	if len(list) != 1 {
		t.Fatalf("Expected 1 script, got %v", scripts)
	}
	if summary := list[0].(map[string]any); summary["line_count"] != float64(2) {
		t.Errorf("Unexpected summary %v", summary)
	}

	rec, script := ts.do(t, http.MethodGet, "/api/coach/scripts/greeting", "")
	body, _ := script["script"].(map[string]any)
	if rec.Code != http.StatusOK || body["title"] != "Greeting" {
		t.Errorf("Unexpected script response %d %v", rec.Code, script)
	}
	if rec, _ := ts.do(t, http.MethodGet, "/api/coach/scripts/nonexistent", ""); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestEndSession(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	rec, got := ts.do(t, http.MethodPost, "/api/coach/session/unknown/end", `{"duration":300,"messages_exchanged":12}`)
	if rec.Code != http.StatusOK || got["status"] != "completed" {
		t.Errorf("Unexpected end response %d %v", rec.Code, got)
	}
	if rec, _ := ts.do(t, http.MethodGet, "/api/coach/session/unknown", ""); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for session without job, got %d", rec.Code)
	}
}

func TestCallRoutes(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	rec, tok := ts.do(t, http.MethodGet, "/api/call/token?user_id=learner-1", "")
	if rec.Code != http.StatusOK || tok["user_id"] != "learner-1" || tok["api_key"] != "stream-key" {
		t.Fatalf("Unexpected token response %d %v", rec.Code, tok)
	}
	if s, _ := tok["token"].(string); strings.Count(s, ".") != 2 {
		t.Errorf("Expected a JWT, got %q", s)
	}
	if rec, _ := ts.do(t, http.MethodGet, "/api/call/token", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without identity, got %d", rec.Code)
	}

	rec, call := ts.do(t, http.MethodPost, "/api/call/create", `{"call_type":"default"}`)
	if rec.Code != http.StatusOK || call["call_id"] == "" || call["created"] != true {
		t.Errorf("Unexpected create response %d %v", rec.Code, call)
	}

	rec, joined := ts.do(t, http.MethodPost, "/api/call/join", `{"call_id":"abc"}`)
	if rec.Code != http.StatusOK || joined["status"] != "joining" || joined["call_id"] != "abc" {
		t.Errorf("Unexpected join response %d %v", rec.Code, joined)
	}
	if rec, _ := ts.do(t, http.MethodPost, "/api/call/join", `{}`); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without call_id, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	rec, got := ts.do(t, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || got["app"] != "Coachline" || got["status"] != "healthy" {
		t.Errorf("Unexpected health %d %v", rec.Code, got)
	}

	ts.healthy = false
	rec, got = ts.do(t, http.MethodGet, "/health", "")
	if rec.Code != http.StatusServiceUnavailable || got["status"] != "degraded" {
		t.Errorf("Expected degraded health, got %d %v", rec.Code, got)
	}

	if rec, root := ts.do(t, http.MethodGet, "/", ""); rec.Code != http.StatusOK || root["message"] == "" {
		t.Errorf("Unexpected root %d %v", rec.Code, root)
	}
}

func TestOriginPatterns(t *testing.T) {
	t.Parallel()

	got := OriginPatterns([]string{"https://app.example", "*", "not a url", "http://localhost:3000"})
	want := []string{"app.example", "*", "localhost:3000"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("OriginPatterns = %v, want %v", got, want)
	}
}
