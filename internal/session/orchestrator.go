// Package session runs coaching sessions: it records the learner's selection
// at start, then attaches a voice agent to the call in the background, keeps
// it alive for a bounded window and tears it down.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/coachline/internal/agent"
	"github.com/ashureev/coachline/internal/coach"
	"github.com/ashureev/coachline/internal/domain"
	"github.com/ashureev/coachline/internal/store"
	"github.com/ashureev/coachline/internal/transport"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

var (
	// ErrInvalidMode is returned for an unknown coaching mode.
	ErrInvalidMode = errors.New("invalid mode")
	// ErrInvalidLevel is returned for an unknown proficiency level.
	ErrInvalidLevel = errors.New("invalid level")
	// ErrScriptRequired is returned when script mode is selected without a script id.
	ErrScriptRequired = errors.New("script_id is required for script mode")
	// ErrScriptNotFound is returned when the script id does not resolve.
	ErrScriptNotFound = errors.New("script not found")
	// ErrShuttingDown is returned once Shutdown has been called.
	ErrShuttingDown = errors.New("orchestrator is shutting down")
)

// situationKickoff is what the agent is asked to say first in role-play.
const situationKickoff = "Start the conversation naturally based on your role in the scenario."

// Config tunes the session lifecycle.
type Config struct {
	Retry             RetryPolicy
	KeepAliveTicks    int
	KeepAliveInterval time.Duration
	// FinishTimeout bounds teardown, which runs even after cancellation.
	FinishTimeout   time.Duration
	MaxLiveSessions int64
	CallType        string
	// Retention is how long finished jobs stay visible through Status.
	Retention time.Duration
	// VoiceAPIKey is handed to clients that connect to the voice agent directly.
	VoiceAPIKey string
	Voice       agent.VoiceSettings
}

// DefaultConfig returns the lifecycle used in production: 3 attach attempts
// 2s apart and a 10 minute live window.
func DefaultConfig() Config {
	return Config{
		Retry:             DefaultRetryPolicy(),
		KeepAliveTicks:    120,
		KeepAliveInterval: 5 * time.Second,
		FinishTimeout:     10 * time.Second,
		MaxLiveSessions:   100,
		CallType:          transport.DefaultCallType,
		Retention:         time.Hour,
		Voice:             agent.DefaultVoiceSettings(),
	}
}

// Deps are the collaborators an Orchestrator drives.
type Deps struct {
	Content coach.Content
	Store   store.SessionStore
	Calls   transport.CallProvider
	Worker  agent.Worker
	Hub     *Hub
}

// StartRequest is the learner's selection as received from a client.
type StartRequest struct {
	Mode     string
	Level    string
	Scenario string
	ScriptID string
}

// Orchestrator owns every session job in the process.
type Orchestrator struct {
	cfg     Config
	content coach.Content
	store   store.SessionStore
	calls   transport.CallProvider
	worker  agent.Worker
	hub     *Hub
	slots   *semaphore.Weighted
	logger  *slog.Logger
	newID   func() string
	now     func() time.Time

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup

	mu     sync.Mutex
	jobs   map[string]*Job
	closed bool
}

// New creates an Orchestrator. Unset limits in cfg fall back to DefaultConfig;
// a zero KeepAliveTicks or Retry.Backoff is honored as is.
func New(cfg Config, deps Deps, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = withDefaults(cfg)
	hub := deps.Hub
	if hub == nil {
		hub = NewHub(0, logger)
	}
	worker := deps.Worker
	if worker == nil {
		worker = agent.Unavailable{}
	}

	ctx, stop := context.WithCancel(context.Background())
	return &Orchestrator{
		cfg:     cfg,
		content: deps.Content,
		store:   deps.Store,
		calls:   deps.Calls,
		worker:  worker,
		hub:     hub,
		slots:   semaphore.NewWeighted(cfg.MaxLiveSessions),
		logger:  logger,
		newID:   uuid.NewString,
		now:     time.Now,
		baseCtx: ctx,
		stop:    stop,
		jobs:    make(map[string]*Job),
	}
}

func withDefaults(cfg Config) Config {
	def := DefaultConfig()
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry.MaxAttempts = def.Retry.MaxAttempts
	}
	if cfg.KeepAliveTicks < 0 {
		cfg.KeepAliveTicks = 0
	}
	if cfg.KeepAliveInterval <= 0 {
		cfg.KeepAliveInterval = def.KeepAliveInterval
	}
	if cfg.FinishTimeout <= 0 {
		cfg.FinishTimeout = def.FinishTimeout
	}
	if cfg.MaxLiveSessions <= 0 {
		cfg.MaxLiveSessions = def.MaxLiveSessions
	}
	if cfg.CallType == "" {
		cfg.CallType = def.CallType
	}
	if cfg.Retention <= 0 {
		cfg.Retention = def.Retention
	}
	if cfg.Voice == (agent.VoiceSettings{}) {
		cfg.Voice = def.Voice
	}
	return cfg
}

// Hub returns the event hub jobs publish to.
func (o *Orchestrator) Hub() *Hub { return o.hub }

// Start validates the selection, creates the call and records the session.
// The call is created synchronously; no agent is attached yet.
func (o *Orchestrator) Start(ctx context.Context, req StartRequest) (*domain.SessionConfig, error) {
	sel, err := o.selection(req)
	if err != nil {
		return nil, err
	}

	id := o.newID()
	if _, err := o.calls.GetOrCreateCall(ctx, o.cfg.CallType, id); err != nil {
		return nil, fmt.Errorf("create call: %w", err)
	}

	cfg := domain.SessionConfig{
		SessionID: id,
		Mode:      sel.Mode,
		Level:     sel.Level,
		Scenario:  sel.Scenario,
		ScriptID:  sel.ScriptID,
		CreatedAt: o.now(),
	}
	if err := o.store.Put(ctx, cfg); err != nil {
		return nil, fmt.Errorf("record session: %w", err)
	}

	o.logger.Info("Session created",
		"session_id", id, "mode", cfg.Mode, "level", cfg.Level,
		"scenario", cfg.Scenario, "script_id", cfg.ScriptID)
	return &cfg, nil
}

// selection parses and checks a client selection. Script mode is the only
// case rejected for content reasons; unknown scenarios fall back later.
func (o *Orchestrator) selection(req StartRequest) (coach.Selection, error) {
	mode, err := domain.ParseMode(req.Mode)
	if err != nil {
		return coach.Selection{}, fmt.Errorf("%w: %w", ErrInvalidMode, err)
	}
	level, err := domain.ParseLevel(req.Level)
	if err != nil {
		return coach.Selection{}, fmt.Errorf("%w: %w", ErrInvalidLevel, err)
	}

	sel := coach.Selection{
		Mode:     mode,
		Level:    level,
		Scenario: domain.Scenario(strings.ToLower(strings.TrimSpace(req.Scenario))),
		ScriptID: strings.TrimSpace(req.ScriptID),
	}
	if mode == domain.ModeScript {
		if sel.ScriptID == "" {
			return coach.Selection{}, ErrScriptRequired
		}
		if _, ok := o.content.LoadScript(sel.ScriptID); !ok {
			return coach.Selection{}, fmt.Errorf("%w: %s", ErrScriptNotFound, sel.ScriptID)
		}
	}
	return sel, nil
}

// Join schedules agent attachment for sessionID and returns without waiting.
// Unknown sessions run with the default configuration. A second join while a
// job is still running returns that job.
func (o *Orchestrator) Join(ctx context.Context, sessionID string) (*Job, error) {
	cfg := o.lookup(ctx, sessionID)

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil, ErrShuttingDown
	}
	if existing, ok := o.jobs[sessionID]; ok {
		if !existing.terminal() {
			return existing, nil
		}
		o.hub.Close(sessionID)
	}

	jobCtx, cancel := context.WithCancel(o.baseCtx)
	job := newJob(sessionID, sessionID, o.hub, o.now, cancel)
	o.jobs[sessionID] = job

	o.wg.Add(1)
	go o.run(jobCtx, job, cfg)

	o.logger.Info("Coach joining session",
		"session_id", sessionID, "mode", cfg.Mode, "level", cfg.Level, "scenario", cfg.Scenario)
	return job, nil
}

func (o *Orchestrator) lookup(ctx context.Context, sessionID string) domain.SessionConfig {
	cfg, err := o.store.Get(ctx, sessionID)
	if err != nil {
		o.logger.Warn("Session lookup failed, using defaults", "session_id", sessionID, "error", err)
		return domain.DefaultSessionConfig(sessionID)
	}
	if cfg == nil {
		o.logger.Info("Unknown session, using defaults", "session_id", sessionID)
		return domain.DefaultSessionConfig(sessionID)
	}
	return *cfg
}

// run drives one job to a terminal state.
func (o *Orchestrator) run(ctx context.Context, job *Job, cfg domain.SessionConfig) {
	defer o.wg.Done()
	defer o.scheduleForget(job)

	log := o.logger.With("session_id", job.sessionID)

	if err := o.slots.Acquire(ctx, 1); err != nil {
		job.finish(StateAbandoned, "cancelled while waiting for capacity")
		log.Warn("Session abandoned", "reason", "cancelled while waiting for capacity")
		return
	}
	defer o.slots.Release(1)

	job.transition(StateAttaching)
	c := coach.New(coach.Selection{
		Mode:     cfg.Mode,
		Level:    cfg.Level,
		Scenario: cfg.Scenario,
		ScriptID: cfg.ScriptID,
	}, o.content)
	instructions := coach.Compose(c)

	var binding *agent.Binding
	err := o.cfg.Retry.Do(ctx, func(ctx context.Context, attempt int) error {
		job.attempt(attempt)
		b, err := o.attach(ctx, job, instructions)
		if err != nil {
			log.Warn("Attach attempt failed",
				"attempt", attempt, "max_attempts", o.cfg.Retry.MaxAttempts, "error", err)
			return err
		}
		binding = b
		return nil
	})
	if err != nil {
		reason := "attach failed: " + err.Error()
		if errors.Is(err, context.Canceled) {
			reason = "cancelled during attach"
		}
		job.finish(StateAbandoned, reason)
		log.Error("Session abandoned", "reason", reason)
		return
	}

	job.transition(StateLive)
	liveErr := o.live(ctx, job, binding.ID, kickoff(c, instructions))

	job.transition(StateFinishing)
	o.teardown(ctx, job, binding.ID, log)

	if liveErr != nil {
		job.finish(StateAbandoned, liveErr.Error())
		log.Warn("Session abandoned", "reason", liveErr.Error())
		return
	}
	job.finish(StateCompleted, "")
	log.Info("Session completed", "keepalive_ticks", o.cfg.KeepAliveTicks)
}

func (o *Orchestrator) attach(ctx context.Context, job *Job, instructions coach.Instructions) (*agent.Binding, error) {
	call, err := o.calls.GetOrCreateCall(ctx, o.cfg.CallType, job.callID)
	if err != nil {
		return nil, err
	}
	return o.worker.Join(ctx, agent.JoinRequest{
		SessionID:    job.sessionID,
		CallType:     call.Type,
		CallID:       call.ID,
		Instructions: instructions.Prompt,
		Greeting:     instructions.Greeting,
		Voice:        o.cfg.Voice,
	})
}

// kickoff is the first thing the bound agent is asked to say.
func kickoff(c coach.Coach, instructions coach.Instructions) string {
	if _, ok := c.(*coach.ScriptCoach); ok {
		return instructions.Greeting
	}
	return situationKickoff
}

// live speaks the opening line and holds the session open for the
// configured number of keep-alive ticks.
func (o *Orchestrator) live(ctx context.Context, job *Job, bindingID, opening string) error {
	if err := o.worker.Respond(ctx, bindingID, opening); err != nil {
		return fmt.Errorf("opening line: %w", err)
	}

	ticker := time.NewTicker(o.cfg.KeepAliveInterval)
	defer ticker.Stop()

	for i := 1; i <= o.cfg.KeepAliveTicks; i++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("cancelled during live window: %w", ctx.Err())
		case <-ticker.C:
			job.tick(i)
		}
	}
	return nil
}

// teardown releases the agent and the call. It runs with its own deadline so
// it still happens after ctx is cancelled.
func (o *Orchestrator) teardown(ctx context.Context, job *Job, bindingID string, log *slog.Logger) {
	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.FinishTimeout)
	defer cancel()

	if err := o.worker.Finish(finishCtx, bindingID); err != nil {
		log.Warn("Failed to finish agent", "binding_id", bindingID, "error", err)
	}
	if err := o.calls.EndCall(finishCtx, o.cfg.CallType, job.callID); err != nil {
		log.Warn("Failed to end call", "call_id", job.callID, "error", err)
	}
}

func (o *Orchestrator) scheduleForget(job *Job) {
	time.AfterFunc(o.cfg.Retention, func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		if o.jobs[job.sessionID] == job {
			delete(o.jobs, job.sessionID)
			o.hub.Close(job.sessionID)
		}
	})
}

// Status returns the snapshot of the latest job for sessionID.
func (o *Orchestrator) Status(sessionID string) (Snapshot, bool) {
	o.mu.Lock()
	job, ok := o.jobs[sessionID]
	o.mu.Unlock()
	if !ok {
		return Snapshot{}, false
	}
	return job.Snapshot(), true
}

// End records the client's report of a finished session. It does not
// affect any running job.
func (o *Orchestrator) End(ctx context.Context, report domain.EndReport) error {
	if report.ReportedAt.IsZero() {
		report.ReportedAt = o.now()
	}
	o.logger.Info("Session ended",
		"session_id", report.SessionID,
		"duration", report.DurationSeconds,
		"messages_exchanged", report.MessagesExchanged)

	if err := o.store.RecordEnd(ctx, report); err != nil {
		return fmt.Errorf("record end of %s: %w", report.SessionID, err)
	}
	return nil
}

// Shutdown cancels every job and waits for them to tear down or for ctx to end.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	o.stop()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for session jobs: %w", ctx.Err())
	}
}
