package session

import (
	"context"
	"sync"
	"time"
)

// State is a step in a session job's lifecycle.
type State string

const (
	StatePending   State = "pending"
	StateAttaching State = "attaching"
	StateLive      State = "live"
	StateFinishing State = "finishing"
	StateCompleted State = "completed"
	StateAbandoned State = "abandoned"
)

// Terminal reports whether no further transitions follow s.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateAbandoned
}

// Snapshot is a point-in-time view of a job.
type Snapshot struct {
	SessionID string     `json:"session_id"`
	CallID    string     `json:"call_id"`
	State     State      `json:"state"`
	Attempts  int        `json:"attempts"`
	Ticks     int        `json:"keepalive_ticks"`
	Reason    string     `json:"reason,omitempty"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// Job is the background lifecycle of one joined session:
// pending, attaching, live, finishing, then completed or abandoned.
type Job struct {
	sessionID string
	callID    string
	hub       *Hub
	now       func() time.Time
	cancel    context.CancelFunc
	done      chan struct{}

	mu        sync.Mutex
	state     State
	attempts  int
	ticks     int
	reason    string
	startedAt time.Time
	endedAt   time.Time
}

func newJob(sessionID, callID string, hub *Hub, now func() time.Time, cancel context.CancelFunc) *Job {
	j := &Job{
		sessionID: sessionID,
		callID:    callID,
		hub:       hub,
		now:       now,
		cancel:    cancel,
		done:      make(chan struct{}),
		state:     StatePending,
		startedAt: now(),
	}
	j.publish(StatePending, 0, "")
	return j
}

// SessionID returns the session the job runs for.
func (j *Job) SessionID() string { return j.sessionID }

// Done is closed once the job reaches a terminal state.
func (j *Job) Done() <-chan struct{} { return j.done }

// Snapshot returns the job's current state.
func (j *Job) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()

	s := Snapshot{
		SessionID: j.sessionID,
		CallID:    j.callID,
		State:     j.state,
		Attempts:  j.attempts,
		Ticks:     j.ticks,
		Reason:    j.reason,
		StartedAt: j.startedAt,
	}
	if j.state.Terminal() {
		ended := j.endedAt
		s.EndedAt = &ended
	}
	return s
}

func (j *Job) terminal() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state.Terminal()
}

func (j *Job) transition(state State) {
	j.mu.Lock()
	if j.state.Terminal() {
		j.mu.Unlock()
		return
	}
	j.state = state
	attempts := j.attempts
	j.mu.Unlock()

	j.publish(state, attempts, "")
}

func (j *Job) attempt(n int) {
	j.mu.Lock()
	j.attempts = n
	j.mu.Unlock()

	j.publish(StateAttaching, n, "")
}

func (j *Job) tick(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ticks = n
}

// finish moves the job to a terminal state exactly once.
func (j *Job) finish(state State, reason string) {
	j.mu.Lock()
	if j.state.Terminal() {
		j.mu.Unlock()
		return
	}
	j.state = state
	j.reason = reason
	j.endedAt = j.now()
	attempts := j.attempts
	j.mu.Unlock()

	j.publish(state, attempts, reason)
	j.cancel()
	close(j.done)
}

func (j *Job) publish(state State, attempt int, reason string) {
	if j.hub == nil {
		return
	}
	j.hub.Publish(Event{
		SessionID: j.sessionID,
		State:     state,
		Attempt:   attempt,
		Reason:    reason,
		At:        j.now(),
	})
}
