package session

import (
	"container/list"
	"log/slog"
	"sync"
	"time"
)

const (
	defaultHistorySize = 32
	subscriberBuffer   = 16
)

// Event is a lifecycle change of one session's job.
type Event struct {
	SessionID string    `json:"session_id"`
	Seq       int64     `json:"seq"`
	State     State     `json:"state"`
	Attempt   int       `json:"attempt,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	At        time.Time `json:"at"`
}

// Hub fans job events out to subscribers and keeps a short per-session
// history so late subscribers can catch up.
type Hub struct {
	mu          sync.Mutex
	subscribers map[string]map[int64]chan Event
	history     map[string]*list.List
	seq         map[string]int64
	historySize int
	nextID      int64
	logger      *slog.Logger
}

// NewHub creates a hub keeping up to historySize events per session.
func NewHub(historySize int, logger *slog.Logger) *Hub {
	if historySize <= 0 {
		historySize = defaultHistorySize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subscribers: make(map[string]map[int64]chan Event),
		history:     make(map[string]*list.List),
		seq:         make(map[string]int64),
		historySize: historySize,
		logger:      logger,
	}
}

// Publish records ev and delivers it to current subscribers. Slow subscribers
// miss events rather than block the job.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq[ev.SessionID]++
	ev.Seq = h.seq[ev.SessionID]

	l, ok := h.history[ev.SessionID]
	if !ok {
		l = list.New()
		h.history[ev.SessionID] = l
	}
	l.PushBack(ev)
	for l.Len() > h.historySize {
		l.Remove(l.Front())
	}

	for id, ch := range h.subscribers[ev.SessionID] {
		select {
		case ch <- ev:
		default:
			h.logger.Warn("Dropping session event for slow subscriber",
				"session_id", ev.SessionID, "subscriber", id, "seq", ev.Seq)
		}
	}
}

// Subscribe returns the recorded history for sessionID and a channel of later
// events. The channel is closed by Close or by the returned cancel func.
func (h *Hub) Subscribe(sessionID string) ([]Event, <-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var backlog []Event
	if l, ok := h.history[sessionID]; ok {
		backlog = make([]Event, 0, l.Len())
		for e := l.Front(); e != nil; e = e.Next() {
			backlog = append(backlog, e.Value.(Event))
		}
	}

	h.nextID++
	id := h.nextID
	ch := make(chan Event, subscriberBuffer)
	if _, ok := h.subscribers[sessionID]; !ok {
		h.subscribers[sessionID] = make(map[int64]chan Event)
	}
	h.subscribers[sessionID][id] = ch

	return backlog, ch, func() { h.unsubscribe(sessionID, id) }
}

func (h *Hub) unsubscribe(sessionID string, id int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.subscribers[sessionID]
	if !ok {
		return
	}
	if ch, exists := subs[id]; exists {
		close(ch)
		delete(subs, id)
	}
	if len(subs) == 0 {
		delete(h.subscribers, sessionID)
	}
}

// Close ends every subscription for sessionID and drops its history.
func (h *Hub) Close(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subscribers[sessionID] {
		close(ch)
	}
	delete(h.subscribers, sessionID)
	delete(h.history, sessionID)
	delete(h.seq, sessionID)
}
