package store

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/ashureev/coachline/internal/domain"
)

type memoryEntry struct {
	cfg    domain.SessionConfig
	report *domain.EndReport
}

// MemoryStore is an in-process SessionStore bounded by capacity and TTL.
// When full, the oldest entry is evicted.
type MemoryStore struct {
	mu       sync.Mutex
	entries  map[string]*list.Element
	order    *list.List // oldest at front
	capacity int
	ttl      time.Duration
	now      func() time.Time
}

// NewMemory creates a MemoryStore. A non-positive capacity means unbounded and
// a non-positive ttl disables expiry on read.
func NewMemory(capacity int, ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Put records cfg, evicting the oldest entries beyond capacity.
func (m *MemoryStore) Put(_ context.Context, cfg domain.SessionConfig) error {
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = m.now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.entries[cfg.SessionID]; ok {
		m.order.Remove(el)
	}
	m.entries[cfg.SessionID] = m.order.PushBack(&memoryEntry{cfg: cfg})

	for m.capacity > 0 && m.order.Len() > m.capacity {
		oldest := m.order.Front()
		m.order.Remove(oldest)
		delete(m.entries, oldest.Value.(*memoryEntry).cfg.SessionID)
	}
	return nil
}

// Get returns a copy of the stored configuration.
func (m *MemoryStore) Get(_ context.Context, sessionID string) (*domain.SessionConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.entries[sessionID]
	if !ok {
		return nil, nil
	}
	entry := el.Value.(*memoryEntry)
	if entry.cfg.Expired(m.ttl, m.now()) {
		return nil, nil
	}
	cfg := entry.cfg
	return &cfg, nil
}

// RecordEnd attaches the report to the session entry. Reports for unknown
// sessions are dropped.
func (m *MemoryStore) RecordEnd(_ context.Context, report domain.EndReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.entries[report.SessionID]; ok {
		r := report
		el.Value.(*memoryEntry).report = &r
	}
	return nil
}

// Report returns the end report recorded for sessionID, if any.
func (m *MemoryStore) Report(sessionID string) (*domain.EndReport, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.entries[sessionID]
	if !ok || el.Value.(*memoryEntry).report == nil {
		return nil, false
	}
	r := *el.Value.(*memoryEntry).report
	return &r, true
}

// Expire removes entries older than ttl.
func (m *MemoryStore) Expire(_ context.Context, ttl time.Duration) (int64, error) {
	if ttl <= 0 {
		return 0, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var removed int64
	for el := m.order.Front(); el != nil; {
		next := el.Next()
		entry := el.Value.(*memoryEntry)
		if entry.cfg.Expired(ttl, now) {
			m.order.Remove(el)
			delete(m.entries, entry.cfg.SessionID)
			removed++
		}
		el = next
	}
	return removed, nil
}

// Len returns the number of stored entries.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

// Ping always succeeds.
func (m *MemoryStore) Ping(context.Context) error { return nil }

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
