// Package store provides the session registry: a mapping from session
// identifier to the configuration chosen at session start.
package store

import (
	"context"
	"time"

	"github.com/ashureev/coachline/internal/domain"
)

// SessionStore records session configurations for one later read at join time.
// Implementations must be safe for concurrent use and must bound growth through
// expiry or capacity.
type SessionStore interface {
	// Put records cfg under cfg.SessionID, replacing any previous entry.
	Put(ctx context.Context, cfg domain.SessionConfig) error

	// Get returns the configuration for sessionID, or nil when it is unknown or expired.
	Get(ctx context.Context, sessionID string) (*domain.SessionConfig, error)

	// RecordEnd stores the client-reported end-of-session summary.
	RecordEnd(ctx context.Context, report domain.EndReport) error

	// Expire removes entries older than ttl and returns how many were removed.
	Expire(ctx context.Context, ttl time.Duration) (int64, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
