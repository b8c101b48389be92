package domain

import (
	"time"
)

// SessionConfig is the launch-time selection recorded for a session.
// It is written once at start and read when the agent joins.
type SessionConfig struct {
	SessionID string    `json:"session_id"`
	Mode      Mode      `json:"mode"`
	Level     Level     `json:"level"`
	Scenario  Scenario  `json:"scenario,omitempty"`
	ScriptID  string    `json:"script_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DefaultSessionConfig is used when a join arrives for an unknown session.
func DefaultSessionConfig(sessionID string) SessionConfig {
	return SessionConfig{
		SessionID: sessionID,
		Mode:      ModeSituation,
		Level:     LevelBeginner,
		Scenario:  DefaultScenario,
		CreatedAt: time.Now(),
	}
}

// Expired reports whether the config is older than ttl. A non-positive ttl never expires.
func (c *SessionConfig) Expired(ttl time.Duration, now time.Time) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(c.CreatedAt) > ttl
}

// EndReport is the client-reported summary of a finished session.
type EndReport struct {
	SessionID         string    `json:"session_id"`
	DurationSeconds   int       `json:"duration"`
	MessagesExchanged int       `json:"messages_exchanged"`
	ReportedAt        time.Time `json:"reported_at"`
}
