// Package agent binds a voice agent worker to a coaching call.
package agent

import "errors"

// ErrUnavailable is returned when no agent worker is configured or reachable.
var ErrUnavailable = errors.New("agent worker unavailable")

// VoiceSettings routes the agent's speech and reasoning backends.
type VoiceSettings struct {
	Voice         string `json:"voice"`
	ListenModel   string `json:"listen_model"`
	ThinkProvider string `json:"think_provider"`
	ThinkModel    string `json:"think_model"`
}

// DefaultVoiceSettings returns the routing used when nothing is configured.
func DefaultVoiceSettings() VoiceSettings {
	return VoiceSettings{
		Voice:         "aura-2-odysseus-en",
		ListenModel:   "nova-3",
		ThinkProvider: "open_ai",
		ThinkModel:    "gpt-4o-mini",
	}
}

// JoinRequest asks a worker to bring an agent into a call.
type JoinRequest struct {
	SessionID    string
	CallType     string
	CallID       string
	Instructions string
	Greeting     string
	Voice        VoiceSettings
}

// Binding identifies an agent attached to a call.
type Binding struct {
	ID     string
	CallID string
}
