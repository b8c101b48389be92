package session

import (
	"github.com/ashureev/coachline/internal/agent"
	"github.com/ashureev/coachline/internal/coach"
)

// VoiceAgentConfig is everything a client needs to run the voice agent itself.
type VoiceAgentConfig struct {
	APIKey   string `json:"api_key"`
	Prompt   string `json:"prompt"`
	Greeting string `json:"greeting"`
	agent.VoiceSettings
}

// VoiceAgentConfig composes the prompt and greeting for req. Unlike Join,
// an unresolvable script is an error here rather than a degraded prompt.
func (o *Orchestrator) VoiceAgentConfig(req StartRequest) (*VoiceAgentConfig, error) {
	sel, err := o.selection(req)
	if err != nil {
		return nil, err
	}
	instructions := coach.Compose(coach.New(sel, o.content))
	return &VoiceAgentConfig{
		APIKey:        o.cfg.VoiceAPIKey,
		Prompt:        instructions.Prompt,
		Greeting:      instructions.Greeting,
		VoiceSettings: o.cfg.Voice,
	}, nil
}
