// Package coach composes the system prompt and opening line for a coaching session.
package coach

import (
	"github.com/ashureev/coachline/internal/domain"
)

// Coach produces the mode-specific part of a coaching prompt.
type Coach interface {
	// Level returns the learner level the coach was built for.
	Level() domain.Level
	// ModeInstructions returns the block appended after the base and level blocks.
	ModeInstructions() string
	// Greeting returns the first thing the agent says.
	Greeting() string
}

// ScenarioSource resolves scenario documents. Resolution never fails.
type ScenarioSource interface {
	Scenario(id domain.Scenario) string
}

// ScriptSource loads scripts by identifier.
type ScriptSource interface {
	LoadScript(id string) (*domain.Script, bool)
}

// Content is the union of sources a coach may need.
type Content interface {
	ScenarioSource
	ScriptSource
}

// Selection is the learner's choice that determines which coach to build.
type Selection struct {
	Mode     domain.Mode
	Level    domain.Level
	Scenario domain.Scenario
	ScriptID string
}

// New builds the coach for sel. Free talk and pronunciation modes have no
// dedicated coach and run as the restaurant role-play.
func New(sel Selection, content Content) Coach {
	switch sel.Mode {
	case domain.ModeScript:
		return NewScriptCoach(sel.Level, sel.ScriptID, content)
	case domain.ModeSituation:
		return NewSituationCoach(sel.Level, sel.Scenario, content)
	default:
		return NewSituationCoach(sel.Level, domain.DefaultScenario, content)
	}
}

// base holds the state shared by every coach.
type base struct {
	level domain.Level
}

func (b base) Level() domain.Level { return b.level }

func newBase(level domain.Level) base {
	if level == "" {
		level = domain.LevelBeginner
	}
	return base{level: level}
}
