// Package domain contains core domain types for the coaching service.
package domain

import (
	"fmt"
	"strings"
)

// Level is the learner's proficiency level. It selects the tone block of the prompt.
type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
)

// Valid reports whether l is a known level.
func (l Level) Valid() bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return true
	}
	return false
}

// ParseLevel normalizes s into a Level. An empty string yields beginner.
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return LevelBeginner, nil
	}
	l := Level(s)
	if !l.Valid() {
		return "", fmt.Errorf("unknown level %q", s)
	}
	return l, nil
}

// Mode is the coaching mode requested by the client.
type Mode string

const (
	ModeFreeTalk      Mode = "freetalk"
	ModePronunciation Mode = "pronunciation"
	ModeSituation     Mode = "situation"
	ModeScript        Mode = "script"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeFreeTalk, ModePronunciation, ModeSituation, ModeScript:
		return true
	}
	return false
}

// ParseMode normalizes s into a Mode.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("unknown mode %q", s)
	}
	return m, nil
}

// Scenario identifies a built-in role-play setting.
type Scenario string

const (
	ScenarioRestaurant Scenario = "restaurant"
	ScenarioDirections Scenario = "directions"
	ScenarioHotel      Scenario = "hotel"
	ScenarioShopping   Scenario = "shopping"

	// DefaultScenario is used whenever a scenario is missing or unknown.
	DefaultScenario = ScenarioRestaurant
)

// ScenarioInfo is the catalog entry shown to clients.
type ScenarioInfo struct {
	ID          Scenario `json:"id"`
	Title       string   `json:"title"`
	TitleJA     string   `json:"title_ja"`
	Description string   `json:"description"`
	Difficulty  string   `json:"difficulty"`
}
