package domain

import (
	"errors"
	"fmt"
)

// Category groups scripts by theme.
type Category string

const (
	CategoryDaily    Category = "daily"
	CategoryTravel   Category = "travel"
	CategoryBusiness Category = "business"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryDaily, CategoryTravel, CategoryBusiness:
		return true
	}
	return false
}

// Speaker is the role that says a script line.
type Speaker string

const (
	// SpeakerPartner lines are spoken by the agent.
	SpeakerPartner Speaker = "partner"
	// SpeakerUser lines are practiced by the learner.
	SpeakerUser Speaker = "user"
)

// ScriptLine is one line of dialogue.
type ScriptLine struct {
	ID      int     `json:"id" yaml:"id"`
	Speaker Speaker `json:"speaker" yaml:"speaker"`
	Text    string  `json:"text" yaml:"text"`
	Notes   string  `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// Script is an ordered, role-tagged dialogue used for line-by-line practice.
type Script struct {
	ID               string       `json:"id" yaml:"id"`
	Title            string       `json:"title" yaml:"title"`
	TitleJA          string       `json:"title_ja" yaml:"title_ja"`
	Description      string       `json:"description" yaml:"description"`
	Difficulty       Level        `json:"difficulty" yaml:"difficulty"`
	Category         Category     `json:"category" yaml:"category"`
	EstimatedMinutes int          `json:"estimated_minutes" yaml:"estimated_minutes"`
	Lines            []ScriptLine `json:"lines" yaml:"lines"`
}

// ScriptSummary is the listing view of a Script without line bodies.
type ScriptSummary struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	TitleJA          string   `json:"title_ja"`
	Description      string   `json:"description"`
	Difficulty       Level    `json:"difficulty"`
	Category         Category `json:"category"`
	EstimatedMinutes int      `json:"estimated_minutes"`
	LineCount        int      `json:"line_count"`
}

var errEmptyScript = errors.New("script has no lines")

// Validate checks that the script has every required field and that line
// identifiers start at 1 or above and are strictly increasing.
func (s *Script) Validate() error {
	switch {
	case s.ID == "":
		return errors.New("missing id")
	case s.Title == "":
		return errors.New("missing title")
	case s.TitleJA == "":
		return errors.New("missing title_ja")
	case s.Description == "":
		return errors.New("missing description")
	case !s.Difficulty.Valid():
		return fmt.Errorf("invalid difficulty %q", s.Difficulty)
	case !s.Category.Valid():
		return fmt.Errorf("invalid category %q", s.Category)
	case s.EstimatedMinutes <= 0:
		return fmt.Errorf("invalid estimated_minutes %d", s.EstimatedMinutes)
	case len(s.Lines) == 0:
		return errEmptyScript
	}

	prev := 0
	for i, line := range s.Lines {
		if line.ID <= prev {
			return fmt.Errorf("line %d: id %d is not greater than %d", i, line.ID, prev)
		}
		if line.Speaker != SpeakerPartner && line.Speaker != SpeakerUser {
			return fmt.Errorf("line %d: invalid speaker %q", line.ID, line.Speaker)
		}
		prev = line.ID
	}
	return nil
}

// Summary returns the listing view of the script.
func (s *Script) Summary() ScriptSummary {
	return ScriptSummary{
		ID:               s.ID,
		Title:            s.Title,
		TitleJA:          s.TitleJA,
		Description:      s.Description,
		Difficulty:       s.Difficulty,
		Category:         s.Category,
		EstimatedMinutes: s.EstimatedMinutes,
		LineCount:        len(s.Lines),
	}
}

// FirstPartnerLine returns the first line spoken by the partner, if any.
func (s *Script) FirstPartnerLine() (ScriptLine, bool) {
	for _, line := range s.Lines {
		if line.Speaker == SpeakerPartner {
			return line, true
		}
	}
	return ScriptLine{}, false
}
