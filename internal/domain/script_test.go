package domain

import (
	"testing"
	"time"
)

func validScript() *Script {
	return &Script{
		ID:               "cafe-order",
		Title:            "Ordering Coffee",
		TitleJA:          "カフェで注文",
		Description:      "Order a drink at a cafe",
		Difficulty:       LevelBeginner,
		Category:         CategoryDaily,
		EstimatedMinutes: 3,
		Lines: []ScriptLine{
			{ID: 1, Speaker: SpeakerPartner, Text: "Hello"},
			{ID: 2, Speaker: SpeakerUser, Text: "Hi"},
		},
	}
}

func TestScriptValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *Script)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Script) {}},
		{name: "missing title_ja", mutate: func(s *Script) { s.TitleJA = "" }, wantErr: true},
		{name: "bad difficulty", mutate: func(s *Script) { s.Difficulty = "expert" }, wantErr: true},
		{name: "bad category", mutate: func(s *Script) { s.Category = "sports" }, wantErr: true},
		{name: "zero minutes", mutate: func(s *Script) { s.EstimatedMinutes = 0 }, wantErr: true},
		{name: "no lines", mutate: func(s *Script) { s.Lines = nil }, wantErr: true},
		{name: "duplicate ids", mutate: func(s *Script) { s.Lines[1].ID = 1 }, wantErr: true},
		{name: "zero id", mutate: func(s *Script) { s.Lines[0].ID = 0 }, wantErr: true},
		{name: "bad speaker", mutate: func(s *Script) { s.Lines[1].Speaker = "narrator" }, wantErr: true},
		{name: "empty text", mutate: func(s *Script) { s.Lines[1].Text = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validScript()
			tt.mutate(s)
			err := s.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestScriptSummaryCountsLines(t *testing.T) {
	s := validScript()
	sum := s.Summary()
	if sum.LineCount != 2 {
		t.Errorf("Expected line count 2, got %d", sum.LineCount)
	}
	if sum.ID != s.ID || sum.Category != s.Category {
		t.Errorf("Summary lost metadata: %+v", sum)
	}
}

func TestFirstPartnerLine(t *testing.T) {
	s := validScript()
	s.Lines[0].Speaker = SpeakerUser
	s.Lines[1].Speaker = SpeakerPartner

	line, ok := s.FirstPartnerLine()
	if !ok || line.ID != 2 {
		t.Fatalf("Expected line 2, got %+v ok=%v", line, ok)
	}

	s.Lines[1].Speaker = SpeakerUser
	if _, ok := s.FirstPartnerLine(); ok {
		t.Fatal("Expected no partner line")
	}
}

func TestParseLevelAndMode(t *testing.T) {
	if l, err := ParseLevel(""); err != nil || l != LevelBeginner {
		t.Errorf("ParseLevel(\"\") = %q, %v", l, err)
	}
	if l, err := ParseLevel(" Advanced "); err != nil || l != LevelAdvanced {
		t.Errorf("ParseLevel(Advanced) = %q, %v", l, err)
	}
	if _, err := ParseLevel("expert"); err == nil {
		t.Error("Expected error for unknown level")
	}
	if _, err := ParseMode(""); err == nil {
		t.Error("Expected error for empty mode")
	}
	if m, err := ParseMode("script"); err != nil || m != ModeScript {
		t.Errorf("ParseMode(script) = %q, %v", m, err)
	}
}

func TestSessionConfigExpired(t *testing.T) {
	now := time.Now()
	cfg := SessionConfig{CreatedAt: now.Add(-2 * time.Hour)}
	if !cfg.Expired(time.Hour, now) {
		t.Error("Expected config to be expired")
	}
	if cfg.Expired(0, now) {
		t.Error("Non-positive TTL must never expire")
	}
}
