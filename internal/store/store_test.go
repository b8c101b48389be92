package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ashureev/coachline/internal/domain"
)

func sessionConfig(id string) domain.SessionConfig {
	return domain.SessionConfig{
		SessionID: id,
		Mode:      domain.ModeSituation,
		Level:     domain.LevelIntermediate,
		Scenario:  domain.ScenarioHotel,
	}
}

// exerciseStore runs the behavior every SessionStore must share.
func exerciseStore(t *testing.T, s SessionStore) {
	t.Helper()
	ctx := context.Background()

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	got, err := s.Get(ctx, "missing")
	if err != nil || got != nil {
		t.Fatalf("Expected nil for missing session, got %+v err=%v", got, err)
	}

	cfg := sessionConfig("sess-1")
	cfg.ScriptID = "cafe-order"
	if err := s.Put(ctx, cfg); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err = s.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected stored session")
	}
	if got.Mode != cfg.Mode || got.Level != cfg.Level || got.Scenario != cfg.Scenario || got.ScriptID != cfg.ScriptID {
		t.Errorf("Round trip mismatch: %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("Expected CreatedAt to be populated")
	}

	if err := s.RecordEnd(ctx, domain.EndReport{SessionID: "sess-1", DurationSeconds: 300, MessagesExchanged: 12}); err != nil {
		t.Fatalf("RecordEnd failed: %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemory(10, time.Hour)
	exerciseStore(t, s)

	report, ok := s.Report("sess-1")
	if !ok || report.MessagesExchanged != 12 {
		t.Errorf("Expected recorded report, got %+v ok=%v", report, ok)
	}
}

func TestMemoryStoreCapacity(t *testing.T) {
	ctx := context.Background()
	s := NewMemory(2, 0)

	for _, id := range []string{"a", "b", "c"} {
		if err := s.Put(ctx, sessionConfig(id)); err != nil {
			t.Fatalf("Put(%s) failed: %v", id, err)
		}
	}

	if s.Len() != 2 {
		t.Fatalf("Expected 2 entries, got %d", s.Len())
	}
	if got, _ := s.Get(ctx, "a"); got != nil {
		t.Error("Expected oldest entry to be evicted")
	}
	if got, _ := s.Get(ctx, "c"); got == nil {
		t.Error("Expected newest entry to be present")
	}
}

func TestMemoryStoreTTL(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s := NewMemory(0, time.Minute)
	s.now = func() time.Time { return now }

	if err := s.Put(ctx, sessionConfig("old")); err != nil {
		t.Fatal(err)
	}
	now = now.Add(2 * time.Minute)
	if err := s.Put(ctx, sessionConfig("fresh")); err != nil {
		t.Fatal(err)
	}

	if got, _ := s.Get(ctx, "old"); got != nil {
		t.Error("Expected expired entry to be hidden")
	}

	removed, err := s.Expire(ctx, time.Minute)
	if err != nil {
		t.Fatalf("Expire failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Expected 1 removed, got %d", removed)
	}
	if s.Len() != 1 {
		t.Errorf("Expected 1 remaining, got %d", s.Len())
	}
}

func TestSQLiteStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "registry", "sessions.db")
	s, err := NewSQLite(dbPath, time.Hour)
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	defer func() { _ = s.Close() }()

	exerciseStore(t, s)

	reports, err := s.Reports(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("Reports failed: %v", err)
	}
	if len(reports) != 1 || reports[0].DurationSeconds != 300 {
		t.Errorf("Unexpected reports: %+v", reports)
	}
}

func TestSQLiteStoreExpire(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "sessions.db"), 0)
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	defer func() { _ = s.Close() }()

	old := sessionConfig("old")
	old.CreatedAt = time.Now().Add(-3 * time.Hour)
	if err := s.Put(ctx, old); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, sessionConfig("fresh")); err != nil {
		t.Fatal(err)
	}

	removed, err := s.Expire(ctx, time.Hour)
	if err != nil {
		t.Fatalf("Expire failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Expected 1 removed, got %d", removed)
	}
	if got, _ := s.Get(ctx, "old"); got != nil {
		t.Error("Expected old session to be gone")
	}
	if got, _ := s.Get(ctx, "fresh"); got == nil {
		t.Error("Expected fresh session to remain")
	}
}

func TestSQLiteStoreInMemory(t *testing.T) {
	s, err := NewSQLite("", time.Hour)
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	defer func() { _ = s.Close() }()

	exerciseStore(t, s)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	s, err := NewRedis(context.Background(), addr, time.Minute)
	if err != nil {
		t.Fatalf("NewRedis failed: %v", err)
	}
	defer func() { _ = s.Close() }()

	exerciseStore(t, s)
}

func TestSweeperExpiresEntries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewMemory(0, 0)
	old := sessionConfig("old")
	old.CreatedAt = time.Now().Add(-time.Hour)
	if err := s.Put(ctx, old); err != nil {
		t.Fatal(err)
	}

	StartSweeper(ctx, s, time.Minute, 10*time.Millisecond, nil)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.Len() == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("Sweeper did not remove expired entry")
}
