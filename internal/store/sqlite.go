package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/coachline/internal/domain"
	"github.com/ashureev/coachline/internal/shared"
	_ "modernc.org/sqlite"
)

// memoryDSN keeps the registry inside the process: nothing outlives a restart.
const memoryDSN = "file:coachline?mode=memory&cache=shared&_pragma=busy_timeout(5000)"

const (
	conflictRetries   = 3
	conflictBaseDelay = 50 * time.Millisecond
)

// SQLiteStore implements SessionStore using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration
}

// NewSQLite creates a SQLite-backed session store. An empty path or ":memory:"
// opens a shared in-memory database.
func NewSQLite(dbPath string, ttl time.Duration) (*SQLiteStore, error) {
	dsn := memoryDSN
	inMemory := dbPath == "" || dbPath == ":memory:"
	if !inMemory {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		dsn = "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if inMemory {
		// The shared in-memory database disappears with its last connection.
		db.SetMaxOpenConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db, ttl: ttl}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS coach_sessions (
		session_id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		level TEXT NOT NULL,
		scenario TEXT,
		script_id TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_coach_sessions_created ON coach_sessions(created_at);

	CREATE TABLE IF NOT EXISTS session_reports (
		session_id TEXT NOT NULL,
		duration_seconds INTEGER NOT NULL,
		messages_exchanged INTEGER NOT NULL,
		reported_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_session_reports_session ON session_reports(session_id);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Put records cfg, replacing any previous entry for the same session.
func (s *SQLiteStore) Put(ctx context.Context, cfg domain.SessionConfig) error {
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = time.Now()
	}
	query := `
	INSERT INTO coach_sessions (session_id, mode, level, scenario, script_id, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(session_id) DO UPDATE SET
		mode = excluded.mode,
		level = excluded.level,
		scenario = excluded.scenario,
		script_id = excluded.script_id,
		created_at = excluded.created_at`

	err := shared.RetryOnConflict(ctx, conflictRetries, conflictBaseDelay, func() error {
		_, err := s.db.ExecContext(ctx, query,
			cfg.SessionID, string(cfg.Mode), string(cfg.Level),
			nullString(string(cfg.Scenario)), nullString(cfg.ScriptID),
			cfg.CreatedAt.UnixNano(),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("put session %s: %w", cfg.SessionID, err)
	}
	return nil
}

// Get returns the configuration for sessionID, or nil when absent or expired.
func (s *SQLiteStore) Get(ctx context.Context, sessionID string) (*domain.SessionConfig, error) {
	query := `
		SELECT session_id, mode, level, scenario, script_id, created_at
		FROM coach_sessions WHERE session_id = ?`

	var cfg domain.SessionConfig
	var mode, level string
	var scenario, scriptID sql.NullString
	var createdAt int64

	err := s.db.QueryRowContext(ctx, query, sessionID).Scan(
		&cfg.SessionID, &mode, &level, &scenario, &scriptID, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	cfg.Mode = domain.Mode(mode)
	cfg.Level = domain.Level(level)
	cfg.Scenario = domain.Scenario(scenario.String)
	cfg.ScriptID = scriptID.String
	cfg.CreatedAt = time.Unix(0, createdAt)

	if cfg.Expired(s.ttl, time.Now()) {
		return nil, nil
	}
	return &cfg, nil
}

// RecordEnd appends an end-of-session report.
func (s *SQLiteStore) RecordEnd(ctx context.Context, report domain.EndReport) error {
	if report.ReportedAt.IsZero() {
		report.ReportedAt = time.Now()
	}
	query := `
	INSERT INTO session_reports (session_id, duration_seconds, messages_exchanged, reported_at)
	VALUES (?, ?, ?, ?)`

	err := shared.RetryOnConflict(ctx, conflictRetries, conflictBaseDelay, func() error {
		_, err := s.db.ExecContext(ctx, query,
			report.SessionID, report.DurationSeconds, report.MessagesExchanged, report.ReportedAt.UnixNano(),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("record end for %s: %w", report.SessionID, err)
	}
	return nil
}

// Reports returns every report recorded for sessionID, oldest first.
func (s *SQLiteStore) Reports(ctx context.Context, sessionID string) ([]domain.EndReport, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, duration_seconds, messages_exchanged, reported_at
		FROM session_reports WHERE session_id = ? ORDER BY reported_at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var reports []domain.EndReport
	for rows.Next() {
		var r domain.EndReport
		var reportedAt int64
		if err := rows.Scan(&r.SessionID, &r.DurationSeconds, &r.MessagesExchanged, &reportedAt); err != nil {
			return nil, fmt.Errorf("scan report row: %w", err)
		}
		r.ReportedAt = time.Unix(0, reportedAt)
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// Expire deletes sessions and reports older than ttl.
func (s *SQLiteStore) Expire(ctx context.Context, ttl time.Duration) (int64, error) {
	if ttl <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-ttl).UnixNano()

	var removed int64
	err := shared.RetryOnConflict(ctx, conflictRetries, conflictBaseDelay, func() error {
		result, err := s.db.ExecContext(ctx, `DELETE FROM coach_sessions WHERE created_at < ?`, cutoff)
		if err != nil {
			return err
		}
		removed, err = result.RowsAffected()
		if err != nil {
			return err
		}
		_, err = s.db.ExecContext(ctx, `DELETE FROM session_reports WHERE reported_at < ?`, cutoff)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("expire sessions: %w", err)
	}
	return removed, nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}
