package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ashureev/coachline/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "coachline:"

// RedisStore implements SessionStore on Redis. Expiry is delegated to Redis key TTLs.
type RedisStore struct {
	rdb *goredis.Client
	ttl time.Duration
}

// NewRedis connects to addr and verifies the connection. Entries expire after ttl;
// a non-positive ttl stores them without expiry.
func NewRedis(ctx context.Context, addr string, ttl time.Duration) (*RedisStore, error) {
	if addr == "" {
		return nil, errors.New("missing redis address")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{rdb: rdb, ttl: ttl}, nil
}

func sessionKey(id string) string { return redisKeyPrefix + "session:" + id }
func reportKey(id string) string  { return redisKeyPrefix + "report:" + id }

// Put stores cfg as JSON with the configured TTL.
func (s *RedisStore) Put(ctx context.Context, cfg domain.SessionConfig) error {
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = time.Now()
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", cfg.SessionID, err)
	}
	if err := s.rdb.Set(ctx, sessionKey(cfg.SessionID), raw, s.keyTTL()).Err(); err != nil {
		return fmt.Errorf("put session %s: %w", cfg.SessionID, err)
	}
	return nil
}

// Get returns the stored configuration, or nil when the key is missing.
func (s *RedisStore) Get(ctx context.Context, sessionID string) (*domain.SessionConfig, error) {
	raw, err := s.rdb.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", sessionID, err)
	}
	var cfg domain.SessionConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return &cfg, nil
}

// RecordEnd appends the report to a per-session list sharing the session TTL.
func (s *RedisStore) RecordEnd(ctx context.Context, report domain.EndReport) error {
	if report.ReportedAt.IsZero() {
		report.ReportedAt = time.Now()
	}
	raw, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report %s: %w", report.SessionID, err)
	}

	key := reportKey(report.SessionID)
	pipe := s.rdb.TxPipeline()
	pipe.RPush(ctx, key, raw)
	if ttl := s.keyTTL(); ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record end for %s: %w", report.SessionID, err)
	}
	return nil
}

// Expire is a no-op: Redis evicts keys on its own.
func (s *RedisStore) Expire(context.Context, time.Duration) (int64, error) {
	return 0, nil
}

// Ping verifies the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func (s *RedisStore) keyTTL() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	return s.ttl
}
