package store

import (
	"context"
	"log/slog"
	"time"
)

// StartSweeper runs a background goroutine that removes registry entries older
// than ttl every interval until ctx is cancelled.
func StartSweeper(ctx context.Context, s SessionStore, ttl, interval time.Duration, logger *slog.Logger) {
	if ttl <= 0 || interval <= 0 {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		logger.Info("Session sweeper started", "interval", interval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				sweep(ctx, s, ttl, logger)
			case <-ctx.Done():
				logger.Info("Session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func sweep(ctx context.Context, s SessionStore, ttl time.Duration, logger *slog.Logger) {
	removed, err := s.Expire(ctx, ttl)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		logger.Error("Session sweeper failed to expire sessions", "error", err)
		return
	}
	if removed > 0 {
		logger.Info("Session sweeper removed expired sessions", "count", removed)
	}
}
