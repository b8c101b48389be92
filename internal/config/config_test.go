package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

// unsetEnv clears key for the duration of the test.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("unset %s: %v", key, err)
	}
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "FRONTEND_URL", "REGISTRY_BACKEND", "KEEPALIVE_TICKS", "KEEPALIVE_INTERVAL",
		"ATTACH_MAX_ATTEMPTS", "ATTACH_BACKOFF", "VOICE_MODEL", "THINK_MODEL",
	} {
		unsetEnv(t, key)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Session.KeepAliveTicks != 120 || cfg.Session.KeepAliveInterval != 5*time.Second {
		t.Errorf("Unexpected keep-alive %+v", cfg.Session)
	}
	if cfg.Session.AttachMaxAttempts != 3 || cfg.Session.AttachBackoff != 2*time.Second {
		t.Errorf("Unexpected retry settings %+v", cfg.Session)
	}
	if cfg.Agent.Voice != "aura-2-odysseus-en" || cfg.Agent.ThinkModel != "gpt-4o-mini" {
		t.Errorf("Unexpected agent routing %+v", cfg.Agent)
	}
	if !cfg.IsDevelopment() {
		t.Error("Expected development mode without FRONTEND_URL")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("REGISTRY_BACKEND", "SQLite")
	t.Setenv("KEEPALIVE_TICKS", "60")
	t.Setenv("KEEPALIVE_INTERVAL", "10")
	t.Setenv("ATTACH_BACKOFF", "500ms")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,,")
	t.Setenv("FRONTEND_URL", "https://app.example/")
	t.Setenv("LOG_DEBUG", "yes")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "9000" || cfg.Registry.Backend != BackendSQLite {
		t.Errorf("Unexpected config %+v", cfg)
	}
	if cfg.Session.KeepAliveTicks != 60 || cfg.Session.KeepAliveInterval != 10*time.Second {
		t.Errorf("Unexpected keep-alive %+v", cfg.Session)
	}
	if cfg.Session.AttachBackoff != 500*time.Millisecond {
		t.Errorf("Unexpected backoff %v", cfg.Session.AttachBackoff)
	}
	if !cfg.LogDebug {
		t.Error("Expected LOG_DEBUG to enable debug logging")
	}
	origins := strings.Join(cfg.AllowedOrigins(), " ")
	if origins != "https://a.example https://b.example https://app.example" {
		t.Errorf("Unexpected origins %q", origins)
	}
	if cfg.IsDevelopment() {
		t.Error("Expected production mode")
	}
}

func TestValidate(t *testing.T) {
	t.Setenv("PORT", "8000")

	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown backend", "REGISTRY_BACKEND", "etcd"},
		{"zero attempts", "ATTACH_MAX_ATTEMPTS", "0"},
		{"negative ticks", "KEEPALIVE_TICKS", "-1"},
		{"zero capacity", "REGISTRY_CAPACITY", "0"},
		{"zero rate limit", "RATE_LIMIT_REQUESTS", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			if _, err := Load(); err == nil {
				t.Errorf("Expected %s=%s to be rejected", tt.key, tt.val)
			}
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("TEST_DURATION", "garbage")
	if got := getEnvDuration("TEST_DURATION", time.Minute); got != time.Minute {
		t.Errorf("Expected fallback, got %v", got)
	}
	t.Setenv("TEST_DURATION", "1h30m")
	if got := getEnvDuration("TEST_DURATION", time.Minute); got != 90*time.Minute {
		t.Errorf("Expected 90m, got %v", got)
	}
}
