// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Registry backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config holds all application configuration.
type Config struct {
	Port         string
	AppName      string
	FrontendURL  string
	CORSOrigins  []string
	ScriptsDir   string
	ScenariosDir string
	LogDebug     bool

	Stream   StreamConfig
	Agent    AgentConfig
	Registry RegistryConfig
	Session  SessionConfig

	RateLimit RateLimitConfig
}

// StreamConfig configures the real-time call provider.
type StreamConfig struct {
	APIKey    string
	APISecret string
	BaseURL   string
	TokenTTL  time.Duration
}

// AgentConfig configures the voice agent worker and its model routing.
type AgentConfig struct {
	WorkerAddr    string
	VoiceAPIKey   string
	Voice         string
	ListenModel   string
	ThinkProvider string
	ThinkModel    string
}

// RegistryConfig selects and tunes the session registry backend.
type RegistryConfig struct {
	Backend   string
	DBPath    string
	RedisAddr string
	TTL       time.Duration
	Capacity  int
}

// SessionConfig tunes the background session lifecycle.
type SessionConfig struct {
	AttachMaxAttempts int
	AttachBackoff     time.Duration
	AttachTimeout     time.Duration
	KeepAliveTicks    int
	KeepAliveInterval time.Duration
	MaxLive           int
}

// RateLimitConfig bounds session starts per client.
type RateLimitConfig struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:         getEnv("PORT", "8000"),
		AppName:      getEnv("APP_NAME", "Coachline"),
		FrontendURL:  getEnv("FRONTEND_URL", ""),
		CORSOrigins:  getEnvList("CORS_ORIGINS", []string{"http://localhost:3000", "http://127.0.0.1:3000"}),
		ScriptsDir:   getEnv("SCRIPTS_DIR", ""),
		ScenariosDir: getEnv("SCENARIOS_DIR", ""),
		LogDebug:     getEnvBool("LOG_DEBUG", false),
		Stream: StreamConfig{
			APIKey:    getEnv("STREAM_API_KEY", ""),
			APISecret: getEnv("STREAM_API_SECRET", ""),
			BaseURL:   getEnv("STREAM_BASE_URL", ""),
			TokenTTL:  getEnvDuration("STREAM_TOKEN_TTL", time.Hour),
		},
		Agent: AgentConfig{
			WorkerAddr:    getEnv("AGENT_WORKER_ADDR", ""),
			VoiceAPIKey:   getEnv("DEEPGRAM_API_KEY", ""),
			Voice:         getEnv("VOICE_MODEL", "aura-2-odysseus-en"),
			ListenModel:   getEnv("LISTEN_MODEL", "nova-3"),
			ThinkProvider: getEnv("THINK_PROVIDER", "open_ai"),
			ThinkModel:    getEnv("THINK_MODEL", "gpt-4o-mini"),
		},
		Registry: RegistryConfig{
			Backend:   strings.ToLower(getEnv("REGISTRY_BACKEND", BackendMemory)),
			DBPath:    getEnv("REGISTRY_DB_PATH", ""),
			RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
			TTL:       getEnvDuration("SESSION_TTL", time.Hour),
			Capacity:  getEnvInt("REGISTRY_CAPACITY", 10000),
		},
		Session: SessionConfig{
			AttachMaxAttempts: getEnvInt("ATTACH_MAX_ATTEMPTS", 3),
			AttachBackoff:     getEnvDuration("ATTACH_BACKOFF", 2*time.Second),
			AttachTimeout:     getEnvDuration("ATTACH_TIMEOUT", 30*time.Second),
			KeepAliveTicks:    getEnvInt("KEEPALIVE_TICKS", 120),
			KeepAliveInterval: getEnvDuration("KEEPALIVE_INTERVAL", 5*time.Second),
			MaxLive:           getEnvInt("MAX_LIVE_SESSIONS", 100),
		},
		RateLimit: RateLimitConfig{
			RequestsPerWindow: getEnvInt("RATE_LIMIT_REQUESTS", 20),
			WindowDuration:    getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	switch c.Registry.Backend {
	case BackendMemory, BackendSQLite:
	case BackendRedis:
		if c.Registry.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR cannot be empty when REGISTRY_BACKEND=redis")
		}
	default:
		return fmt.Errorf("REGISTRY_BACKEND must be one of memory, sqlite, redis; got %q", c.Registry.Backend)
	}
	if c.Registry.TTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	if c.Registry.Capacity <= 0 {
		return fmt.Errorf("REGISTRY_CAPACITY must be > 0")
	}
	if c.Session.AttachMaxAttempts <= 0 {
		return fmt.Errorf("ATTACH_MAX_ATTEMPTS must be > 0")
	}
	if c.Session.AttachBackoff < 0 {
		return fmt.Errorf("ATTACH_BACKOFF cannot be negative")
	}
	if c.Session.KeepAliveTicks < 0 {
		return fmt.Errorf("KEEPALIVE_TICKS cannot be negative")
	}
	if c.Session.KeepAliveInterval <= 0 {
		return fmt.Errorf("KEEPALIVE_INTERVAL must be > 0")
	}
	if c.Session.MaxLive <= 0 {
		return fmt.Errorf("MAX_LIVE_SESSIONS must be > 0")
	}
	if c.RateLimit.RequestsPerWindow <= 0 || c.RateLimit.WindowDuration <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// StreamConfigured reports whether call provider credentials are present.
func (c *Config) StreamConfigured() bool {
	return c.Stream.APIKey != "" && c.Stream.APISecret != ""
}

// AllowedOrigins returns the CORS origins plus the frontend URL when set.
func (c *Config) AllowedOrigins() []string {
	origins := append([]string(nil), c.CORSOrigins...)
	if c.FrontendURL != "" {
		origins = append(origins, strings.TrimRight(c.FrontendURL, "/"))
	}
	return origins
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// getEnvDuration accepts Go durations ("90s") or plain seconds ("90").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
