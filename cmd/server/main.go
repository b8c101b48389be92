// Coachline - spoken conversation coaching server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/coachline/internal/agent"
	"github.com/ashureev/coachline/internal/api"
	"github.com/ashureev/coachline/internal/config"
	"github.com/ashureev/coachline/internal/content"
	"github.com/ashureev/coachline/internal/identity"
	"github.com/ashureev/coachline/internal/middleware"
	"github.com/ashureev/coachline/internal/session"
	"github.com/ashureev/coachline/internal/store"
	"github.com/ashureev/coachline/internal/transport"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

const registrySweepInterval = time.Minute

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.LogDebug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "registry", cfg.Registry.Backend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Session registry.
	registry, err := openRegistry(ctx, cfg.Registry)
	if err != nil {
		slog.Error("Failed to initialize session registry", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := registry.Close(); closeErr != nil {
			slog.Error("Failed to close session registry", "error", closeErr)
		}
	}()

	if err := registry.Ping(ctx); err != nil {
		slog.Error("Session registry health check failed", "error", err)
		os.Exit(1)
	}
	store.StartSweeper(ctx, registry, cfg.Registry.TTL, registrySweepInterval, logger)
	slog.Info("Session registry ready", "ttl", cfg.Registry.TTL)

	catalog := content.NewFromDirs(cfg.ScriptsDir, cfg.ScenariosDir, logger)

	if !cfg.StreamConfigured() {
		slog.Warn("STREAM_API_KEY or STREAM_API_SECRET not set, call requests will be rejected by the provider")
	}
	calls := transport.NewStreamClient(transport.StreamConfig{
		APIKey:    cfg.Stream.APIKey,
		APISecret: cfg.Stream.APISecret,
		BaseURL:   cfg.Stream.BaseURL,
	}, logger)

	// Voice agent worker (optional).
	var worker agent.Worker = agent.Unavailable{}
	if cfg.Agent.WorkerAddr != "" {
		slog.Info("Connecting to voice agent worker via gRPC", "address", cfg.Agent.WorkerAddr)

		grpcCfg := agent.DefaultGrpcClientConfig()
		grpcCfg.Address = cfg.Agent.WorkerAddr
		grpcClient, err := agent.NewGrpcClient(grpcCfg, logger)
		if err != nil {
			slog.Warn("Failed to connect to voice agent worker, coaches will not join calls", "error", err)
		} else {
			worker = grpcClient
		}
	} else {
		slog.Info("Voice agent worker disabled (AGENT_WORKER_ADDR not set)")
	}
	defer worker.Close()

	sessionCfg := session.DefaultConfig()
	sessionCfg.Retry = session.RetryPolicy{
		MaxAttempts:    cfg.Session.AttachMaxAttempts,
		Backoff:        cfg.Session.AttachBackoff,
		AttemptTimeout: cfg.Session.AttachTimeout,
	}
	sessionCfg.KeepAliveTicks = cfg.Session.KeepAliveTicks
	sessionCfg.KeepAliveInterval = cfg.Session.KeepAliveInterval
	sessionCfg.MaxLiveSessions = int64(cfg.Session.MaxLive)
	sessionCfg.Retention = cfg.Registry.TTL
	sessionCfg.VoiceAPIKey = cfg.Agent.VoiceAPIKey
	sessionCfg.Voice = agent.VoiceSettings{
		Voice:         cfg.Agent.Voice,
		ListenModel:   cfg.Agent.ListenModel,
		ThinkProvider: cfg.Agent.ThinkProvider,
		ThinkModel:    cfg.Agent.ThinkModel,
	}

	orchestrator := session.New(sessionCfg, session.Deps{
		Content: catalog,
		Store:   registry,
		Calls:   calls,
		Worker:  worker,
	}, logger)

	// Handlers.
	origins := cfg.AllowedOrigins()
	limiter := middleware.NewRateLimiter(ctx, cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.WindowDuration)

	baseHandler := api.NewHandler(logger)
	checks := map[string]api.Pinger{"registry": registry}
	if grpcClient, ok := worker.(*agent.GrpcClient); ok {
		checks["agent_worker"] = api.PingFunc(grpcClient.Health)
	}
	healthHandler := api.NewHealthHandler(baseHandler, cfg.AppName, checks)
	eventsHandler := api.NewEventsHandler(baseHandler, orchestrator.Hub(), api.OriginPatterns(origins))
	coachHandler := api.NewCoachHandler(baseHandler, orchestrator, catalog, eventsHandler,
		middleware.RateLimit(limiter, identity.IPFromRequest))
	callHandler := api.NewCallHandler(baseHandler, calls, calls.Tokens(), calls.APIKey(), cfg.Stream.TokenTTL, orchestrator)

	// Setup router.
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(origins))
	r.Use(identity.Middleware(cfg.IsDevelopment()))

	healthHandler.RegisterHealth(r)
	coachHandler.RegisterRoutes(r)
	callHandler.RegisterRoutes(r)

	// WriteTimeout stays 0 so event streams are not cut off.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	if err := orchestrator.Shutdown(shutdownCtx); err != nil {
		slog.Error("Session jobs did not finish before shutdown deadline", "error", err)
	}

	slog.Info("Server stopped successfully")
}

func openRegistry(ctx context.Context, cfg config.RegistryConfig) (store.SessionStore, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		s, err := store.NewSQLite(cfg.DBPath, cfg.TTL)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendRedis:
		s, err := store.NewRedis(ctx, cfg.RedisAddr, cfg.TTL)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return store.NewMemory(cfg.Capacity, cfg.TTL), nil
	}
}
