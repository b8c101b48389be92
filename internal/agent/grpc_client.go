package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service exposed by agent workers.
const ServiceName = "coach.agent.v1.AgentWorker"

const (
	methodJoin    = "/" + ServiceName + "/Join"
	methodRespond = "/" + ServiceName + "/Respond"
	methodFinish  = "/" + ServiceName + "/Finish"
)

var (
	errConnectionShutdown       = errors.New("connection shutdown")
	errConnectionStateUnchanged = errors.New("connection state did not change")
	errMissingBinding           = errors.New("worker returned no binding id")
	errNotServing               = errors.New("worker is not serving")
)

// GrpcClient talks to a remote agent worker over gRPC. Messages are
// google.protobuf.Struct values so the worker can be written in any language
// without sharing generated stubs.
type GrpcClient struct {
	conn           *grpc.ClientConn
	health         healthpb.HealthClient
	addr           string
	requestTimeout time.Duration
	logger         *slog.Logger
}

// GrpcClientConfig holds configuration for the gRPC client.
type GrpcClientConfig struct {
	Address          string
	ConnectTimeout   time.Duration
	RequestTimeout   time.Duration
	KeepaliveTime    time.Duration
	KeepaliveTimeout time.Duration
}

// DefaultGrpcClientConfig returns default configuration.
func DefaultGrpcClientConfig() GrpcClientConfig {
	return GrpcClientConfig{
		Address:          "localhost:50051",
		ConnectTimeout:   5 * time.Second,
		RequestTimeout:   30 * time.Second,
		KeepaliveTime:    2 * time.Minute,
		KeepaliveTimeout: 10 * time.Second,
	}
}

// NewGrpcClient connects to the agent worker and waits until the connection
// is ready. Extra dial options are appended after the defaults.
func NewGrpcClient(cfg GrpcClientConfig, logger *slog.Logger, opts ...grpc.DialOption) (*GrpcClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultGrpcClientConfig()
	if cfg.Address == "" {
		cfg.Address = defaults.Address
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaults.ConnectTimeout
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaults.RequestTimeout
	}
	if cfg.KeepaliveTime <= 0 {
		cfg.KeepaliveTime = defaults.KeepaliveTime
	}
	if cfg.KeepaliveTimeout <= 0 {
		cfg.KeepaliveTimeout = defaults.KeepaliveTimeout
	}

	kacp := keepalive.ClientParameters{
		Time:                cfg.KeepaliveTime,
		Timeout:             cfg.KeepaliveTimeout,
		PermitWithoutStream: false,
	}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(kacp),
	}, opts...)

	// Build client connection (no network I/O yet).
	conn, err := grpc.NewClient(cfg.Address, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to agent worker at %s: %w", cfg.Address, err)
	}

	// Force a connection attempt during startup so we fail fast on bad endpoints.
	connectCtx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	if err := waitForReady(connectCtx, conn); err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			logger.Warn("failed to close gRPC connection after readiness failure", "error", closeErr)
		}
		return nil, fmt.Errorf("agent worker at %s not ready: %w", cfg.Address, err)
	}

	logger.Info("Connected to agent worker", "address", cfg.Address)

	return &GrpcClient{
		conn:           conn,
		health:         healthpb.NewHealthClient(conn),
		addr:           cfg.Address,
		requestTimeout: cfg.RequestTimeout,
		logger:         logger,
	}, nil
}

func waitForReady(ctx context.Context, conn *grpc.ClientConn) error {
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Idle:
			conn.Connect()
		case connectivity.Shutdown:
			return errConnectionShutdown
		}

		if !conn.WaitForStateChange(ctx, state) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w from %s", errConnectionStateUnchanged, state)
		}
	}
}

// Close closes the gRPC connection.
func (c *GrpcClient) Close() {
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.logger.Warn("failed to close gRPC connection", "error", err)
		}
	}
}

// Health checks that the worker reports SERVING for the agent service.
func (c *GrpcClient) Health(ctx context.Context) error {
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("%w: %s", errNotServing, resp.GetStatus())
	}
	return nil
}

// Join attaches an agent to a call and returns its binding.
func (c *GrpcClient) Join(ctx context.Context, req JoinRequest) (*Binding, error) {
	resp, err := c.invoke(ctx, methodJoin, map[string]any{
		"session_id":     req.SessionID,
		"call_type":      req.CallType,
		"call_id":        req.CallID,
		"instructions":   req.Instructions,
		"greeting":       req.Greeting,
		"voice":          req.Voice.Voice,
		"listen_model":   req.Voice.ListenModel,
		"think_provider": req.Voice.ThinkProvider,
		"think_model":    req.Voice.ThinkModel,
	})
	if err != nil {
		return nil, fmt.Errorf("join call %s: %w", req.CallID, err)
	}

	bindingID := resp.GetFields()["binding_id"].GetStringValue()
	if bindingID == "" {
		return nil, fmt.Errorf("join call %s: %w", req.CallID, errMissingBinding)
	}
	c.logger.Debug("Agent joined call", "session_id", req.SessionID, "call_id", req.CallID, "binding_id", bindingID)
	return &Binding{ID: bindingID, CallID: req.CallID}, nil
}

// Respond makes the bound agent say text.
func (c *GrpcClient) Respond(ctx context.Context, bindingID, text string) error {
	if _, err := c.invoke(ctx, methodRespond, map[string]any{
		"binding_id": bindingID,
		"text":       text,
	}); err != nil {
		return fmt.Errorf("respond on %s: %w", bindingID, err)
	}
	return nil
}

// Finish releases the agent binding.
func (c *GrpcClient) Finish(ctx context.Context, bindingID string) error {
	if _, err := c.invoke(ctx, methodFinish, map[string]any{"binding_id": bindingID}); err != nil {
		return fmt.Errorf("finish %s: %w", bindingID, err)
	}
	return nil
}

func (c *GrpcClient) invoke(ctx context.Context, method string, fields map[string]any) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, method, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}
