// Package transport talks to the real-time call provider.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	getstream "github.com/GetStream/getstream-go/v3"
)

// DefaultCallType is the call type used for coaching sessions.
const DefaultCallType = "default"

// systemUserID owns every call the server creates.
const systemUserID = "system"

const defaultRequestTimeout = 15 * time.Second

// ErrProvider is returned when the call provider rejects a request.
var ErrProvider = errors.New("call provider error")

// Call describes a call on the provider.
type Call struct {
	ID      string `json:"call_id"`
	Type    string `json:"call_type"`
	CID     string `json:"cid,omitempty"`
	Created bool   `json:"created"`
}

// CallProvider creates and releases calls on the real-time transport.
type CallProvider interface {
	// GetOrCreateCall returns the call, creating it if it does not exist yet.
	GetOrCreateCall(ctx context.Context, callType, callID string) (*Call, error)
	// EndCall marks the call as ended.
	EndCall(ctx context.Context, callType, callID string) error
}

// StreamConfig configures a StreamClient.
type StreamConfig struct {
	APIKey    string
	APISecret string
	// BaseURL overrides the SDK's default API endpoint.
	BaseURL string
	Timeout time.Duration
}

// StreamClient is a CallProvider backed by the GetStream video SDK.
type StreamClient struct {
	apiKey string
	sdk    *getstream.Stream
	// initErr is returned from every call when the SDK client could not be built.
	initErr error
	tokens  *Tokens
	logger  *slog.Logger
}

var _ CallProvider = (*StreamClient)(nil)

// NewStreamClient creates a client for the GetStream video API. Missing
// credentials do not fail construction; calls fail with ErrProvider instead.
func NewStreamClient(cfg StreamConfig, logger *slog.Logger) *StreamClient {
	if logger == nil {
		logger = slog.Default()
	}
	c := &StreamClient{
		apiKey: cfg.APIKey,
		tokens: NewTokens(cfg.APISecret),
		logger: logger,
	}

	if cfg.APIKey == "" || cfg.APISecret == "" {
		c.initErr = errMissingCredentials
		return c
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	opts := []getstream.ClientOption{getstream.WithTimeout(timeout)}
	if base := strings.TrimRight(cfg.BaseURL, "/"); base != "" {
		opts = append(opts, getstream.WithBaseUrl(base))
	}

	sdk, err := getstream.NewClient(cfg.APIKey, cfg.APISecret, opts...)
	if err != nil {
		logger.Warn("Failed to create call provider client", "error", err)
		c.initErr = fmt.Errorf("%w: %w", ErrProvider, err)
		return c
	}
	c.sdk = sdk
	return c
}

// Tokens returns the signer sharing this client's secret.
func (c *StreamClient) Tokens() *Tokens { return c.tokens }

// APIKey returns the public API key clients need alongside their token.
func (c *StreamClient) APIKey() string { return c.apiKey }

// GetOrCreateCall creates the call on behalf of the system user.
func (c *StreamClient) GetOrCreateCall(ctx context.Context, callType, callID string) (*Call, error) {
	if c.initErr != nil {
		return nil, fmt.Errorf("get or create call %s: %w", callID, c.initErr)
	}
	if callType == "" {
		callType = DefaultCallType
	}

	resp, err := c.sdk.Video().Call(callType, callID).GetOrCreate(ctx, &getstream.GetOrCreateCallRequest{
		Data: &getstream.CallRequest{
			CreatedByID: getstream.PtrTo(systemUserID),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get or create call %s: %w: %w", callID, ErrProvider, err)
	}

	call := &Call{ID: callID, Type: callType, CID: resp.Data.Call.Cid, Created: resp.Data.Created}
	if resp.Data.Call.ID != "" {
		call.ID = resp.Data.Call.ID
	}
	c.logger.Debug("Call ready", "call_id", call.ID, "call_type", call.Type, "created", call.Created)
	return call, nil
}

// EndCall marks the call ended so connected participants are released.
func (c *StreamClient) EndCall(ctx context.Context, callType, callID string) error {
	if c.initErr != nil {
		return fmt.Errorf("end call %s: %w", callID, c.initErr)
	}
	if callType == "" {
		callType = DefaultCallType
	}
	if _, err := c.sdk.Video().Call(callType, callID).End(ctx, &getstream.EndCallRequest{}); err != nil {
		return fmt.Errorf("end call %s: %w: %w", callID, ErrProvider, err)
	}
	return nil
}
