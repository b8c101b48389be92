package agent

import "context"

// Worker attaches, drives and releases voice agents.
// This interface is implemented by the gRPC client.
type Worker interface {
	// Join attaches an agent to the call described by req.
	Join(ctx context.Context, req JoinRequest) (*Binding, error)

	// Respond makes the bound agent speak text, typically the opening line.
	Respond(ctx context.Context, bindingID, text string) error

	// Finish releases the agent binding.
	Finish(ctx context.Context, bindingID string) error

	// Close releases resources
	Close()
}

// Ensure GrpcClient implements Worker.
var _ Worker = (*GrpcClient)(nil)

// Unavailable is the Worker used when no agent worker address is configured.
// Every attach fails, so sessions end as abandoned after the retry policy runs out.
type Unavailable struct{}

var _ Worker = Unavailable{}

// Join always fails with ErrUnavailable.
func (Unavailable) Join(context.Context, JoinRequest) (*Binding, error) { return nil, ErrUnavailable }

// Respond always fails with ErrUnavailable.
func (Unavailable) Respond(context.Context, string, string) error { return ErrUnavailable }

// Finish is a no-op.
func (Unavailable) Finish(context.Context, string) error { return nil }

// Close is a no-op.
func (Unavailable) Close() {}
