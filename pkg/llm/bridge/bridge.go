// Package bridge carries generation calls across the boundary between the
// routing layer and a remote execution context. Calls and results are plain
// JSON-serializable structs: the boundary is a real process/context edge, so
// no Go values (schemas, callbacks, errors) survive crossing it in kind.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pagepilot/pagepilot/pkg/llm"
)

// DefaultTimeout bounds a single bridge round trip. A hung remote context
// must surface as a provider-level failure, not a stuck agent step.
const DefaultTimeout = 30 * time.Second

// Bridge operations. Sessions live on the remote side so that fixed
// instructions cross the boundary (and reach the model) once, at open time.
const (
	OpPing     = "ping"
	OpOpen     = "open"
	OpGenerate = "generate"
	OpClose    = "close"
)

// Error kinds a Result can carry. Go error values do not cross the
// boundary, so the remote side classifies into these and the local side
// maps them back onto the shared taxonomy.
const (
	ErrKindUnavailable   = "unavailable"
	ErrKindTruncated     = "truncated"
	ErrKindInputTooLarge = "input_too_large"
	ErrKindInternal      = "internal"
)

// Call is one request crossing the bridge. Schema travels serialized; the
// remote side reconstructs it before use. System is only meaningful on
// OpOpen; Prompt and Schema only on OpGenerate.
type Call struct {
	ID         string `json:"id"`
	Op         string `json:"op"`
	SessionID  string `json:"sessionId,omitempty"`
	System     string `json:"system,omitempty"`
	Prompt     string `json:"prompt,omitempty"`
	SchemaName string `json:"schemaName,omitempty"`
	Schema     []byte `json:"schema,omitempty"`
}

// Result is the remote side's answer to a Call.
type Result struct {
	ID      string `json:"id"`
	OK      bool   `json:"ok"`
	Text    string `json:"text,omitempty"`
	ErrKind string `json:"errKind,omitempty"`
	Err     string `json:"err,omitempty"`
}

// Transport moves a Call to the remote context and returns its Result.
// Implementations must honor ctx cancellation.
type Transport interface {
	Send(ctx context.Context, call Call) (Result, error)
}

// Client issues calls over a transport with a per-call deadline and
// correlation-ID checking.
type Client struct {
	transport Transport
	timeout   time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout overrides the per-call deadline.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewClient creates a bridge client over the given transport.
func NewClient(transport Transport, opts ...ClientOption) *Client {
	c := &Client{
		transport: transport,
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Invoke sends a call and waits for its result. The call's ID is assigned
// here; a result carrying a different ID is a stale answer from an earlier
// timed-out call and is rejected rather than delivered.
func (c *Client) Invoke(ctx context.Context, call Call) (Result, error) {
	call.ID = uuid.New().String()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.transport.Send(ctx, call)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Result{}, fmt.Errorf("%w: call %s after %s", llm.ErrBridgeTimeout, call.ID, c.timeout)
		}
		return Result{}, fmt.Errorf("bridge send: %w", err)
	}

	if result.ID != call.ID {
		return Result{}, fmt.Errorf("%w: stale result %s for call %s", llm.ErrBridgeTimeout, result.ID, call.ID)
	}
	return result, nil
}
