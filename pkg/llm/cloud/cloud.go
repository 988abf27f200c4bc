// Package cloud implements the remote inference backend. The routing layer
// never talks to the cloud API directly: calls cross the bridge to a host
// that owns the API credentials and the upstream conversation state, so
// fixed instructions travel over the boundary exactly once per session.
package cloud

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pagepilot/pagepilot/pkg/llm"
	"github.com/pagepilot/pagepilot/pkg/llm/bridge"
	"github.com/pagepilot/pagepilot/pkg/schema"
	"github.com/pagepilot/pagepilot/pkg/types"
)

// Provider implements llm.Provider on the near side of the bridge.
type Provider struct {
	client *bridge.Client
}

// NewProvider creates a cloud provider over a bridge client.
func NewProvider(client *bridge.Client) *Provider {
	return &Provider{client: client}
}

// Kind implements llm.Provider.
func (p *Provider) Kind() types.ProviderKind {
	return types.ProviderCloud
}

// Availability implements llm.Provider with a bridge ping. A timed-out or
// failed ping means the remote context is gone, not merely slow: the caller
// should route on-device.
func (p *Provider) Availability(ctx context.Context) types.Availability {
	result, err := p.client.Invoke(ctx, bridge.Call{Op: bridge.OpPing})
	if err != nil || !result.OK {
		return types.AvailabilityUnavailable
	}
	return types.AvailabilityAvailable
}

// OpenSession implements llm.Provider. The fixed instructions are shipped in
// the open call; later generate calls reference the remote session by ID and
// carry only incremental state.
func (p *Provider) OpenSession(ctx context.Context, opts llm.SessionOptions) (llm.ProviderSession, error) {
	system := opts.SystemInstructions
	if opts.SchemaInstructions != "" {
		if system != "" {
			system += "\n\n"
		}
		system += opts.SchemaInstructions
	}

	result, err := p.client.Invoke(ctx, bridge.Call{Op: bridge.OpOpen, System: system})
	if err != nil {
		return nil, err
	}
	if !result.OK {
		return nil, resultError(result)
	}

	// The host returns the remote session ID as the result text.
	return &session{client: p.client, remoteID: result.Text}, nil
}

type session struct {
	client   *bridge.Client
	remoteID string
	closed   bool
}

// Generate implements llm.ProviderSession.
func (s *session) Generate(ctx context.Context, prompt string, constraint *schema.Schema) (string, error) {
	if s.closed {
		return "", fmt.Errorf("%w: session closed", llm.ErrProviderUnavailable)
	}

	call := bridge.Call{
		Op:        bridge.OpGenerate,
		SessionID: s.remoteID,
		Prompt:    prompt,
	}
	if constraint != nil {
		serialized, err := json.Marshal(constraint)
		if err != nil {
			return "", fmt.Errorf("failed to marshal constraint: %w", err)
		}
		call.Schema = serialized
	}

	result, err := s.client.Invoke(ctx, call)
	if err != nil {
		return "", err
	}
	if !result.OK {
		return "", resultError(result)
	}
	return result.Text, nil
}

// Close implements llm.ProviderSession. Close failures are swallowed: the
// remote host reaps orphaned sessions on its own.
func (s *session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	ctx, cancel := context.WithTimeout(context.Background(), bridge.DefaultTimeout)
	defer cancel()
	s.client.Invoke(ctx, bridge.Call{Op: bridge.OpClose, SessionID: s.remoteID})
	return nil
}

// resultError maps a remote error classification back onto the shared
// taxonomy so router failover logic works identically for both backends.
func resultError(result bridge.Result) error {
	switch result.ErrKind {
	case bridge.ErrKindUnavailable:
		return fmt.Errorf("%w: %s", llm.ErrProviderUnavailable, result.Err)
	case bridge.ErrKindTruncated:
		return fmt.Errorf("%w: %s", llm.ErrGenerationTruncated, result.Err)
	case bridge.ErrKindInputTooLarge:
		return fmt.Errorf("%w: %s", llm.ErrInputTooLarge, result.Err)
	default:
		return fmt.Errorf("cloud generation failed: %s", result.Err)
	}
}
