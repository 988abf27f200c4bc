// Package llm defines the provider abstraction for the inference routing
// layer: two interchangeable backends (on-device and cloud), provider-bound
// sessions that amortize fixed instructions across turns, and the shared
// error taxonomy the router classifies failures with.
//
// Example usage:
//
//	provider := ondevice.NewProvider(ondevice.WithBaseURL("http://127.0.0.1:8080"))
//	if provider.Availability(ctx) != types.AvailabilityAvailable {
//	    // fall back to the cloud provider via the bridge
//	}
//	sess, err := provider.OpenSession(ctx, llm.SessionOptions{
//	    SystemInstructions: systemPrompt,
//	})
//	if err != nil {
//	    return err
//	}
//	defer sess.Close()
//	text, err := sess.Generate(ctx, pageState, actionSchema)
package llm

import (
	"context"

	"github.com/pagepilot/pagepilot/pkg/schema"
	"github.com/pagepilot/pagepilot/pkg/types"
)

// SessionOptions captures everything fixed for the lifetime of a provider
// session. System and schema instructions are transmitted once, at open
// time, and never resent per turn: this is the invariant that collapses
// redundant token cost across a multi-turn task.
type SessionOptions struct {
	// SystemInstructions is the fixed system prompt for the task.
	SystemInstructions string

	// SchemaInstructions optionally describes the expected output shapes in
	// compact prose (used by the prompt-engineered strategy).
	SchemaInstructions string

	// InputBudget is the per-turn input token ceiling. Zero means the
	// provider default.
	InputBudget int
}

// Provider is one inference backend. Implementations must be safe for
// concurrent use; the sessions they open are not (a session has exactly one
// owner).
type Provider interface {
	// Kind identifies the backend.
	Kind() types.ProviderKind

	// Availability probes whether the backend can take requests right now.
	// It must be cheap enough to call before every session creation.
	Availability(ctx context.Context) types.Availability

	// OpenSession creates a provider-bound conversational context with the
	// given fixed instructions.
	OpenSession(ctx context.Context, opts SessionOptions) (ProviderSession, error)
}

// ProviderSession is a single-owner conversational context on one backend.
type ProviderSession interface {
	// Generate produces raw text for one turn. The prompt carries only the
	// incremental state; fixed instructions were captured at open time.
	// A non-nil constraint asks the provider for schema-constrained output;
	// providers that cannot honor the constraint at its current size must
	// fail with ErrGenerationTruncated rather than silently degrade.
	Generate(ctx context.Context, prompt string, constraint *schema.Schema) (string, error)

	// Close releases the session. Safe to call once; the session is
	// unusable afterwards.
	Close() error
}
