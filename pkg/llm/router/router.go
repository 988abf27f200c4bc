// Package router selects between inference backends and drives failover.
// Preference order is fixed: on-device first (no egress, no per-token cost),
// cloud as the alternate. Failover is triggered only by provider-level
// failures; output-level failures are the strategy layer's problem.
package router

import (
	"context"

	"github.com/pagepilot/pagepilot/pkg/llm"
	"github.com/pagepilot/pagepilot/pkg/logging"
	"github.com/pagepilot/pagepilot/pkg/types"
)

// Router picks a backend from an ordered preference list.
type Router struct {
	providers []llm.Provider
	logger    *logging.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithLogger attaches a logger for routing decisions.
func WithLogger(logger *logging.Logger) Option {
	return func(r *Router) {
		r.logger = logger
	}
}

// New creates a router over providers in preference order.
func New(providers []llm.Provider, opts ...Option) *Router {
	r := &Router{providers: providers}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SelectProvider probes providers in preference order and returns the first
// available one. A downloading backend is skipped, not waited on: the task
// in front of the user cannot block on model weights.
func (r *Router) SelectProvider(ctx context.Context) (llm.Provider, error) {
	for _, p := range r.providers {
		availability := p.Availability(ctx)
		r.logf("probe %s: %s", p.Kind(), availability)
		if availability == types.AvailabilityAvailable {
			return p, nil
		}
	}
	return nil, llm.ErrProviderUnavailable
}

// Alternate returns an available provider other than the given kind, for
// failover after a provider-level error. ok is false when no alternate can
// take the request.
func (r *Router) Alternate(ctx context.Context, current types.ProviderKind) (llm.Provider, bool) {
	for _, p := range r.providers {
		if p.Kind() == current {
			continue
		}
		if p.Availability(ctx) == types.AvailabilityAvailable {
			r.logf("failover %s -> %s", current, p.Kind())
			return p, true
		}
	}
	return nil, false
}

// Providers returns the preference-ordered provider list.
func (r *Router) Providers() []llm.Provider {
	return r.providers
}

func (r *Router) logf(format string, args ...interface{}) {
	if r.logger != nil {
		r.logger.Infof(format, args...)
	}
}
