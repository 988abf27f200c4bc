// Package session implements the inference session: one task-scoped
// conversational context that owns a provider session, amortizes fixed
// instructions across turns, runs the strategy plan for each structured
// request, and survives provider failover by replaying its instructions on
// the alternate backend.
package session

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/pagepilot/pagepilot/pkg/llm"
	"github.com/pagepilot/pagepilot/pkg/llm/router"
	"github.com/pagepilot/pagepilot/pkg/llm/strategy"
	"github.com/pagepilot/pagepilot/pkg/logging"
	"github.com/pagepilot/pagepilot/pkg/schema"
	"github.com/pagepilot/pagepilot/pkg/types"
)

// State is the lifecycle state of an inference session.
type State string

const (
	// StateActive means the session is serving requests on its original
	// provider.
	StateActive State = "active"

	// StateDegraded means at least one failover occurred; requests are
	// served, but on the alternate provider.
	StateDegraded State = "degraded"

	// StateDestroyed means the session released its provider resources and
	// takes no further requests.
	StateDestroyed State = "destroyed"
)

// Options configures a Session.
type Options struct {
	// SystemInstructions is the fixed task prompt, transmitted once at
	// session creation.
	SystemInstructions string

	// Schemas is the named response schema set for the task. Compact shape
	// guides for all of them are folded into the session instructions, so
	// per-turn prompts only ever reference a shape by name.
	Schemas map[string]*schema.Schema

	// InputBudget is the per-turn input token ceiling (0 = provider default).
	InputBudget int

	// EstimatorOpts tunes schema complexity estimation.
	EstimatorOpts schema.EstimatorOptions

	// SelectorOpts tunes strategy selection.
	SelectorOpts strategy.SelectorOptions

	// Logger receives session lifecycle and routing events.
	Logger *logging.Logger
}

// Session is a single task's inference context. Invoke is serialized; one
// goroutine owns the session at a time.
type Session struct {
	id       string
	router   *router.Router
	selector *strategy.Selector
	opts     Options

	descriptors map[string]schema.Descriptor

	turnMu sync.Mutex // serializes Invoke

	stateMu  sync.Mutex
	state    State
	provider llm.Provider
	psess    llm.ProviderSession
	epoch    int // bumped on every provider swap or destroy

	destroyOnce sync.Once
}

// New opens an inference session: it selects a provider via the router,
// builds the combined instruction block, and opens the provider session.
func New(ctx context.Context, r *router.Router, cache *strategy.Cache, opts Options) (*Session, error) {
	provider, err := r.SelectProvider(ctx)
	if err != nil {
		return nil, err
	}

	s := &Session{
		id:          uuid.New().String(),
		router:      r,
		selector:    strategy.NewSelector(cache, opts.SelectorOpts),
		opts:        opts,
		descriptors: make(map[string]schema.Descriptor, len(opts.Schemas)),
		state:       StateActive,
		provider:    provider,
	}
	for name, sch := range opts.Schemas {
		s.descriptors[name] = schema.Estimate(sch, opts.EstimatorOpts)
	}

	psess, err := provider.OpenSession(ctx, s.sessionOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open %s session: %w", provider.Kind(), err)
	}
	s.psess = psess

	s.logf("session %s opened on %s (%d schemas)", s.id, provider.Kind(), len(opts.Schemas))
	return s, nil
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

// Provider returns the backend currently serving the session.
func (s *Session) Provider() types.ProviderKind {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.provider.Kind()
}

// Invoke runs one turn. For structured requests it executes the strategy
// plan for the named schema, falling through strategies on output-level
// failures and failing over to the alternate provider (with instruction
// replay) on provider-level failures. At most one failover per turn; a
// second provider-level failure surfaces as ErrAllProvidersExhausted.
func (s *Session) Invoke(ctx context.Context, req types.GenerationRequest) (*types.GenerationResponse, error) {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()

	psess, provider, epoch, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	resp, err := s.runTurn(ctx, psess, provider, epoch, req)
	if err == nil || !llm.IsProviderLevel(err) {
		return resp, err
	}

	// Provider-level failure: open the alternate backend, replay the
	// instructions, and retry the turn once.
	psess, provider, epoch, failErr := s.failover(ctx, provider.Kind(), err)
	if failErr != nil {
		return nil, failErr
	}

	resp, err = s.runTurn(ctx, psess, provider, epoch, req)
	if err != nil && llm.IsProviderLevel(err) {
		return nil, &llm.ExhaustedError{Last: err}
	}
	return resp, err
}

// Destroy releases the session's provider resources. Idempotent; any turn
// in flight when Destroy is called has its result suppressed.
func (s *Session) Destroy() {
	s.destroyOnce.Do(func() {
		s.stateMu.Lock()
		s.state = StateDestroyed
		s.epoch++
		psess := s.psess
		s.psess = nil
		s.stateMu.Unlock()

		if psess != nil {
			psess.Close()
		}
		s.logf("session %s destroyed", s.id)
	})
}

// runTurn executes the strategy plan for one request on one provider
// session.
func (s *Session) runTurn(ctx context.Context, psess llm.ProviderSession, provider llm.Provider, epoch int, req types.GenerationRequest) (*types.GenerationResponse, error) {
	// Free-text turns bypass the strategy layer entirely.
	if req.SchemaName == "" {
		text, err := psess.Generate(ctx, req.Incremental, nil)
		if err != nil {
			return nil, err
		}
		if err := s.checkEpoch(epoch); err != nil {
			return nil, err
		}
		return &types.GenerationResponse{Text: text, Provider: provider.Kind()}, nil
	}

	sch, ok := s.opts.Schemas[req.SchemaName]
	if !ok {
		return nil, fmt.Errorf("unknown schema %q", req.SchemaName)
	}
	desc := s.descriptors[req.SchemaName]

	var lastErr error
	for _, gen := range s.selector.Plan(desc) {
		text, repaired, err := gen.Generate(ctx, psess, req.Incremental, req.SchemaName, sch)
		if err == nil {
			if err := s.checkEpoch(epoch); err != nil {
				return nil, err
			}
			s.selector.Record(desc, gen.Kind(), true)
			return &types.GenerationResponse{
				Text:     text,
				Strategy: gen.Kind(),
				Provider: provider.Kind(),
				Repaired: repaired,
			}, nil
		}

		if llm.IsOutputLevel(err) {
			s.selector.Record(desc, gen.Kind(), false)
			s.logf("session %s: %s strategy failed for %q: %v", s.id, gen.Kind(), req.SchemaName, err)
			lastErr = err
			continue
		}

		// Provider-level or unclassified: stop the plan, let Invoke decide.
		return nil, err
	}
	return nil, lastErr
}

// failover swaps the session onto an available alternate provider and
// replays the instruction block there.
func (s *Session) failover(ctx context.Context, from types.ProviderKind, cause error) (llm.ProviderSession, llm.Provider, int, error) {
	alternate, ok := s.router.Alternate(ctx, from)
	if !ok {
		return nil, nil, 0, &llm.ExhaustedError{Last: cause}
	}

	psess, err := alternate.OpenSession(ctx, s.sessionOptions())
	if err != nil {
		return nil, nil, 0, &llm.ExhaustedError{Last: err}
	}

	s.stateMu.Lock()
	if s.state == StateDestroyed {
		s.stateMu.Unlock()
		psess.Close()
		return nil, nil, 0, fmt.Errorf("session %s destroyed during failover", s.id)
	}
	old := s.psess
	s.psess = psess
	s.provider = alternate
	s.state = StateDegraded
	s.epoch++
	epoch := s.epoch
	s.stateMu.Unlock()

	if old != nil {
		old.Close()
	}
	s.logf("session %s failed over %s -> %s: %v", s.id, from, alternate.Kind(), cause)
	return psess, alternate, epoch, nil
}

func (s *Session) snapshot() (llm.ProviderSession, llm.Provider, int, error) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.state == StateDestroyed {
		return nil, nil, 0, fmt.Errorf("session %s is destroyed", s.id)
	}
	return s.psess, s.provider, s.epoch, nil
}

// checkEpoch suppresses results that completed after the provider session
// they ran on was swapped out or destroyed.
func (s *Session) checkEpoch(epoch int) error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.epoch != epoch {
		return fmt.Errorf("session %s: stale result discarded", s.id)
	}
	return nil
}

// sessionOptions builds the provider session options, including the shape
// guides for every registered schema. Names are sorted so the instruction
// block is deterministic across opens and replays.
func (s *Session) sessionOptions() llm.SessionOptions {
	names := make([]string, 0, len(s.opts.Schemas))
	for name := range s.opts.Schemas {
		names = append(names, name)
	}
	sort.Strings(names)

	var guides strings.Builder
	for _, name := range names {
		guides.WriteString(strategy.Guide(name, s.opts.Schemas[name]))
		guides.WriteString("\n")
	}

	return llm.SessionOptions{
		SystemInstructions: s.opts.SystemInstructions,
		SchemaInstructions: strings.TrimSpace(guides.String()),
		InputBudget:        s.opts.InputBudget,
	}
}

func (s *Session) logf(format string, args ...interface{}) {
	if s.opts.Logger != nil {
		s.opts.Logger.Infof(format, args...)
	}
}
