package cloud

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/pagepilot/pagepilot/pkg/llm"
	"github.com/pagepilot/pagepilot/pkg/llm/bridge"
	"github.com/pagepilot/pagepilot/pkg/types"
)

// Completer is the upstream the host generates with. API implements it
// against a real endpoint; tests substitute fakes.
type Completer interface {
	Complete(ctx context.Context, messages []*types.Message, constraint []byte) (string, error)
}

// Host is the remote side of the bridge: it owns upstream conversation
// state so fixed instructions reach the model once per session, and it
// classifies upstream failures into wire error kinds.
type Host struct {
	mu       sync.Mutex
	upstream Completer
	sessions map[string]*hostSession
}

type hostSession struct {
	messages []*types.Message
}

// NewHost creates a host over the given upstream.
func NewHost(upstream Completer) *Host {
	return &Host{
		upstream: upstream,
		sessions: make(map[string]*hostSession),
	}
}

// Handle executes one bridge call. It is the bridge.Handler for this host.
func (h *Host) Handle(ctx context.Context, call bridge.Call) bridge.Result {
	switch call.Op {
	case bridge.OpPing:
		return bridge.Result{ID: call.ID, OK: true}
	case bridge.OpOpen:
		return h.open(call)
	case bridge.OpGenerate:
		return h.generate(ctx, call)
	case bridge.OpClose:
		return h.close(call)
	default:
		return bridge.Result{ID: call.ID, ErrKind: bridge.ErrKindInternal, Err: "unknown op " + call.Op}
	}
}

func (h *Host) open(call bridge.Call) bridge.Result {
	sess := &hostSession{}
	if call.System != "" {
		sess.messages = append(sess.messages, types.NewSystemMessage(call.System))
	}

	id := uuid.New().String()
	h.mu.Lock()
	h.sessions[id] = sess
	h.mu.Unlock()

	return bridge.Result{ID: call.ID, OK: true, Text: id}
}

func (h *Host) generate(ctx context.Context, call bridge.Call) bridge.Result {
	h.mu.Lock()
	sess, ok := h.sessions[call.SessionID]
	h.mu.Unlock()
	if !ok {
		return bridge.Result{ID: call.ID, ErrKind: bridge.ErrKindUnavailable, Err: "unknown session " + call.SessionID}
	}

	messages := append(append([]*types.Message(nil), sess.messages...), types.NewUserMessage(call.Prompt))

	text, err := h.upstream.Complete(ctx, messages, call.Schema)
	if err != nil {
		return bridge.Result{ID: call.ID, ErrKind: classify(err), Err: err.Error()}
	}

	h.mu.Lock()
	sess.messages = append(sess.messages,
		types.NewUserMessage(call.Prompt),
		types.NewAssistantMessage(text),
	)
	h.mu.Unlock()

	return bridge.Result{ID: call.ID, OK: true, Text: text}
}

func (h *Host) close(call bridge.Call) bridge.Result {
	h.mu.Lock()
	delete(h.sessions, call.SessionID)
	h.mu.Unlock()
	return bridge.Result{ID: call.ID, OK: true}
}

func classify(err error) string {
	switch {
	case errors.Is(err, llm.ErrProviderUnavailable):
		return bridge.ErrKindUnavailable
	case errors.Is(err, llm.ErrGenerationTruncated):
		return bridge.ErrKindTruncated
	case errors.Is(err, llm.ErrInputTooLarge):
		return bridge.ErrKindInputTooLarge
	default:
		return bridge.ErrKindInternal
	}
}
