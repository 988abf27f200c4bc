package bridge

import (
	"context"
	"encoding/json"
	"fmt"
)

// Handler executes one call on the remote side of the bridge.
type Handler func(ctx context.Context, call Call) Result

// Loopback is an in-process transport that still forces every call and
// result through JSON, so handlers only ever see what a real remote
// context would see. Used for single-process deployments and tests.
type Loopback struct {
	handler Handler
}

// NewLoopback creates a loopback transport around a handler.
func NewLoopback(handler Handler) *Loopback {
	return &Loopback{handler: handler}
}

// Send implements Transport.
func (l *Loopback) Send(ctx context.Context, call Call) (Result, error) {
	encoded, err := json.Marshal(call)
	if err != nil {
		return Result{}, fmt.Errorf("encode call: %w", err)
	}

	var wire Call
	if err := json.Unmarshal(encoded, &wire); err != nil {
		return Result{}, fmt.Errorf("decode call: %w", err)
	}

	done := make(chan Result, 1)
	go func() {
		done <- l.handler(ctx, wire)
	}()

	select {
	case result := <-done:
		encoded, err := json.Marshal(result)
		if err != nil {
			return Result{}, fmt.Errorf("encode result: %w", err)
		}
		var out Result
		if err := json.Unmarshal(encoded, &out); err != nil {
			return Result{}, fmt.Errorf("decode result: %w", err)
		}
		return out, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
