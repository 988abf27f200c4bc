package bridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagepilot/pagepilot/pkg/llm"
)

func echoHandler(_ context.Context, call Call) Result {
	return Result{ID: call.ID, OK: true, Text: call.Prompt}
}

func TestClientInvoke(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		client := NewClient(NewLoopback(echoHandler))

		result, err := client.Invoke(context.Background(), Call{Prompt: "hello"})
		require.NoError(t, err)
		assert.True(t, result.OK)
		assert.Equal(t, "hello", result.Text)
	})

	t.Run("AssignsUniqueIDs", func(t *testing.T) {
		var seen []string
		client := NewClient(NewLoopback(func(_ context.Context, call Call) Result {
			seen = append(seen, call.ID)
			return Result{ID: call.ID, OK: true}
		}))

		for i := 0; i < 3; i++ {
			_, err := client.Invoke(context.Background(), Call{Prompt: "x"})
			require.NoError(t, err)
		}
		require.Len(t, seen, 3)
		assert.NotEqual(t, seen[0], seen[1])
		assert.NotEqual(t, seen[1], seen[2])
	})

	t.Run("TimeoutIsTyped", func(t *testing.T) {
		client := NewClient(NewLoopback(func(ctx context.Context, call Call) Result {
			<-ctx.Done()
			return Result{ID: call.ID}
		}), WithTimeout(20*time.Millisecond))

		_, err := client.Invoke(context.Background(), Call{Prompt: "slow"})
		assert.True(t, errors.Is(err, llm.ErrBridgeTimeout))
	})

	t.Run("StaleResultRejected", func(t *testing.T) {
		client := NewClient(NewLoopback(func(_ context.Context, _ Call) Result {
			return Result{ID: "some-earlier-call", OK: true, Text: "late"}
		}))

		_, err := client.Invoke(context.Background(), Call{Prompt: "x"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, llm.ErrBridgeTimeout))
	})

	t.Run("SchemaSurvivesSerialization", func(t *testing.T) {
		var got []byte
		client := NewClient(NewLoopback(func(_ context.Context, call Call) Result {
			got = call.Schema
			return Result{ID: call.ID, OK: true}
		}))

		payload := []byte(`{"type":"object"}`)
		_, err := client.Invoke(context.Background(), Call{Prompt: "x", Schema: payload, SchemaName: "plan"})
		require.NoError(t, err)
		assert.JSONEq(t, string(payload), string(got))
	})
}

func TestLoopbackHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	transport := NewLoopback(func(ctx context.Context, call Call) Result {
		<-ctx.Done()
		return Result{ID: call.ID}
	})

	done := make(chan error, 1)
	go func() {
		_, err := transport.Send(ctx, Call{ID: "c1", Prompt: "x"})
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(time.Second):
		t.Fatal("Send did not return after cancellation")
	}
}
