package ondevice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagepilot/pagepilot/pkg/llm"
	"github.com/pagepilot/pagepilot/pkg/schema"
	"github.com/pagepilot/pagepilot/pkg/types"
)

// completionServer fakes a local OpenAI-compatible endpoint and records the
// request bodies it saw.
func completionServer(t *testing.T, content, finishReason string, requests *[]map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/models":
			w.WriteHeader(http.StatusOK)
		case "/v1/chat/completions":
			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			if requests != nil {
				*requests = append(*requests, body)
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"choices": []map[string]interface{}{
					{
						"message":       map[string]string{"role": "assistant", "content": content},
						"finish_reason": finishReason,
					},
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestAvailability(t *testing.T) {
	t.Run("Available", func(t *testing.T) {
		srv := completionServer(t, "", "stop", nil)
		defer srv.Close()

		p := NewProvider(WithBaseURL(srv.URL))
		assert.Equal(t, types.AvailabilityAvailable, p.Availability(context.Background()))
	})

	t.Run("DownloadingOn503", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		p := NewProvider(WithBaseURL(srv.URL))
		assert.Equal(t, types.AvailabilityDownloading, p.Availability(context.Background()))
	})

	t.Run("UnavailableWhenUnreachable", func(t *testing.T) {
		p := NewProvider(WithBaseURL("http://127.0.0.1:1"))
		assert.Equal(t, types.AvailabilityUnavailable, p.Availability(context.Background()))
	})
}

func TestSessionGenerate(t *testing.T) {
	t.Run("InstructionsSentOnceAsSystem", func(t *testing.T) {
		var requests []map[string]interface{}
		srv := completionServer(t, `{"ok":true}`, "stop", &requests)
		defer srv.Close()

		p := NewProvider(WithBaseURL(srv.URL))
		sess, err := p.OpenSession(context.Background(), llm.SessionOptions{
			SystemInstructions: "You drive a browser.",
			SchemaInstructions: "Shape \"plan\": ...",
		})
		require.NoError(t, err)
		defer sess.Close()

		for _, prompt := range []string{"turn one", "turn two", "turn three"} {
			_, err := sess.Generate(context.Background(), prompt, nil)
			require.NoError(t, err)
		}

		require.Len(t, requests, 3)
		for i, req := range requests {
			messages := req["messages"].([]interface{})
			systemCount := 0
			for _, raw := range messages {
				msg := raw.(map[string]interface{})
				if msg["role"] == "system" {
					systemCount++
					assert.Contains(t, msg["content"], "You drive a browser.")
					assert.Contains(t, msg["content"], "Shape")
				}
			}
			assert.Equal(t, 1, systemCount, "request %d must carry exactly one system message", i)
		}

		// Turn prompts themselves never restate the instructions.
		last := requests[2]["messages"].([]interface{})
		final := last[len(last)-1].(map[string]interface{})
		assert.Equal(t, "turn three", final["content"])
	})

	t.Run("HistoryAccumulates", func(t *testing.T) {
		var requests []map[string]interface{}
		srv := completionServer(t, "reply", "stop", &requests)
		defer srv.Close()

		p := NewProvider(WithBaseURL(srv.URL))
		sess, err := p.OpenSession(context.Background(), llm.SessionOptions{SystemInstructions: "sys"})
		require.NoError(t, err)
		defer sess.Close()

		_, err = sess.Generate(context.Background(), "first", nil)
		require.NoError(t, err)
		_, err = sess.Generate(context.Background(), "second", nil)
		require.NoError(t, err)

		// system + first + reply + second
		assert.Len(t, requests[1]["messages"].([]interface{}), 4)
	})

	t.Run("ConstraintTravelsAsResponseFormat", func(t *testing.T) {
		var requests []map[string]interface{}
		srv := completionServer(t, `{"done":true}`, "stop", &requests)
		defer srv.Close()

		p := NewProvider(WithBaseURL(srv.URL))
		sess, err := p.OpenSession(context.Background(), llm.SessionOptions{})
		require.NoError(t, err)
		defer sess.Close()

		sch := schema.Object(map[string]*schema.Schema{"done": schema.Boolean("")}, "done")
		_, err = sess.Generate(context.Background(), "go", sch)
		require.NoError(t, err)

		rf := requests[0]["response_format"].(map[string]interface{})
		assert.Equal(t, "json_schema", rf["type"])
	})

	t.Run("OversizedConstraintIsTruncation", func(t *testing.T) {
		srv := completionServer(t, "", "stop", nil)
		defer srv.Close()

		p := NewProvider(WithBaseURL(srv.URL), WithConstraintCeiling(64))
		sess, err := p.OpenSession(context.Background(), llm.SessionOptions{})
		require.NoError(t, err)
		defer sess.Close()

		props := map[string]*schema.Schema{}
		for _, name := range []string{"alpha", "beta", "gamma", "delta"} {
			props[name] = schema.String("a long description to inflate the serialized size")
		}
		_, err = sess.Generate(context.Background(), "go", schema.Object(props))
		assert.True(t, errors.Is(err, llm.ErrGenerationTruncated))
	})

	t.Run("LengthFinishIsTruncation", func(t *testing.T) {
		srv := completionServer(t, `{"partial`, "length", nil)
		defer srv.Close()

		p := NewProvider(WithBaseURL(srv.URL))
		sess, err := p.OpenSession(context.Background(), llm.SessionOptions{})
		require.NoError(t, err)
		defer sess.Close()

		_, err = sess.Generate(context.Background(), "go", nil)
		assert.True(t, errors.Is(err, llm.ErrGenerationTruncated))
	})

	t.Run("InputBudgetEnforcedClientSide", func(t *testing.T) {
		var requests []map[string]interface{}
		srv := completionServer(t, "", "stop", &requests)
		defer srv.Close()

		p := NewProvider(WithBaseURL(srv.URL))
		sess, err := p.OpenSession(context.Background(), llm.SessionOptions{InputBudget: 20})
		require.NoError(t, err)
		defer sess.Close()

		_, err = sess.Generate(context.Background(), strings.Repeat("overflowing page state ", 100), nil)
		assert.True(t, errors.Is(err, llm.ErrInputTooLarge))
		assert.Empty(t, requests, "budget violations must not reach the server")
	})

	t.Run("ConnectionFailureIsProviderLevel", func(t *testing.T) {
		p := NewProvider(WithBaseURL("http://127.0.0.1:1"))
		sess, err := p.OpenSession(context.Background(), llm.SessionOptions{})
		require.NoError(t, err)
		defer sess.Close()

		_, err = sess.Generate(context.Background(), "go", nil)
		assert.True(t, errors.Is(err, llm.ErrProviderUnavailable))
		assert.True(t, llm.IsProviderLevel(err))
	})

	t.Run("ClosedSessionRefusesGenerate", func(t *testing.T) {
		srv := completionServer(t, "", "stop", nil)
		defer srv.Close()

		p := NewProvider(WithBaseURL(srv.URL))
		sess, err := p.OpenSession(context.Background(), llm.SessionOptions{})
		require.NoError(t, err)
		require.NoError(t, sess.Close())

		_, err = sess.Generate(context.Background(), "go", nil)
		assert.Error(t, err)
	})
}
