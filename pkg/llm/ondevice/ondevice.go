// Package ondevice implements the local inference backend: an
// OpenAI-compatible HTTP server running on the same machine (llama.cpp,
// Ollama, and similar). It is the preferred backend — no network egress, no
// per-token cost — but it has hard capacity ceilings the routing layer must
// respect: a bounded input window and a bounded constraint size for native
// structured output.
package ondevice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pagepilot/pagepilot/pkg/llm"
	"github.com/pagepilot/pagepilot/pkg/llm/tokenizer"
	"github.com/pagepilot/pagepilot/pkg/schema"
	"github.com/pagepilot/pagepilot/pkg/types"
)

const (
	// DefaultBaseURL is where a local llama.cpp-style server listens.
	DefaultBaseURL = "http://127.0.0.1:8080"

	// DefaultInputBudget is the per-turn input token ceiling when the
	// session does not set one.
	DefaultInputBudget = 4096

	// DefaultConstraintCeiling caps the serialized size of a native
	// generation constraint. Local grammar compilers degrade badly past
	// this point, truncating or rejecting output.
	DefaultConstraintCeiling = 8 * 1024
)

// Provider implements llm.Provider against a local OpenAI-compatible API.
type Provider struct {
	httpClient        *http.Client
	baseURL           string
	model             string
	inputBudget       int
	constraintCeiling int
	tok               *tokenizer.Tokenizer
}

// Option configures a Provider.
type Option func(*Provider)

// WithBaseURL points the provider at a non-default local server.
func WithBaseURL(baseURL string) Option {
	return func(p *Provider) {
		p.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithModel sets the model name sent with each request.
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithHTTPClient replaces the HTTP client, mainly for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = client
	}
}

// WithInputBudget sets the default per-turn input token ceiling.
func WithInputBudget(budget int) Option {
	return func(p *Provider) {
		if budget > 0 {
			p.inputBudget = budget
		}
	}
}

// WithConstraintCeiling sets the serialized constraint size cap in bytes.
func WithConstraintCeiling(bytes int) Option {
	return func(p *Provider) {
		if bytes > 0 {
			p.constraintCeiling = bytes
		}
	}
}

// NewProvider creates an on-device provider with the given options.
func NewProvider(opts ...Option) *Provider {
	p := &Provider{
		httpClient:        &http.Client{},
		baseURL:           DefaultBaseURL,
		model:             "local",
		inputBudget:       DefaultInputBudget,
		constraintCeiling: DefaultConstraintCeiling,
	}
	// Counting falls back to character estimates when the BPE files are
	// not cached; budget checks stay conservative either way.
	p.tok, _ = tokenizer.New()
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Kind implements llm.Provider.
func (p *Provider) Kind() types.ProviderKind {
	return types.ProviderOnDevice
}

// Availability implements llm.Provider by probing the server's model list.
// A 503 means the server is up but the model is still loading into memory,
// which callers may want to wait out rather than fail over.
func (p *Provider) Availability(ctx context.Context) types.Availability {
	req, err := http.NewRequestWithContext(ctx, "GET", p.baseURL+"/v1/models", nil)
	if err != nil {
		return types.AvailabilityUnavailable
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return types.AvailabilityUnavailable
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
		return types.AvailabilityAvailable
	case http.StatusServiceUnavailable:
		return types.AvailabilityDownloading
	default:
		return types.AvailabilityUnavailable
	}
}

// OpenSession implements llm.Provider. Fixed instructions are captured here
// and prefixed to every request; they never travel with per-turn prompts.
func (p *Provider) OpenSession(_ context.Context, opts llm.SessionOptions) (llm.ProviderSession, error) {
	budget := opts.InputBudget
	if budget <= 0 {
		budget = p.inputBudget
	}

	var system strings.Builder
	system.WriteString(opts.SystemInstructions)
	if opts.SchemaInstructions != "" {
		if system.Len() > 0 {
			system.WriteString("\n\n")
		}
		system.WriteString(opts.SchemaInstructions)
	}

	return &session{
		provider: p,
		system:   system.String(),
		budget:   budget,
	}, nil
}

// session is a single-owner conversational context on the local server. The
// local API is stateless, so the session replays the fixed system message
// plus the turn history on each request; only the fixed part is immutable.
type session struct {
	provider *Provider
	system   string
	budget   int
	history  []*types.Message
	closed   bool
}

// Generate implements llm.ProviderSession.
func (s *session) Generate(ctx context.Context, prompt string, constraint *schema.Schema) (string, error) {
	if s.closed {
		return "", fmt.Errorf("%w: session closed", llm.ErrProviderUnavailable)
	}

	messages := s.buildMessages(prompt)
	if used := s.countTokens(messages); used > s.budget {
		return "", fmt.Errorf("%w: %d tokens against budget %d", llm.ErrInputTooLarge, used, s.budget)
	}

	reqBody := map[string]interface{}{
		"model":    s.provider.model,
		"messages": toWireMessages(messages),
		"stream":   false,
	}

	if constraint != nil {
		serialized, err := json.Marshal(constraint)
		if err != nil {
			return "", fmt.Errorf("failed to marshal constraint: %w", err)
		}
		if len(serialized) > s.provider.constraintCeiling {
			return "", fmt.Errorf("%w: constraint is %d bytes, ceiling %d",
				llm.ErrGenerationTruncated, len(serialized), s.provider.constraintCeiling)
		}
		reqBody["response_format"] = map[string]interface{}{
			"type": "json_schema",
			"json_schema": map[string]interface{}{
				"name":   "response",
				"strict": true,
				"schema": json.RawMessage(serialized),
			},
		}
	}

	text, finishReason, err := s.provider.complete(ctx, reqBody)
	if err != nil {
		return "", err
	}

	if finishReason == "length" {
		return "", fmt.Errorf("%w: output hit the completion window", llm.ErrGenerationTruncated)
	}

	s.history = append(s.history,
		types.NewUserMessage(prompt),
		types.NewAssistantMessage(text),
	)
	return text, nil
}

// Close implements llm.ProviderSession.
func (s *session) Close() error {
	s.closed = true
	s.history = nil
	return nil
}

func (s *session) buildMessages(prompt string) []*types.Message {
	messages := make([]*types.Message, 0, len(s.history)+2)
	if s.system != "" {
		messages = append(messages, types.NewSystemMessage(s.system))
	}
	messages = append(messages, s.history...)
	messages = append(messages, types.NewUserMessage(prompt))
	return messages
}

func (s *session) countTokens(messages []*types.Message) int {
	if s.provider.tok != nil {
		return s.provider.tok.CountMessagesTokens(messages)
	}
	total := 0
	for _, msg := range messages {
		total += tokenizer.EstimateTokens(msg.Content) + 4
	}
	return total
}

// complete sends a non-streaming chat completion and returns the first
// choice's content and finish reason.
func (p *Provider) complete(ctx context.Context, reqBody map[string]interface{}) (string, string, error) {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := p.baseURL + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", llm.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode == http.StatusServiceUnavailable {
			return "", "", fmt.Errorf("%w: server returned 503: %s", llm.ErrProviderUnavailable, strings.TrimSpace(string(body)))
		}
		return "", "", fmt.Errorf("local API request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", "", fmt.Errorf("response contained no choices")
	}

	choice := completion.Choices[0]
	return choice.Message.Content, choice.FinishReason, nil
}

func toWireMessages(messages []*types.Message) []map[string]string {
	wire := make([]map[string]string, 0, len(messages))
	for _, msg := range messages {
		wire = append(wire, map[string]string{
			"role":    string(msg.Role),
			"content": msg.Content,
		})
	}
	return wire
}
