package cloud

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/openai/openai-go"

	"github.com/pagepilot/pagepilot/pkg/llm"
	"github.com/pagepilot/pagepilot/pkg/types"
)

// DefaultBaseURL is the default cloud API base URL.
const DefaultBaseURL = "https://api.openai.com/v1"

// API implements Completer against an OpenAI-compatible cloud endpoint.
//
// Responses stream over SSE and are accumulated here: streaming keeps the
// connection alive through long generations and lets a truncation surface
// as soon as the finish reason arrives. Raw HTTP is used instead of the SDK
// client for better compatibility with API-compatible gateways that emit
// SSE comments or slight format variations.
type API struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	model      string
}

// APIOption configures an API.
type APIOption func(*API)

// WithModel sets the model used for completions.
func WithModel(model string) APIOption {
	return func(a *API) {
		a.model = model
	}
}

// WithBaseURL sets a custom base URL for API-compatible gateways.
func WithBaseURL(baseURL string) APIOption {
	return func(a *API) {
		a.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient replaces the HTTP client, mainly for tests.
func WithHTTPClient(client *http.Client) APIOption {
	return func(a *API) {
		a.httpClient = client
	}
}

// NewAPI creates a cloud API upstream. An empty apiKey falls back to the
// OPENAI_API_KEY environment variable.
func NewAPI(apiKey string, opts ...APIOption) (*API, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("cloud API key is required (provide via parameter or OPENAI_API_KEY environment variable)")
	}

	a := &API{
		httpClient: &http.Client{},
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		model:      "gpt-4o",
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Complete implements Completer.
func (a *API) Complete(ctx context.Context, messages []*types.Message, constraint []byte) (string, error) {
	reqBody := map[string]interface{}{
		"model":    a.model,
		"messages": convertMessages(messages),
		"stream":   true,
	}
	if len(constraint) > 0 {
		reqBody["response_format"] = map[string]interface{}{
			"type": "json_schema",
			"json_schema": map[string]interface{}{
				"name":   "response",
				"strict": true,
				"schema": json.RawMessage(constraint),
			},
		}
	}

	resp, err := a.send(ctx, reqBody)
	if err != nil {
		return "", err
	}
	return a.accumulate(resp)
}

func (a *API) send(ctx context.Context, reqBody map[string]interface{}) (*http.Response, error) {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := a.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", llm.ErrProviderUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, classifyStatus(resp.StatusCode, string(body))
	}
	return resp, nil
}

// accumulate drains the SSE stream into a single string.
func (a *API) accumulate(resp *http.Response) (string, error) {
	defer resp.Body.Close()

	var content strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, ":") || !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			break
		}

		var chunk struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
				FinishReason *string `json:"finish_reason"`
			} `json:"choices"`
		}
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue // Skip malformed chunks silently
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		choice := chunk.Choices[0]
		content.WriteString(choice.Delta.Content)

		if choice.FinishReason != nil && *choice.FinishReason == "length" {
			return "", fmt.Errorf("%w: output hit the completion window", llm.ErrGenerationTruncated)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("stream read error: %w", err)
	}

	return content.String(), nil
}

func classifyStatus(status int, body string) error {
	body = strings.TrimSpace(body)
	switch {
	case status == http.StatusRequestEntityTooLarge,
		status == http.StatusBadRequest && strings.Contains(body, "context_length"):
		return fmt.Errorf("%w: API status %d: %s", llm.ErrInputTooLarge, status, body)
	case status == http.StatusTooManyRequests || status >= 500:
		return fmt.Errorf("%w: API status %d: %s", llm.ErrProviderUnavailable, status, body)
	default:
		return fmt.Errorf("API request failed with status %d: %s", status, body)
	}
}

// convertMessages converts the internal message format to the API's
// ChatCompletionMessageParamUnion format.
func convertMessages(messages []*types.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case types.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case types.RoleAssistant:
			out = append(out, openai.AssistantMessage(msg.Content))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}
