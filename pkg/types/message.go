// Package types defines the shared data model for the pagepilot core:
// conversation messages, generation requests/responses, agent steps, and
// the executor event stream.
package types

// MessageRole identifies the author of a conversation message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"    // RoleSystem carries fixed instructions captured at session creation.
	RoleUser      MessageRole = "user"      // RoleUser carries incremental task/page state per turn.
	RoleAssistant MessageRole = "assistant" // RoleAssistant carries model output.
)

// Message is a single conversation message exchanged with a provider.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) *Message {
	return &Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) *Message {
	return &Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant message.
func NewAssistantMessage(content string) *Message {
	return &Message{Role: RoleAssistant, Content: content}
}
