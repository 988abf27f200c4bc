// Package tokenizer provides client-side token counting so input budgets can
// be enforced before a request ever reaches a provider.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/pagepilot/pagepilot/pkg/types"
)

// encodingName is the BPE encoding used for estimates. Counts are estimates:
// the on-device tokenizer differs slightly, but the budget checks only need
// to be conservative, not exact.
const encodingName = "cl100k_base"

// messageOverheadTokens approximates the per-message framing cost.
const messageOverheadTokens = 4

// Tokenizer counts tokens for budget checks and usage reporting.
type Tokenizer struct {
	encoding *tiktoken.Tiktoken
}

// New creates a tokenizer. Callers may fall back to character-based
// estimates when initialization fails (e.g. offline first run without the
// cached BPE files).
func New() (*Tokenizer, error) {
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s encoding: %w", encodingName, err)
	}
	return &Tokenizer{encoding: encoding}, nil
}

// CountTokens returns the token count for a single text.
func (t *Tokenizer) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(t.encoding.Encode(text, nil, nil))
}

// CountMessagesTokens returns the total token count for a message list,
// including per-message framing overhead.
func (t *Tokenizer) CountMessagesTokens(messages []*types.Message) int {
	total := 0
	for _, msg := range messages {
		total += t.CountTokens(msg.Content)
		total += t.CountTokens(string(msg.Role))
		total += messageOverheadTokens
	}
	return total
}

// EstimateTokens is the fallback estimate used when no tokenizer is
// available: roughly one token per four characters.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}
