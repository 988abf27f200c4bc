// Package repair implements best-effort recovery of near-valid JSON output.
// The pipeline applies an ordered series of passes and stops at the first one
// after which the text parses; if none succeeds the request fails with a
// typed error rather than returning a guessed value.
package repair

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pagepilot/pagepilot/pkg/llm"
)

// Result reports what the pipeline did to the text.
type Result struct {
	// Text is valid JSON after the pipeline ran.
	Text string

	// Repaired is false when the input was already valid and the pipeline
	// was a no-op.
	Repaired bool

	// Passes names the passes that were applied, in order.
	Passes []string
}

// Repair runs the pipeline on raw model output. Valid input passes through
// untouched (idempotence). On failure the returned error wraps
// llm.ErrRepairFailed.
func Repair(raw string) (Result, error) {
	if json.Valid([]byte(raw)) {
		return Result{Text: raw}, nil
	}

	text := raw
	var applied []string
	passes := []struct {
		name string
		fn   func(string) string
	}{
		{"strip_fences", stripFences},
		{"first_object", firstObject},
		{"close_truncated", closeTruncated},
	}

	for _, pass := range passes {
		next := pass.fn(text)
		if next == text {
			continue
		}
		text = next
		applied = append(applied, pass.name)
		if json.Valid([]byte(text)) {
			return Result{Text: text, Repaired: true, Passes: applied}, nil
		}
	}

	snippet := raw
	if len(snippet) > 120 {
		snippet = snippet[:120] + "..."
	}
	return Result{}, fmt.Errorf("%w: unrecoverable output %q", llm.ErrRepairFailed, snippet)
}

// stripFences trims surrounding whitespace and removes surrounding markdown
// code-fence markers, with or without a language tag.
func stripFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	body := strings.TrimPrefix(trimmed, "```")
	// Drop the language tag on the opening fence line, if any.
	if idx := strings.IndexByte(body, '\n'); idx >= 0 {
		firstLine := strings.TrimSpace(body[:idx])
		if firstLine == "" || isFenceTag(firstLine) {
			body = body[idx+1:]
		}
	}
	body = strings.TrimSpace(body)
	body = strings.TrimSuffix(body, "```")
	return strings.TrimSpace(body)
}

// isFenceTag reports whether s looks like a code-fence language tag.
func isFenceTag(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return len(s) > 0
}

// firstObject detects concatenated top-level objects (a closing brace
// immediately followed by an opening one) and keeps only the first complete
// object, discarding the rest. This is a deliberate degraded-functionality
// fallback: the first object is what the turn asked for, the rest is the
// model running on.
func firstObject(text string) string {
	if len(text) == 0 || (text[0] != '{' && text[0] != '[') {
		return text
	}

	end := scanFirstValue(text)
	if end <= 0 || end >= len(text) {
		return text
	}

	rest := strings.TrimSpace(text[end:])
	if rest == "" || (rest[0] != '{' && rest[0] != '[') {
		return text
	}
	return text[:end]
}

// closeTruncated detects output that does not end in a closer matching its
// opener and appends the outstanding closers in nesting order. An unclosed
// string literal is terminated first.
func closeTruncated(text string) string {
	if text == "" {
		return text
	}

	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
		}
	}

	if !inString && len(stack) == 0 {
		return text
	}

	var b strings.Builder
	b.WriteString(text)
	if inString {
		if escaped {
			// A dangling backslash would escape our closing quote.
			b.WriteString("\\")
		}
		b.WriteString(`"`)
	}
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteByte(stack[i])
	}
	return b.String()
}

// scanFirstValue returns the index just past the first complete top-level
// JSON value, or -1 if the text ends before the value closes. String
// literals and escapes are respected.
func scanFirstValue(text string) int {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}
