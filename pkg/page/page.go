// Package page turns live browser state into the compact, element-indexed
// snapshots the navigator reasons over, and executes validated actions back
// against the page.
package page

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pagepilot/pagepilot/pkg/actions"
)

// Element is one interactive element surfaced to the model, addressed by a
// stable per-snapshot index.
type Element struct {
	Index int
	Tag   string
	Text  string
	Attrs map[string]string
}

// Snapshot is the model-facing view of a page at one instant. Element
// indexes are only meaningful against the snapshot they came from; a fresh
// snapshot invalidates all earlier indexes.
type Snapshot struct {
	URL       string
	Title     string
	Elements  []Element
	Text      string
	Truncated bool
}

// Render formats the snapshot for inclusion in a turn prompt.
func (s *Snapshot) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "URL: %s\n", s.URL)
	if s.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", s.Title)
	}
	b.WriteString("Interactive elements:\n")
	for _, el := range s.Elements {
		fmt.Fprintf(&b, "[%d]<%s", el.Index, el.Tag)
		for _, key := range sortedKeys(el.Attrs) {
			fmt.Fprintf(&b, " %s=%q", key, el.Attrs[key])
		}
		b.WriteString(">")
		b.WriteString(el.Text)
		fmt.Fprintf(&b, "</%s>\n", el.Tag)
	}
	if s.Text != "" {
		b.WriteString("Page text:\n")
		b.WriteString(s.Text)
		b.WriteString("\n")
	}
	if s.Truncated {
		b.WriteString("(page content truncated)\n")
	}
	return b.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Driver is the boundary between the step loop and an actual browser.
type Driver interface {
	// Snapshot captures the current page state.
	Snapshot(ctx context.Context) (*Snapshot, error)

	// Perform executes one validated action against the page and returns a
	// short result description for the next turn's context.
	Perform(ctx context.Context, inst actions.Instance) (string, error)

	// Close releases browser resources.
	Close() error
}
