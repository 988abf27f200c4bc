package actions

import (
	"fmt"

	"github.com/gobwas/glob"
)

// Whitelist restricts which catalogue actions a deployment may execute.
// Patterns are glob-style, so "click_*" covers every click variant. A nil or
// empty whitelist allows everything: restriction is opt-in.
type Whitelist struct {
	patterns []glob.Glob
	sources  []string
}

// NewWhitelist compiles a pattern list into a whitelist.
func NewWhitelist(patterns []string) (*Whitelist, error) {
	w := &Whitelist{}
	for _, pattern := range patterns {
		compiled, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid whitelist pattern %q: %w", pattern, err)
		}
		w.patterns = append(w.patterns, compiled)
		w.sources = append(w.sources, pattern)
	}
	return w, nil
}

// Allowed reports whether the named action may execute.
func (w *Whitelist) Allowed(name string) bool {
	if w == nil || len(w.patterns) == 0 {
		return true
	}
	for _, pattern := range w.patterns {
		if pattern.Match(name) {
			return true
		}
	}
	return false
}

// Patterns returns the source pattern strings.
func (w *Whitelist) Patterns() []string {
	if w == nil {
		return nil
	}
	return append([]string(nil), w.sources...)
}
