package config

import (
	"fmt"

	"github.com/gobwas/glob"
)

// SectionIDActionWhitelist is the store key for the action whitelist.
const SectionIDActionWhitelist = "action_whitelist"

// ActionWhitelistSection holds the glob patterns of actions a deployment
// permits. An empty pattern list means no restriction.
type ActionWhitelistSection struct {
	Patterns []string
}

// NewActionWhitelistSection creates an empty (allow-all) whitelist section.
func NewActionWhitelistSection() *ActionWhitelistSection {
	return &ActionWhitelistSection{}
}

// ID implements Section.
func (s *ActionWhitelistSection) ID() string {
	return SectionIDActionWhitelist
}

// Data implements Section.
func (s *ActionWhitelistSection) Data() map[string]interface{} {
	patterns := make([]interface{}, len(s.Patterns))
	for i, p := range s.Patterns {
		patterns[i] = p
	}
	return map[string]interface{}{"patterns": patterns}
}

// SetData implements Section.
func (s *ActionWhitelistSection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}
	raw, ok := data["patterns"]
	if !ok {
		return nil
	}
	list, ok := raw.([]interface{})
	if !ok {
		return fmt.Errorf("invalid patterns type: expected list, got %T", raw)
	}

	patterns := make([]string, 0, len(list))
	for i, item := range list {
		pattern, ok := item.(string)
		if !ok {
			return fmt.Errorf("invalid pattern at index %d: expected string, got %T", i, item)
		}
		patterns = append(patterns, pattern)
	}
	s.Patterns = patterns
	return nil
}

// Validate implements Section by compiling every pattern.
func (s *ActionWhitelistSection) Validate() error {
	for i, pattern := range s.Patterns {
		if pattern == "" {
			return fmt.Errorf("pattern at index %d is empty", i)
		}
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("pattern %q does not compile: %w", pattern, err)
		}
	}
	return nil
}
