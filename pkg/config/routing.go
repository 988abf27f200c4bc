package config

import (
	"fmt"
	"time"
)

// SectionIDRouting is the store key for routing and step loop tuning.
const SectionIDRouting = "routing"

// RoutingSection holds the calibrated knobs of the routing layer. The
// defaults are starting points, not derived values; deployments tune them
// against their own model and page mix.
type RoutingSection struct {
	// ComplexityThreshold is the schema complexity score above which native
	// constrained generation is skipped entirely.
	ComplexityThreshold float64

	// OptionalRatioThreshold is the optional-property ratio above which a
	// schema is treated as union-like and protected from simplification.
	OptionalRatioThreshold float64

	// MaxSteps bounds the step loop per task.
	MaxSteps int

	// TurnRetries bounds corrective retries after a fully invalid action set.
	TurnRetries int

	// BridgeTimeoutMS bounds one bridge round trip, in milliseconds.
	BridgeTimeoutMS int

	// InputBudget is the per-turn input token ceiling (0 = provider default).
	InputBudget int
}

// NewRoutingSection creates a routing section with default values.
func NewRoutingSection() *RoutingSection {
	return &RoutingSection{
		ComplexityThreshold:    40.0,
		OptionalRatioThreshold: 0.8,
		MaxSteps:               20,
		TurnRetries:            2,
		BridgeTimeoutMS:        30_000,
		InputBudget:            0,
	}
}

// ID implements Section.
func (s *RoutingSection) ID() string {
	return SectionIDRouting
}

// Data implements Section.
func (s *RoutingSection) Data() map[string]interface{} {
	return map[string]interface{}{
		"complexity_threshold":     s.ComplexityThreshold,
		"optional_ratio_threshold": s.OptionalRatioThreshold,
		"max_steps":                s.MaxSteps,
		"turn_retries":             s.TurnRetries,
		"bridge_timeout_ms":        s.BridgeTimeoutMS,
		"input_budget":             s.InputBudget,
	}
}

// SetData implements Section.
func (s *RoutingSection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}
	if v, ok := floatValue(data["complexity_threshold"]); ok {
		s.ComplexityThreshold = v
	}
	if v, ok := floatValue(data["optional_ratio_threshold"]); ok {
		s.OptionalRatioThreshold = v
	}
	if v, ok := intValue(data["max_steps"]); ok {
		s.MaxSteps = v
	}
	if v, ok := intValue(data["turn_retries"]); ok {
		s.TurnRetries = v
	}
	if v, ok := intValue(data["bridge_timeout_ms"]); ok {
		s.BridgeTimeoutMS = v
	}
	if v, ok := intValue(data["input_budget"]); ok {
		s.InputBudget = v
	}
	return nil
}

// Validate implements Section.
func (s *RoutingSection) Validate() error {
	if s.ComplexityThreshold <= 0 {
		return fmt.Errorf("complexity_threshold must be positive, got %v", s.ComplexityThreshold)
	}
	if s.OptionalRatioThreshold <= 0 || s.OptionalRatioThreshold > 1 {
		return fmt.Errorf("optional_ratio_threshold must be in (0,1], got %v", s.OptionalRatioThreshold)
	}
	if s.MaxSteps <= 0 {
		return fmt.Errorf("max_steps must be positive, got %d", s.MaxSteps)
	}
	if s.TurnRetries < 0 {
		return fmt.Errorf("turn_retries must not be negative, got %d", s.TurnRetries)
	}
	if s.BridgeTimeoutMS <= 0 {
		return fmt.Errorf("bridge_timeout_ms must be positive, got %d", s.BridgeTimeoutMS)
	}
	if s.InputBudget < 0 {
		return fmt.Errorf("input_budget must not be negative, got %d", s.InputBudget)
	}
	return nil
}

// BridgeTimeout returns the bridge timeout as a duration.
func (s *RoutingSection) BridgeTimeout() time.Duration {
	return time.Duration(s.BridgeTimeoutMS) * time.Millisecond
}

// floatValue coerces JSON-decoded numbers to float64.
func floatValue(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

// intValue coerces JSON-decoded numbers to int.
func intValue(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}
