package schema

// DefaultMaxProperties caps how many optional properties a simplified
// non-union schema keeps. Like the optional-ratio threshold this was arrived
// at by calibration, so it is exposed as configuration.
const DefaultMaxProperties = 24

// SimplifyOptions tunes the simplification pass.
type SimplifyOptions struct {
	// MaxProperties caps top-level properties for non-union schemas. Zero
	// means the default.
	MaxProperties int

	// OptionalRatioThreshold feeds the union-likeness check that gates the
	// whole pass. Zero means the default.
	OptionalRatioThreshold float64
}

// Simplify returns a reduced copy of the schema suitable for use as a native
// generation constraint: descriptions are stripped (they inflate constraint
// payloads 10-50x without affecting structure) and, for non-union schemas,
// optional properties beyond the cap are trimmed.
//
// Union-like schemas are returned structurally unchanged, every top-level key
// intact. Pruning a union variant would silently disable a capability rather
// than shrink output size, so the pass refuses to touch them. Union
// detection and simplification stay separate, composable steps.
func Simplify(s *Schema, opts SimplifyOptions) *Schema {
	if s == nil {
		return nil
	}

	maxProps := opts.MaxProperties
	if maxProps == 0 {
		maxProps = DefaultMaxProperties
	}

	desc := Estimate(s, EstimatorOptions{OptionalRatioThreshold: opts.OptionalRatioThreshold})
	clone := s.Clone()
	if desc.IsUnionLike {
		// Keys must survive key-for-key; only descriptions are safe to drop.
		stripDescriptions(clone)
		return clone
	}

	stripDescriptions(clone)
	trimOptional(clone, maxProps)
	return clone
}

// stripDescriptions removes description text from every node in place.
func stripDescriptions(s *Schema) {
	if s == nil {
		return
	}
	s.Description = ""
	for _, prop := range s.Properties {
		stripDescriptions(prop)
	}
	stripDescriptions(s.Items)
	for _, branch := range s.AnyOf {
		stripDescriptions(branch)
	}
}

// trimOptional drops optional top-level properties beyond the cap. Required
// properties always survive; optional ones are kept in sorted name order so
// the result is deterministic.
func trimOptional(s *Schema, maxProps int) {
	if s == nil || len(s.Properties) <= maxProps {
		return
	}

	kept := make(map[string]*Schema, maxProps)
	for _, name := range s.Required {
		if prop, ok := s.Properties[name]; ok {
			kept[name] = prop
		}
	}
	for _, name := range s.PropertyNames() {
		if len(kept) >= maxProps {
			break
		}
		if _, ok := kept[name]; !ok {
			kept[name] = s.Properties[name]
		}
	}
	s.Properties = kept
}
