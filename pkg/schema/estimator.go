package schema

// Estimator scoring weights and defaults. The optional-ratio threshold is a
// separating heuristic: action-catalogue schemas are ~100% optional by
// construction while ordinary data schemas are usually below 50%, so the 0.8
// line cleanly splits the two populations. It is tunable configuration, not
// a constant of nature.
const (
	DefaultOptionalRatioThreshold = 0.8

	scalarWeight      = 1.0
	nestingWeight     = 2.0
	unionBranchWeight = 3.0
)

// Descriptor is the derived metadata for a response schema: its structural
// fingerprint, complexity score, and whether it looks like a tagged union.
// Descriptors are content-addressed and safely shared read-only across
// concurrent tasks.
type Descriptor struct {
	// Hash is the structural fingerprint (see Fingerprint).
	Hash string

	// ComplexityScore is the weighted structural difficulty of the schema.
	// Higher scores mean native constrained generation is more likely to
	// hit a provider capacity ceiling.
	ComplexityScore float64

	// IsUnionLike reports that the schema's top-level properties are almost
	// all optional, signalling a tagged-union shape where exactly one field
	// should be populated. Union-like schemas must never be structurally
	// pruned: dropping a variant silently disables a capability.
	IsUnionLike bool
}

// EstimatorOptions tunes the estimator thresholds.
type EstimatorOptions struct {
	// OptionalRatioThreshold is the optional-property fraction above which
	// a schema is classified union-like. Zero means the default (0.8).
	OptionalRatioThreshold float64
}

// Estimate derives a Descriptor for the schema. It is a pure function: no
// caching, no mutation of the input.
func Estimate(s *Schema, opts EstimatorOptions) Descriptor {
	threshold := opts.OptionalRatioThreshold
	if threshold == 0 {
		threshold = DefaultOptionalRatioThreshold
	}

	return Descriptor{
		Hash:            Fingerprint(s),
		ComplexityScore: complexity(s, 0),
		IsUnionLike:     len(s.Properties) > 0 && s.OptionalRatio() > threshold,
	}
}

// complexity recursively sums per-property weights. Scalars count 1; objects
// and arrays add a nesting-depth-weighted amount on top of their children;
// each union branch adds a flat penalty plus its own cost.
func complexity(s *Schema, depth int) float64 {
	if s == nil {
		return 0
	}

	score := 0.0
	switch s.Type {
	case TypeObject:
		score += nestingWeight * float64(depth+1)
		for _, prop := range s.Properties {
			score += complexity(prop, depth+1)
		}
	case TypeArray:
		score += nestingWeight * float64(depth+1)
		score += complexity(s.Items, depth+1)
	case "":
		// anyOf-only node, scored below
	default:
		score += scalarWeight
	}

	for _, branch := range s.AnyOf {
		score += unionBranchWeight + complexity(branch, depth)
	}

	return score
}
