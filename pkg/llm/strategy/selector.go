package strategy

import (
	"github.com/pagepilot/pagepilot/pkg/schema"
	"github.com/pagepilot/pagepilot/pkg/types"
)

// DefaultComplexityThreshold is the score below which native constrained
// generation is attempted first. Calibrated, not derived; exposed as
// configuration.
const DefaultComplexityThreshold = 40.0

// Selector orders generation attempts for a request, guided by the advisory
// cache and the schema's complexity score.
type Selector struct {
	cache     *Cache
	threshold float64
	native    Generator
	prompted  Generator
}

// SelectorOptions configures a Selector.
type SelectorOptions struct {
	// ComplexityThreshold overrides the default native-first ceiling.
	ComplexityThreshold float64

	// SimplifyOpts is passed to the native constrained generator.
	SimplifyOpts schema.SimplifyOptions
}

// NewSelector creates a selector backed by the given cache.
func NewSelector(cache *Cache, opts SelectorOptions) *Selector {
	threshold := opts.ComplexityThreshold
	if threshold == 0 {
		threshold = DefaultComplexityThreshold
	}
	return &Selector{
		cache:     cache,
		threshold: threshold,
		native:    &NativeConstrained{SimplifyOpts: opts.SimplifyOpts},
		prompted:  &PromptEngineered{},
	}
}

// Plan returns the ordered list of generators to attempt for a schema:
//
//  1. a cached preferred strategy leads, with the other as fallback;
//  2. otherwise, below the complexity threshold native leads and
//     prompt-engineered backs it up;
//  3. above the threshold only prompt-engineered runs — attempting the
//     native path would just burn a turn against a known capacity ceiling.
func (s *Selector) Plan(desc schema.Descriptor) []Generator {
	if preferred, ok := s.cache.Lookup(desc.Hash); ok {
		if preferred == types.StrategyNativeConstrained {
			return []Generator{s.native, s.prompted}
		}
		return []Generator{s.prompted, s.native}
	}

	if desc.ComplexityScore < s.threshold {
		return []Generator{s.native, s.prompted}
	}
	return []Generator{s.prompted}
}

// Record reports an attempt outcome back to the cache.
func (s *Selector) Record(desc schema.Descriptor, kind types.StrategyKind, success bool) {
	s.cache.Record(desc.Hash, kind, success)
}
