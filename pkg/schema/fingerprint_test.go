package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintStability(t *testing.T) {
	s := actionCatalogueSchema(8)
	assert.Equal(t, Fingerprint(s), Fingerprint(s))
	assert.Equal(t, Fingerprint(s), Fingerprint(s.Clone()))
}

func TestFingerprintIgnoresDescriptions(t *testing.T) {
	a := Object(map[string]*Schema{"goal": String("the goal")}, "goal")
	b := Object(map[string]*Schema{"goal": String("completely different text")}, "goal")
	assert.Equal(t, Fingerprint(a), Fingerprint(b), "prompt-text tweaks must not invalidate cache entries")
}

func TestFingerprintShapeSensitivity(t *testing.T) {
	base := Object(map[string]*Schema{"goal": String("")}, "goal")

	t.Run("RequiredMatters", func(t *testing.T) {
		optional := Object(map[string]*Schema{"goal": String("")})
		assert.NotEqual(t, Fingerprint(base), Fingerprint(optional))
	})

	t.Run("TypeMatters", func(t *testing.T) {
		intGoal := Object(map[string]*Schema{"goal": Integer("")}, "goal")
		assert.NotEqual(t, Fingerprint(base), Fingerprint(intGoal))
	})

	t.Run("ExtraKeyMatters", func(t *testing.T) {
		wider := Object(map[string]*Schema{"goal": String(""), "memory": String("")}, "goal")
		assert.NotEqual(t, Fingerprint(base), Fingerprint(wider))
	})

	t.Run("UnionBranchesMatter", func(t *testing.T) {
		union := &Schema{AnyOf: []*Schema{String(""), Integer("")}}
		assert.NotEqual(t, Fingerprint(String("")), Fingerprint(union))
	})
}
