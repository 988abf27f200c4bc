package schema

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimplifyPreservesUnionVariants(t *testing.T) {
	// Every top-level key of a union-like schema must survive, no matter
	// how far past the property cap it is.
	for _, variants := range []int{5, 30, 120} {
		t.Run(fmt.Sprintf("variants_%d", variants), func(t *testing.T) {
			s := actionCatalogueSchema(variants)
			simplified := Simplify(s, SimplifyOptions{MaxProperties: 8})

			require.Len(t, simplified.Properties, variants)
			for _, name := range s.PropertyNames() {
				assert.Contains(t, simplified.Properties, name)
			}
		})
	}
}

func TestSimplifyTrimsNonUnionSchemas(t *testing.T) {
	props := make(map[string]*Schema, 12)
	required := []string{"goal", "memory"}
	props["goal"] = String("current goal")
	props["memory"] = String("progress notes")
	for i := 0; i < 10; i++ {
		props[fmt.Sprintf("hint_%d", i)] = String("auxiliary hint")
	}
	// 2 of 12 required: optional ratio 0.83 would be union-like, so require
	// a few more to keep this a data schema.
	required = append(required, "hint_0", "hint_1", "hint_2")
	s := Object(props, required...)

	simplified := Simplify(s, SimplifyOptions{MaxProperties: 6})

	assert.Len(t, simplified.Properties, 6)
	for _, name := range required {
		assert.Contains(t, simplified.Properties, name, "required properties always survive")
	}
}

func TestSimplifyStripsDescriptions(t *testing.T) {
	s := Object(map[string]*Schema{
		"steps": Array(Object(map[string]*Schema{
			"description": String("a very long description that inflates the constraint payload"),
		}, "description")),
	}, "steps")

	simplified := Simplify(s, SimplifyOptions{})

	inner := simplified.Properties["steps"].Items.Properties["description"]
	assert.Empty(t, inner.Description)
}

func TestSimplifyIsPure(t *testing.T) {
	s := actionCatalogueSchema(10)
	s.Properties["action_0"].Description = "keep me"
	before := Fingerprint(s)

	_ = Simplify(s, SimplifyOptions{MaxProperties: 2})

	assert.Equal(t, before, Fingerprint(s))
	assert.Equal(t, "keep me", s.Properties["action_0"].Description, "input schema must not be mutated")
}

func TestSimplifyNil(t *testing.T) {
	assert.Nil(t, Simplify(nil, SimplifyOptions{}))
}
