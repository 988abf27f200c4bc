package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// Fingerprint returns a stable structural hash for the schema. Two schemas
// with the same shape (types, property names, required sets, union branches)
// hash equal regardless of descriptions, so strategy-cache entries survive
// prompt-text tweaks.
//
// Collisions between genuinely different schemas are an accepted risk: a
// wrong cached strategy only costs one fallback attempt, never incorrect
// output.
func Fingerprint(s *Schema) string {
	var b strings.Builder
	writeCanonical(&b, s)
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:16])
}

// writeCanonical serializes the structural shape of the schema into b.
// Property names are sorted so map iteration order never leaks into the hash.
func writeCanonical(b *strings.Builder, s *Schema) {
	if s == nil {
		b.WriteString("nil")
		return
	}
	b.WriteString(s.Type)
	if s.Nullable {
		b.WriteString("?")
	}
	if len(s.Enum) > 0 {
		b.WriteString("enum[")
		b.WriteString(strconv.Itoa(len(s.Enum)))
		b.WriteString("]")
	}
	if len(s.Properties) > 0 {
		b.WriteString("{")
		for _, name := range s.PropertyNames() {
			b.WriteString(name)
			if s.IsRequired(name) {
				b.WriteString("!")
			}
			b.WriteString(":")
			writeCanonical(b, s.Properties[name])
			b.WriteString(";")
		}
		b.WriteString("}")
	}
	if s.Items != nil {
		b.WriteString("[")
		writeCanonical(b, s.Items)
		b.WriteString("]")
	}
	if len(s.AnyOf) > 0 {
		b.WriteString("anyOf(")
		for _, branch := range s.AnyOf {
			writeCanonical(b, branch)
			b.WriteString("|")
		}
		b.WriteString(")")
	}
}
