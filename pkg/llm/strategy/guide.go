package strategy

import (
	"fmt"
	"strings"

	"github.com/pagepilot/pagepilot/pkg/schema"
)

// Guide renders a compact, example-driven description of a response shape
// for embedding in session instructions. It is deliberately NOT the formal
// schema: full schemas measured 10-50x larger in practice and tripped the
// same provider truncation the prompt-engineered path exists to avoid.
func Guide(name string, s *schema.Schema) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Shape %q: respond with a single JSON object like:\n", name)
	b.WriteString(example(s, 0))
	b.WriteString("\n")

	if len(s.Required) > 0 {
		fmt.Fprintf(&b, "Required keys: %s.\n", strings.Join(s.Required, ", "))
	}
	if len(s.Properties) > 0 && len(s.Required) == 0 {
		b.WriteString("Populate exactly one key; leave all others out.\n")
	}
	b.WriteString("Output raw JSON only: no prose, no code fences, one object.\n")
	return b.String()
}

// Directive is the per-turn reminder naming a shape the session instructions
// already describe. Keeping this to one line preserves the token-reuse
// invariant: the full guide travels once, at session creation.
func Directive(name string) string {
	return fmt.Sprintf("Respond using shape %q.", name)
}

// example renders a terse skeleton value for a schema node.
func example(s *schema.Schema, depth int) string {
	if s == nil {
		return "null"
	}
	if depth > 3 {
		return `"..."`
	}
	if len(s.Enum) > 0 {
		return fmt.Sprintf("%q", s.Enum[0])
	}
	if len(s.AnyOf) > 0 {
		return example(s.AnyOf[0], depth)
	}

	switch s.Type {
	case schema.TypeObject:
		names := s.PropertyNames()
		if len(names) == 0 {
			return "{}"
		}
		// Union-like objects show a couple of variants, not all of them.
		if len(names) > 4 && len(s.Required) == 0 {
			names = names[:2]
		}
		parts := make([]string, 0, len(names))
		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%q: %s", name, example(s.Properties[name], depth+1)))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case schema.TypeArray:
		return "[" + example(s.Items, depth+1) + "]"
	case schema.TypeString:
		if s.Description != "" {
			return fmt.Sprintf("%q", "<"+s.Description+">")
		}
		return `"..."`
	case schema.TypeInteger, schema.TypeNumber:
		return "0"
	case schema.TypeBoolean:
		return "false"
	default:
		return "null"
	}
}
