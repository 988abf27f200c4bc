// Package schema models response schemas for structured generation: a small
// JSON-Schema-like representation plus the derived metadata the routing layer
// needs (structural fingerprint, complexity score, union-likeness).
package schema

import (
	"fmt"
	"sort"
)

// Type constants for Schema.Type.
const (
	TypeObject  = "object"
	TypeArray   = "array"
	TypeString  = "string"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
	TypeNull    = "null"
)

// Schema is a response schema node. It covers the subset of JSON Schema the
// providers accept as a generation constraint: typed objects and arrays,
// scalars, enums, and anyOf unions.
type Schema struct {
	Type        string             `json:"type,omitempty"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	AnyOf       []*Schema          `json:"anyOf,omitempty"`
	Nullable    bool               `json:"nullable,omitempty"`
}

// Object creates an object schema with the given properties and required keys.
func Object(properties map[string]*Schema, required ...string) *Schema {
	return &Schema{Type: TypeObject, Properties: properties, Required: required}
}

// Array creates an array schema with the given item schema.
func Array(items *Schema) *Schema {
	return &Schema{Type: TypeArray, Items: items}
}

// String creates a string schema with an optional description.
func String(description string) *Schema {
	return &Schema{Type: TypeString, Description: description}
}

// Integer creates an integer schema with an optional description.
func Integer(description string) *Schema {
	return &Schema{Type: TypeInteger, Description: description}
}

// Boolean creates a boolean schema with an optional description.
func Boolean(description string) *Schema {
	return &Schema{Type: TypeBoolean, Description: description}
}

// IsRequired reports whether the named top-level property is required.
func (s *Schema) IsRequired(name string) bool {
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}
	return false
}

// PropertyNames returns the top-level property names in sorted order.
// Sorting keeps fingerprinting and prompt guides deterministic across runs.
func (s *Schema) PropertyNames() []string {
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OptionalRatio returns the fraction of top-level properties that are
// optional or nullable. Returns 0 for schemas without properties.
func (s *Schema) OptionalRatio() float64 {
	if len(s.Properties) == 0 {
		return 0
	}
	optional := 0
	for name, prop := range s.Properties {
		if !s.IsRequired(name) || prop.Nullable {
			optional++
		}
	}
	return float64(optional) / float64(len(s.Properties))
}

// Clone returns a deep copy of the schema. Simplification works on clones so
// shared descriptors are never mutated in place.
func (s *Schema) Clone() *Schema {
	if s == nil {
		return nil
	}
	clone := &Schema{
		Type:        s.Type,
		Description: s.Description,
		Nullable:    s.Nullable,
	}
	if s.Properties != nil {
		clone.Properties = make(map[string]*Schema, len(s.Properties))
		for name, prop := range s.Properties {
			clone.Properties[name] = prop.Clone()
		}
	}
	if s.Required != nil {
		clone.Required = append([]string(nil), s.Required...)
	}
	if s.Enum != nil {
		clone.Enum = append([]string(nil), s.Enum...)
	}
	clone.Items = s.Items.Clone()
	if s.AnyOf != nil {
		clone.AnyOf = make([]*Schema, len(s.AnyOf))
		for i, branch := range s.AnyOf {
			clone.AnyOf[i] = branch.Clone()
		}
	}
	return clone
}

// Validate checks the schema itself for structural soundness (not a document
// against the schema; see Check for that).
func (s *Schema) Validate() error {
	if s == nil {
		return fmt.Errorf("schema is nil")
	}
	if s.Type == "" && len(s.AnyOf) == 0 && len(s.Enum) == 0 {
		return fmt.Errorf("schema node has neither type, anyOf, nor enum")
	}
	if s.Type == TypeArray && s.Items == nil {
		return fmt.Errorf("array schema requires items")
	}
	for name, prop := range s.Properties {
		if err := prop.Validate(); err != nil {
			return fmt.Errorf("property %q: %w", name, err)
		}
	}
	for i, branch := range s.AnyOf {
		if err := branch.Validate(); err != nil {
			return fmt.Errorf("anyOf branch %d: %w", i, err)
		}
	}
	if s.Items != nil {
		if err := s.Items.Validate(); err != nil {
			return fmt.Errorf("items: %w", err)
		}
	}
	return nil
}
