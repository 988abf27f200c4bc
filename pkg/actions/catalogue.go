// Package actions defines the versioned action catalogue the navigator
// generates against: the set of browser actions, their parameter shapes, and
// the validation that turns raw model output into executable instances.
//
// The catalogue is data, not code: a YAML document versioned alongside the
// binary, so adding an action or tightening a parameter never touches the
// decoding logic.
package actions

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/pagepilot/pagepilot/pkg/schema"
)

//go:embed catalogue.yaml
var defaultCatalogue []byte

// Param describes one action parameter in the catalogue document.
type Param struct {
	Type        string   `yaml:"type"`
	Required    bool     `yaml:"required"`
	Description string   `yaml:"description"`
	Enum        []string `yaml:"enum"`
}

// Definition describes one action in the catalogue document.
type Definition struct {
	Description string           `yaml:"description"`
	Params      map[string]Param `yaml:"params"`
}

// Registry is a loaded, validated action catalogue.
type Registry struct {
	version int
	defs    map[string]Definition
	shapes  map[string]*schema.Schema
	union   *schema.Schema
}

// Load parses and validates a catalogue document.
func Load(data []byte) (*Registry, error) {
	var doc struct {
		Version int                   `yaml:"version"`
		Actions map[string]Definition `yaml:"actions"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse action catalogue: %w", err)
	}
	if doc.Version < 1 {
		return nil, fmt.Errorf("action catalogue missing version")
	}
	if len(doc.Actions) == 0 {
		return nil, fmt.Errorf("action catalogue defines no actions")
	}

	r := &Registry{
		version: doc.Version,
		defs:    doc.Actions,
		shapes:  make(map[string]*schema.Schema, len(doc.Actions)),
	}
	for name, def := range doc.Actions {
		shape, err := paramSchema(def)
		if err != nil {
			return nil, fmt.Errorf("action %q: %w", name, err)
		}
		r.shapes[name] = shape
	}

	// The generation schema is the single-key tagged union: one optional
	// property per action, exactly one populated per instance.
	props := make(map[string]*schema.Schema, len(r.shapes))
	for name, shape := range r.shapes {
		withDesc := shape.Clone()
		withDesc.Description = r.defs[name].Description
		props[name] = withDesc
	}
	r.union = schema.Object(props)

	return r, nil
}

// LoadDefault loads the catalogue embedded in the binary.
func LoadDefault() (*Registry, error) {
	return Load(defaultCatalogue)
}

// Version returns the catalogue document version.
func (r *Registry) Version() int {
	return r.version
}

// IsKnown reports whether the catalogue defines the named action.
func (r *Registry) IsKnown(name string) bool {
	_, ok := r.defs[name]
	return ok
}

// ShapeOf returns the parameter schema for a known action.
func (r *Registry) ShapeOf(name string) (*schema.Schema, bool) {
	shape, ok := r.shapes[name]
	return shape, ok
}

// Names returns all action names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Schema returns the union-like generation schema: an all-optional object
// with one property per catalogue action.
func (r *Registry) Schema() *schema.Schema {
	return r.union
}

func paramSchema(def Definition) (*schema.Schema, error) {
	props := make(map[string]*schema.Schema, len(def.Params))
	var required []string

	for name, param := range def.Params {
		var node *schema.Schema
		switch param.Type {
		case "string":
			node = schema.String(param.Description)
		case "integer":
			node = schema.Integer(param.Description)
		case "number":
			node = &schema.Schema{Type: schema.TypeNumber, Description: param.Description}
		case "boolean":
			node = schema.Boolean(param.Description)
		default:
			return nil, fmt.Errorf("param %q has unsupported type %q", name, param.Type)
		}
		if len(param.Enum) > 0 {
			node.Enum = param.Enum
		}
		props[name] = node
		if param.Required {
			required = append(required, name)
		}
	}

	sort.Strings(required)
	return schema.Object(props, required...), nil
}
