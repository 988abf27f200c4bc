package schema

import (
	"encoding/json"
	"fmt"
)

// Check validates a JSON document against the schema. It returns nil when
// the document conforms, or an error naming the first violation found.
// The error is a plain description; callers wrap it into their own typed
// error taxonomy.
func Check(s *Schema, doc json.RawMessage) error {
	var value interface{}
	if err := json.Unmarshal(doc, &value); err != nil {
		return fmt.Errorf("document is not valid JSON: %w", err)
	}
	return checkValue(s, value, "$")
}

func checkValue(s *Schema, value interface{}, path string) error {
	if s == nil {
		return nil
	}

	if value == nil {
		if s.Nullable || s.Type == TypeNull {
			return nil
		}
		return fmt.Errorf("%s: null not allowed", path)
	}

	if len(s.AnyOf) > 0 {
		var lastErr error
		for _, branch := range s.AnyOf {
			if err := checkValue(branch, value, path); err == nil {
				return nil
			} else {
				lastErr = err
			}
		}
		return fmt.Errorf("%s: no anyOf branch matched: %w", path, lastErr)
	}

	switch s.Type {
	case TypeObject:
		return checkObject(s, value, path)
	case TypeArray:
		return checkArray(s, value, path)
	case TypeString:
		str, ok := value.(string)
		if !ok {
			return fmt.Errorf("%s: expected string, got %T", path, value)
		}
		return checkEnum(s, str, path)
	case TypeNumber:
		if _, ok := value.(float64); !ok {
			return fmt.Errorf("%s: expected number, got %T", path, value)
		}
	case TypeInteger:
		num, ok := value.(float64)
		if !ok {
			return fmt.Errorf("%s: expected integer, got %T", path, value)
		}
		if num != float64(int64(num)) {
			return fmt.Errorf("%s: expected integer, got fraction %v", path, num)
		}
	case TypeBoolean:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("%s: expected boolean, got %T", path, value)
		}
	case "":
		// Untyped node with no anyOf: accept anything.
	default:
		return fmt.Errorf("%s: unknown schema type %q", path, s.Type)
	}

	return nil
}

func checkObject(s *Schema, value interface{}, path string) error {
	obj, ok := value.(map[string]interface{})
	if !ok {
		return fmt.Errorf("%s: expected object, got %T", path, value)
	}

	for _, name := range s.Required {
		if _, present := obj[name]; !present {
			return fmt.Errorf("%s: missing required property %q", path, name)
		}
	}

	for name, propValue := range obj {
		propSchema, known := s.Properties[name]
		if !known {
			// Unknown keys are tolerated; providers pad objects with extras
			// and rejecting them would fail otherwise-usable output.
			continue
		}
		if err := checkValue(propSchema, propValue, path+"."+name); err != nil {
			return err
		}
	}

	return nil
}

func checkArray(s *Schema, value interface{}, path string) error {
	arr, ok := value.([]interface{})
	if !ok {
		return fmt.Errorf("%s: expected array, got %T", path, value)
	}
	for i, item := range arr {
		if err := checkValue(s.Items, item, fmt.Sprintf("%s[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

func checkEnum(s *Schema, str, path string) error {
	if len(s.Enum) == 0 {
		return nil
	}
	for _, allowed := range s.Enum {
		if str == allowed {
			return nil
		}
	}
	return fmt.Errorf("%s: value %q not in enum", path, str)
}
