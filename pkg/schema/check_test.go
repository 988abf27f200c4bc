package schema

import (
	"encoding/json"
	"testing"
)

func TestCheck(t *testing.T) {
	planSchema := Object(map[string]*Schema{
		"observation": String(""),
		"next_goal":   String(""),
		"done":        Boolean(""),
		"confidence":  Integer(""),
	}, "observation", "next_goal")

	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{"Valid", `{"observation":"on login page","next_goal":"fill form","done":false}`, false},
		{"MissingRequired", `{"observation":"on login page"}`, true},
		{"WrongType", `{"observation":42,"next_goal":"x"}`, true},
		{"UnknownKeysTolerated", `{"observation":"a","next_goal":"b","extra":"ignored"}`, false},
		{"FractionForInteger", `{"observation":"a","next_goal":"b","confidence":0.5}`, true},
		{"IntegerAccepted", `{"observation":"a","next_goal":"b","confidence":3}`, false},
		{"NotAnObject", `[1,2,3]`, true},
		{"NotJSON", `{"observation":`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(planSchema, json.RawMessage(tt.doc))
			if tt.wantErr && err == nil {
				t.Errorf("expected violation for %s", tt.doc)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected violation: %v", err)
			}
		})
	}
}

func TestCheckAnyOf(t *testing.T) {
	union := &Schema{AnyOf: []*Schema{String(""), Integer("")}}

	if err := Check(union, json.RawMessage(`"hello"`)); err != nil {
		t.Errorf("string should match first branch: %v", err)
	}
	if err := Check(union, json.RawMessage(`7`)); err != nil {
		t.Errorf("integer should match second branch: %v", err)
	}
	if err := Check(union, json.RawMessage(`true`)); err == nil {
		t.Error("boolean matches no branch, expected violation")
	}
}

func TestCheckNullable(t *testing.T) {
	s := Object(map[string]*Schema{
		"memory": {Type: TypeString, Nullable: true},
	}, "memory")

	if err := Check(s, json.RawMessage(`{"memory":null}`)); err != nil {
		t.Errorf("nullable property should accept null: %v", err)
	}

	strict := Object(map[string]*Schema{"memory": String("")}, "memory")
	if err := Check(strict, json.RawMessage(`{"memory":null}`)); err == nil {
		t.Error("non-nullable property should reject null")
	}
}

func TestCheckEnum(t *testing.T) {
	s := &Schema{Type: TypeString, Enum: []string{"plan", "navigate"}}
	if err := Check(s, json.RawMessage(`"plan"`)); err != nil {
		t.Errorf("enum member rejected: %v", err)
	}
	if err := Check(s, json.RawMessage(`"fly"`)); err == nil {
		t.Error("non-member accepted")
	}
}
