package actions

import (
	"encoding/json"
	"fmt"

	"github.com/pagepilot/pagepilot/pkg/llm"
	"github.com/pagepilot/pagepilot/pkg/schema"
	"github.com/pagepilot/pagepilot/pkg/types"
)

// Instance is one decoded action: the discriminant name plus its raw
// parameter object.
type Instance struct {
	Name   string
	Params json.RawMessage
}

// Decode turns one raw single-key object into an Instance. Zero keys or more
// than one key means the model failed the tagged-union contract for this
// entry.
func Decode(raw map[string]json.RawMessage) (Instance, error) {
	if len(raw) == 0 {
		return Instance{}, fmt.Errorf("%w: empty action object", llm.ErrActionInvalid)
	}
	if len(raw) > 1 {
		return Instance{}, fmt.Errorf("%w: action object has %d keys, want exactly one", llm.ErrActionInvalid, len(raw))
	}
	for name, params := range raw {
		if len(params) == 0 {
			params = json.RawMessage("{}")
		}
		return Instance{Name: name, Params: params}, nil
	}
	panic("unreachable")
}

// ValidateInstances decodes and validates a step's action list, dropping bad
// entries instead of aborting the step: one malformed action in an otherwise
// sound list costs that action, not the turn that produced it. The returned
// validation state is invalid when nothing survives, including an empty
// list: a step with no actions cannot make progress and must be retried.
func ValidateInstances(reg *Registry, whitelist *Whitelist, raw []map[string]json.RawMessage) ([]Instance, types.StepValidation) {
	valid := make([]Instance, 0, len(raw))
	dropped := 0
	var reason string

	drop := func(why string) {
		dropped++
		if reason == "" {
			reason = why
		}
	}

	for _, entry := range raw {
		inst, err := Decode(entry)
		if err != nil {
			drop(err.Error())
			continue
		}
		if !reg.IsKnown(inst.Name) {
			drop(fmt.Sprintf("unknown action %q", inst.Name))
			continue
		}
		if whitelist != nil && !whitelist.Allowed(inst.Name) {
			drop(fmt.Sprintf("action %q not whitelisted", inst.Name))
			continue
		}
		shape, _ := reg.ShapeOf(inst.Name)
		if err := checkParams(shape, inst.Params); err != nil {
			drop(fmt.Sprintf("action %q: %v", inst.Name, err))
			continue
		}
		valid = append(valid, inst)
	}

	validation := types.StepValidation{DroppedCount: dropped, Reason: reason}
	switch {
	case len(valid) == 0:
		if validation.Reason == "" {
			validation.Reason = "empty action list"
		}
		validation.State = types.ValidationInvalid
	case dropped == 0:
		validation.State = types.ValidationValid
	default:
		validation.State = types.ValidationPartial
	}
	return valid, validation
}

func checkParams(shape *schema.Schema, params json.RawMessage) error {
	if shape == nil {
		return nil
	}
	return schema.Check(shape, params)
}
