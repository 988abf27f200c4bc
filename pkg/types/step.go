package types

import "encoding/json"

// ValidationState classifies the action set of a completed step.
type ValidationState string

const (
	// ValidationValid means every decoded action instance was well formed.
	ValidationValid ValidationState = "valid"

	// ValidationPartial means some instances were dropped but at least one
	// survived and was executed.
	ValidationPartial ValidationState = "partially_valid"

	// ValidationInvalid means the whole action set was unusable and the
	// turn must be retried.
	ValidationInvalid ValidationState = "invalid"
)

// StepValidation records how a step's action set fared during validation.
type StepValidation struct {
	State ValidationState `json:"state"`

	// DroppedCount is the number of instances dropped (partial validation).
	DroppedCount int `json:"dropped_count,omitempty"`

	// Reason explains an invalid step.
	Reason string `json:"reason,omitempty"`
}

// AgentStep is one persisted entry of the step loop: what the planner and
// navigator said, which actions were accepted, and how validation went.
// Steps are task-scoped and appended to an append-only history for
// resumability.
type AgentStep struct {
	// Index is the zero-based position of this step within the task.
	Index int `json:"index"`

	// PlannerOutput is the raw planner JSON for this step, if a plan turn
	// ran.
	PlannerOutput json.RawMessage `json:"planner_output,omitempty"`

	// NavigatorOutput is the raw navigator JSON for this step, if a
	// navigate turn ran.
	NavigatorOutput json.RawMessage `json:"navigator_output,omitempty"`

	// Actions are the validated action instances accepted for execution,
	// in model order. Each is a single-key map from action name to
	// parameters.
	Actions []map[string]json.RawMessage `json:"actions,omitempty"`

	// Validation records the outcome of per-instance validation.
	Validation StepValidation `json:"validation"`
}
