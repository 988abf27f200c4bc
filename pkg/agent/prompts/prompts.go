// Package prompts builds the fixed and per-turn prompt text for the step
// loop. The split matters: SystemPrompt is transmitted once at session
// creation, the turn builders produce only incremental state.
package prompts

import (
	"fmt"
	"strings"
)

// SystemPrompt builds the fixed task instructions: role, the task goal, the
// catalogue of available actions, and the ground rules. Anything that does
// not change between turns belongs here and nowhere else.
func SystemPrompt(task string, actionNames []string) string {
	var b strings.Builder
	b.WriteString("You are a browser automation agent. You complete the user's task by\n")
	b.WriteString("reading page snapshots and choosing actions, one step at a time.\n\n")

	fmt.Fprintf(&b, "Task: %s\n\n", task)

	b.WriteString("Available actions: ")
	b.WriteString(strings.Join(actionNames, ", "))
	b.WriteString("\n\n")

	b.WriteString("Rules:\n")
	b.WriteString("- Element indexes like [3] come from the latest snapshot only; never reuse an index from an earlier step.\n")
	b.WriteString("- Each action object has exactly one key: the action name mapping to its parameters.\n")
	b.WriteString("- Prefer few, precise actions per step over long speculative sequences.\n")
	b.WriteString("- When the task is complete, emit the done action with success and a short message.\n")
	return b.String()
}

// PlanTurn builds the planner turn prompt from the current snapshot and the
// previous step's outcome.
func PlanTurn(snapshot, previousResults string) string {
	var b strings.Builder
	if previousResults != "" {
		b.WriteString("Previous step results:\n")
		b.WriteString(previousResults)
		b.WriteString("\n\n")
	}
	b.WriteString("Current page:\n")
	b.WriteString(snapshot)
	b.WriteString("\nEvaluate progress and state the next goal.")
	return b.String()
}

// NavigateTurn builds the navigator turn prompt from the plan's next goal.
// The snapshot is not repeated: the planner turn in the same session already
// carried it.
func NavigateTurn(nextGoal string) string {
	return fmt.Sprintf("Next goal: %s\nChoose the actions for this step.", nextGoal)
}

// RetryFeedback builds the corrective prompt after an invalid action set.
// The goal is restated: the corrective turn must stand on its own rather
// than lean on the backend replaying earlier turns.
func RetryFeedback(nextGoal, reason string) string {
	return fmt.Sprintf(
		"Your previous action list was invalid: %s\nNext goal: %s\nEmit a corrected, non-empty action list. Each entry must be a single-key object naming one known action.",
		reason, nextGoal,
	)
}
