package types

// ExecutorEventType defines the type of event emitted by the executor while
// it drives a task.
type ExecutorEventType string

const (
	EventTypeTaskStart       ExecutorEventType = "task_start"       // EventTypeTaskStart indicates a task has begun.
	EventTypeStepStart       ExecutorEventType = "step_start"       // EventTypeStepStart indicates a new step is starting.
	EventTypePlanProduced    ExecutorEventType = "plan_produced"    // EventTypePlanProduced indicates a planner turn completed.
	EventTypeActionsProduced ExecutorEventType = "actions_produced" // EventTypeActionsProduced indicates a navigator turn completed.
	EventTypeActionsDropped  ExecutorEventType = "actions_dropped"  // EventTypeActionsDropped indicates invalid action instances were dropped.
	EventTypeStepRetry       ExecutorEventType = "step_retry"       // EventTypeStepRetry indicates a turn is being retried after an invalid step.
	EventTypeProviderSwitch  ExecutorEventType = "provider_switch"  // EventTypeProviderSwitch indicates the session failed over to the other provider.
	EventTypeTokenUsage      ExecutorEventType = "token_usage"      // EventTypeTokenUsage reports estimated token counts for a turn.
	EventTypeTaskDone        ExecutorEventType = "task_done"        // EventTypeTaskDone indicates the model signalled completion.
	EventTypeTaskFailed      ExecutorEventType = "task_failed"      // EventTypeTaskFailed indicates the task ended with a fatal error.
	EventTypeMaxSteps        ExecutorEventType = "max_steps"        // EventTypeMaxSteps indicates the step budget was exhausted.
	EventTypeError           ExecutorEventType = "error"            // EventTypeError indicates a non-fatal error occurred.
)

// ExecutorEvent is one entry in the executor's event stream. Consumers (CLI,
// logs, dashboards) read these; the executor never blocks on a slow consumer
// losing interest.
type ExecutorEvent struct {
	// Type indicates the kind of event.
	Type ExecutorEventType

	// StepIndex is the step this event belongs to, where applicable.
	StepIndex int

	// Content holds free-form text for the event (plan summary, error text).
	Content string

	// Provider is the backend involved, for provider-related events.
	Provider ProviderKind

	// ActionCount is the number of accepted action instances, for
	// actions_produced events.
	ActionCount int

	// DroppedCount is the number of dropped action instances, for
	// actions_dropped events.
	DroppedCount int

	// TokenUsage carries estimated token counts for token_usage events.
	TokenUsage *TokenUsage

	// Error contains error information for error and task_failed events.
	Error error
}

// TokenUsage contains estimated token counts for one provider call.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// NewTaskStartEvent creates a task start event.
func NewTaskStartEvent(goal string) *ExecutorEvent {
	return &ExecutorEvent{Type: EventTypeTaskStart, Content: goal}
}

// NewStepStartEvent creates a step start event.
func NewStepStartEvent(index int) *ExecutorEvent {
	return &ExecutorEvent{Type: EventTypeStepStart, StepIndex: index}
}

// NewPlanProducedEvent creates a plan produced event.
func NewPlanProducedEvent(index int, summary string) *ExecutorEvent {
	return &ExecutorEvent{Type: EventTypePlanProduced, StepIndex: index, Content: summary}
}

// NewActionsProducedEvent creates an actions produced event.
func NewActionsProducedEvent(index int, count int) *ExecutorEvent {
	return &ExecutorEvent{Type: EventTypeActionsProduced, StepIndex: index, ActionCount: count}
}

// NewActionsDroppedEvent creates an event recording dropped action instances.
func NewActionsDroppedEvent(index, dropped int) *ExecutorEvent {
	return &ExecutorEvent{Type: EventTypeActionsDropped, StepIndex: index, DroppedCount: dropped}
}

// NewStepRetryEvent creates a step retry event.
func NewStepRetryEvent(index int, reason string) *ExecutorEvent {
	return &ExecutorEvent{Type: EventTypeStepRetry, StepIndex: index, Content: reason}
}

// NewProviderSwitchEvent creates a provider switch (failover) event.
func NewProviderSwitchEvent(index int, to ProviderKind) *ExecutorEvent {
	return &ExecutorEvent{Type: EventTypeProviderSwitch, StepIndex: index, Provider: to}
}

// NewTokenUsageEvent creates a token usage event.
func NewTokenUsageEvent(prompt, completion int) *ExecutorEvent {
	return &ExecutorEvent{
		Type: EventTypeTokenUsage,
		TokenUsage: &TokenUsage{
			PromptTokens:     prompt,
			CompletionTokens: completion,
			TotalTokens:      prompt + completion,
		},
	}
}

// NewTaskDoneEvent creates a task done event.
func NewTaskDoneEvent(index int, result string) *ExecutorEvent {
	return &ExecutorEvent{Type: EventTypeTaskDone, StepIndex: index, Content: result}
}

// NewTaskFailedEvent creates a task failed event.
func NewTaskFailedEvent(index int, err error) *ExecutorEvent {
	return &ExecutorEvent{Type: EventTypeTaskFailed, StepIndex: index, Error: err}
}

// NewMaxStepsEvent creates a max steps reached event.
func NewMaxStepsEvent(index int) *ExecutorEvent {
	return &ExecutorEvent{Type: EventTypeMaxSteps, StepIndex: index}
}

// NewErrorEvent creates a non-fatal error event.
func NewErrorEvent(err error) *ExecutorEvent {
	return &ExecutorEvent{Type: EventTypeError, Error: err}
}
