// Package agent drives the step loop: snapshot the page, plan, choose
// actions, validate them, execute them, persist the step, repeat until the
// model signals done or a budget runs out.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pagepilot/pagepilot/pkg/actions"
	"github.com/pagepilot/pagepilot/pkg/agent/history"
	"github.com/pagepilot/pagepilot/pkg/agent/prompts"
	"github.com/pagepilot/pagepilot/pkg/llm/tokenizer"
	"github.com/pagepilot/pagepilot/pkg/logging"
	"github.com/pagepilot/pagepilot/pkg/page"
	"github.com/pagepilot/pagepilot/pkg/schema"
	"github.com/pagepilot/pagepilot/pkg/types"
)

// Schema names registered with the inference session.
const (
	SchemaNamePlan    = "plan"
	SchemaNameActions = "actions"
)

// Default step loop budgets.
const (
	DefaultMaxSteps    = 20
	DefaultTurnRetries = 2
)

// Status is the terminal state of a task run.
type Status string

const (
	StatusDone     Status = "done"
	StatusFailed   Status = "failed"
	StatusMaxSteps Status = "max_steps_reached"
)

// Result summarizes a finished task run.
type Result struct {
	Status  Status
	Success bool
	Message string
	Steps   int
}

// Invoker is the slice of the inference session the executor needs.
type Invoker interface {
	Invoke(ctx context.Context, req types.GenerationRequest) (*types.GenerationResponse, error)
	Provider() types.ProviderKind
}

// Options configures an Executor.
type Options struct {
	// MaxSteps bounds the step loop (0 = DefaultMaxSteps).
	MaxSteps int

	// TurnRetries bounds corrective retries after an invalid action set
	// (0 = DefaultTurnRetries).
	TurnRetries int

	// Whitelist restricts executable actions; nil allows all.
	Whitelist *actions.Whitelist

	// History receives one AgentStep per completed step, when set.
	History *history.Store

	// Logger receives step loop diagnostics.
	Logger *logging.Logger

	// OnEvent receives executor events synchronously, when set.
	OnEvent func(*types.ExecutorEvent)
}

// Executor runs one task against one page driver and one inference session.
type Executor struct {
	sess     Invoker
	driver   page.Driver
	registry *actions.Registry
	opts     Options
}

// Schemas returns the named response schemas a task session must register:
// the planner shape and the action list over the catalogue union.
func Schemas(registry *actions.Registry) map[string]*schema.Schema {
	return map[string]*schema.Schema{
		SchemaNamePlan: schema.Object(map[string]*schema.Schema{
			"evaluation": schema.String("progress assessment for the previous step"),
			"next_goal":  schema.String("the concrete goal for this step"),
			"done":       schema.Boolean("whether the task is already complete"),
		}, "next_goal", "done"),
		SchemaNameActions: schema.Object(map[string]*schema.Schema{
			"actions": schema.Array(registry.Schema()),
		}, "actions"),
	}
}

// New creates an executor.
func New(sess Invoker, driver page.Driver, registry *actions.Registry, opts Options) *Executor {
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = DefaultMaxSteps
	}
	if opts.TurnRetries <= 0 {
		opts.TurnRetries = DefaultTurnRetries
	}
	return &Executor{sess: sess, driver: driver, registry: registry, opts: opts}
}

type plan struct {
	Evaluation string `json:"evaluation"`
	NextGoal   string `json:"next_goal"`
	Done       bool   `json:"done"`
}

type actionList struct {
	Actions []map[string]json.RawMessage `json:"actions"`
}

type doneParams struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Run drives the task to a terminal state. Inference and snapshot failures
// are fatal; individual action failures are fed back to the model as step
// results instead.
func (e *Executor) Run(ctx context.Context, task string) (*Result, error) {
	e.emit(types.NewTaskStartEvent(task))
	lastProvider := e.sess.Provider()
	previousResults := ""

	for step := 0; step < e.opts.MaxSteps; step++ {
		e.emit(types.NewStepStartEvent(step))

		snap, err := e.driver.Snapshot(ctx)
		if err != nil {
			return e.fail(step, fmt.Errorf("snapshot failed: %w", err))
		}

		planned, plannerRaw, err := e.planTurn(ctx, step, snap, previousResults)
		if err != nil {
			return e.fail(step, err)
		}
		e.emit(types.NewPlanProducedEvent(step, planned.NextGoal))

		if planned.Done {
			e.record(step, plannerRaw, nil, nil, types.StepValidation{State: types.ValidationValid})
			e.emit(types.NewTaskDoneEvent(step, planned.Evaluation))
			return &Result{Status: StatusDone, Success: true, Message: planned.Evaluation, Steps: step + 1}, nil
		}

		accepted, navigatorRaw, validation, err := e.navigateTurn(ctx, step, planned.NextGoal)
		if err != nil {
			return e.fail(step, err)
		}
		if validation.DroppedCount > 0 {
			e.emit(types.NewActionsDroppedEvent(step, validation.DroppedCount))
		}
		e.emit(types.NewActionsProducedEvent(step, len(accepted)))

		results, done := e.execute(ctx, step, accepted)
		e.record(step, plannerRaw, navigatorRaw, accepted, validation)

		if e.sess.Provider() != lastProvider {
			lastProvider = e.sess.Provider()
			e.emit(types.NewProviderSwitchEvent(step, lastProvider))
		}

		if done != nil {
			e.emit(types.NewTaskDoneEvent(step, done.Message))
			return &Result{Status: StatusDone, Success: done.Success, Message: done.Message, Steps: step + 1}, nil
		}
		previousResults = results
	}

	e.emit(types.NewMaxStepsEvent(e.opts.MaxSteps - 1))
	return &Result{Status: StatusMaxSteps, Steps: e.opts.MaxSteps}, nil
}

func (e *Executor) planTurn(ctx context.Context, step int, snap *page.Snapshot, previousResults string) (*plan, json.RawMessage, error) {
	prompt := prompts.PlanTurn(snap.Render(), previousResults)
	resp, err := e.invoke(ctx, prompt, SchemaNamePlan)
	if err != nil {
		return nil, nil, fmt.Errorf("planner turn failed: %w", err)
	}

	var p plan
	if err := json.Unmarshal([]byte(resp.Text), &p); err != nil {
		return nil, nil, fmt.Errorf("planner output did not decode: %w", err)
	}
	return &p, json.RawMessage(resp.Text), nil
}

// navigateTurn requests an action list and validates it, retrying with
// corrective feedback while the whole set is unusable. Partial sets proceed;
// only fully invalid sets burn a retry.
func (e *Executor) navigateTurn(ctx context.Context, step int, nextGoal string) ([]actions.Instance, json.RawMessage, types.StepValidation, error) {
	prompt := prompts.NavigateTurn(nextGoal)

	var validation types.StepValidation
	for attempt := 0; attempt <= e.opts.TurnRetries; attempt++ {
		resp, err := e.invoke(ctx, prompt, SchemaNameActions)
		if err != nil {
			return nil, nil, validation, fmt.Errorf("navigator turn failed: %w", err)
		}

		var list actionList
		if err := json.Unmarshal([]byte(resp.Text), &list); err != nil {
			validation = types.StepValidation{State: types.ValidationInvalid, Reason: err.Error()}
		} else {
			var accepted []actions.Instance
			accepted, validation = actions.ValidateInstances(e.registry, e.opts.Whitelist, list.Actions)
			if validation.State != types.ValidationInvalid {
				return accepted, json.RawMessage(resp.Text), validation, nil
			}
		}

		if attempt < e.opts.TurnRetries {
			e.emit(types.NewStepRetryEvent(step, validation.Reason))
			prompt = prompts.RetryFeedback(nextGoal, validation.Reason)
		}
	}
	return nil, nil, validation, fmt.Errorf("action set still invalid after %d retries: %s", e.opts.TurnRetries, validation.Reason)
}

// execute runs accepted actions in order. A failing action ends the step
// (the page may have changed under us) but not the task; the failure text
// becomes next step's context. A done action ends the task.
func (e *Executor) execute(ctx context.Context, step int, accepted []actions.Instance) (string, *doneParams) {
	var results []string
	for _, inst := range accepted {
		if inst.Name == "done" {
			var d doneParams
			if err := json.Unmarshal(inst.Params, &d); err != nil {
				d = doneParams{Success: true}
			}
			return strings.Join(results, "\n"), &d
		}

		result, err := e.driver.Perform(ctx, inst)
		if err != nil {
			e.emit(types.NewErrorEvent(err))
			e.logf("step %d: action %s failed: %v", step, inst.Name, err)
			results = append(results, fmt.Sprintf("%s failed: %v", inst.Name, err))
			break
		}
		results = append(results, result)
	}
	return strings.Join(results, "\n"), nil
}

func (e *Executor) invoke(ctx context.Context, prompt, schemaName string) (*types.GenerationResponse, error) {
	resp, err := e.sess.Invoke(ctx, types.GenerationRequest{Incremental: prompt, SchemaName: schemaName})
	if err != nil {
		return nil, err
	}
	e.emit(types.NewTokenUsageEvent(tokenizer.EstimateTokens(prompt), tokenizer.EstimateTokens(resp.Text)))
	return resp, nil
}

func (e *Executor) record(step int, plannerRaw, navigatorRaw json.RawMessage, accepted []actions.Instance, validation types.StepValidation) {
	if e.opts.History == nil {
		return
	}

	entry := types.AgentStep{
		Index:           step,
		PlannerOutput:   plannerRaw,
		NavigatorOutput: navigatorRaw,
		Validation:      validation,
	}
	for _, inst := range accepted {
		entry.Actions = append(entry.Actions, map[string]json.RawMessage{inst.Name: inst.Params})
	}

	if err := e.opts.History.Append(entry); err != nil {
		e.emit(types.NewErrorEvent(fmt.Errorf("failed to persist step %d: %w", step, err)))
	}
}

func (e *Executor) fail(step int, err error) (*Result, error) {
	e.emit(types.NewTaskFailedEvent(step, err))
	return &Result{Status: StatusFailed, Message: err.Error(), Steps: step + 1}, err
}

func (e *Executor) emit(event *types.ExecutorEvent) {
	if e.opts.OnEvent != nil {
		e.opts.OnEvent(event)
	}
}

func (e *Executor) logf(format string, args ...interface{}) {
	if e.opts.Logger != nil {
		e.opts.Logger.Warnf(format, args...)
	}
}
