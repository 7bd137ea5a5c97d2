// Package engine orchestrates workflow executions: it threads state through
// an ordered sequence of tool steps and records the execution lifecycle in
// the ledger.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pitabwire/loom/internal/observability"
	"github.com/pitabwire/loom/internal/store"
	"github.com/pitabwire/loom/internal/tool"
	"github.com/pitabwire/loom/model"
)

// Event names recorded in the execution audit trail.
const (
	EventStepStarted   = "step_started"
	EventStepCompleted = "step_completed"
	EventStepFailed    = "step_failed"
)

const defaultStepTimeout = 60 * time.Second

// Engine runs workflows. Concurrent Execute calls are independent; the only
// shared state is the read-only tool registry and the ledger, where each
// call addresses its own row.
type Engine struct {
	tools       *tool.Registry
	store       store.ExecutionStore
	logger      *zap.Logger
	metrics     *observability.Metrics
	stepTimeout time.Duration
	maxSteps    int
}

// Options tune engine behavior beyond the required dependencies.
type Options struct {
	// StepTimeout bounds each tool invocation. Zero selects the default.
	StepTimeout time.Duration
	// MaxSteps rejects workflows with more steps. Zero disables the check.
	MaxSteps int
	// Metrics may be nil.
	Metrics *observability.Metrics
}

// New creates a workflow engine.
func New(tools *tool.Registry, ledger store.ExecutionStore, logger *zap.Logger, opts Options) *Engine {
	stepTimeout := opts.StepTimeout
	if stepTimeout <= 0 {
		stepTimeout = defaultStepTimeout
	}
	return &Engine{
		tools:       tools,
		store:       ledger,
		logger:      logger,
		metrics:     opts.Metrics,
		stepTimeout: stepTimeout,
		maxSteps:    opts.MaxSteps,
	}
}

// Execute runs the workflow against the input and returns the terminal
// Execution record.
//
// Tool-level problems (unknown tool, tool invocation error) never surface as
// a returned error; they produce a well-formed Execution with status
// "failed" and a failure descriptor naming the offending step. Only ledger
// write failures and invalid workflows return an error, since an
// un-persisted execution is indistinguishable from data loss.
//
// Authorization is the caller's responsibility; the engine does not check
// workflow ownership.
func (e *Engine) Execute(ctx context.Context, wf model.Workflow, input map[string]any) (model.Execution, error) {
	if err := wf.Validate(); err != nil {
		return model.Execution{}, err
	}
	if e.maxSteps > 0 && len(wf.Steps) > e.maxSteps {
		return model.Execution{}, model.NewBadRequestError(
			fmt.Sprintf("workflow has %d steps, maximum is %d", len(wf.Steps), e.maxSteps),
		)
	}

	ctx, span := observability.StartSpan(ctx, "engine.execute",
		observability.AttrWorkflowID.String(wf.ID))
	var spanErr error
	defer func() { observability.EndSpanWithError(span, spanErr) }()

	now := time.Now().UTC()
	exec := model.Execution{
		ID:         uuid.NewString(),
		WorkflowID: wf.ID,
		UserID:     wf.UserID,
		Input:      cloneState(input),
		Status:     model.ExecutionStatusRunning,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	span.SetAttributes(observability.AttrExecutionID.String(exec.ID))

	if err := e.store.CreateExecution(ctx, exec); err != nil {
		spanErr = err
		return model.Execution{}, fmt.Errorf("create execution: %w", err)
	}

	if e.metrics != nil {
		e.metrics.RecordExecutionStart(wf.ID)
	}
	logger := e.logger.With(
		zap.String("workflow_id", wf.ID),
		zap.String("execution_id", exec.ID),
	)
	logger.Info("execution started", zap.Int("steps", len(wf.Steps)))

	// Each step receives the union of the original input and every prior
	// step's output, later writes winning on key conflict.
	runningState := cloneState(input)
	var failure *model.StepFailure

	for ordinal, step := range wf.Steps {
		// Cancellation is checked between steps only; an in-flight tool
		// call is treated as atomic.
		if err := ctx.Err(); err != nil {
			failure = &model.StepFailure{
				Ordinal: ordinal,
				ToolID:  step.ToolID,
				Kind:    model.FailureCancelled,
				Message: "execution cancelled before step",
			}
			break
		}

		output, stepFailure := e.runStep(ctx, logger, exec.ID, ordinal, step, runningState)
		if stepFailure != nil {
			failure = stepFailure
			break
		}
		for k, v := range output {
			runningState[k] = v
		}
	}

	exec.Output = runningState
	exec.Failure = failure
	exec.UpdatedAt = time.Now().UTC()
	if failure == nil {
		exec.Status = model.ExecutionStatusCompleted
	} else {
		exec.Status = model.ExecutionStatusFailed
	}

	if err := e.store.UpdateExecution(ctx, exec); err != nil {
		spanErr = err
		return model.Execution{}, fmt.Errorf("record terminal execution status: %w", err)
	}

	if e.metrics != nil {
		e.metrics.RecordExecutionCompletion(wf.ID, exec.Status)
	}
	if failure == nil {
		logger.Info("execution completed")
	} else {
		logger.Warn("execution failed",
			zap.Int("ordinal", failure.Ordinal),
			zap.String("tool_id", failure.ToolID),
			zap.String("kind", failure.Kind))
	}
	return exec, nil
}

// runStep resolves and invokes one step's tool. The step's input is the
// running state overlaid with the step's own config, config winning on
// conflict. Returns the tool output or a failure descriptor; never both.
func (e *Engine) runStep(ctx context.Context, logger *zap.Logger, executionID string, ordinal int, step model.Step, runningState map[string]any) (map[string]any, *model.StepFailure) {
	e.appendEvent(ctx, logger, executionID, ordinal, step.ToolID, EventStepStarted, nil)

	t, ok := e.tools.Resolve(step.ToolID)
	if !ok {
		failure := &model.StepFailure{
			Ordinal: ordinal,
			ToolID:  step.ToolID,
			Kind:    model.FailureToolNotFound,
			Message: fmt.Sprintf("tool %q is not registered", step.ToolID),
		}
		e.recordStepFailure(ctx, logger, executionID, ordinal, step.ToolID, failure)
		return nil, failure
	}

	stepInput := cloneState(runningState)
	for k, v := range step.Config {
		stepInput[k] = v
	}

	stepCtx, cancel := context.WithTimeout(ctx, e.stepTimeout)
	defer cancel()

	start := time.Now()
	output, err := t.Invoke(stepCtx, stepInput)
	duration := time.Since(start)

	if e.metrics != nil {
		e.metrics.RecordStepDuration(step.ToolID, duration)
	}

	if err != nil {
		message := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			message = fmt.Sprintf("tool %q timed out after %s", step.ToolID, e.stepTimeout)
		}
		failure := &model.StepFailure{
			Ordinal: ordinal,
			ToolID:  step.ToolID,
			Kind:    model.FailureToolExecution,
			Message: message,
		}
		e.recordStepFailure(ctx, logger, executionID, ordinal, step.ToolID, failure)
		return nil, failure
	}

	e.appendEvent(ctx, logger, executionID, ordinal, step.ToolID, EventStepCompleted, map[string]any{
		"duration_ms": duration.Milliseconds(),
	})
	return output, nil
}

func (e *Engine) recordStepFailure(ctx context.Context, logger *zap.Logger, executionID string, ordinal int, toolID string, failure *model.StepFailure) {
	if e.metrics != nil {
		e.metrics.RecordStepFailure(toolID, failure.Kind)
	}
	e.appendEvent(ctx, logger, executionID, ordinal, toolID, EventStepFailed, map[string]any{
		"kind":    failure.Kind,
		"message": failure.Message,
	})
}

// appendEvent records a step-lifecycle event. Event writes are best effort:
// a ledger problem here is logged but does not fail the execution, since the
// execution row itself is the source of truth.
func (e *Engine) appendEvent(ctx context.Context, logger *zap.Logger, executionID string, ordinal int, toolID, event string, data map[string]any) {
	err := e.store.AppendEvent(ctx, model.ExecutionEvent{
		ID:          uuid.NewString(),
		ExecutionID: executionID,
		Ordinal:     ordinal,
		ToolID:      toolID,
		Event:       event,
		Data:        data,
		Timestamp:   time.Now().UTC(),
	})
	if err != nil {
		logger.Warn("append execution event",
			zap.String("event", event),
			zap.Int("ordinal", ordinal),
			zap.Error(err))
	}
}

// cloneState returns a shallow copy so concurrent executions and callers
// never share mutable map state.
func cloneState(state map[string]any) map[string]any {
	result := make(map[string]any, len(state))
	for k, v := range state {
		result[k] = v
	}
	return result
}
