package model

import (
	"fmt"
	"time"
)

// Execution status constants. Transitions are monotonic:
// pending → running → {completed, failed}.
const (
	ExecutionStatusPending   = "pending"
	ExecutionStatusRunning   = "running"
	ExecutionStatusCompleted = "completed"
	ExecutionStatusFailed    = "failed"
)

// Step failure kinds.
const (
	FailureToolNotFound  = "tool_not_found"
	FailureToolExecution = "tool_execution_error"
	FailureCancelled     = "cancelled"
)

// Step binds a tool identifier to step-specific configuration. A step's
// position in the Workflow's Steps slice is its ordinal; execution order is
// strictly by ordinal.
type Step struct {
	ToolID string         `json:"tool_id"`
	Config map[string]any `json:"config,omitempty"`
}

// Workflow is an ordered, user-owned sequence of steps. The step list is
// replaced wholesale on update; individual steps are immutable.
type Workflow struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Steps       []Step    `json:"steps"`
	IsPublic    bool      `json:"is_public"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate checks structural requirements: a name, at least one step, and a
// tool identifier on every step. Whether a tool identifier resolves is
// checked at execution time, not here, since registry contents may differ
// between creation and execution.
func (w *Workflow) Validate() error {
	var details []FieldError
	if w.Name == "" {
		details = append(details, FieldError{Field: "name", Code: "required", Message: "name is required"})
	}
	if len(w.Steps) == 0 {
		details = append(details, FieldError{Field: "steps", Code: "required", Message: "at least one step is required"})
	}
	for i, s := range w.Steps {
		if s.ToolID == "" {
			details = append(details, FieldError{
				Field:   "steps",
				Code:    "invalid",
				Message: fmt.Sprintf("step %d is missing a tool id", i),
			})
		}
	}
	if len(details) > 0 {
		return NewValidationError(details)
	}
	return nil
}

// StepFailure describes the first step that halted an execution.
type StepFailure struct {
	Ordinal int    `json:"ordinal"`
	ToolID  string `json:"tool_id"`
	Kind    string `json:"kind"`
	Message string `json:"message,omitempty"`
}

// Execution is one run of a workflow against a specific input. The engine is
// the only writer; rows are never deleted by it.
type Execution struct {
	ID         string         `json:"id"`
	WorkflowID string         `json:"workflow_id"`
	UserID     string         `json:"user_id"`
	Input      map[string]any `json:"input,omitempty"`
	Output     map[string]any `json:"output,omitempty"`
	Status     string         `json:"status"`
	Failure    *StepFailure   `json:"failure,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// ExecutionEvent records one step-lifecycle event in an execution's audit
// trail.
type ExecutionEvent struct {
	ID          string         `json:"id"`
	ExecutionID string         `json:"execution_id"`
	Ordinal     int            `json:"ordinal"`
	ToolID      string         `json:"tool_id"`
	Event       string         `json:"event"`
	Data        map[string]any `json:"data,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}
