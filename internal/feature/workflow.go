package feature

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pitabwire/loom/internal/engine"
	"github.com/pitabwire/loom/internal/store"
	"github.com/pitabwire/loom/model"
)

// WorkflowService manages workflow definitions and runs them through the
// execution engine.
type WorkflowService struct {
	store    store.Store
	engine   *engine.Engine
	maxSteps int
}

// NewWorkflowService creates a workflow service.
func NewWorkflowService(s store.Store, eng *engine.Engine, maxSteps int) *WorkflowService {
	return &WorkflowService{store: s, engine: eng, maxSteps: maxSteps}
}

// Create validates and persists a new workflow for the user.
func (s *WorkflowService) Create(ctx context.Context, userID, name, description string, steps []model.Step, isPublic bool) (model.Workflow, error) {
	now := time.Now().UTC()
	wf := model.Workflow{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        name,
		Description: description,
		Steps:       steps,
		IsPublic:    isPublic,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.validate(&wf); err != nil {
		return model.Workflow{}, err
	}
	if err := s.store.CreateWorkflow(ctx, wf); err != nil {
		return model.Workflow{}, err
	}
	return wf, nil
}

// Get returns a workflow the user may read: their own, or a public one.
func (s *WorkflowService) Get(ctx context.Context, userID, workflowID string) (model.Workflow, error) {
	wf, err := s.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return model.Workflow{}, err
	}
	if wf.UserID != userID && !wf.IsPublic {
		return model.Workflow{}, model.NewForbiddenError("you do not have access to this workflow")
	}
	return wf, nil
}

// List returns the user's workflows, newest first.
func (s *WorkflowService) List(ctx context.Context, userID string) ([]model.Workflow, error) {
	return s.store.ListWorkflows(ctx, userID)
}

// Update replaces a workflow's mutable fields. The step list is replaced
// wholesale; there is no per-step patching.
func (s *WorkflowService) Update(ctx context.Context, userID, workflowID, name, description string, steps []model.Step, isPublic bool) (model.Workflow, error) {
	wf, err := s.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return model.Workflow{}, err
	}
	if wf.UserID != userID {
		return model.Workflow{}, model.NewForbiddenError("you do not own this workflow")
	}

	wf.Name = name
	wf.Description = description
	wf.Steps = steps
	wf.IsPublic = isPublic
	if err := s.validate(&wf); err != nil {
		return model.Workflow{}, err
	}

	wf.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateWorkflow(ctx, wf); err != nil {
		return model.Workflow{}, err
	}
	return wf, nil
}

// Execute runs a workflow the user owns. Execution is restricted to the
// owner even for public workflows; public visibility only grants reading.
func (s *WorkflowService) Execute(ctx context.Context, userID, workflowID string, input map[string]any) (model.Execution, error) {
	wf, err := s.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return model.Execution{}, err
	}
	if wf.UserID != userID {
		return model.Execution{}, model.NewForbiddenError("only the workflow owner may execute it")
	}
	return s.engine.Execute(ctx, wf, input)
}

// ListExecutions returns the execution history of a workflow the user owns.
func (s *WorkflowService) ListExecutions(ctx context.Context, userID, workflowID string) ([]model.Execution, error) {
	wf, err := s.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if wf.UserID != userID {
		return nil, model.NewForbiddenError("you do not own this workflow")
	}
	return s.store.ListExecutions(ctx, workflowID)
}

// GetExecution returns one execution of a workflow the user owns.
func (s *WorkflowService) GetExecution(ctx context.Context, userID, executionID string) (model.Execution, error) {
	exec, err := s.store.GetExecution(ctx, executionID)
	if err != nil {
		return model.Execution{}, err
	}
	if exec.UserID != userID {
		return model.Execution{}, model.NewForbiddenError("you do not own this execution")
	}
	return exec, nil
}

// GetExecutionEvents returns the step-level audit trail of an execution the
// user owns.
func (s *WorkflowService) GetExecutionEvents(ctx context.Context, userID, executionID string) ([]model.ExecutionEvent, error) {
	if _, err := s.GetExecution(ctx, userID, executionID); err != nil {
		return nil, err
	}
	return s.store.GetEvents(ctx, executionID)
}

func (s *WorkflowService) validate(wf *model.Workflow) error {
	if err := wf.Validate(); err != nil {
		return err
	}
	if s.maxSteps > 0 && len(wf.Steps) > s.maxSteps {
		return model.NewBadRequestError(
			fmt.Sprintf("workflow has %d steps, maximum is %d", len(wf.Steps), s.maxSteps),
		)
	}
	return nil
}
