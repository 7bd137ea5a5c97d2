package feature

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/pitabwire/loom/internal/engine"
	"github.com/pitabwire/loom/internal/store"
	"github.com/pitabwire/loom/internal/tool"
	"github.com/pitabwire/loom/model"
)

// echoTool copies its "prompt" input to an output key.
type echoTool struct{}

func (echoTool) Name() string { return "echo" }

func (echoTool) Invoke(_ context.Context, input map[string]any) (map[string]any, error) {
	return map[string]any{"echoed": input["prompt"]}, nil
}

func newWorkflowService(db store.Store) *WorkflowService {
	registry := tool.NewRegistry()
	registry.Register(echoTool{})
	eng := engine.New(registry, db, zap.NewNop(), engine.Options{})
	return NewWorkflowService(db, eng, 20)
}

func TestWorkflowCreateAndGet(t *testing.T) {
	svc := newWorkflowService(store.NewMemoryStore())
	ctx := context.Background()

	wf, err := svc.Create(ctx, "alice", "echo flow", "repeats the prompt",
		[]model.Step{{ToolID: "echo"}}, false)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if wf.ID == "" {
		t.Fatal("Create did not assign an ID")
	}

	got, err := svc.Get(ctx, "alice", wf.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.Name != "echo flow" || len(got.Steps) != 1 {
		t.Errorf("workflow = %+v", got)
	}
}

func TestWorkflowCreateRejectsInvalid(t *testing.T) {
	svc := newWorkflowService(store.NewMemoryStore())

	_, err := svc.Create(context.Background(), "alice", "", "", nil, false)
	if got := errCode(t, err); got != model.ErrValidationError {
		t.Errorf("code = %q, want VALIDATION_ERROR", got)
	}
}

func TestWorkflowVisibility(t *testing.T) {
	svc := newWorkflowService(store.NewMemoryStore())
	ctx := context.Background()

	private, err := svc.Create(ctx, "alice", "private", "", []model.Step{{ToolID: "echo"}}, false)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	public, err := svc.Create(ctx, "alice", "public", "", []model.Step{{ToolID: "echo"}}, true)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if _, err := svc.Get(ctx, "bob", private.ID); errCode(t, err) != model.ErrForbidden {
		t.Error("private workflow readable by a stranger")
	}
	if _, err := svc.Get(ctx, "bob", public.ID); err != nil {
		t.Errorf("public workflow not readable by a stranger: %v", err)
	}

	// Public grants reading only; execution stays with the owner.
	_, err = svc.Execute(ctx, "bob", public.ID, nil)
	if got := errCode(t, err); got != model.ErrForbidden {
		t.Errorf("Execute code = %q, want FORBIDDEN", got)
	}
}

func TestWorkflowUpdateReplacesSteps(t *testing.T) {
	svc := newWorkflowService(store.NewMemoryStore())
	ctx := context.Background()

	wf, err := svc.Create(ctx, "alice", "flow", "",
		[]model.Step{{ToolID: "echo"}, {ToolID: "echo"}}, false)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	updated, err := svc.Update(ctx, "alice", wf.ID, "renamed", "new description",
		[]model.Step{{ToolID: "echo", Config: map[string]any{"prompt": "fixed"}}}, true)
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.Name != "renamed" || !updated.IsPublic {
		t.Errorf("workflow = %+v", updated)
	}
	if len(updated.Steps) != 1 || updated.Steps[0].Config["prompt"] != "fixed" {
		t.Errorf("steps not replaced wholesale: %+v", updated.Steps)
	}

	_, err = svc.Update(ctx, "bob", wf.ID, "stolen", "", []model.Step{{ToolID: "echo"}}, false)
	if got := errCode(t, err); got != model.ErrForbidden {
		t.Errorf("Update code = %q, want FORBIDDEN", got)
	}
}

func TestWorkflowExecuteAndHistory(t *testing.T) {
	db := store.NewMemoryStore()
	svc := newWorkflowService(db)
	ctx := context.Background()

	wf, err := svc.Create(ctx, "alice", "echo flow", "", []model.Step{{ToolID: "echo"}}, false)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	exec, err := svc.Execute(ctx, "alice", wf.ID, map[string]any{"prompt": "hello"})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if exec.Status != model.ExecutionStatusCompleted {
		t.Fatalf("status = %q, want completed", exec.Status)
	}
	if exec.Output["echoed"] != "hello" {
		t.Errorf("output = %v", exec.Output)
	}

	execs, err := svc.ListExecutions(ctx, "alice", wf.ID)
	if err != nil {
		t.Fatalf("ListExecutions returned error: %v", err)
	}
	if len(execs) != 1 || execs[0].ID != exec.ID {
		t.Errorf("executions = %+v", execs)
	}

	got, err := svc.GetExecution(ctx, "alice", exec.ID)
	if err != nil {
		t.Fatalf("GetExecution returned error: %v", err)
	}
	if got.ID != exec.ID {
		t.Errorf("execution = %+v", got)
	}

	events, err := svc.GetExecutionEvents(ctx, "alice", exec.ID)
	if err != nil {
		t.Fatalf("GetExecutionEvents returned error: %v", err)
	}
	if len(events) == 0 {
		t.Error("no events recorded for the execution")
	}

	// Execution records are owner-scoped too.
	if _, err := svc.GetExecution(ctx, "bob", exec.ID); errCode(t, err) != model.ErrForbidden {
		t.Error("execution readable by a stranger")
	}
	if _, err := svc.ListExecutions(ctx, "bob", wf.ID); errCode(t, err) != model.ErrForbidden {
		t.Error("execution history readable by a stranger")
	}
}

func TestWorkflowCreateEnforcesStepLimit(t *testing.T) {
	db := store.NewMemoryStore()
	registry := tool.NewRegistry()
	registry.Register(echoTool{})
	eng := engine.New(registry, db, zap.NewNop(), engine.Options{MaxSteps: 2})
	svc := NewWorkflowService(db, eng, 2)

	steps := []model.Step{{ToolID: "echo"}, {ToolID: "echo"}, {ToolID: "echo"}}
	_, err := svc.Create(context.Background(), "alice", "too big", "", steps, false)
	if got := errCode(t, err); got != model.ErrBadRequest {
		t.Errorf("code = %q, want BAD_REQUEST", got)
	}
}
