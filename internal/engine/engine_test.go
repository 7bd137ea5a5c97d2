package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/pitabwire/loom/internal/store"
	"github.com/pitabwire/loom/internal/tool"
	"github.com/pitabwire/loom/model"
)

// --- Test helpers ---

// fakeTool records its invocations and returns a configurable result.
type fakeTool struct {
	name   string
	calls  []map[string]any
	invoke func(ctx context.Context, input map[string]any) (map[string]any, error)
}

func (t *fakeTool) Name() string { return t.name }

func (t *fakeTool) Invoke(ctx context.Context, input map[string]any) (map[string]any, error) {
	t.calls = append(t.calls, input)
	if t.invoke != nil {
		return t.invoke(ctx, input)
	}
	return map[string]any{}, nil
}

// failingLedger wraps the memory store, failing selected operations.
type failingLedger struct {
	*store.MemoryStore
	failCreate bool
	failUpdate bool
}

func (l *failingLedger) CreateExecution(ctx context.Context, exec model.Execution) error {
	if l.failCreate {
		return errors.New("ledger unavailable")
	}
	return l.MemoryStore.CreateExecution(ctx, exec)
}

func (l *failingLedger) UpdateExecution(ctx context.Context, exec model.Execution) error {
	if l.failUpdate {
		return errors.New("ledger unavailable")
	}
	return l.MemoryStore.UpdateExecution(ctx, exec)
}

func newTestEngine(ledger store.ExecutionStore, tools ...model.Tool) *Engine {
	registry := tool.NewRegistry()
	for _, t := range tools {
		registry.Register(t)
	}
	return New(registry, ledger, zap.NewNop(), Options{})
}

func testWorkflow(steps ...model.Step) model.Workflow {
	return model.Workflow{
		ID:     "wf-1",
		UserID: "user-alice",
		Name:   "test workflow",
		Steps:  steps,
	}
}

// --- Tests ---

func TestExecuteThreadsStateAcrossSteps(t *testing.T) {
	chat := &fakeTool{
		name: "chat",
		invoke: func(_ context.Context, _ map[string]any) (map[string]any, error) {
			return map[string]any{"reply": "Here is a description: a fluffy cat"}, nil
		},
	}
	image := &fakeTool{
		name: "image",
		invoke: func(_ context.Context, _ map[string]any) (map[string]any, error) {
			return map[string]any{"imageUrl": "http://x/1.png"}, nil
		},
	}
	eng := newTestEngine(store.NewMemoryStore(), chat, image)

	exec, err := eng.Execute(context.Background(), testWorkflow(
		model.Step{ToolID: "chat"},
		model.Step{ToolID: "image"},
	), map[string]any{"prompt": "a cat"})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	if exec.Status != model.ExecutionStatusCompleted {
		t.Fatalf("status = %q, want completed", exec.Status)
	}
	want := map[string]any{
		"prompt":   "a cat",
		"reply":    "Here is a description: a fluffy cat",
		"imageUrl": "http://x/1.png",
	}
	for k, v := range want {
		if exec.Output[k] != v {
			t.Errorf("output[%q] = %v, want %v", k, exec.Output[k], v)
		}
	}
	if len(exec.Output) != len(want) {
		t.Errorf("output has %d keys, want %d: %v", len(exec.Output), len(want), exec.Output)
	}

	// The image step must see the chat step's output merged with the input.
	if len(image.calls) != 1 {
		t.Fatalf("image tool invoked %d times, want 1", len(image.calls))
	}
	if image.calls[0]["prompt"] != "a cat" || image.calls[0]["reply"] != "Here is a description: a fluffy cat" {
		t.Errorf("image step input missing threaded state: %v", image.calls[0])
	}
}

func TestExecuteLaterStepsOverrideEarlierKeys(t *testing.T) {
	first := &fakeTool{
		name: "first",
		invoke: func(_ context.Context, _ map[string]any) (map[string]any, error) {
			return map[string]any{"value": "old"}, nil
		},
	}
	second := &fakeTool{
		name: "second",
		invoke: func(_ context.Context, _ map[string]any) (map[string]any, error) {
			return map[string]any{"value": "new"}, nil
		},
	}
	eng := newTestEngine(store.NewMemoryStore(), first, second)

	exec, err := eng.Execute(context.Background(), testWorkflow(
		model.Step{ToolID: "first"},
		model.Step{ToolID: "second"},
	), nil)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if exec.Output["value"] != "new" {
		t.Errorf("output[value] = %v, want %q", exec.Output["value"], "new")
	}
}

func TestExecuteStepConfigOverridesState(t *testing.T) {
	echo := &fakeTool{name: "echo"}
	eng := newTestEngine(store.NewMemoryStore(), echo)

	_, err := eng.Execute(context.Background(), testWorkflow(
		model.Step{ToolID: "echo", Config: map[string]any{"prompt": "from config"}},
	), map[string]any{"prompt": "from input"})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	if echo.calls[0]["prompt"] != "from config" {
		t.Errorf("step input prompt = %v, want config value", echo.calls[0]["prompt"])
	}
}

func TestExecuteToolNotFound(t *testing.T) {
	eng := newTestEngine(store.NewMemoryStore())

	exec, err := eng.Execute(context.Background(), testWorkflow(
		model.Step{ToolID: "nonexistent"},
	), map[string]any{"prompt": "a cat"})
	if err != nil {
		t.Fatalf("Execute returned error for tool-level failure: %v", err)
	}

	if exec.Status != model.ExecutionStatusFailed {
		t.Fatalf("status = %q, want failed", exec.Status)
	}
	if exec.Failure == nil {
		t.Fatal("failure descriptor is nil")
	}
	if exec.Failure.Ordinal != 0 || exec.Failure.ToolID != "nonexistent" {
		t.Errorf("failure = %+v, want ordinal 0 tool nonexistent", exec.Failure)
	}
	if exec.Failure.Kind != model.FailureToolNotFound {
		t.Errorf("failure kind = %q, want %q", exec.Failure.Kind, model.FailureToolNotFound)
	}
	// No output keys beyond the original input.
	if len(exec.Output) != 1 || exec.Output["prompt"] != "a cat" {
		t.Errorf("output = %v, want original input only", exec.Output)
	}
}

func TestExecuteFirstFailureShortCircuits(t *testing.T) {
	first := &fakeTool{
		name: "first",
		invoke: func(_ context.Context, _ map[string]any) (map[string]any, error) {
			return map[string]any{"step1": "done"}, nil
		},
	}
	second := &fakeTool{
		name: "second",
		invoke: func(_ context.Context, _ map[string]any) (map[string]any, error) {
			return nil, errors.New("provider exploded")
		},
	}
	third := &fakeTool{name: "third"}
	eng := newTestEngine(store.NewMemoryStore(), first, second, third)

	exec, err := eng.Execute(context.Background(), testWorkflow(
		model.Step{ToolID: "first"},
		model.Step{ToolID: "second"},
		model.Step{ToolID: "third"},
	), map[string]any{"prompt": "x"})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	if exec.Status != model.ExecutionStatusFailed {
		t.Fatalf("status = %q, want failed", exec.Status)
	}
	if exec.Failure.Ordinal != 1 || exec.Failure.Kind != model.FailureToolExecution {
		t.Errorf("failure = %+v, want ordinal 1 tool_execution_error", exec.Failure)
	}
	if exec.Failure.Message != "provider exploded" {
		t.Errorf("failure message = %q", exec.Failure.Message)
	}
	if len(third.calls) != 0 {
		t.Errorf("third step ran %d times after failure, want 0", len(third.calls))
	}
	// Output reflects only the successful prefix.
	if exec.Output["step1"] != "done" {
		t.Errorf("output missing first step contribution: %v", exec.Output)
	}
}

func TestExecuteStepTimeout(t *testing.T) {
	slow := &fakeTool{
		name: "slow",
		invoke: func(ctx context.Context, _ map[string]any) (map[string]any, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	registry := tool.NewRegistry()
	registry.Register(slow)
	eng := New(registry, store.NewMemoryStore(), zap.NewNop(), Options{
		StepTimeout: 10 * time.Millisecond,
	})

	exec, err := eng.Execute(context.Background(), testWorkflow(
		model.Step{ToolID: "slow"},
	), nil)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	if exec.Status != model.ExecutionStatusFailed {
		t.Fatalf("status = %q, want failed", exec.Status)
	}
	if exec.Failure.Kind != model.FailureToolExecution {
		t.Errorf("failure kind = %q, want tool_execution_error", exec.Failure.Kind)
	}
}

func TestExecuteCancelledBetweenSteps(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	first := &fakeTool{
		name: "first",
		invoke: func(_ context.Context, _ map[string]any) (map[string]any, error) {
			cancel() // caller gives up while the first step is running
			return map[string]any{"step1": "done"}, nil
		},
	}
	second := &fakeTool{name: "second"}
	eng := newTestEngine(store.NewMemoryStore(), first, second)

	exec, err := eng.Execute(ctx, testWorkflow(
		model.Step{ToolID: "first"},
		model.Step{ToolID: "second"},
	), nil)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	if exec.Status != model.ExecutionStatusFailed {
		t.Fatalf("status = %q, want failed", exec.Status)
	}
	if exec.Failure.Ordinal != 1 || exec.Failure.Kind != model.FailureCancelled {
		t.Errorf("failure = %+v, want ordinal 1 cancelled", exec.Failure)
	}
	if len(second.calls) != 0 {
		t.Errorf("second step ran after cancellation")
	}
}

func TestExecuteCreateFailurePropagates(t *testing.T) {
	ledger := &failingLedger{MemoryStore: store.NewMemoryStore(), failCreate: true}
	eng := newTestEngine(ledger, &fakeTool{name: "chat"})

	_, err := eng.Execute(context.Background(), testWorkflow(model.Step{ToolID: "chat"}), nil)
	if err == nil {
		t.Fatal("Execute did not propagate ledger create failure")
	}
}

func TestExecuteTerminalUpdateFailurePropagates(t *testing.T) {
	ledger := &failingLedger{MemoryStore: store.NewMemoryStore(), failUpdate: true}
	eng := newTestEngine(ledger, &fakeTool{name: "chat"})

	_, err := eng.Execute(context.Background(), testWorkflow(model.Step{ToolID: "chat"}), nil)
	if err == nil {
		t.Fatal("Execute did not propagate ledger update failure")
	}
}

func TestExecuteRejectsInvalidWorkflow(t *testing.T) {
	eng := newTestEngine(store.NewMemoryStore())

	_, err := eng.Execute(context.Background(), testWorkflow(), nil)
	if err == nil {
		t.Fatal("Execute accepted a workflow with no steps")
	}
	var ee *model.ErrorEnvelope
	if !errors.As(err, &ee) || ee.Code != model.ErrValidationError {
		t.Errorf("error = %v, want VALIDATION_ERROR envelope", err)
	}
}

func TestExecuteRejectsTooManySteps(t *testing.T) {
	registry := tool.NewRegistry()
	registry.Register(&fakeTool{name: "chat"})
	eng := New(registry, store.NewMemoryStore(), zap.NewNop(), Options{MaxSteps: 1})

	_, err := eng.Execute(context.Background(), testWorkflow(
		model.Step{ToolID: "chat"},
		model.Step{ToolID: "chat"},
	), nil)
	if err == nil {
		t.Fatal("Execute accepted a workflow above the step limit")
	}
}

func TestExecuteDoesNotMutateCallerInput(t *testing.T) {
	writer := &fakeTool{
		name: "writer",
		invoke: func(_ context.Context, _ map[string]any) (map[string]any, error) {
			return map[string]any{"extra": "value"}, nil
		},
	}
	eng := newTestEngine(store.NewMemoryStore(), writer)

	input := map[string]any{"prompt": "a cat"}
	if _, err := eng.Execute(context.Background(), testWorkflow(model.Step{ToolID: "writer"}), input); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if len(input) != 1 {
		t.Errorf("caller input was mutated: %v", input)
	}
}

func TestExecuteIndependentRuns(t *testing.T) {
	calls := 0
	flaky := &fakeTool{
		name: "flaky",
		invoke: func(_ context.Context, _ map[string]any) (map[string]any, error) {
			calls++
			if calls == 1 {
				return nil, errors.New("transient failure")
			}
			return map[string]any{"ok": true}, nil
		},
	}
	ledger := store.NewMemoryStore()
	eng := newTestEngine(ledger, flaky)
	wf := testWorkflow(model.Step{ToolID: "flaky"})

	first, err := eng.Execute(context.Background(), wf, nil)
	if err != nil {
		t.Fatalf("first Execute returned error: %v", err)
	}
	second, err := eng.Execute(context.Background(), wf, nil)
	if err != nil {
		t.Fatalf("second Execute returned error: %v", err)
	}

	if first.ID == second.ID {
		t.Fatal("both runs share an execution ID")
	}
	if first.Status != model.ExecutionStatusFailed || second.Status != model.ExecutionStatusCompleted {
		t.Errorf("statuses = %q, %q; failure in one run leaked into the other", first.Status, second.Status)
	}
}

func TestExecuteRecordsStepEvents(t *testing.T) {
	ledger := store.NewMemoryStore()
	eng := newTestEngine(ledger, &fakeTool{name: "chat"})

	exec, err := eng.Execute(context.Background(), testWorkflow(model.Step{ToolID: "chat"}), nil)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	events, err := ledger.GetEvents(context.Background(), exec.ID)
	if err != nil {
		t.Fatalf("GetEvents returned error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2: %v", len(events), events)
	}
	if events[0].Event != EventStepStarted || events[1].Event != EventStepCompleted {
		t.Errorf("events = %q, %q; want step_started then step_completed", events[0].Event, events[1].Event)
	}
	for i, evt := range events {
		if evt.Ordinal != 0 || evt.ToolID != "chat" {
			t.Errorf("event %d = %+v, want ordinal 0 tool chat", i, evt)
		}
	}
}

func TestExecutePersistsTerminalRecord(t *testing.T) {
	ledger := store.NewMemoryStore()
	eng := newTestEngine(ledger, &fakeTool{
		name: "chat",
		invoke: func(_ context.Context, _ map[string]any) (map[string]any, error) {
			return map[string]any{"reply": "hi"}, nil
		},
	})

	exec, err := eng.Execute(context.Background(), testWorkflow(model.Step{ToolID: "chat"}), map[string]any{"prompt": "hello"})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	stored, err := ledger.GetExecution(context.Background(), exec.ID)
	if err != nil {
		t.Fatalf("GetExecution returned error: %v", err)
	}
	if stored.Status != model.ExecutionStatusCompleted {
		t.Errorf("stored status = %q, want completed", stored.Status)
	}
	if stored.Input["prompt"] != "hello" {
		t.Errorf("stored input = %v", stored.Input)
	}
	if stored.Output["reply"] != "hi" {
		t.Errorf("stored output = %v", stored.Output)
	}
	if fmt.Sprint(stored.WorkflowID) != "wf-1" {
		t.Errorf("stored workflow ID = %q", stored.WorkflowID)
	}
}
