package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pitabwire/loom/model"
)

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu sync.RWMutex

	workflows  map[string]model.Workflow
	executions map[string]model.Execution
	events     map[string][]model.ExecutionEvent // key: execution ID

	conversations map[string]model.ChatConversation
	messages      map[string][]model.ChatMessage // key: conversation ID

	images   map[string]model.ImageGeneration
	speeches map[string]model.SpeechGeneration
	videos   map[string]model.VideoGeneration
	arenas   map[string]model.ArenaSession
	research map[string]model.ResearchSession
	code     map[string]model.CodeSession
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		workflows:     make(map[string]model.Workflow),
		executions:    make(map[string]model.Execution),
		events:        make(map[string][]model.ExecutionEvent),
		conversations: make(map[string]model.ChatConversation),
		messages:      make(map[string][]model.ChatMessage),
		images:        make(map[string]model.ImageGeneration),
		speeches:      make(map[string]model.SpeechGeneration),
		videos:        make(map[string]model.VideoGeneration),
		arenas:        make(map[string]model.ArenaSession),
		research:      make(map[string]model.ResearchSession),
		code:          make(map[string]model.CodeSession),
	}
}

// HealthCheck always reports healthy; memory needs no connectivity.
func (s *MemoryStore) HealthCheck(_ context.Context) error {
	return nil
}

// --- Workflows ---

// CreateWorkflow persists a new workflow.
func (s *MemoryStore) CreateWorkflow(_ context.Context, wf model.Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.workflows[wf.ID]; exists {
		return model.NewConflictError(fmt.Sprintf("workflow %q already exists", wf.ID))
	}
	s.workflows[wf.ID] = wf
	return nil
}

// GetWorkflow retrieves a workflow by ID.
func (s *MemoryStore) GetWorkflow(_ context.Context, id string) (model.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wf, exists := s.workflows[id]
	if !exists {
		return model.Workflow{}, model.NewNotFoundError(fmt.Sprintf("workflow %q not found", id))
	}
	return wf, nil
}

// ListWorkflows returns workflows owned by the user, newest first.
func (s *MemoryStore) ListWorkflows(_ context.Context, userID string) ([]model.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Workflow
	for _, wf := range s.workflows {
		if wf.UserID == userID {
			result = append(result, wf)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// UpdateWorkflow replaces a workflow's mutable fields.
func (s *MemoryStore) UpdateWorkflow(_ context.Context, wf model.Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.workflows[wf.ID]; !exists {
		return model.NewNotFoundError(fmt.Sprintf("workflow %q not found", wf.ID))
	}
	wf.UpdatedAt = time.Now().UTC()
	s.workflows[wf.ID] = wf
	return nil
}

// --- Executions ---

// CreateExecution persists a new execution record.
func (s *MemoryStore) CreateExecution(_ context.Context, exec model.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.executions[exec.ID]; exists {
		return model.NewConflictError(fmt.Sprintf("execution %q already exists", exec.ID))
	}
	s.executions[exec.ID] = exec
	return nil
}

// GetExecution retrieves an execution by ID.
func (s *MemoryStore) GetExecution(_ context.Context, id string) (model.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exec, exists := s.executions[id]
	if !exists {
		return model.Execution{}, model.NewNotFoundError(fmt.Sprintf("execution %q not found", id))
	}
	return exec, nil
}

// UpdateExecution persists an execution's status, output, and failure.
func (s *MemoryStore) UpdateExecution(_ context.Context, exec model.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.executions[exec.ID]; !exists {
		return model.NewNotFoundError(fmt.Sprintf("execution %q not found", exec.ID))
	}
	exec.UpdatedAt = time.Now().UTC()
	s.executions[exec.ID] = exec
	return nil
}

// ListExecutions returns executions of a workflow, newest first.
func (s *MemoryStore) ListExecutions(_ context.Context, workflowID string) ([]model.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Execution
	for _, exec := range s.executions {
		if exec.WorkflowID == workflowID {
			result = append(result, exec)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// AppendEvent adds an event to an execution's audit trail.
func (s *MemoryStore) AppendEvent(_ context.Context, event model.ExecutionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events[event.ExecutionID] = append(s.events[event.ExecutionID], event)
	return nil
}

// GetEvents retrieves all events for an execution, ordered by timestamp.
func (s *MemoryStore) GetEvents(_ context.Context, executionID string) ([]model.ExecutionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.executions[executionID]; !exists {
		return nil, model.NewNotFoundError(fmt.Sprintf("execution %q not found", executionID))
	}

	events := s.events[executionID]
	// Return a sorted copy; a stable sort keeps append order for events
	// recorded within the same clock tick.
	result := make([]model.ExecutionEvent, len(events))
	copy(result, events)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})
	return result, nil
}
