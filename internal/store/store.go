// Package store defines the persistence boundary and provides Postgres and
// in-memory implementations.
package store

import (
	"context"

	"github.com/pitabwire/loom/model"
)

// WorkflowStore persists user-defined workflows.
type WorkflowStore interface {
	// CreateWorkflow persists a new workflow with its step list.
	CreateWorkflow(ctx context.Context, wf model.Workflow) error

	// GetWorkflow retrieves a workflow by ID. Returns NOT_FOUND if it does
	// not exist. Ownership and visibility checks belong to the caller.
	GetWorkflow(ctx context.Context, id string) (model.Workflow, error)

	// ListWorkflows returns workflows owned by the given user, newest first.
	ListWorkflows(ctx context.Context, userID string) ([]model.Workflow, error)

	// UpdateWorkflow replaces a workflow's mutable fields, including its
	// whole step list.
	UpdateWorkflow(ctx context.Context, wf model.Workflow) error
}

// ExecutionStore is the execution ledger: it records each execution's
// lifecycle and final payloads. Each write is atomic; no cross-execution
// transactions are required.
type ExecutionStore interface {
	// CreateExecution persists a new execution record.
	CreateExecution(ctx context.Context, exec model.Execution) error

	// GetExecution retrieves an execution by ID.
	GetExecution(ctx context.Context, id string) (model.Execution, error)

	// UpdateExecution persists an execution's status, output, and failure
	// descriptor in a single write.
	UpdateExecution(ctx context.Context, exec model.Execution) error

	// ListExecutions returns executions of a workflow, newest first.
	ListExecutions(ctx context.Context, workflowID string) ([]model.Execution, error)

	// AppendEvent adds a step-lifecycle event to an execution's audit trail.
	AppendEvent(ctx context.Context, event model.ExecutionEvent) error

	// GetEvents returns all events for an execution in timestamp order.
	GetEvents(ctx context.Context, executionID string) ([]model.ExecutionEvent, error)
}

// ChatStore persists conversations and messages.
type ChatStore interface {
	CreateConversation(ctx context.Context, conv model.ChatConversation) error
	GetConversation(ctx context.Context, id string) (model.ChatConversation, error)
	ListConversations(ctx context.Context, userID string) ([]model.ChatConversation, error)
	AddMessage(ctx context.Context, msg model.ChatMessage) error
	ListMessages(ctx context.Context, conversationID string) ([]model.ChatMessage, error)
}

// GenerationStore persists per-feature generation history.
type GenerationStore interface {
	CreateImageGeneration(ctx context.Context, gen model.ImageGeneration) error
	UpdateImageGeneration(ctx context.Context, gen model.ImageGeneration) error
	ListImageGenerations(ctx context.Context, userID string) ([]model.ImageGeneration, error)

	CreateSpeechGeneration(ctx context.Context, gen model.SpeechGeneration) error
	UpdateSpeechGeneration(ctx context.Context, gen model.SpeechGeneration) error
	ListSpeechGenerations(ctx context.Context, userID string) ([]model.SpeechGeneration, error)

	CreateVideoGeneration(ctx context.Context, gen model.VideoGeneration) error
	UpdateVideoGeneration(ctx context.Context, gen model.VideoGeneration) error
	ListVideoGenerations(ctx context.Context, userID string) ([]model.VideoGeneration, error)

	CreateArenaSession(ctx context.Context, session model.ArenaSession) error
	ListArenaSessions(ctx context.Context, userID string) ([]model.ArenaSession, error)

	CreateResearchSession(ctx context.Context, session model.ResearchSession) error
	UpdateResearchSession(ctx context.Context, session model.ResearchSession) error
	ListResearchSessions(ctx context.Context, userID string) ([]model.ResearchSession, error)

	CreateCodeSession(ctx context.Context, session model.CodeSession) error
	GetCodeSession(ctx context.Context, id string) (model.CodeSession, error)
	UpdateCodeSession(ctx context.Context, session model.CodeSession) error
	ListCodeSessions(ctx context.Context, userID string) ([]model.CodeSession, error)
}

// Store is the full persistence surface, implemented by both the Postgres
// and in-memory stores.
type Store interface {
	WorkflowStore
	ExecutionStore
	ChatStore
	GenerationStore
}
