package model

import "context"

// Tool is a named capability that a workflow step can invoke: chat
// completion, image synthesis, speech synthesis, video synthesis, research,
// or code review. Implementations must be safe for concurrent use; the
// registry holding them is shared across all executions.
type Tool interface {
	// Name returns the identifier steps use to reference this tool.
	Name() string

	// Invoke runs the capability with a structured input payload and returns
	// a structured output payload. The input is the union of the execution's
	// running state and the step's configuration.
	Invoke(ctx context.Context, input map[string]any) (map[string]any, error)
}
