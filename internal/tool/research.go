package tool

import (
	"context"

	"github.com/pitabwire/loom/internal/provider"
	"github.com/pitabwire/loom/model"
)

// researchSystemPrompt steers the model toward cited findings.
const researchSystemPrompt = "You are a research assistant. Provide comprehensive research findings with sources."

// ResearchTool runs a research query through the model gateway.
//
// Inputs: "query" (falls back to "prompt"), "model".
// Outputs: "findings".
type ResearchTool struct {
	client provider.Client
}

// NewResearchTool creates a research tool on the given gateway.
func NewResearchTool(client provider.Client) *ResearchTool {
	return &ResearchTool{client: client}
}

func (t *ResearchTool) Name() string { return "research" }

func (t *ResearchTool) Invoke(ctx context.Context, input map[string]any) (map[string]any, error) {
	query, err := requireString(input, "query", "prompt")
	if err != nil {
		return nil, err
	}

	findings, err := t.client.ChatCompletion(ctx, []provider.Message{
		{Role: model.RoleSystem, Content: researchSystemPrompt},
		{Role: model.RoleUser, Content: query},
	}, stringArg(input, "model"))
	if err != nil {
		return nil, err
	}
	return map[string]any{"findings": findings}, nil
}
