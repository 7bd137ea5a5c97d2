package tool

import (
	"context"
	"fmt"

	"github.com/pitabwire/loom/internal/provider"
	"github.com/pitabwire/loom/model"
)

// codeSystemPrompt steers the model toward actionable review output.
const codeSystemPrompt = "You are an expert code assistant. Provide helpful suggestions and improvements for the provided code."

// CodeTool reviews a code snippet through the model gateway.
//
// Inputs: "code" (required), "language", "model".
// Outputs: "suggestions".
type CodeTool struct {
	client provider.Client
}

// NewCodeTool creates a code tool on the given gateway.
func NewCodeTool(client provider.Client) *CodeTool {
	return &CodeTool{client: client}
}

func (t *CodeTool) Name() string { return "code" }

func (t *CodeTool) Invoke(ctx context.Context, input map[string]any) (map[string]any, error) {
	code, err := requireString(input, "code")
	if err != nil {
		return nil, err
	}

	prompt := code
	if language := stringArg(input, "language"); language != "" {
		prompt = fmt.Sprintf("Language: %s\n\n%s", language, code)
	}

	suggestions, err := t.client.ChatCompletion(ctx, []provider.Message{
		{Role: model.RoleSystem, Content: codeSystemPrompt},
		{Role: model.RoleUser, Content: prompt},
	}, stringArg(input, "model"))
	if err != nil {
		return nil, err
	}
	return map[string]any{"suggestions": suggestions}, nil
}
