package tool

import (
	"context"

	"github.com/pitabwire/loom/internal/provider"
	"github.com/pitabwire/loom/model"
)

// ChatTool sends the step's prompt to the model gateway and returns the
// assistant reply.
//
// Inputs: "prompt" (required), "system", "model".
// Outputs: "reply".
type ChatTool struct {
	client provider.Client
}

// NewChatTool creates a chat tool on the given gateway.
func NewChatTool(client provider.Client) *ChatTool {
	return &ChatTool{client: client}
}

func (t *ChatTool) Name() string { return "chat" }

func (t *ChatTool) Invoke(ctx context.Context, input map[string]any) (map[string]any, error) {
	prompt, err := requireString(input, "prompt")
	if err != nil {
		return nil, err
	}

	var messages []provider.Message
	if system := stringArg(input, "system"); system != "" {
		messages = append(messages, provider.Message{Role: model.RoleSystem, Content: system})
	}
	messages = append(messages, provider.Message{Role: model.RoleUser, Content: prompt})

	reply, err := t.client.ChatCompletion(ctx, messages, stringArg(input, "model"))
	if err != nil {
		return nil, err
	}
	return map[string]any{"reply": reply}, nil
}
