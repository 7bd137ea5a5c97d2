package tool

import (
	"context"

	"github.com/pitabwire/loom/internal/provider"
)

// VideoTool synthesizes a video from the step's prompt.
//
// Inputs: "prompt" (required), "model".
// Outputs: "videoUrl", "videoKey".
type VideoTool struct {
	client provider.Client
}

// NewVideoTool creates a video tool on the given gateway.
func NewVideoTool(client provider.Client) *VideoTool {
	return &VideoTool{client: client}
}

func (t *VideoTool) Name() string { return "video" }

func (t *VideoTool) Invoke(ctx context.Context, input map[string]any) (map[string]any, error) {
	prompt, err := requireString(input, "prompt")
	if err != nil {
		return nil, err
	}

	asset, err := t.client.GenerateVideo(ctx, prompt, stringArg(input, "model"))
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"videoUrl": asset.URL,
		"videoKey": asset.Key,
	}, nil
}
