package tool

import (
	"context"

	"github.com/pitabwire/loom/internal/provider"
)

// ImageTool synthesizes an image from the step's prompt.
//
// Inputs: "prompt" (required), "model".
// Outputs: "imageUrl", "imageKey".
type ImageTool struct {
	client provider.Client
}

// NewImageTool creates an image tool on the given gateway.
func NewImageTool(client provider.Client) *ImageTool {
	return &ImageTool{client: client}
}

func (t *ImageTool) Name() string { return "image" }

func (t *ImageTool) Invoke(ctx context.Context, input map[string]any) (map[string]any, error) {
	prompt, err := requireString(input, "prompt")
	if err != nil {
		return nil, err
	}

	asset, err := t.client.GenerateImage(ctx, prompt, stringArg(input, "model"))
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"imageUrl": asset.URL,
		"imageKey": asset.Key,
	}, nil
}
