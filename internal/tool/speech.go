package tool

import (
	"context"

	"github.com/pitabwire/loom/internal/provider"
)

// DefaultVoice is used when a speech step does not name a voice.
const DefaultVoice = "alloy"

// SpeechTool converts text to audio. It registers under the id "tts",
// matching the API namespace. When no "text" input is present it falls
// back to "reply", so it can voice the output of a preceding chat step
// without extra wiring.
//
// Inputs: "text" (falls back to "reply"), "voice".
// Outputs: "audioUrl", "audioKey".
type SpeechTool struct {
	client provider.Client
}

// NewSpeechTool creates a speech tool on the given gateway.
func NewSpeechTool(client provider.Client) *SpeechTool {
	return &SpeechTool{client: client}
}

func (t *SpeechTool) Name() string { return "tts" }

func (t *SpeechTool) Invoke(ctx context.Context, input map[string]any) (map[string]any, error) {
	text, err := requireString(input, "text", "reply")
	if err != nil {
		return nil, err
	}

	voice := stringArg(input, "voice")
	if voice == "" {
		voice = DefaultVoice
	}

	asset, err := t.client.SynthesizeSpeech(ctx, text, voice)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"audioUrl": asset.URL,
		"audioKey": asset.Key,
	}, nil
}
