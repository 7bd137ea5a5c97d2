// Package provider is the outbound gateway to the model service used for
// chat, image, speech, and video generation.
package provider

import "context"

// Message is one turn of a chat completion conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Asset is a generated artifact stored by the provider: a public URL plus a
// storage key for later retrieval.
type Asset struct {
	URL string `json:"url"`
	Key string `json:"key,omitempty"`
}

// Client is the model gateway interface. Implementations must be safe for
// concurrent use.
type Client interface {
	// ChatCompletion sends a conversation and returns the assistant reply.
	ChatCompletion(ctx context.Context, messages []Message, model string) (string, error)

	// GenerateImage synthesizes an image from a prompt.
	GenerateImage(ctx context.Context, prompt, model string) (Asset, error)

	// SynthesizeSpeech converts text to audio with the given voice.
	SynthesizeSpeech(ctx context.Context, text, voice string) (Asset, error)

	// GenerateVideo synthesizes a video from a prompt.
	GenerateVideo(ctx context.Context, prompt, model string) (Asset, error)
}
