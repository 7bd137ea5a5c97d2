package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/pitabwire/loom/internal/provider"
	"github.com/pitabwire/loom/model"
)

// --- Test helpers ---

// fakeClient implements provider.Client and records the last request made
// against each operation.
type fakeClient struct {
	chatMessages []provider.Message
	chatModel    string
	chatReply    string
	chatErr      error

	prompt string
	text   string
	voice  string
	mdl    string
	asset  provider.Asset
	err    error
}

func (c *fakeClient) ChatCompletion(_ context.Context, messages []provider.Message, mdl string) (string, error) {
	c.chatMessages = messages
	c.chatModel = mdl
	return c.chatReply, c.chatErr
}

func (c *fakeClient) GenerateImage(_ context.Context, prompt, mdl string) (provider.Asset, error) {
	c.prompt = prompt
	c.mdl = mdl
	return c.asset, c.err
}

func (c *fakeClient) SynthesizeSpeech(_ context.Context, text, voice string) (provider.Asset, error) {
	c.text = text
	c.voice = voice
	return c.asset, c.err
}

func (c *fakeClient) GenerateVideo(_ context.Context, prompt, mdl string) (provider.Asset, error) {
	c.prompt = prompt
	c.mdl = mdl
	return c.asset, c.err
}

// --- Tests ---

func TestChatTool(t *testing.T) {
	client := &fakeClient{chatReply: "hello there"}
	tool := NewChatTool(client)

	out, err := tool.Invoke(context.Background(), map[string]any{
		"prompt": "say hello",
		"system": "be brief",
		"model":  "gpt-test",
	})
	if err != nil {
		t.Fatalf("Invoke returned error: %v", err)
	}

	if out["reply"] != "hello there" {
		t.Errorf("reply = %v", out["reply"])
	}
	if client.chatModel != "gpt-test" {
		t.Errorf("model = %q", client.chatModel)
	}
	if len(client.chatMessages) != 2 {
		t.Fatalf("got %d messages, want system + user", len(client.chatMessages))
	}
	if client.chatMessages[0].Role != model.RoleSystem || client.chatMessages[0].Content != "be brief" {
		t.Errorf("system message = %+v", client.chatMessages[0])
	}
	if client.chatMessages[1].Role != model.RoleUser || client.chatMessages[1].Content != "say hello" {
		t.Errorf("user message = %+v", client.chatMessages[1])
	}
}

func TestChatToolRequiresPrompt(t *testing.T) {
	tool := NewChatTool(&fakeClient{})

	if _, err := tool.Invoke(context.Background(), map[string]any{}); err == nil {
		t.Fatal("Invoke accepted input without a prompt")
	}
}

func TestChatToolPropagatesClientError(t *testing.T) {
	tool := NewChatTool(&fakeClient{chatErr: errors.New("gateway down")})

	if _, err := tool.Invoke(context.Background(), map[string]any{"prompt": "hi"}); err == nil {
		t.Fatal("Invoke swallowed client error")
	}
}

func TestImageTool(t *testing.T) {
	client := &fakeClient{asset: provider.Asset{URL: "http://x/1.png", Key: "img/1"}}
	tool := NewImageTool(client)

	out, err := tool.Invoke(context.Background(), map[string]any{"prompt": "a cat", "model": "flux"})
	if err != nil {
		t.Fatalf("Invoke returned error: %v", err)
	}
	if out["imageUrl"] != "http://x/1.png" || out["imageKey"] != "img/1" {
		t.Errorf("output = %v", out)
	}
	if client.prompt != "a cat" || client.mdl != "flux" {
		t.Errorf("client saw prompt=%q model=%q", client.prompt, client.mdl)
	}
}

func TestSpeechToolRegistersAsTTS(t *testing.T) {
	// Workflows reference the text-to-speech capability by the API
	// namespace, not the type name.
	if got := NewSpeechTool(nil).Name(); got != "tts" {
		t.Errorf("Name() = %q, want tts", got)
	}
}

func TestSpeechToolFallsBackToReply(t *testing.T) {
	client := &fakeClient{asset: provider.Asset{URL: "http://x/1.mp3", Key: "audio/1"}}
	tool := NewSpeechTool(client)

	// A chat step writes "reply"; the speech step should pick it up when no
	// explicit "text" is present.
	out, err := tool.Invoke(context.Background(), map[string]any{"reply": "hello world"})
	if err != nil {
		t.Fatalf("Invoke returned error: %v", err)
	}
	if client.text != "hello world" {
		t.Errorf("synthesized text = %q", client.text)
	}
	if client.voice != DefaultVoice {
		t.Errorf("voice = %q, want default", client.voice)
	}
	if out["audioUrl"] != "http://x/1.mp3" {
		t.Errorf("output = %v", out)
	}
}

func TestSpeechToolPrefersExplicitText(t *testing.T) {
	client := &fakeClient{}
	tool := NewSpeechTool(client)

	_, err := tool.Invoke(context.Background(), map[string]any{
		"text":  "read this",
		"reply": "not this",
		"voice": "nova",
	})
	if err != nil {
		t.Fatalf("Invoke returned error: %v", err)
	}
	if client.text != "read this" || client.voice != "nova" {
		t.Errorf("client saw text=%q voice=%q", client.text, client.voice)
	}
}

func TestVideoTool(t *testing.T) {
	client := &fakeClient{asset: provider.Asset{URL: "http://x/1.mp4", Key: "video/1"}}
	tool := NewVideoTool(client)

	out, err := tool.Invoke(context.Background(), map[string]any{"prompt": "a storm"})
	if err != nil {
		t.Fatalf("Invoke returned error: %v", err)
	}
	if out["videoUrl"] != "http://x/1.mp4" || out["videoKey"] != "video/1" {
		t.Errorf("output = %v", out)
	}
}

func TestResearchToolFallsBackToPrompt(t *testing.T) {
	client := &fakeClient{chatReply: "findings with sources"}
	tool := NewResearchTool(client)

	out, err := tool.Invoke(context.Background(), map[string]any{"prompt": "history of looms"})
	if err != nil {
		t.Fatalf("Invoke returned error: %v", err)
	}
	if out["findings"] != "findings with sources" {
		t.Errorf("output = %v", out)
	}
	if len(client.chatMessages) != 2 || client.chatMessages[0].Role != model.RoleSystem {
		t.Fatalf("messages = %+v, want system prompt first", client.chatMessages)
	}
	if client.chatMessages[1].Content != "history of looms" {
		t.Errorf("query = %q", client.chatMessages[1].Content)
	}
}

func TestCodeToolFormatsLanguage(t *testing.T) {
	client := &fakeClient{chatReply: "use a range loop"}
	tool := NewCodeTool(client)

	out, err := tool.Invoke(context.Background(), map[string]any{
		"code":     "for i := 0; i < len(xs); i++ {}",
		"language": "go",
	})
	if err != nil {
		t.Fatalf("Invoke returned error: %v", err)
	}
	if out["suggestions"] != "use a range loop" {
		t.Errorf("output = %v", out)
	}
	want := "Language: go\n\nfor i := 0; i < len(xs); i++ {}"
	if client.chatMessages[1].Content != want {
		t.Errorf("prompt = %q, want %q", client.chatMessages[1].Content, want)
	}
}

func TestCodeToolRequiresCode(t *testing.T) {
	tool := NewCodeTool(&fakeClient{})

	if _, err := tool.Invoke(context.Background(), map[string]any{"language": "go"}); err == nil {
		t.Fatal("Invoke accepted input without code")
	}
}
