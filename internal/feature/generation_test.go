package feature

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/pitabwire/loom/internal/provider"
	"github.com/pitabwire/loom/internal/store"
	"github.com/pitabwire/loom/model"
)

func TestImageGenerate(t *testing.T) {
	db := store.NewMemoryStore()
	svc := NewImageService(db, &stubClient{}, zap.NewNop(), nil)
	ctx := context.Background()

	gen, err := svc.Generate(ctx, "alice", "a cat", "")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if gen.Model != DefaultImageModel {
		t.Errorf("model = %q, want default", gen.Model)
	}
	if gen.Status != model.GenerationStatusCompleted || gen.ImageURL != "http://x/1.png" {
		t.Errorf("generation = %+v", gen)
	}

	history, err := svc.List(ctx, "alice")
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(history) != 1 || history[0].Status != model.GenerationStatusCompleted {
		t.Errorf("history = %+v", history)
	}
}

func TestImageGenerateRejectsUnknownModel(t *testing.T) {
	svc := NewImageService(store.NewMemoryStore(), &stubClient{}, zap.NewNop(), nil)

	_, err := svc.Generate(context.Background(), "alice", "a cat", "dall-e-1")
	if got := errCode(t, err); got != model.ErrBadRequest {
		t.Errorf("code = %q, want BAD_REQUEST", got)
	}
}

func TestImageGenerateProviderFailureMarksRecord(t *testing.T) {
	db := store.NewMemoryStore()
	client := &stubClient{imageErr: model.NewProviderUnavailableError()}
	svc := NewImageService(db, client, zap.NewNop(), nil)
	ctx := context.Background()

	_, err := svc.Generate(ctx, "alice", "a cat", "flux")
	if got := errCode(t, err); got != model.ErrProviderUnavailable {
		t.Errorf("code = %q, want PROVIDER_UNAVAILABLE", got)
	}

	// The failed attempt remains in the history.
	history, err := svc.List(ctx, "alice")
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(history) != 1 || history[0].Status != model.GenerationStatusFailed {
		t.Errorf("history = %+v, want one failed record", history)
	}
}

func TestSpeechSynthesizeDefaultsVoice(t *testing.T) {
	svc := NewSpeechService(store.NewMemoryStore(), &stubClient{}, zap.NewNop(), nil)

	gen, err := svc.Synthesize(context.Background(), "alice", "read this", "")
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if gen.Voice != DefaultVoice {
		t.Errorf("voice = %q, want default", gen.Voice)
	}
	if gen.Status != model.GenerationStatusCompleted || gen.AudioURL != "http://x/1.mp3" {
		t.Errorf("generation = %+v", gen)
	}
}

func TestVideoGenerate(t *testing.T) {
	svc := NewVideoService(store.NewMemoryStore(), &stubClient{}, zap.NewNop(), nil)

	gen, err := svc.Generate(context.Background(), "alice", "a storm", "")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if gen.Model != DefaultVideoModel {
		t.Errorf("model = %q, want default", gen.Model)
	}
	if gen.Status != model.GenerationStatusCompleted || gen.VideoURL != "http://x/1.mp4" {
		t.Errorf("generation = %+v", gen)
	}

	_, err = svc.Generate(context.Background(), "alice", "a storm", "not-a-model")
	if got := errCode(t, err); got != model.ErrBadRequest {
		t.Errorf("code = %q, want BAD_REQUEST", got)
	}
}

func TestArenaCompare(t *testing.T) {
	client := &stubClient{
		chatFunc: func(_ context.Context, _ []provider.Message, mdl string) (string, error) {
			return "answer from " + mdl, nil
		},
	}
	svc := NewArenaService(store.NewMemoryStore(), client, zap.NewNop(), nil)

	session, err := svc.Compare(context.Background(), "alice", "compare these", []string{"model-a", "model-b"})
	if err != nil {
		t.Fatalf("Compare returned error: %v", err)
	}
	if session.Responses["model-a"] != "answer from model-a" {
		t.Errorf("responses = %v", session.Responses)
	}
	if session.Responses["model-b"] != "answer from model-b" {
		t.Errorf("responses = %v", session.Responses)
	}
}

func TestArenaCompareContinuesPastModelFailure(t *testing.T) {
	client := &stubClient{
		chatFunc: func(_ context.Context, _ []provider.Message, mdl string) (string, error) {
			if mdl == "broken" {
				return "", model.NewProviderUnavailableError()
			}
			return "fine", nil
		},
	}
	db := store.NewMemoryStore()
	svc := NewArenaService(db, client, zap.NewNop(), nil)

	session, err := svc.Compare(context.Background(), "alice", "prompt", []string{"broken", "working"})
	if err != nil {
		t.Fatalf("Compare returned error despite per-model isolation: %v", err)
	}

	if session.Responses["broken"] != arenaErrorResponse {
		t.Errorf("broken model response = %q, want error marker", session.Responses["broken"])
	}
	if session.Responses["working"] != "fine" {
		t.Errorf("working model response = %q", session.Responses["working"])
	}

	sessions, err := svc.List(context.Background(), "alice")
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(sessions) != 1 {
		t.Errorf("sessions = %+v, want the mixed session persisted", sessions)
	}
}

func TestArenaCompareValidatesModelCount(t *testing.T) {
	svc := NewArenaService(store.NewMemoryStore(), &stubClient{}, zap.NewNop(), nil)
	ctx := context.Background()

	_, err := svc.Compare(ctx, "alice", "prompt", []string{"only-one"})
	if got := errCode(t, err); got != model.ErrBadRequest {
		t.Errorf("code = %q, want BAD_REQUEST for too few models", got)
	}

	_, err = svc.Compare(ctx, "alice", "prompt", []string{"a", "b", "c", "d", "e"})
	if got := errCode(t, err); got != model.ErrBadRequest {
		t.Errorf("code = %q, want BAD_REQUEST for too many models", got)
	}

	_, err = svc.Compare(ctx, "alice", "", []string{"a", "b"})
	if got := errCode(t, err); got != model.ErrBadRequest {
		t.Errorf("code = %q, want BAD_REQUEST for empty prompt", got)
	}
}

func TestResearchRun(t *testing.T) {
	client := &stubClient{
		chatFunc: func(_ context.Context, messages []provider.Message, _ string) (string, error) {
			if len(messages) != 2 || messages[0].Role != model.RoleSystem {
				t.Errorf("messages = %+v, want system prompt first", messages)
			}
			return "cited findings", nil
		},
	}
	svc := NewResearchService(store.NewMemoryStore(), client, zap.NewNop(), nil, "gpt-default")

	session, err := svc.Run(context.Background(), "alice", "history of looms")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if session.Status != model.GenerationStatusCompleted || session.Findings != "cited findings" {
		t.Errorf("session = %+v", session)
	}
}

func TestResearchRunProviderFailureMarksSession(t *testing.T) {
	client := &stubClient{
		chatFunc: func(_ context.Context, _ []provider.Message, _ string) (string, error) {
			return "", model.NewProviderTimeoutError()
		},
	}
	db := store.NewMemoryStore()
	svc := NewResearchService(db, client, zap.NewNop(), nil, "gpt-default")

	_, err := svc.Run(context.Background(), "alice", "query")
	if got := errCode(t, err); got != model.ErrProviderTimeout {
		t.Errorf("code = %q, want PROVIDER_TIMEOUT", got)
	}

	sessions, err := svc.List(context.Background(), "alice")
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(sessions) != 1 || sessions[0].Status != model.GenerationStatusFailed {
		t.Errorf("sessions = %+v, want one failed session", sessions)
	}
}

func TestCodeSessionLifecycle(t *testing.T) {
	client := &stubClient{
		chatFunc: func(_ context.Context, messages []provider.Message, _ string) (string, error) {
			if messages[1].Content != "Language: go\n\npackage main" {
				t.Errorf("review prompt = %q", messages[1].Content)
			}
			return "add error handling", nil
		},
	}
	svc := NewCodeService(store.NewMemoryStore(), client, zap.NewNop(), nil, "gpt-default")
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "alice", "refactor", "go")
	if err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}

	reviewed, err := svc.Review(ctx, "alice", session.ID, "package main")
	if err != nil {
		t.Fatalf("Review returned error: %v", err)
	}
	if reviewed.Code != "package main" || reviewed.Suggestions != "add error handling" {
		t.Errorf("session = %+v", reviewed)
	}

	got, err := svc.GetSession(ctx, "alice", session.ID)
	if err != nil {
		t.Fatalf("GetSession returned error: %v", err)
	}
	if got.Suggestions != "add error handling" {
		t.Errorf("stored session = %+v", got)
	}
}

func TestCodeSessionValidationAndOwnership(t *testing.T) {
	svc := NewCodeService(store.NewMemoryStore(), &stubClient{}, zap.NewNop(), nil, "gpt-default")
	ctx := context.Background()

	_, err := svc.CreateSession(ctx, "alice", "untitled", "")
	if got := errCode(t, err); got != model.ErrBadRequest {
		t.Errorf("code = %q, want BAD_REQUEST for missing language", got)
	}

	session, err := svc.CreateSession(ctx, "alice", "refactor", "go")
	if err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}

	if _, err := svc.GetSession(ctx, "bob", session.ID); errCode(t, err) != model.ErrForbidden {
		t.Error("session readable by a stranger")
	}
	if _, err := svc.Review(ctx, "bob", session.ID, "package main"); errCode(t, err) != model.ErrForbidden {
		t.Error("session reviewable by a stranger")
	}
	if _, err := svc.Review(ctx, "alice", session.ID, ""); errCode(t, err) != model.ErrBadRequest {
		t.Error("empty code accepted for review")
	}
}
