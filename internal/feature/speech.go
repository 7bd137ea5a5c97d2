package feature

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pitabwire/loom/internal/observability"
	"github.com/pitabwire/loom/internal/provider"
	"github.com/pitabwire/loom/internal/store"
	"github.com/pitabwire/loom/model"
)

// DefaultVoice is used when a synthesis request does not name a voice.
const DefaultVoice = "alloy"

// SpeechService converts text to audio and records generation history.
type SpeechService struct {
	store   store.GenerationStore
	client  provider.Client
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewSpeechService creates a speech service. Metrics may be nil.
func NewSpeechService(s store.GenerationStore, client provider.Client, logger *zap.Logger, metrics *observability.Metrics) *SpeechService {
	return &SpeechService{store: s, client: client, logger: logger, metrics: metrics}
}

// Synthesize records a pending generation, calls the model gateway, and
// updates the record with the audio asset.
func (s *SpeechService) Synthesize(ctx context.Context, userID, text, voice string) (model.SpeechGeneration, error) {
	if text == "" {
		return model.SpeechGeneration{}, model.NewBadRequestError("text is required")
	}
	if voice == "" {
		voice = DefaultVoice
	}

	gen := model.SpeechGeneration{
		ID:        uuid.NewString(),
		UserID:    userID,
		Text:      text,
		Voice:     voice,
		Status:    model.GenerationStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateSpeechGeneration(ctx, gen); err != nil {
		return model.SpeechGeneration{}, err
	}

	asset, err := s.client.SynthesizeSpeech(ctx, text, voice)
	if err != nil {
		gen.Status = model.GenerationStatusFailed
		if updateErr := s.store.UpdateSpeechGeneration(ctx, gen); updateErr != nil {
			observability.RequestLogger(ctx, s.logger).Error("mark speech generation failed",
				zap.String("generation_id", gen.ID),
				zap.Error(updateErr))
		}
		if s.metrics != nil {
			s.metrics.RecordGeneration("speech", model.GenerationStatusFailed)
		}
		return model.SpeechGeneration{}, err
	}

	gen.AudioURL = asset.URL
	gen.AudioKey = asset.Key
	gen.Status = model.GenerationStatusCompleted
	if err := s.store.UpdateSpeechGeneration(ctx, gen); err != nil {
		return model.SpeechGeneration{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordGeneration("speech", model.GenerationStatusCompleted)
	}
	return gen, nil
}

// List returns the user's speech generation history, newest first.
func (s *SpeechService) List(ctx context.Context, userID string) ([]model.SpeechGeneration, error) {
	return s.store.ListSpeechGenerations(ctx, userID)
}
