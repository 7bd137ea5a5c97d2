package feature

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pitabwire/loom/internal/observability"
	"github.com/pitabwire/loom/internal/provider"
	"github.com/pitabwire/loom/internal/store"
	"github.com/pitabwire/loom/model"
)

// Video models accepted by the video feature.
var videoModels = map[string]bool{
	"sora": true,
	"veo":  true,
}

// DefaultVideoModel is used when a request does not name a model.
const DefaultVideoModel = "sora"

// VideoService generates videos and records generation history.
type VideoService struct {
	store   store.GenerationStore
	client  provider.Client
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewVideoService creates a video service. Metrics may be nil.
func NewVideoService(s store.GenerationStore, client provider.Client, logger *zap.Logger, metrics *observability.Metrics) *VideoService {
	return &VideoService{store: s, client: client, logger: logger, metrics: metrics}
}

// Generate records a processing generation, calls the model gateway, and
// updates the record with the video asset. Video synthesis is long-running,
// so the row starts in "processing" rather than "pending".
func (s *VideoService) Generate(ctx context.Context, userID, prompt, mdl string) (model.VideoGeneration, error) {
	if prompt == "" {
		return model.VideoGeneration{}, model.NewBadRequestError("prompt is required")
	}
	if mdl == "" {
		mdl = DefaultVideoModel
	}
	if !videoModels[mdl] {
		return model.VideoGeneration{}, model.NewBadRequestError(fmt.Sprintf("unsupported video model %q", mdl))
	}

	gen := model.VideoGeneration{
		ID:        uuid.NewString(),
		UserID:    userID,
		Prompt:    prompt,
		Model:     mdl,
		Status:    model.GenerationStatusProcessing,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateVideoGeneration(ctx, gen); err != nil {
		return model.VideoGeneration{}, err
	}

	asset, err := s.client.GenerateVideo(ctx, prompt, mdl)
	if err != nil {
		gen.Status = model.GenerationStatusFailed
		if updateErr := s.store.UpdateVideoGeneration(ctx, gen); updateErr != nil {
			observability.RequestLogger(ctx, s.logger).Error("mark video generation failed",
				zap.String("generation_id", gen.ID),
				zap.Error(updateErr))
		}
		if s.metrics != nil {
			s.metrics.RecordGeneration("video", model.GenerationStatusFailed)
		}
		return model.VideoGeneration{}, err
	}

	gen.VideoURL = asset.URL
	gen.VideoKey = asset.Key
	gen.Status = model.GenerationStatusCompleted
	if err := s.store.UpdateVideoGeneration(ctx, gen); err != nil {
		return model.VideoGeneration{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordGeneration("video", model.GenerationStatusCompleted)
	}
	return gen, nil
}

// List returns the user's video generation history, newest first.
func (s *VideoService) List(ctx context.Context, userID string) ([]model.VideoGeneration, error) {
	return s.store.ListVideoGenerations(ctx, userID)
}
