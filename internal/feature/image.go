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

// Image models accepted by the image feature.
var imageModels = map[string]bool{
	"flux":        true,
	"imagen":      true,
	"gpt-image-1": true,
}

// DefaultImageModel is used when a request does not name a model.
const DefaultImageModel = "flux"

// ImageService generates images and records generation history.
type ImageService struct {
	store   store.GenerationStore
	client  provider.Client
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewImageService creates an image service. Metrics may be nil.
func NewImageService(s store.GenerationStore, client provider.Client, logger *zap.Logger, metrics *observability.Metrics) *ImageService {
	return &ImageService{store: s, client: client, logger: logger, metrics: metrics}
}

// Generate records a pending generation, calls the model gateway, and
// updates the record with the result. A provider failure marks the record
// failed and is returned to the caller.
func (s *ImageService) Generate(ctx context.Context, userID, prompt, mdl string) (model.ImageGeneration, error) {
	if prompt == "" {
		return model.ImageGeneration{}, model.NewBadRequestError("prompt is required")
	}
	if mdl == "" {
		mdl = DefaultImageModel
	}
	if !imageModels[mdl] {
		return model.ImageGeneration{}, model.NewBadRequestError(fmt.Sprintf("unsupported image model %q", mdl))
	}

	gen := model.ImageGeneration{
		ID:        uuid.NewString(),
		UserID:    userID,
		Prompt:    prompt,
		Model:     mdl,
		Status:    model.GenerationStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateImageGeneration(ctx, gen); err != nil {
		return model.ImageGeneration{}, err
	}

	asset, err := s.client.GenerateImage(ctx, prompt, mdl)
	if err != nil {
		gen.Status = model.GenerationStatusFailed
		if updateErr := s.store.UpdateImageGeneration(ctx, gen); updateErr != nil {
			observability.RequestLogger(ctx, s.logger).Error("mark image generation failed",
				zap.String("generation_id", gen.ID),
				zap.Error(updateErr))
		}
		if s.metrics != nil {
			s.metrics.RecordGeneration("image", model.GenerationStatusFailed)
		}
		return model.ImageGeneration{}, err
	}

	gen.ImageURL = asset.URL
	gen.ImageKey = asset.Key
	gen.Status = model.GenerationStatusCompleted
	if err := s.store.UpdateImageGeneration(ctx, gen); err != nil {
		return model.ImageGeneration{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordGeneration("image", model.GenerationStatusCompleted)
	}
	return gen, nil
}

// List returns the user's image generation history, newest first.
func (s *ImageService) List(ctx context.Context, userID string) ([]model.ImageGeneration, error) {
	return s.store.ListImageGenerations(ctx, userID)
}
