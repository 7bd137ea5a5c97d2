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

// Arena session bounds.
const (
	arenaMinModels = 2
	arenaMaxModels = 4
)

// arenaErrorResponse is recorded for a model that failed to answer. Users
// see this marker instead of the provider's internal error message.
const arenaErrorResponse = "Error generating response"

// ArenaService sends the same prompt to several models and records their
// answers side by side. Unlike workflow execution, a single model's failure
// does not abort the comparison: the point is to see how the models differ,
// so the remaining models still run and the failed one gets an error marker.
type ArenaService struct {
	store   store.GenerationStore
	client  provider.Client
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewArenaService creates an arena service. Metrics may be nil.
func NewArenaService(s store.GenerationStore, client provider.Client, logger *zap.Logger, metrics *observability.Metrics) *ArenaService {
	return &ArenaService{store: s, client: client, logger: logger, metrics: metrics}
}

// Compare runs the prompt against each model in order and persists the
// resulting session.
func (s *ArenaService) Compare(ctx context.Context, userID, prompt string, models []string) (model.ArenaSession, error) {
	if prompt == "" {
		return model.ArenaSession{}, model.NewBadRequestError("prompt is required")
	}
	if len(models) < arenaMinModels || len(models) > arenaMaxModels {
		return model.ArenaSession{}, model.NewBadRequestError("between 2 and 4 models are required")
	}

	logger := observability.RequestLogger(ctx, s.logger)
	responses := make(map[string]string, len(models))
	for _, mdl := range models {
		reply, err := s.client.ChatCompletion(ctx, []provider.Message{
			{Role: model.RoleUser, Content: prompt},
		}, mdl)
		if err != nil {
			logger.Warn("arena model failed",
				zap.String("model", mdl),
				zap.Error(err))
			responses[mdl] = arenaErrorResponse
			if s.metrics != nil {
				s.metrics.RecordGeneration("arena", model.GenerationStatusFailed)
			}
			continue
		}
		responses[mdl] = reply
		if s.metrics != nil {
			s.metrics.RecordGeneration("arena", model.GenerationStatusCompleted)
		}
	}

	session := model.ArenaSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		Prompt:    prompt,
		Models:    models,
		Responses: responses,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateArenaSession(ctx, session); err != nil {
		return model.ArenaSession{}, err
	}
	return session, nil
}

// List returns the user's arena sessions, newest first.
func (s *ArenaService) List(ctx context.Context, userID string) ([]model.ArenaSession, error) {
	return s.store.ListArenaSessions(ctx, userID)
}
