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

// researchSystemPrompt steers the model toward cited findings.
const researchSystemPrompt = "You are a research assistant. Provide comprehensive research findings with sources."

// ResearchService runs research queries and records their findings.
type ResearchService struct {
	store        store.GenerationStore
	client       provider.Client
	logger       *zap.Logger
	metrics      *observability.Metrics
	defaultModel string
}

// NewResearchService creates a research service. Metrics may be nil.
func NewResearchService(s store.GenerationStore, client provider.Client, logger *zap.Logger, metrics *observability.Metrics, defaultModel string) *ResearchService {
	return &ResearchService{
		store:        s,
		client:       client,
		logger:       logger,
		metrics:      metrics,
		defaultModel: defaultModel,
	}
}

// Run records a pending session, queries the model, and updates the session
// with the findings.
func (s *ResearchService) Run(ctx context.Context, userID, query string) (model.ResearchSession, error) {
	if query == "" {
		return model.ResearchSession{}, model.NewBadRequestError("query is required")
	}

	session := model.ResearchSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		Query:     query,
		Status:    model.GenerationStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateResearchSession(ctx, session); err != nil {
		return model.ResearchSession{}, err
	}

	findings, err := s.client.ChatCompletion(ctx, []provider.Message{
		{Role: model.RoleSystem, Content: researchSystemPrompt},
		{Role: model.RoleUser, Content: query},
	}, s.defaultModel)
	if err != nil {
		session.Status = model.GenerationStatusFailed
		if updateErr := s.store.UpdateResearchSession(ctx, session); updateErr != nil {
			observability.RequestLogger(ctx, s.logger).Error("mark research session failed",
				zap.String("session_id", session.ID),
				zap.Error(updateErr))
		}
		if s.metrics != nil {
			s.metrics.RecordGeneration("research", model.GenerationStatusFailed)
		}
		return model.ResearchSession{}, err
	}

	session.Findings = findings
	session.Status = model.GenerationStatusCompleted
	if err := s.store.UpdateResearchSession(ctx, session); err != nil {
		return model.ResearchSession{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordGeneration("research", model.GenerationStatusCompleted)
	}
	return session, nil
}

// List returns the user's research sessions, newest first.
func (s *ResearchService) List(ctx context.Context, userID string) ([]model.ResearchSession, error) {
	return s.store.ListResearchSessions(ctx, userID)
}
