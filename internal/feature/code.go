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

// codeSystemPrompt steers the model toward actionable review output.
const codeSystemPrompt = "You are an expert code assistant. Provide helpful suggestions and improvements for the provided code."

// CodeService manages code assistance sessions.
type CodeService struct {
	store        store.GenerationStore
	client       provider.Client
	logger       *zap.Logger
	metrics      *observability.Metrics
	defaultModel string
}

// NewCodeService creates a code service. Metrics may be nil.
func NewCodeService(s store.GenerationStore, client provider.Client, logger *zap.Logger, metrics *observability.Metrics, defaultModel string) *CodeService {
	return &CodeService{
		store:        s,
		client:       client,
		logger:       logger,
		metrics:      metrics,
		defaultModel: defaultModel,
	}
}

// CreateSession starts a new code session for the user.
func (s *CodeService) CreateSession(ctx context.Context, userID, title, language string) (model.CodeSession, error) {
	if language == "" {
		return model.CodeSession{}, model.NewBadRequestError("language is required")
	}

	now := time.Now().UTC()
	session := model.CodeSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Language:  language,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateCodeSession(ctx, session); err != nil {
		return model.CodeSession{}, err
	}
	return session, nil
}

// GetSession returns a session the user owns.
func (s *CodeService) GetSession(ctx context.Context, userID, sessionID string) (model.CodeSession, error) {
	session, err := s.store.GetCodeSession(ctx, sessionID)
	if err != nil {
		return model.CodeSession{}, err
	}
	if session.UserID != userID {
		return model.CodeSession{}, model.NewForbiddenError("you do not own this code session")
	}
	return session, nil
}

// Review sends the code to the model for suggestions and updates the
// session with both the code and the review output.
func (s *CodeService) Review(ctx context.Context, userID, sessionID, code string) (model.CodeSession, error) {
	if code == "" {
		return model.CodeSession{}, model.NewBadRequestError("code is required")
	}

	session, err := s.GetSession(ctx, userID, sessionID)
	if err != nil {
		return model.CodeSession{}, err
	}

	suggestions, err := s.client.ChatCompletion(ctx, []provider.Message{
		{Role: model.RoleSystem, Content: codeSystemPrompt},
		{Role: model.RoleUser, Content: fmt.Sprintf("Language: %s\n\n%s", session.Language, code)},
	}, s.defaultModel)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordGeneration("code", model.GenerationStatusFailed)
		}
		observability.RequestLogger(ctx, s.logger).Warn("code review failed",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return model.CodeSession{}, err
	}

	session.Code = code
	session.Suggestions = suggestions
	if err := s.store.UpdateCodeSession(ctx, session); err != nil {
		return model.CodeSession{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordGeneration("code", model.GenerationStatusCompleted)
	}
	return session, nil
}

// ListSessions returns the user's code sessions, newest first.
func (s *CodeService) ListSessions(ctx context.Context, userID string) ([]model.CodeSession, error) {
	return s.store.ListCodeSessions(ctx, userID)
}
