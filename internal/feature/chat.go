// Package feature implements the application services behind the API: chat,
// generation features, model comparison, and workflow management. Services
// own validation, ownership checks, and persistence; generation work is
// delegated to the model gateway.
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

// ChatService manages conversations and message exchange.
type ChatService struct {
	store        store.ChatStore
	client       provider.Client
	logger       *zap.Logger
	metrics      *observability.Metrics
	defaultModel string
}

// NewChatService creates a chat service. Metrics may be nil.
func NewChatService(s store.ChatStore, client provider.Client, logger *zap.Logger, metrics *observability.Metrics, defaultModel string) *ChatService {
	return &ChatService{
		store:        s,
		client:       client,
		logger:       logger,
		metrics:      metrics,
		defaultModel: defaultModel,
	}
}

// CreateConversation starts a new conversation for the user.
func (s *ChatService) CreateConversation(ctx context.Context, userID, title, mdl string) (model.ChatConversation, error) {
	if mdl == "" {
		mdl = s.defaultModel
	}

	now := time.Now().UTC()
	conv := model.ChatConversation{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Model:     mdl,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateConversation(ctx, conv); err != nil {
		return model.ChatConversation{}, err
	}
	return conv, nil
}

// ListConversations returns the user's conversations, newest first.
func (s *ChatService) ListConversations(ctx context.Context, userID string) ([]model.ChatConversation, error) {
	return s.store.ListConversations(ctx, userID)
}

// GetConversation returns a conversation the user owns.
func (s *ChatService) GetConversation(ctx context.Context, userID, conversationID string) (model.ChatConversation, error) {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return model.ChatConversation{}, err
	}
	if conv.UserID != userID {
		return model.ChatConversation{}, model.NewForbiddenError("you do not own this conversation")
	}
	return conv, nil
}

// ListMessages returns a conversation's messages in chronological order.
func (s *ChatService) ListMessages(ctx context.Context, userID, conversationID string) ([]model.ChatMessage, error) {
	if _, err := s.GetConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	return s.store.ListMessages(ctx, conversationID)
}

// SendMessage appends the user's message, sends the whole conversation to
// the model, and persists and returns the assistant reply.
func (s *ChatService) SendMessage(ctx context.Context, userID, conversationID, content string) (model.ChatMessage, error) {
	if content == "" {
		return model.ChatMessage{}, model.NewBadRequestError("message content is required")
	}

	conv, err := s.GetConversation(ctx, userID, conversationID)
	if err != nil {
		return model.ChatMessage{}, err
	}

	userMsg := model.ChatMessage{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           model.RoleUser,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.store.AddMessage(ctx, userMsg); err != nil {
		return model.ChatMessage{}, err
	}

	history, err := s.store.ListMessages(ctx, conversationID)
	if err != nil {
		return model.ChatMessage{}, err
	}
	messages := make([]provider.Message, 0, len(history))
	for _, msg := range history {
		messages = append(messages, provider.Message{Role: msg.Role, Content: msg.Content})
	}

	reply, err := s.client.ChatCompletion(ctx, messages, conv.Model)
	if err != nil {
		s.recordGeneration("chat", model.GenerationStatusFailed)
		observability.RequestLogger(ctx, s.logger).Warn("chat completion failed",
			zap.String("conversation_id", conversationID),
			zap.Error(err))
		return model.ChatMessage{}, err
	}

	assistantMsg := model.ChatMessage{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           model.RoleAssistant,
		Content:        reply,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.store.AddMessage(ctx, assistantMsg); err != nil {
		return model.ChatMessage{}, err
	}

	s.recordGeneration("chat", model.GenerationStatusCompleted)
	return assistantMsg, nil
}

func (s *ChatService) recordGeneration(feature, status string) {
	if s.metrics != nil {
		s.metrics.RecordGeneration(feature, status)
	}
}
