package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pitabwire/loom/model"
)

// --- Chat ---

// CreateConversation persists a new chat conversation.
func (s *MemoryStore) CreateConversation(_ context.Context, conv model.ChatConversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.conversations[conv.ID]; exists {
		return model.NewConflictError(fmt.Sprintf("conversation %q already exists", conv.ID))
	}
	s.conversations[conv.ID] = conv
	return nil
}

// GetConversation retrieves a conversation by ID.
func (s *MemoryStore) GetConversation(_ context.Context, id string) (model.ChatConversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, exists := s.conversations[id]
	if !exists {
		return model.ChatConversation{}, model.NewNotFoundError(fmt.Sprintf("conversation %q not found", id))
	}
	return conv, nil
}

// ListConversations returns a user's conversations, newest first.
func (s *MemoryStore) ListConversations(_ context.Context, userID string) ([]model.ChatConversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.ChatConversation
	for _, conv := range s.conversations {
		if conv.UserID == userID {
			result = append(result, conv)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// AddMessage appends a message to a conversation and bumps its updated_at.
func (s *MemoryStore) AddMessage(_ context.Context, msg model.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, exists := s.conversations[msg.ConversationID]
	if !exists {
		return model.NewNotFoundError(fmt.Sprintf("conversation %q not found", msg.ConversationID))
	}

	s.messages[msg.ConversationID] = append(s.messages[msg.ConversationID], msg)
	conv.UpdatedAt = time.Now().UTC()
	s.conversations[msg.ConversationID] = conv
	return nil
}

// ListMessages returns a conversation's messages in chronological order.
func (s *MemoryStore) ListMessages(_ context.Context, conversationID string) ([]model.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.conversations[conversationID]; !exists {
		return nil, model.NewNotFoundError(fmt.Sprintf("conversation %q not found", conversationID))
	}

	msgs := s.messages[conversationID]
	result := make([]model.ChatMessage, len(msgs))
	copy(result, msgs)
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// --- Image ---

func (s *MemoryStore) CreateImageGeneration(_ context.Context, gen model.ImageGeneration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.images[gen.ID]; exists {
		return model.NewConflictError(fmt.Sprintf("image generation %q already exists", gen.ID))
	}
	s.images[gen.ID] = gen
	return nil
}

func (s *MemoryStore) UpdateImageGeneration(_ context.Context, gen model.ImageGeneration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.images[gen.ID]; !exists {
		return model.NewNotFoundError(fmt.Sprintf("image generation %q not found", gen.ID))
	}
	s.images[gen.ID] = gen
	return nil
}

func (s *MemoryStore) ListImageGenerations(_ context.Context, userID string) ([]model.ImageGeneration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.ImageGeneration
	for _, gen := range s.images {
		if gen.UserID == userID {
			result = append(result, gen)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// --- Speech ---

func (s *MemoryStore) CreateSpeechGeneration(_ context.Context, gen model.SpeechGeneration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.speeches[gen.ID]; exists {
		return model.NewConflictError(fmt.Sprintf("speech generation %q already exists", gen.ID))
	}
	s.speeches[gen.ID] = gen
	return nil
}

func (s *MemoryStore) UpdateSpeechGeneration(_ context.Context, gen model.SpeechGeneration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.speeches[gen.ID]; !exists {
		return model.NewNotFoundError(fmt.Sprintf("speech generation %q not found", gen.ID))
	}
	s.speeches[gen.ID] = gen
	return nil
}

func (s *MemoryStore) ListSpeechGenerations(_ context.Context, userID string) ([]model.SpeechGeneration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.SpeechGeneration
	for _, gen := range s.speeches {
		if gen.UserID == userID {
			result = append(result, gen)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// --- Video ---

func (s *MemoryStore) CreateVideoGeneration(_ context.Context, gen model.VideoGeneration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.videos[gen.ID]; exists {
		return model.NewConflictError(fmt.Sprintf("video generation %q already exists", gen.ID))
	}
	s.videos[gen.ID] = gen
	return nil
}

func (s *MemoryStore) UpdateVideoGeneration(_ context.Context, gen model.VideoGeneration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.videos[gen.ID]; !exists {
		return model.NewNotFoundError(fmt.Sprintf("video generation %q not found", gen.ID))
	}
	s.videos[gen.ID] = gen
	return nil
}

func (s *MemoryStore) ListVideoGenerations(_ context.Context, userID string) ([]model.VideoGeneration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.VideoGeneration
	for _, gen := range s.videos {
		if gen.UserID == userID {
			result = append(result, gen)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// --- Arena ---

func (s *MemoryStore) CreateArenaSession(_ context.Context, session model.ArenaSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.arenas[session.ID]; exists {
		return model.NewConflictError(fmt.Sprintf("arena session %q already exists", session.ID))
	}
	s.arenas[session.ID] = session
	return nil
}

func (s *MemoryStore) ListArenaSessions(_ context.Context, userID string) ([]model.ArenaSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.ArenaSession
	for _, session := range s.arenas {
		if session.UserID == userID {
			result = append(result, session)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// --- Research ---

func (s *MemoryStore) CreateResearchSession(_ context.Context, session model.ResearchSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.research[session.ID]; exists {
		return model.NewConflictError(fmt.Sprintf("research session %q already exists", session.ID))
	}
	s.research[session.ID] = session
	return nil
}

func (s *MemoryStore) UpdateResearchSession(_ context.Context, session model.ResearchSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.research[session.ID]; !exists {
		return model.NewNotFoundError(fmt.Sprintf("research session %q not found", session.ID))
	}
	s.research[session.ID] = session
	return nil
}

func (s *MemoryStore) ListResearchSessions(_ context.Context, userID string) ([]model.ResearchSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.ResearchSession
	for _, session := range s.research {
		if session.UserID == userID {
			result = append(result, session)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// --- Code ---

func (s *MemoryStore) CreateCodeSession(_ context.Context, session model.CodeSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.code[session.ID]; exists {
		return model.NewConflictError(fmt.Sprintf("code session %q already exists", session.ID))
	}
	s.code[session.ID] = session
	return nil
}

func (s *MemoryStore) GetCodeSession(_ context.Context, id string) (model.CodeSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.code[id]
	if !exists {
		return model.CodeSession{}, model.NewNotFoundError(fmt.Sprintf("code session %q not found", id))
	}
	return session, nil
}

func (s *MemoryStore) UpdateCodeSession(_ context.Context, session model.CodeSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.code[session.ID]; !exists {
		return model.NewNotFoundError(fmt.Sprintf("code session %q not found", session.ID))
	}
	session.UpdatedAt = time.Now().UTC()
	s.code[session.ID] = session
	return nil
}

func (s *MemoryStore) ListCodeSessions(_ context.Context, userID string) ([]model.CodeSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.CodeSession
	for _, session := range s.code {
		if session.UserID == userID {
			result = append(result, session)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}
