package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pitabwire/loom/model"
)

// --- Chat ---

// CreateConversation inserts a new chat conversation.
func (s *PgStore) CreateConversation(ctx context.Context, conv model.ChatConversation) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO chat_conversations (id, user_id, title, model, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		conv.ID, conv.UserID, conv.Title, conv.Model, conv.CreatedAt, conv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

// GetConversation retrieves a conversation by ID.
func (s *PgStore) GetConversation(ctx context.Context, id string) (model.ChatConversation, error) {
	var conv model.ChatConversation
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, title, model, created_at, updated_at
		FROM chat_conversations
		WHERE id = $1`,
		id,
	).Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.Model, &conv.CreatedAt, &conv.UpdatedAt)
	if err == pgx.ErrNoRows {
		return model.ChatConversation{}, model.NewNotFoundError(fmt.Sprintf("conversation %q not found", id))
	}
	if err != nil {
		return model.ChatConversation{}, fmt.Errorf("query conversation: %w", err)
	}
	return conv, nil
}

// ListConversations returns a user's conversations, newest first.
func (s *PgStore) ListConversations(ctx context.Context, userID string) ([]model.ChatConversation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, title, model, created_at, updated_at
		FROM chat_conversations
		WHERE user_id = $1
		ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	var conversations []model.ChatConversation
	for rows.Next() {
		var conv model.ChatConversation
		if err := rows.Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.Model, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		conversations = append(conversations, conv)
	}
	return conversations, rows.Err()
}

// AddMessage appends a message to a conversation and bumps its updated_at.
func (s *PgStore) AddMessage(ctx context.Context, msg model.ChatMessage) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE chat_conversations SET updated_at = $1 WHERE id = $2`,
		time.Now().UTC(), msg.ConversationID,
	)
	if err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.NewNotFoundError(fmt.Sprintf("conversation %q not found", msg.ConversationID))
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO chat_messages (id, conversation_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		msg.ID, msg.ConversationID, msg.Role, msg.Content, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ListMessages returns a conversation's messages in chronological order.
func (s *PgStore) ListMessages(ctx context.Context, conversationID string) ([]model.ChatMessage, error) {
	if _, err := s.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, conversation_id, role, content, created_at
		FROM chat_messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []model.ChatMessage
	for rows.Next() {
		var msg model.ChatMessage
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// --- Image ---

func (s *PgStore) CreateImageGeneration(ctx context.Context, gen model.ImageGeneration) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO image_generations (id, user_id, prompt, model, image_url, image_key, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		gen.ID, gen.UserID, gen.Prompt, gen.Model, gen.ImageURL, gen.ImageKey, gen.Status, gen.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert image generation: %w", err)
	}
	return nil
}

func (s *PgStore) UpdateImageGeneration(ctx context.Context, gen model.ImageGeneration) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE image_generations SET image_url = $1, image_key = $2, status = $3
		WHERE id = $4`,
		gen.ImageURL, gen.ImageKey, gen.Status, gen.ID,
	)
	if err != nil {
		return fmt.Errorf("update image generation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.NewNotFoundError(fmt.Sprintf("image generation %q not found", gen.ID))
	}
	return nil
}

func (s *PgStore) ListImageGenerations(ctx context.Context, userID string) ([]model.ImageGeneration, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, prompt, model, image_url, image_key, status, created_at
		FROM image_generations
		WHERE user_id = $1
		ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query image generations: %w", err)
	}
	defer rows.Close()

	var generations []model.ImageGeneration
	for rows.Next() {
		var gen model.ImageGeneration
		if err := rows.Scan(&gen.ID, &gen.UserID, &gen.Prompt, &gen.Model, &gen.ImageURL, &gen.ImageKey, &gen.Status, &gen.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan image generation: %w", err)
		}
		generations = append(generations, gen)
	}
	return generations, rows.Err()
}

// --- Speech ---

func (s *PgStore) CreateSpeechGeneration(ctx context.Context, gen model.SpeechGeneration) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO speech_generations (id, user_id, text, voice, audio_url, audio_key, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		gen.ID, gen.UserID, gen.Text, gen.Voice, gen.AudioURL, gen.AudioKey, gen.Status, gen.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert speech generation: %w", err)
	}
	return nil
}

func (s *PgStore) UpdateSpeechGeneration(ctx context.Context, gen model.SpeechGeneration) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE speech_generations SET audio_url = $1, audio_key = $2, status = $3
		WHERE id = $4`,
		gen.AudioURL, gen.AudioKey, gen.Status, gen.ID,
	)
	if err != nil {
		return fmt.Errorf("update speech generation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.NewNotFoundError(fmt.Sprintf("speech generation %q not found", gen.ID))
	}
	return nil
}

func (s *PgStore) ListSpeechGenerations(ctx context.Context, userID string) ([]model.SpeechGeneration, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, text, voice, audio_url, audio_key, status, created_at
		FROM speech_generations
		WHERE user_id = $1
		ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query speech generations: %w", err)
	}
	defer rows.Close()

	var generations []model.SpeechGeneration
	for rows.Next() {
		var gen model.SpeechGeneration
		if err := rows.Scan(&gen.ID, &gen.UserID, &gen.Text, &gen.Voice, &gen.AudioURL, &gen.AudioKey, &gen.Status, &gen.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan speech generation: %w", err)
		}
		generations = append(generations, gen)
	}
	return generations, rows.Err()
}

// --- Video ---

func (s *PgStore) CreateVideoGeneration(ctx context.Context, gen model.VideoGeneration) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO video_generations (id, user_id, prompt, model, video_url, video_key, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		gen.ID, gen.UserID, gen.Prompt, gen.Model, gen.VideoURL, gen.VideoKey, gen.Status, gen.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert video generation: %w", err)
	}
	return nil
}

func (s *PgStore) UpdateVideoGeneration(ctx context.Context, gen model.VideoGeneration) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE video_generations SET video_url = $1, video_key = $2, status = $3
		WHERE id = $4`,
		gen.VideoURL, gen.VideoKey, gen.Status, gen.ID,
	)
	if err != nil {
		return fmt.Errorf("update video generation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.NewNotFoundError(fmt.Sprintf("video generation %q not found", gen.ID))
	}
	return nil
}

func (s *PgStore) ListVideoGenerations(ctx context.Context, userID string) ([]model.VideoGeneration, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, prompt, model, video_url, video_key, status, created_at
		FROM video_generations
		WHERE user_id = $1
		ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query video generations: %w", err)
	}
	defer rows.Close()

	var generations []model.VideoGeneration
	for rows.Next() {
		var gen model.VideoGeneration
		if err := rows.Scan(&gen.ID, &gen.UserID, &gen.Prompt, &gen.Model, &gen.VideoURL, &gen.VideoKey, &gen.Status, &gen.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan video generation: %w", err)
		}
		generations = append(generations, gen)
	}
	return generations, rows.Err()
}

// --- Arena ---

func (s *PgStore) CreateArenaSession(ctx context.Context, session model.ArenaSession) error {
	modelsJSON, err := json.Marshal(session.Models)
	if err != nil {
		return fmt.Errorf("marshal models: %w", err)
	}
	responsesJSON, err := json.Marshal(session.Responses)
	if err != nil {
		return fmt.Errorf("marshal responses: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO arena_sessions (id, user_id, prompt, models, responses, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		session.ID, session.UserID, session.Prompt, modelsJSON, responsesJSON, session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert arena session: %w", err)
	}
	return nil
}

func (s *PgStore) ListArenaSessions(ctx context.Context, userID string) ([]model.ArenaSession, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, prompt, models, responses, created_at
		FROM arena_sessions
		WHERE user_id = $1
		ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query arena sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.ArenaSession
	for rows.Next() {
		var session model.ArenaSession
		var modelsJSON, responsesJSON []byte
		if err := rows.Scan(&session.ID, &session.UserID, &session.Prompt, &modelsJSON, &responsesJSON, &session.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan arena session: %w", err)
		}
		if modelsJSON != nil {
			_ = json.Unmarshal(modelsJSON, &session.Models)
		}
		if responsesJSON != nil {
			_ = json.Unmarshal(responsesJSON, &session.Responses)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// --- Research ---

func (s *PgStore) CreateResearchSession(ctx context.Context, session model.ResearchSession) error {
	sourcesJSON, err := json.Marshal(session.Sources)
	if err != nil {
		return fmt.Errorf("marshal sources: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO research_sessions (id, user_id, query, findings, sources, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		session.ID, session.UserID, session.Query, session.Findings, sourcesJSON, session.Status, session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert research session: %w", err)
	}
	return nil
}

func (s *PgStore) UpdateResearchSession(ctx context.Context, session model.ResearchSession) error {
	sourcesJSON, err := json.Marshal(session.Sources)
	if err != nil {
		return fmt.Errorf("marshal sources: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE research_sessions SET findings = $1, sources = $2, status = $3
		WHERE id = $4`,
		session.Findings, sourcesJSON, session.Status, session.ID,
	)
	if err != nil {
		return fmt.Errorf("update research session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.NewNotFoundError(fmt.Sprintf("research session %q not found", session.ID))
	}
	return nil
}

func (s *PgStore) ListResearchSessions(ctx context.Context, userID string) ([]model.ResearchSession, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, query, findings, sources, status, created_at
		FROM research_sessions
		WHERE user_id = $1
		ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query research sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.ResearchSession
	for rows.Next() {
		var session model.ResearchSession
		var sourcesJSON []byte
		if err := rows.Scan(&session.ID, &session.UserID, &session.Query, &session.Findings, &sourcesJSON, &session.Status, &session.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan research session: %w", err)
		}
		if sourcesJSON != nil {
			_ = json.Unmarshal(sourcesJSON, &session.Sources)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// --- Code ---

func (s *PgStore) CreateCodeSession(ctx context.Context, session model.CodeSession) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO code_sessions (id, user_id, title, language, code, suggestions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		session.ID, session.UserID, session.Title, session.Language,
		session.Code, session.Suggestions, session.CreatedAt, session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert code session: %w", err)
	}
	return nil
}

func (s *PgStore) GetCodeSession(ctx context.Context, id string) (model.CodeSession, error) {
	var session model.CodeSession
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, title, language, code, suggestions, created_at, updated_at
		FROM code_sessions
		WHERE id = $1`,
		id,
	).Scan(
		&session.ID, &session.UserID, &session.Title, &session.Language,
		&session.Code, &session.Suggestions, &session.CreatedAt, &session.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return model.CodeSession{}, model.NewNotFoundError(fmt.Sprintf("code session %q not found", id))
	}
	if err != nil {
		return model.CodeSession{}, fmt.Errorf("query code session: %w", err)
	}
	return session, nil
}

func (s *PgStore) UpdateCodeSession(ctx context.Context, session model.CodeSession) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE code_sessions SET title = $1, language = $2, code = $3, suggestions = $4, updated_at = $5
		WHERE id = $6`,
		session.Title, session.Language, session.Code, session.Suggestions, time.Now().UTC(), session.ID,
	)
	if err != nil {
		return fmt.Errorf("update code session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.NewNotFoundError(fmt.Sprintf("code session %q not found", session.ID))
	}
	return nil
}

func (s *PgStore) ListCodeSessions(ctx context.Context, userID string) ([]model.CodeSession, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, title, language, code, suggestions, created_at, updated_at
		FROM code_sessions
		WHERE user_id = $1
		ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query code sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.CodeSession
	for rows.Next() {
		var session model.CodeSession
		if err := rows.Scan(
			&session.ID, &session.UserID, &session.Title, &session.Language,
			&session.Code, &session.Suggestions, &session.CreatedAt, &session.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan code session: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}
