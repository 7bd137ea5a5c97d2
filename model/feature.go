package model

import "time"

// Chat message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Generation status constants shared by the image, speech, and video
// features. "processing" is only used by video generation.
const (
	GenerationStatusPending    = "pending"
	GenerationStatusProcessing = "processing"
	GenerationStatusCompleted  = "completed"
	GenerationStatusFailed     = "failed"
)

// ChatConversation is a user-owned chat session.
type ChatConversation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title,omitempty"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChatMessage is one message within a conversation.
type ChatMessage struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// ImageGeneration records one image synthesis request and its result.
type ImageGeneration struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Prompt    string    `json:"prompt"`
	Model     string    `json:"model"`
	ImageURL  string    `json:"image_url,omitempty"`
	ImageKey  string    `json:"image_key,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// ArenaSession records one multi-model comparison: the same prompt sent to
// each model, with per-model responses. A model's entry may hold an error
// marker instead of a response; individual failures do not abort the
// comparison.
type ArenaSession struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Prompt    string            `json:"prompt"`
	Models    []string          `json:"models"`
	Responses map[string]string `json:"responses,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// SpeechGeneration records one text-to-speech request and its result.
type SpeechGeneration struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	Voice     string    `json:"voice"`
	AudioURL  string    `json:"audio_url,omitempty"`
	AudioKey  string    `json:"audio_key,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// VideoGeneration records one video synthesis request and its result.
type VideoGeneration struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Prompt    string    `json:"prompt"`
	Model     string    `json:"model"`
	VideoURL  string    `json:"video_url,omitempty"`
	VideoKey  string    `json:"video_key,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Source is a cited reference in research findings.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// ResearchSession records one research query and its findings.
type ResearchSession struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Query     string    `json:"query"`
	Findings  string    `json:"findings,omitempty"`
	Sources   []Source  `json:"sources,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// CodeSession is a user-owned code assistance session. Code and suggestions
// are updated on each review request.
type CodeSession struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title,omitempty"`
	Language    string    `json:"language"`
	Code        string    `json:"code,omitempty"`
	Suggestions string    `json:"suggestions,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
