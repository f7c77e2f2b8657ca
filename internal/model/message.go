package model

import (
	"time"
)

// FileAttachment describes a file the user attached to a message. Only the
// metadata is carried; uploads are handled elsewhere.
type FileAttachment struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
	URL       string `json:"url,omitempty"`
}

// ChatMessage is one bubble in a conversation.
type ChatMessage struct {
	ID          string           `json:"id"`
	Content     string           `json:"content"`
	IsUser      bool             `json:"is_user"`
	Timestamp   time.Time        `json:"timestamp"`
	Attachments []FileAttachment `json:"attachments,omitempty"`
}

// SendMessageRequest is the request to run one chat turn.
type SendMessageRequest struct {
	ConversationID string           `json:"conversation_id,omitempty"`
	Content        string           `json:"content"`
	Persona        Persona          `json:"persona"`
	Language       Language         `json:"language"`
	Attachments    []FileAttachment `json:"attachments,omitempty"`
}

// TokenEvent represents a streaming token event.
type TokenEvent struct {
	Token string `json:"token"`
	Index int    `json:"index"`
}

// ConversationEvent tells the client which conversation the turn belongs to.
type ConversationEvent struct {
	ConversationID string `json:"conversation_id"`
	Title          string `json:"title"`
}

// MessageCompleteEvent represents a message completion event.
type MessageCompleteEvent struct {
	ConversationID string      `json:"conversation_id"`
	Message        ChatMessage `json:"message"`
	Status         TurnStatus  `json:"status"`
}

// ErrorEvent represents an error event.
type ErrorEvent struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after,omitempty"`
}
