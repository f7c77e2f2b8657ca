// Package model defines data structures for the legal assistant.
package model

import (
	"time"
)

// Persona selects how the assistant pitches its answers.
type Persona string

const (
	PersonaGeneralPublic Persona = "General Public"
	PersonaLawStudent    Persona = "Law Student"
	PersonaLawyer        Persona = "Lawyer"
)

// Valid reports whether p is one of the known personas.
func (p Persona) Valid() bool {
	switch p {
	case PersonaGeneralPublic, PersonaLawStudent, PersonaLawyer:
		return true
	}
	return false
}

// Language is a UI and answer language code.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageBengali Language = "bn"
)

// ParseLanguage maps a request value to a Language, defaulting to English.
func ParseLanguage(s string) Language {
	if Language(s) == LanguageBengali {
		return LanguageBengali
	}
	return LanguageEnglish
}

// GatewayName is the language name sent to the upstream gateway.
func (l Language) GatewayName() string {
	if l == LanguageBengali {
		return "Bengali"
	}
	return "English"
}

// Conversation represents a saved chat thread owned by one principal.
type Conversation struct {
	ID                    string        `json:"id"`
	UserID                string        `json:"user_id"`
	Title                 string        `json:"title"`
	Persona               Persona       `json:"persona"`
	Messages              []ChatMessage `json:"messages"`
	GatewayConversationID string        `json:"gateway_conversation_id,omitempty"`
	CreatedAt             time.Time     `json:"created_at"`
	LastUpdated           time.Time     `json:"last_updated"`
}

// UpsertConversationRequest creates or replaces a conversation.
type UpsertConversationRequest struct {
	ID                    string        `json:"id,omitempty"`
	Title                 string        `json:"title"`
	Persona               Persona       `json:"persona"`
	Messages              []ChatMessage `json:"messages"`
	GatewayConversationID string        `json:"gateway_conversation_id,omitempty"`
}

// UpdateConversationRequest is the request to rename a conversation.
type UpdateConversationRequest struct {
	Title string `json:"title"`
}

// ListConversationsResponse is the response for listing conversations.
type ListConversationsResponse struct {
	Conversations []Conversation `json:"conversations"`
	Total         int            `json:"total"`
}
