package middleware

import (
	"errors"
	"unicode/utf8"
)

const (
	// MaxContentBytes caps a chat message.
	MaxContentBytes = 100_000
	// MaxQueryBytes caps search and suggestion queries.
	MaxQueryBytes = 1_000
	// MaxAttachments caps files referenced by one message.
	MaxAttachments = 10
)

// ValidateMessageContent validates message content.
func ValidateMessageContent(content string) error {
	if len(content) > MaxContentBytes {
		return errors.New("content exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("content must be valid UTF-8")
	}
	return nil
}

// ValidateQuery validates a search or suggestion query.
func ValidateQuery(q string) error {
	if len(q) > MaxQueryBytes {
		return errors.New("query exceeds maximum length")
	}
	if !utf8.ValidString(q) {
		return errors.New("query must be valid UTF-8")
	}
	return nil
}

// ValidateConversationID validates a conversation ID.
func ValidateConversationID(id string) error {
	if id == "" {
		return errors.New("conversation ID cannot be empty")
	}
	if len(id) > 64 {
		return errors.New("conversation ID exceeds maximum length")
	}
	return nil
}

// ValidateTitle validates a conversation title.
func ValidateTitle(title string) error {
	if len(title) > 256 {
		return errors.New("title exceeds maximum length")
	}
	if !utf8.ValidString(title) {
		return errors.New("title must be valid UTF-8")
	}
	return nil
}
