// Package storage provides the conversation repositories and the local
// key-value store used for search analytics.
package storage

import (
	"context"
	"errors"

	"github.com/legal-ai/legal-assistant/internal/model"
)

// ErrNotFound is returned when a conversation does not exist for the
// requesting principal.
var ErrNotFound = errors.New("conversation not found")

// ConversationStore persists conversations scoped to a user.
type ConversationStore interface {
	// List returns the user's conversations, most recently updated first.
	List(ctx context.Context, userID string) ([]model.Conversation, error)
	Get(ctx context.Context, userID, id string) (*model.Conversation, error)
	// Upsert creates or replaces conv and returns the stored row.
	Upsert(ctx context.Context, conv *model.Conversation) (*model.Conversation, error)
	Rename(ctx context.Context, userID, id, title string) (*model.Conversation, error)
	Delete(ctx context.Context, userID, id string) error
	Close() error
}
