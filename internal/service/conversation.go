// Package service provides business logic for the legal assistant.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/legal-ai/legal-assistant/internal/model"
	"github.com/legal-ai/legal-assistant/internal/storage"
	"github.com/legal-ai/legal-assistant/pkg/logger"
	"github.com/legal-ai/legal-assistant/pkg/metrics"
)

const (
	// DefaultTitle names a conversation with no messages yet.
	DefaultTitle = "New Chat"

	maxTitleBytes = 256
	titleRunes    = 50
)

// ErrTurnLogDisabled is returned by Turns when no turn log is configured.
var ErrTurnLogDisabled = errors.New("turn log disabled")

// TurnLog reads and drops the recorded turns of a conversation.
type TurnLog interface {
	ListTurns(ctx context.Context, userID, conversationID string, afterSequence uint64, limit int) ([]model.TurnEvent, uint64, bool, error)
	PurgeTurns(ctx context.Context, userID, conversationID string) error
}

// TurnsPage is one page of a conversation's turn log.
type TurnsPage struct {
	Turns        []model.TurnEvent `json:"turns"`
	LastSequence uint64            `json:"last_sequence"`
	HasMore      bool              `json:"has_more"`
}

// ConversationService handles conversation operations.
type ConversationService struct {
	store  storage.ConversationStore
	turns  TurnLog
	logger *logger.Logger
	now    func() time.Time
}

// NewConversationService creates a new conversation service.
func NewConversationService(store storage.ConversationStore, log *logger.Logger) *ConversationService {
	return &ConversationService{
		store:  store,
		logger: log.Named("conversations"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetTurnLog attaches the turn log used by Turns and Delete.
func (s *ConversationService) SetTurnLog(turns TurnLog) {
	s.turns = turns
}

// List returns the user's conversations, newest first.
func (s *ConversationService) List(ctx context.Context, userID string) (*model.ListConversationsResponse, error) {
	convs, err := s.store.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return &model.ListConversationsResponse{
		Conversations: convs,
		Total:         len(convs),
	}, nil
}

// Get retrieves a conversation by ID.
func (s *ConversationService) Get(ctx context.Context, userID, conversationID string) (*model.Conversation, error) {
	return s.store.Get(ctx, userID, conversationID)
}

// Upsert creates a conversation, or replaces one the user already owns,
// and returns the stored row.
func (s *ConversationService) Upsert(ctx context.Context, userID string, req *model.UpsertConversationRequest) (*model.Conversation, error) {
	persona, err := parsePersona(req.Persona)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if len(title) > maxTitleBytes {
		return nil, fmt.Errorf("%w: title exceeds %d bytes", ErrInvalidInput, maxTitleBytes)
	}

	now := s.now()
	id := req.ID
	if id == "" {
		id = uuid.Must(uuid.NewV7()).String()
	}

	messages := make([]model.ChatMessage, len(req.Messages))
	for i, m := range req.Messages {
		if m.ID == "" {
			m.ID = uuid.Must(uuid.NewV7()).String()
		}
		if m.Timestamp.IsZero() {
			m.Timestamp = now
		}
		messages[i] = m
	}

	if title == "" {
		title = DefaultTitle
		if len(messages) > 0 {
			title = GenerateTitle(messages[0].Content)
		}
	}

	return s.Save(ctx, &model.Conversation{
		ID:                    id,
		UserID:                userID,
		Title:                 title,
		Persona:               persona,
		Messages:              messages,
		GatewayConversationID: req.GatewayConversationID,
		CreatedAt:             now,
		LastUpdated:           now,
	})
}

// Save writes conv as is.
func (s *ConversationService) Save(ctx context.Context, conv *model.Conversation) (*model.Conversation, error) {
	saved, err := s.store.Upsert(ctx, conv)
	if err != nil {
		return nil, err
	}
	metrics.ConversationsSaved.Inc()

	s.logger.Debug("conversation saved",
		zap.String("conversation_id", saved.ID),
		zap.String("user_id", saved.UserID),
		zap.Int("messages", len(saved.Messages)),
	)
	return saved, nil
}

// Rename changes a conversation title.
func (s *ConversationService) Rename(ctx context.Context, userID, conversationID string, req *model.UpdateConversationRequest) (*model.Conversation, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if len(title) > maxTitleBytes {
		return nil, fmt.Errorf("%w: title exceeds %d bytes", ErrInvalidInput, maxTitleBytes)
	}
	return s.store.Rename(ctx, userID, conversationID, title)
}

// Delete removes a conversation.
func (s *ConversationService) Delete(ctx context.Context, userID, conversationID string) error {
	if err := s.store.Delete(ctx, userID, conversationID); err != nil {
		return err
	}
	if s.turns != nil {
		if err := s.turns.PurgeTurns(ctx, userID, conversationID); err != nil {
			s.logger.Warn("failed to purge turns",
				zap.String("conversation_id", conversationID),
				zap.Error(err),
			)
		}
	}
	s.logger.Info("conversation deleted",
		zap.String("conversation_id", conversationID),
		zap.String("user_id", userID),
	)
	return nil
}

// Turns pages through the recorded turns of a conversation the user owns.
func (s *ConversationService) Turns(ctx context.Context, userID, conversationID string, afterSequence uint64, limit int) (*TurnsPage, error) {
	if s.turns == nil {
		return nil, ErrTurnLogDisabled
	}
	if _, err := s.store.Get(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	turns, last, more, err := s.turns.ListTurns(ctx, userID, conversationID, afterSequence, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list turns: %w", err)
	}
	return &TurnsPage{Turns: turns, LastSequence: last, HasMore: more}, nil
}

// GenerateTitle derives a title from the first message: its first 50
// characters, with an ellipsis when cut.
func GenerateTitle(firstMessage string) string {
	text := strings.TrimSpace(firstMessage)
	if text == "" {
		return DefaultTitle
	}
	if utf8.RuneCountInString(text) <= titleRunes {
		return text
	}
	return string([]rune(text)[:titleRunes]) + "..."
}

func parsePersona(p model.Persona) (model.Persona, error) {
	if p == "" {
		return model.PersonaGeneralPublic, nil
	}
	if !p.Valid() {
		return "", fmt.Errorf("%w: unknown persona %q", ErrInvalidInput, p)
	}
	return p, nil
}
