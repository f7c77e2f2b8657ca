package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/legal-ai/legal-assistant/internal/model"
)

const (
	// StreamName is the name of the chat turn stream.
	StreamName = "LEGALAI_TURNS"

	// SubjectPrefix is the prefix for all turn subjects.
	SubjectPrefix = "legalai.turns"

	// MaxFetch caps one ListTurns page.
	MaxFetch = 100
)

// StreamManager handles JetStream stream operations.
type StreamManager struct {
	client *Client
}

// NewStreamManager creates a new stream manager.
func NewStreamManager(client *Client) *StreamManager {
	return &StreamManager{client: client}
}

// EnsureStream ensures the turn stream exists with proper configuration.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	js := m.client.JetStream()

	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, jetstream.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream: %w", err)
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      90 * 24 * time.Hour,
		MaxBytes:    10 * 1024 * 1024 * 1024, // 10GB
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Duplicates:  2 * time.Minute,
		Description: "Finished chat turns",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// TurnSubject returns the subject a turn is published on.
func TurnSubject(userID, conversationID string, status model.TurnStatus) string {
	return fmt.Sprintf("%s.%s.%s.%s", SubjectPrefix, token(userID), token(conversationID), token(string(status)))
}

// ConversationFilter returns the filter subject for all turns of a conversation.
func ConversationFilter(userID, conversationID string) string {
	return fmt.Sprintf("%s.%s.%s.*", SubjectPrefix, token(userID), token(conversationID))
}

// token makes s usable as a single subject token.
func token(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, s)
}

// PublishTurn publishes a finished turn. The event ID doubles as the
// JetStream message ID so retries are deduplicated.
func (m *StreamManager) PublishTurn(ctx context.Context, event *model.TurnEvent) (uint64, error) {
	subject := TurnSubject(event.UserID, event.ConversationID, event.Status)

	data, err := json.Marshal(event)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal turn: %w", err)
	}

	ack, err := m.client.JetStream().Publish(ctx, subject, data, jetstream.WithMsgID(event.ID))
	if err != nil {
		return 0, fmt.Errorf("failed to publish turn: %w", err)
	}

	return ack.Sequence, nil
}

// ListTurns retrieves turns of a conversation starting after a sequence.
// It returns the turns, the last sequence read and whether more may follow.
func (m *StreamManager) ListTurns(ctx context.Context, userID, conversationID string, afterSequence uint64, limit int) ([]model.TurnEvent, uint64, bool, error) {
	if limit <= 0 || limit > MaxFetch {
		limit = MaxFetch
	}

	consumerConfig := jetstream.ConsumerConfig{
		FilterSubject:     ConversationFilter(userID, conversationID),
		AckPolicy:         jetstream.AckNonePolicy,
		DeliverPolicy:     jetstream.DeliverAllPolicy,
		InactiveThreshold: 30 * time.Second,
	}
	if afterSequence > 0 {
		consumerConfig.DeliverPolicy = jetstream.DeliverByStartSequencePolicy
		consumerConfig.OptStartSeq = afterSequence + 1
	}

	consumer, err := m.client.JetStream().CreateConsumer(ctx, StreamName, consumerConfig)
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to create consumer: %w", err)
	}

	batch, err := consumer.Fetch(limit, jetstream.FetchMaxWait(2*time.Second))
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to fetch turns: %w", err)
	}

	turns := make([]model.TurnEvent, 0, limit)
	lastSequence := afterSequence
	for msg := range batch.Messages() {
		meta, err := msg.Metadata()
		if err == nil {
			lastSequence = meta.Sequence.Stream
		}

		var turn model.TurnEvent
		if err := json.Unmarshal(msg.Data(), &turn); err != nil {
			continue
		}
		turn.Sequence = lastSequence
		turns = append(turns, turn)
	}

	if err := batch.Error(); err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, nats.ErrTimeout) {
		return nil, 0, false, fmt.Errorf("batch error: %w", err)
	}

	return turns, lastSequence, len(turns) == limit, nil
}

// PurgeTurns drops every turn of a conversation.
func (m *StreamManager) PurgeTurns(ctx context.Context, userID, conversationID string) error {
	s, err := m.client.JetStream().Stream(ctx, StreamName)
	if err != nil {
		return fmt.Errorf("failed to look up stream: %w", err)
	}
	if err := s.Purge(ctx, jetstream.WithPurgeSubject(ConversationFilter(userID, conversationID))); err != nil {
		return fmt.Errorf("failed to purge turns: %w", err)
	}
	return nil
}
