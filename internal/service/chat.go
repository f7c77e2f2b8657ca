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

	"github.com/legal-ai/legal-assistant/internal/llm"
	"github.com/legal-ai/legal-assistant/internal/model"
	"github.com/legal-ai/legal-assistant/internal/stream"
	"github.com/legal-ai/legal-assistant/pkg/logger"
	"github.com/legal-ai/legal-assistant/pkg/metrics"
)

const publishTimeout = 5 * time.Second

// EventPublisher records finished turns. It is optional.
type EventPublisher interface {
	PublishTurn(ctx context.Context, event *model.TurnEvent) (uint64, error)
}

// TurnRequest is one user message to answer.
type TurnRequest struct {
	UserID string
	// ConversationID is the local conversation; empty starts a new one.
	ConversationID string
	Content        string
	Persona        model.Persona
	Language       model.Language
	Attachments    []model.FileAttachment
}

// TurnHooks observe a turn while it runs. Both are optional; an error from
// either stops the turn.
type TurnHooks struct {
	// OnStart is called once the conversation is known, before the
	// upstream request.
	OnStart func(conv *model.Conversation) error
	// OnDelta is called for every growth of the answer.
	OnDelta func(delta string, index int) error
}

// TurnResult is the outcome of a turn after it was saved.
type TurnResult struct {
	Conversation *model.Conversation
	Message      model.ChatMessage
	Status       model.TurnStatus
	// Err is the upstream failure behind an unavailable or interrupted turn.
	Err error
}

// ChatService runs chat turns against the upstream provider.
type ChatService struct {
	convs    *ConversationService
	streamer llm.Streamer
	events   EventPublisher
	logger   *logger.Logger
	now      func() time.Time
}

// NewChatService creates a new chat service. events may be nil.
func NewChatService(convs *ConversationService, streamer llm.Streamer, events EventPublisher, log *logger.Logger) *ChatService {
	return &ChatService{
		convs:    convs,
		streamer: streamer,
		events:   events,
		logger:   log.Named("chat"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SendMessage appends the user message, streams the answer and saves the
// conversation once the answer is final. Upstream failures end up in the
// assistant message rather than the returned error; the error is reserved
// for invalid input, unknown conversations and storage failures.
func (s *ChatService) SendMessage(ctx context.Context, req *TurnRequest, hooks TurnHooks) (*TurnResult, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" && len(req.Attachments) == 0 {
		return nil, fmt.Errorf("%w: message content is required", ErrInvalidInput)
	}
	persona, err := parsePersona(req.Persona)
	if err != nil {
		return nil, err
	}
	lang := req.Language
	if lang == "" {
		lang = model.LanguageEnglish
	}

	conv, err := s.loadOrCreate(ctx, req, persona, content)
	if err != nil {
		return nil, err
	}

	now := s.now()
	history := conv.Messages
	conv.Messages = append(conv.Messages, model.ChatMessage{
		ID:          uuid.Must(uuid.NewV7()).String(),
		Content:     content,
		IsUser:      true,
		Timestamp:   now,
		Attachments: req.Attachments,
	})
	conv.LastUpdated = now
	metrics.MessagesTotal.WithLabelValues("user").Inc()

	if hooks.OnStart != nil {
		if err := hooks.OnStart(conv); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	answer, status, res, turnErr := s.stream(ctx, history, &llm.StreamRequest{
		Query:          BuildQuery(content, req.Attachments),
		User:           req.UserID,
		ConversationID: conv.GatewayConversationID,
		Persona:        persona,
		Language:       lang,
	}, hooks.OnDelta)
	elapsed := time.Since(start)

	if res.ConversationID != "" {
		conv.GatewayConversationID = res.ConversationID
	}

	reply := model.ChatMessage{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Content:   answer,
		IsUser:    false,
		Timestamp: s.now(),
	}
	conv.Messages = append(conv.Messages, reply)
	conv.LastUpdated = reply.Timestamp
	metrics.MessagesTotal.WithLabelValues("assistant").Inc()

	// The answer is final; a client that went away must not lose it.
	saveCtx := context.WithoutCancel(ctx)
	saved, err := s.convs.Save(saveCtx, conv)
	if err != nil {
		return nil, fmt.Errorf("failed to save conversation: %w", err)
	}

	chars := utf8.RuneCountInString(res.Text)
	metrics.RecordStream(s.streamer.Name(), string(status), elapsed.Seconds(), chars)

	s.publish(saveCtx, &model.TurnEvent{
		ID:                    uuid.Must(uuid.NewV7()).String(),
		ConversationID:        saved.ID,
		UserID:                saved.UserID,
		GatewayConversationID: saved.GatewayConversationID,
		Provider:              s.streamer.Name(),
		Status:                status,
		Chars:                 chars,
		SkippedFrames:         res.Skipped,
		LatencyMs:             elapsed.Milliseconds(),
		Reason:                errString(turnErr),
		CreatedAt:             reply.Timestamp,
	})

	log := s.logger.With(
		zap.String("conversation_id", saved.ID),
		zap.String("user_id", saved.UserID),
		zap.String("status", string(status)),
		zap.Int("chars", chars),
		zap.Duration("latency", elapsed),
	)
	if turnErr != nil {
		log.Warn("chat turn did not complete", zap.Error(turnErr))
	} else {
		log.Info("chat turn completed")
	}

	return &TurnResult{
		Conversation: saved,
		Message:      reply,
		Status:       status,
		Err:          turnErr,
	}, nil
}

// stream runs the upstream request and decides the assistant message.
func (s *ChatService) stream(ctx context.Context, history []model.ChatMessage, sr *llm.StreamRequest, onDelta func(string, int) error) (string, model.TurnStatus, stream.Result, error) {
	sr.History = history

	asm, err := s.streamer.Stream(ctx, sr)
	if err != nil {
		msg := err.Error()
		var ue *stream.UnavailableError
		if errors.As(err, &ue) {
			msg = ue.Message
		}
		return ErrorReply(sr.Language, msg), model.TurnUnavailable, stream.Result{}, err
	}
	defer asm.Close()

	index := 0
	res, err := asm.Run(ctx, func(u stream.Update) error {
		if onDelta == nil {
			return nil
		}
		i := index
		index++
		return onDelta(u.Delta, i)
	})
	if err != nil {
		if strings.TrimSpace(res.Text) != "" {
			return res.Text, model.TurnInterrupted, res, err
		}
		return ErrorReply(sr.Language, interruptReason(err)), model.TurnInterrupted, res, err
	}
	if res.Empty {
		return EmptyReply(sr.Language), model.TurnEmpty, res, nil
	}
	return res.Text, model.TurnCompleted, res, nil
}

func (s *ChatService) loadOrCreate(ctx context.Context, req *TurnRequest, persona model.Persona, content string) (*model.Conversation, error) {
	if req.ConversationID != "" {
		conv, err := s.convs.Get(ctx, req.UserID, req.ConversationID)
		if err != nil {
			return nil, err
		}
		if req.Persona != "" {
			conv.Persona = persona
		}
		return conv, nil
	}

	now := s.now()
	title := content
	if title == "" && len(req.Attachments) > 0 {
		title = req.Attachments[0].Name
	}
	return &model.Conversation{
		ID:          uuid.Must(uuid.NewV7()).String(),
		UserID:      req.UserID,
		Title:       GenerateTitle(title),
		Persona:     persona,
		Messages:    []model.ChatMessage{},
		CreatedAt:   now,
		LastUpdated: now,
	}, nil
}

func (s *ChatService) publish(ctx context.Context, event *model.TurnEvent) {
	if s.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if _, err := s.events.PublishTurn(ctx, event); err != nil {
		s.logger.Warn("failed to publish turn event",
			zap.String("conversation_id", event.ConversationID),
			zap.Error(err),
		)
	}
}

// BuildQuery appends attachment descriptions to the user's text.
func BuildQuery(content string, files []model.FileAttachment) string {
	if len(files) == 0 {
		return content
	}
	parts := make([]string, len(files))
	for i, f := range files {
		parts[i] = fmt.Sprintf("[File: %s (%s)]", f.Name, f.MimeType)
	}
	return content + " " + strings.Join(parts, " ")
}

// ErrorReply is the assistant message shown when the upstream failed.
func ErrorReply(lang model.Language, reason string) string {
	if lang == model.LanguageBengali {
		return "দুঃখিত, এআই-এর সাথে সংযোগ করতে সমস্যা হয়েছে: " + reason
	}
	return "Sorry, there was an error connecting to the AI: " + reason
}

// EmptyReply is the assistant message shown for a blank answer.
func EmptyReply(lang model.Language) string {
	if lang == model.LanguageBengali {
		return "আমি একটি খালি উত্তর পেয়েছি। অনুগ্রহ করে আবার চেষ্টা করুন।"
	}
	return "I received an empty response. Please try again."
}

func interruptReason(err error) string {
	var ie *stream.InterruptedError
	if errors.As(err, &ie) && ie.Err != nil {
		return ie.Err.Error()
	}
	return err.Error()
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
