package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/legal-ai/legal-assistant/internal/middleware"
	"github.com/legal-ai/legal-assistant/internal/model"
	"github.com/legal-ai/legal-assistant/internal/service"
	"github.com/legal-ai/legal-assistant/pkg/logger"
	"github.com/legal-ai/legal-assistant/pkg/metrics"
)

// ChatHandler streams chat turns over SSE.
type ChatHandler struct {
	chat   *service.ChatService
	logger *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(chat *service.ChatService, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		chat:   chat,
		logger: log,
	}
}

// Send handles POST /api/v1/chat
// It streams conversation, token, message_complete and done events. A turn
// that fails before it could be saved ends with an error event instead.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	log := middleware.RequestLogger(ctx, h.logger)

	var req model.SendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := middleware.ValidateMessageContent(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Attachments) > middleware.MaxAttachments {
		writeError(w, http.StatusBadRequest, "too many attachments")
		return
	}
	if req.ConversationID != "" {
		if err := middleware.ValidateConversationID(req.ConversationID); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	// Headers are written on the first event so that validation failures
	// inside the service still map to plain HTTP errors.
	started := false
	start := func() {
		if started {
			return
		}
		started = true
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
	}

	res, err := h.chat.SendMessage(ctx, &service.TurnRequest{
		UserID:         userID,
		ConversationID: req.ConversationID,
		Content:        req.Content,
		Persona:        req.Persona,
		Language:       model.ParseLanguage(string(req.Language)),
		Attachments:    req.Attachments,
	}, service.TurnHooks{
		OnStart: func(conv *model.Conversation) error {
			start()
			return sendSSEEvent(w, flusher, "conversation", &model.ConversationEvent{
				ConversationID: conv.ID,
				Title:          conv.Title,
			})
		},
		OnDelta: func(token string, index int) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return sendSSEEvent(w, flusher, "token", &model.TokenEvent{
				Token: token,
				Index: index,
			})
		},
	})
	if err != nil {
		if !started {
			writeServiceError(w, log, err, "send message")
			return
		}
		log.Error("chat turn failed", zap.Error(err))
		sendSSEEvent(w, flusher, "error", &model.ErrorEvent{
			Code:    "stream_error",
			Message: "failed to save conversation",
		})
		return
	}

	if ctx.Err() != nil {
		log.Info("SSE client disconnected", zap.String("conversation_id", res.Conversation.ID))
		return
	}

	if res.Err != nil {
		sendSSEEvent(w, flusher, "error", &model.ErrorEvent{
			Code:    string(res.Status),
			Message: res.Err.Error(),
		})
	}

	sendSSEEvent(w, flusher, "message_complete", &model.MessageCompleteEvent{
		ConversationID: res.Conversation.ID,
		Message:        res.Message,
		Status:         res.Status,
	})

	sendSSEEvent(w, flusher, "done", map[string]bool{"success": res.Err == nil})
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return err
	}
	flusher.Flush()

	return nil
}
