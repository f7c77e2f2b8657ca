// Package handler provides HTTP handlers for the API.
package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/legal-ai/legal-assistant/internal/middleware"
	"github.com/legal-ai/legal-assistant/internal/model"
	"github.com/legal-ai/legal-assistant/internal/service"
	"github.com/legal-ai/legal-assistant/pkg/logger"
)

// ConversationHandler handles conversation endpoints.
type ConversationHandler struct {
	service *service.ConversationService
	logger  *logger.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(svc *service.ConversationService, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		service: svc,
		logger:  log,
	}
}

// Upsert handles POST /api/v1/conversations
func (h *ConversationHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req model.UpsertConversationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := middleware.ValidateTitle(req.Title); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ID != "" {
		if err := middleware.ValidateConversationID(req.ID); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	conv, err := h.service.Upsert(ctx, userID, &req)
	if err != nil {
		writeServiceError(w, middleware.RequestLogger(ctx, h.logger), err, "save conversation")
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

// List handles GET /api/v1/conversations
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resp, err := h.service.List(ctx, middleware.GetUserID(ctx))
	if err != nil {
		writeServiceError(w, middleware.RequestLogger(ctx, h.logger), err, "list conversations")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/v1/conversations/:id
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conversationID, ok := conversationParam(w, r)
	if !ok {
		return
	}

	conv, err := h.service.Get(ctx, middleware.GetUserID(ctx), conversationID)
	if err != nil {
		writeServiceError(w, middleware.RequestLogger(ctx, h.logger), err, "get conversation")
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

// Rename handles PATCH /api/v1/conversations/:id
func (h *ConversationHandler) Rename(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conversationID, ok := conversationParam(w, r)
	if !ok {
		return
	}

	var req model.UpdateConversationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := middleware.ValidateTitle(req.Title); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, err := h.service.Rename(ctx, middleware.GetUserID(ctx), conversationID, &req)
	if err != nil {
		writeServiceError(w, middleware.RequestLogger(ctx, h.logger), err, "rename conversation")
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

// Delete handles DELETE /api/v1/conversations/:id
func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conversationID, ok := conversationParam(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(ctx, middleware.GetUserID(ctx), conversationID); err != nil {
		writeServiceError(w, middleware.RequestLogger(ctx, h.logger), err, "delete conversation")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Export handles GET /api/v1/conversations/:id/export
func (h *ConversationHandler) Export(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conversationID, ok := conversationParam(w, r)
	if !ok {
		return
	}

	filename, text, err := h.service.Export(ctx, middleware.GetUserID(ctx), conversationID)
	if err != nil {
		writeServiceError(w, middleware.RequestLogger(ctx, h.logger), err, "export conversation")
		return
	}

	writeText(w, filename, text)
}

// ExportAll handles GET /api/v1/conversations/export
func (h *ConversationHandler) ExportAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	text, err := h.service.ExportAll(ctx, middleware.GetUserID(ctx))
	if err != nil {
		writeServiceError(w, middleware.RequestLogger(ctx, h.logger), err, "export conversations")
		return
	}

	writeText(w, "legal-ai-conversations.txt", text)
}

// Turns handles GET /api/v1/conversations/:id/turns
// Supports ?after_sequence=N&limit=M for paging.
func (h *ConversationHandler) Turns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conversationID, ok := conversationParam(w, r)
	if !ok {
		return
	}

	var afterSequence uint64
	if seqStr := r.URL.Query().Get("after_sequence"); seqStr != "" {
		seq, err := strconv.ParseUint(seqStr, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid after_sequence")
			return
		}
		afterSequence = seq
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	page, err := h.service.Turns(ctx, middleware.GetUserID(ctx), conversationID, afterSequence, limit)
	if err != nil {
		writeServiceError(w, middleware.RequestLogger(ctx, h.logger).With(zap.String("conversation_id", conversationID)), err, "list turns")
		return
	}

	writeJSON(w, http.StatusOK, page)
}

func conversationParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return id, true
}

func writeText(w http.ResponseWriter, filename, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(text))
}
