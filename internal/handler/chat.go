// Package handler provides HTTP handlers for the API.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/capitalize-ai/support-chat/internal/middleware"
	"github.com/capitalize-ai/support-chat/internal/model"
	"github.com/capitalize-ai/support-chat/internal/service"
	"github.com/capitalize-ai/support-chat/pkg/logger"
)

// ChatHandler handles the inbound chat endpoint.
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

// Handle handles POST /api/v1/agents/{id}/chat
func (h *ChatHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)
	agentID := chi.URLParam(r, "id")

	if err := middleware.ValidateAgentID(agentID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateMessageContent(req.Message); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateVisitorID(req.VisitorID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ConversationID != "" {
		if err := middleware.ValidateConversationID(req.ConversationID); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	resp, err := h.chat.HandleMessage(ctx, tenantID, agentID, req.VisitorID, req.Message, req.ConversationID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
