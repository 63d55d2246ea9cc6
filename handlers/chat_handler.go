package handlers

import (
	"context"
	"net/http"

	"github.com/upb/smart-city-assistant/middleware"
	"github.com/upb/smart-city-assistant/models"
	"github.com/upb/smart-city-assistant/services/chat"
	"github.com/upb/smart-city-assistant/utils"
	"go.uber.org/zap"
)

// ChatService is the subset of chat.Service used by ChatHandler
type ChatService interface {
	Ask(ctx context.Context, subject *models.Subject, message string) (*chat.Exchange, error)
	History(ctx context.Context, subject *models.Subject) ([]*models.ChatMessage, error)
	Clear(ctx context.Context, subject *models.Subject) error
}

// AskRequest is the body of POST /api/chat/ask. Blank messages are rejected
// by the service.
type AskRequest struct {
	Message string `json:"message"`
}

// AskResponse is returned by POST /api/chat/ask
type AskResponse struct {
	Response string                `json:"response"`
	Status   string                `json:"status"`
	History  []*models.ChatMessage `json:"history"`
}

// HistoryResponse is returned by GET /api/chat/history
type HistoryResponse struct {
	History []*models.ChatMessage `json:"history"`
	Count   int                   `json:"count"`
	Status  string                `json:"status"`
}

// ChatHandler serves /api/chat
type ChatHandler struct {
	service ChatService
	logger  *zap.Logger
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(service ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		service: service,
		logger:  logger,
	}
}

// HandleAsk handles POST /api/chat/ask
func (h *ChatHandler) HandleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := utils.DecodeJSON(w, r, &req, utils.DefaultMaxBodyBytes); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	exchange, err := h.service.Ask(r.Context(), middleware.GetSubjectFromContext(r.Context()), req.Message)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, AskResponse{
		Response: exchange.Response,
		Status:   "success",
		History:  nonNil(exchange.History),
	})
}

// HandleHistory handles GET /api/chat/history
func (h *ChatHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.service.History(r.Context(), middleware.GetSubjectFromContext(r.Context()))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, HistoryResponse{
		History: nonNil(history),
		Count:   len(history),
		Status:  "success",
	})
}

// HandleClear handles DELETE /api/chat/history
func (h *ChatHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Clear(r.Context(), middleware.GetSubjectFromContext(r.Context())); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	utils.WriteNoContent(w)
}
