package handlers

import (
	"context"
	"net/http"

	"github.com/upb/smart-city-assistant/services/ecotips"
	"github.com/upb/smart-city-assistant/utils"
	"go.uber.org/zap"
)

// EcoTipsService is the subset of ecotips.Service used by EcoTipsHandler
type EcoTipsService interface {
	Generate(ctx context.Context, topic string) (*ecotips.Tips, error)
}

// EcoTipsHandler serves /api/eco-tips
type EcoTipsHandler struct {
	service EcoTipsService
	logger  *zap.Logger
}

// NewEcoTipsHandler creates a new EcoTipsHandler
func NewEcoTipsHandler(service EcoTipsService, logger *zap.Logger) *EcoTipsHandler {
	return &EcoTipsHandler{service: service, logger: logger}
}

// HandleGenerate handles GET /api/eco-tips/generate?topic=
func (h *EcoTipsHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if !query.Has("topic") {
		_ = utils.WriteBadRequest(w, "topic is required", map[string]string{"topic": "topic is required"})
		return
	}

	tips, err := h.service.Generate(r.Context(), query.Get("topic"))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, tips)
}

// HandlePopularTopics handles GET /api/eco-tips/popular-topics
func (h *EcoTipsHandler) HandlePopularTopics(w http.ResponseWriter, r *http.Request) {
	topics := ecotips.PopularTopics()
	_ = utils.WriteOK(w, map[string]interface{}{
		"topics": topics,
		"count":  len(topics),
	})
}
