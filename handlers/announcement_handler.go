package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/upb/smart-city-assistant/middleware"
	"github.com/upb/smart-city-assistant/models"
	"github.com/upb/smart-city-assistant/services/announcements"
	"github.com/upb/smart-city-assistant/utils"
	"go.uber.org/zap"
)

// AnnouncementService is the subset of announcements.Service used by AnnouncementHandler
type AnnouncementService interface {
	List(ctx context.Context) ([]*models.Announcement, error)
	Create(ctx context.Context, authority *models.Subject, in announcements.Draft) (*models.Announcement, error)
	Delete(ctx context.Context, authority *models.Subject, id int64) error
}

// CreateAnnouncementRequest is the body of POST /api/announcements
type CreateAnnouncementRequest struct {
	Title    string  `json:"title" validate:"required,notblank,max=255"`
	Content  string  `json:"content" validate:"required,notblank"`
	Audience *string `json:"audience" validate:"omitempty,max=100"`
}

// AnnouncementHandler serves /api/announcements
type AnnouncementHandler struct {
	service AnnouncementService
	logger  *zap.Logger
}

// NewAnnouncementHandler creates a new AnnouncementHandler
func NewAnnouncementHandler(service AnnouncementService, logger *zap.Logger) *AnnouncementHandler {
	return &AnnouncementHandler{
		service: service,
		logger:  logger,
	}
}

// HandleList handles GET /api/announcements
func (h *AnnouncementHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, nonNil(items))
}

// HandleCreate handles POST /api/announcements
func (h *AnnouncementHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateAnnouncementRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	item, err := h.service.Create(r.Context(), middleware.GetSubjectFromContext(r.Context()), announcements.Draft{
		Title:    req.Title,
		Content:  req.Content,
		Audience: req.Audience,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteCreated(w, item)
}

// HandleDelete handles DELETE /api/announcements/{id}
func (h *AnnouncementHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid announcement id", nil)
		return
	}

	if err := h.service.Delete(r.Context(), middleware.GetSubjectFromContext(r.Context()), id); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	utils.WriteNoContent(w)
}
