package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/upb/smart-city-assistant/middleware"
	"github.com/upb/smart-city-assistant/models"
	"github.com/upb/smart-city-assistant/services/feedback"
	"github.com/upb/smart-city-assistant/utils"
	"go.uber.org/zap"
)

// FeedbackService is the subset of feedback.Service used by FeedbackHandler
type FeedbackService interface {
	Submit(ctx context.Context, citizen *models.Subject, in feedback.Submission) (*models.Feedback, error)
	ListMine(ctx context.Context, citizen *models.Subject) ([]*models.Feedback, error)
	ListForAuthority(ctx context.Context, authority *models.Subject, status *models.FeedbackStatus) ([]*models.Feedback, error)
	UpdateStatus(ctx context.Context, authority *models.Subject, id int64, in feedback.StatusUpdate) (*models.Feedback, error)
	Stats(ctx context.Context) (*models.FeedbackStats, error)
}

// SubmitFeedbackRequest is the body of POST /api/feedback/submit
type SubmitFeedbackRequest struct {
	Category      string  `json:"category" validate:"required,notblank,max=100"`
	Message       string  `json:"message" validate:"required,notblank"`
	AuthorityType *string `json:"authority_type" validate:"omitempty,max=255"`
	Priority      *string `json:"priority" validate:"omitempty,max=50"`
	Location      *string `json:"location" validate:"omitempty,max=255"`
}

// UpdateFeedbackRequest is the body of PATCH /api/feedback/{id}
type UpdateFeedbackRequest struct {
	Status         string  `json:"status" validate:"required,oneof=REPORTED IN_PROCESS SOLVED"`
	AuthorityNotes *string `json:"authority_notes"`
}

// FeedbackHandler serves /api/feedback
type FeedbackHandler struct {
	service FeedbackService
	logger  *zap.Logger
}

// NewFeedbackHandler creates a new FeedbackHandler
func NewFeedbackHandler(service FeedbackService, logger *zap.Logger) *FeedbackHandler {
	return &FeedbackHandler{
		service: service,
		logger:  logger,
	}
}

// HandleSubmit handles POST /api/feedback/submit
func (h *FeedbackHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	subject := middleware.GetSubjectFromContext(r.Context())

	var req SubmitFeedbackRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	entry, err := h.service.Submit(r.Context(), subject, feedback.Submission{
		Category:      req.Category,
		Message:       req.Message,
		AuthorityType: req.AuthorityType,
		Priority:      req.Priority,
		Location:      req.Location,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteCreated(w, entry)
}

// HandleListMine handles GET /api/feedback/my
func (h *FeedbackHandler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.ListMine(r.Context(), middleware.GetSubjectFromContext(r.Context()))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, nonNil(entries))
}

// HandleManage handles GET /api/feedback/manage?status_filter=
func (h *FeedbackHandler) HandleManage(w http.ResponseWriter, r *http.Request) {
	var status *models.FeedbackStatus
	if raw := strings.TrimSpace(r.URL.Query().Get("status_filter")); raw != "" {
		parsed, ok := models.ParseFeedbackStatus(raw)
		if !ok {
			_ = utils.WriteBadRequest(w, "status_filter must be one of: REPORTED, IN_PROCESS, SOLVED", nil)
			return
		}
		status = &parsed
	}

	entries, err := h.service.ListForAuthority(r.Context(), middleware.GetSubjectFromContext(r.Context()), status)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, nonNil(entries))
}

// HandleUpdateStatus handles PATCH /api/feedback/{id}
func (h *FeedbackHandler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid feedback id", nil)
		return
	}

	var req UpdateFeedbackRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	entry, err := h.service.UpdateStatus(r.Context(), middleware.GetSubjectFromContext(r.Context()), id, feedback.StatusUpdate{
		Status:         models.FeedbackStatus(req.Status),
		AuthorityNotes: req.AuthorityNotes,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, entry)
}

// HandleStats handles GET /api/feedback/stats
func (h *FeedbackHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, stats)
}

// nonNil keeps empty lists encoding as [] instead of null
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
