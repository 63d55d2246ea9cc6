package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/upb/smart-city-assistant/services/policy"
	"github.com/upb/smart-city-assistant/utils"
	"go.uber.org/zap"
)

// multipartOverhead leaves room for part headers around the file
const multipartOverhead = 64 << 10

// PolicyService is the subset of policy.Service used by PolicyHandler
type PolicyService interface {
	Summarize(ctx context.Context, text, style string) (*policy.Summary, error)
	SummarizeFile(ctx context.Context, filename string, content []byte, style string) (*policy.Summary, error)
}

// SummarizeRequest is the body of POST /api/policy/summarize
type SummarizeRequest struct {
	Text        string `json:"text"`
	SummaryType string `json:"summary_type" validate:"omitempty,oneof=citizen-friendly technical executive"`
}

// PolicyHandler serves /api/policy
type PolicyHandler struct {
	service PolicyService
	logger  *zap.Logger
}

// NewPolicyHandler creates a new PolicyHandler
func NewPolicyHandler(service PolicyService, logger *zap.Logger) *PolicyHandler {
	return &PolicyHandler{
		service: service,
		logger:  logger,
	}
}

// HandleSummarize handles POST /api/policy/summarize
func (h *PolicyHandler) HandleSummarize(w http.ResponseWriter, r *http.Request) {
	var req SummarizeRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	summary, err := h.service.Summarize(r.Context(), req.Text, req.SummaryType)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, summary)
}

// HandleSummarizeFile handles POST /api/policy/summarize-file. The upload
// is the multipart field "file"; summary_type comes from the form or query.
func (h *PolicyHandler) HandleSummarizeFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, policy.MaxUploadBytes+multipartOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			_ = utils.WriteBadRequest(w, "File is too large", nil)
		case errors.Is(err, http.ErrMissingFile):
			_ = utils.WriteBadRequest(w, "file is required", map[string]string{"file": "file is required"})
		default:
			_ = utils.WriteBadRequest(w, "Invalid multipart form", nil)
		}
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, policy.MaxUploadBytes+1))
	if err != nil {
		h.logger.Warn("failed to read uploaded policy file", zap.Error(err))
		_ = utils.WriteBadRequest(w, "Could not read uploaded file", nil)
		return
	}

	style := r.FormValue("summary_type")
	summary, err := h.service.SummarizeFile(r.Context(), header.Filename, content, style)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("policy file summarized",
		zap.String("filename", header.Filename),
		zap.Int("size", len(content)))

	_ = utils.WriteOK(w, summary)
}

// HandleCategories handles GET /api/policy/categories
func (h *PolicyHandler) HandleCategories(w http.ResponseWriter, r *http.Request) {
	categories := policy.Categories()
	_ = utils.WriteOK(w, map[string]interface{}{
		"categories": categories,
		"count":      len(categories),
	})
}
