package handlers

import (
	"errors"
	"net/http"

	"github.com/upb/smart-city-assistant/services"
	"github.com/upb/smart-city-assistant/utils"
	"go.uber.org/zap"
)

// HandleServiceError maps domain errors to HTTP responses. Only the
// client-facing message is written; wrapped causes are logged.
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	detail := services.PublicMessage(err)
	var writeErr error

	switch {
	case services.IsNotFoundError(err):
		writeErr = utils.WriteNotFound(w, detail)

	case services.IsValidationError(err):
		writeErr = utils.WriteBadRequest(w, detail, nil)

	case services.IsUnauthenticatedError(err):
		writeErr = utils.WriteUnauthorized(w, detail)

	case services.IsForbiddenError(err):
		writeErr = utils.WriteForbidden(w, detail)

	case services.IsConflictError(err):
		writeErr = utils.WriteConflict(w, detail)

	case services.IsRateLimitError(err):
		writeErr = utils.WriteTooManyRequests(w, detail)

	case services.IsRemoteUnavailableError(err), services.IsModelUnsupportedError(err):
		logger.Warn("remote service failure", zap.Error(err))
		writeErr = utils.WriteBadGateway(w, detail)

	case services.IsInternalError(err):
		logger.Error("internal server error", zap.Error(err))
		writeErr = utils.WriteInternalServerError(w, "")

	default:
		logger.Error("unhandled error type",
			zap.Error(err),
			zap.String("error_type", string(services.GetErrorType(err))))
		writeErr = utils.WriteInternalServerError(w, "")
	}

	if writeErr != nil {
		logger.Error("failed to write error response", zap.Error(writeErr))
	}
}

// HandleValidationError handles request decoding and validation errors
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var writeErr error
	switch {
	case utils.IsValidationError(err):
		writeErr = utils.WriteBadRequest(w, "Validation failed", utils.GetValidationFields(err))
	case errors.Is(err, utils.ErrInvalidBody):
		writeErr = utils.WriteBadRequest(w, "Invalid request body", nil)
	default:
		writeErr = utils.WriteBadRequest(w, err.Error(), nil)
	}

	if writeErr != nil {
		logger.Error("failed to write validation error response", zap.Error(writeErr))
	}
}

// decodeAndValidate reads a JSON body into dst and validates it
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if err := utils.DecodeJSON(w, r, dst, utils.DefaultMaxBodyBytes); err != nil {
		return err
	}
	return utils.ValidateStruct(dst)
}
