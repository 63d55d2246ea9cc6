package llm

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes reported by the gateway
const (
	CodeNoCredential      = "NO_CREDENTIAL"
	CodeHTTPError         = "HTTP_ERROR"
	CodeModelNotSupported = "MODEL_NOT_SUPPORTED"
	CodeBadResponse       = "BAD_RESPONSE"
)

// modelNotSupportedMarker is the provider's error code for an unknown or retired model
const modelNotSupportedMarker = "model_not_supported"

// ProviderError represents a failed call to the remote service
type ProviderError struct {
	Code       string
	Message    string
	StatusCode int
	Cause      error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	msg := e.Message
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap implements error unwrapping
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

func newProviderError(code, message string, statusCode int, cause error) *ProviderError {
	return &ProviderError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Cause:      cause,
	}
}

// classifyHTTPError maps a non-2xx response to a ProviderError. Only a 404
// whose body names model_not_supported is treated as a model rejection.
func classifyHTTPError(statusCode int, body []byte) *ProviderError {
	text := strings.TrimSpace(string(body))
	if len(text) > 512 {
		text = text[:512]
	}
	if statusCode == 404 && strings.Contains(string(body), modelNotSupportedMarker) {
		return newProviderError(CodeModelNotSupported, "model not supported", statusCode, errors.New(text))
	}
	return newProviderError(CodeHTTPError, "generation request rejected", statusCode, errors.New(text))
}

// IsModelNotSupported reports whether err is a model rejection
func IsModelNotSupported(err error) bool {
	var provErr *ProviderError
	return errors.As(err, &provErr) && provErr.Code == CodeModelNotSupported
}
