package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeNotFound          ErrorType = "not_found"
	ErrorTypeValidation        ErrorType = "validation"
	ErrorTypeUnauthenticated   ErrorType = "unauthenticated"
	ErrorTypeForbidden         ErrorType = "forbidden"
	ErrorTypeConflict          ErrorType = "conflict"
	ErrorTypeRateLimit         ErrorType = "rate_limit"
	ErrorTypeRemoteUnavailable ErrorType = "remote_unavailable"
	ErrorTypeModelUnsupported  ErrorType = "model_unsupported"
	ErrorTypeInternal          ErrorType = "internal"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any DomainError of the same type
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Sentinels. Compare with errors.Is, which matches on Type only; use
// PublicMessage to get the text meant for clients.
var (
	ErrNotFound             = NewDomainError(ErrorTypeNotFound, "resource not found", nil)
	ErrFeedbackNotFound     = NewDomainError(ErrorTypeNotFound, "Feedback not found", nil)
	ErrAnnouncementNotFound = NewDomainError(ErrorTypeNotFound, "Announcement not found", nil)

	ErrInvalidInput = NewDomainError(ErrorTypeValidation, "invalid input", nil)

	ErrNotAuthenticated   = NewDomainError(ErrorTypeUnauthenticated, "Not authenticated", nil)
	ErrInvalidToken       = NewDomainError(ErrorTypeUnauthenticated, "Invalid or expired token", nil)
	ErrInvalidCredentials = NewDomainError(ErrorTypeUnauthenticated, "Invalid credentials", nil)
	ErrSubjectUnavailable = NewDomainError(ErrorTypeUnauthenticated, "User inactive or not found", nil)

	ErrInsufficientPermissions = NewDomainError(ErrorTypeForbidden, "Insufficient permissions", nil)

	ErrPhoneTaken = NewDomainError(ErrorTypeConflict, "Phone number already registered", nil)
	ErrEmailTaken = NewDomainError(ErrorTypeConflict, "Email already registered", nil)

	ErrRateLimitExceeded = NewDomainError(ErrorTypeRateLimit, "Rate limit exceeded", nil)

	ErrRemoteUnavailable = NewDomainError(ErrorTypeRemoteUnavailable, "text generation service unavailable", nil)
	ErrModelUnsupported  = NewDomainError(ErrorTypeModelUnsupported, "model not supported by provider", nil)

	ErrInternal      = NewDomainError(ErrorTypeInternal, "internal server error", nil)
	ErrDatabaseError = NewDomainError(ErrorTypeInternal, "database error", nil)
)

// Error type checking helper functions

func isType(err error, t ErrorType) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == t
	}
	return false
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool { return isType(err, ErrorTypeNotFound) }

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool { return isType(err, ErrorTypeValidation) }

// IsUnauthenticatedError checks if an error is an unauthenticated error
func IsUnauthenticatedError(err error) bool { return isType(err, ErrorTypeUnauthenticated) }

// IsForbiddenError checks if an error is a forbidden error
func IsForbiddenError(err error) bool { return isType(err, ErrorTypeForbidden) }

// IsConflictError checks if an error is a conflict error
func IsConflictError(err error) bool { return isType(err, ErrorTypeConflict) }

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool { return isType(err, ErrorTypeRateLimit) }

// IsRemoteUnavailableError checks if an error came from a failed remote call
func IsRemoteUnavailableError(err error) bool { return isType(err, ErrorTypeRemoteUnavailable) }

// IsModelUnsupportedError checks if the provider rejected the model identifier
func IsModelUnsupportedError(err error) bool { return isType(err, ErrorTypeModelUnsupported) }

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool { return isType(err, ErrorTypeInternal) }

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// PublicMessage returns the client-facing message of a domain error.
// Wrapped causes are not included.
func PublicMessage(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return ""
}

// NewValidation builds a validation error with a client-facing message
func NewValidation(message string) error {
	return NewDomainError(ErrorTypeValidation, message, nil)
}

// NewForbidden builds a forbidden error with a client-facing message
func NewForbidden(message string) error {
	return NewDomainError(ErrorTypeForbidden, message, nil)
}

// NewNotFound builds a not found error with a client-facing message
func NewNotFound(message string) error {
	return NewDomainError(ErrorTypeNotFound, message, nil)
}

// WrapError wraps an error with additional context
func WrapError(errType ErrorType, message string, err error) error {
	return NewDomainError(errType, message, err)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}

// WrapRemote wraps an error as a remote service failure
func WrapRemote(message string, err error) error {
	return NewDomainError(ErrorTypeRemoteUnavailable, message, err)
}
