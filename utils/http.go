package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
)

// DefaultMaxBodyBytes caps JSON request bodies
const DefaultMaxBodyBytes = 1 << 20

// ErrorResponse represents a structured error response
type ErrorResponse struct {
	Error  string            `json:"error"`
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields,omitempty"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return nil
	}

	return json.NewEncoder(w).Encode(data)
}

// WriteOK writes a 200 OK response
func WriteOK(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, data)
}

// WriteCreated writes a 201 Created response
func WriteCreated(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusCreated, data)
}

// WriteNoContent writes a 204 No Content response
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteBadRequest writes a 400 Bad Request response with optional field errors
func WriteBadRequest(w http.ResponseWriter, detail string, fields map[string]string) error {
	return WriteJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:  "bad_request",
		Detail: detail,
		Fields: fields,
	})
}

// WriteUnauthorized writes a 401 Unauthorized response
func WriteUnauthorized(w http.ResponseWriter, detail string) error {
	if detail == "" {
		detail = "Not authenticated"
	}
	w.Header().Set("WWW-Authenticate", "Bearer")
	return WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
		Error:  "unauthorized",
		Detail: detail,
	})
}

// WriteForbidden writes a 403 Forbidden response
func WriteForbidden(w http.ResponseWriter, detail string) error {
	if detail == "" {
		detail = "Insufficient permissions"
	}
	return WriteJSON(w, http.StatusForbidden, ErrorResponse{
		Error:  "forbidden",
		Detail: detail,
	})
}

// WriteNotFound writes a 404 Not Found response
func WriteNotFound(w http.ResponseWriter, detail string) error {
	if detail == "" {
		detail = "Not Found"
	}
	return WriteJSON(w, http.StatusNotFound, ErrorResponse{
		Error:  "not_found",
		Detail: detail,
	})
}

// WriteConflict writes a 409 Conflict response
func WriteConflict(w http.ResponseWriter, detail string) error {
	return WriteJSON(w, http.StatusConflict, ErrorResponse{
		Error:  "conflict",
		Detail: detail,
	})
}

// WriteTooManyRequests writes a 429 Too Many Requests response
func WriteTooManyRequests(w http.ResponseWriter, detail string) error {
	if detail == "" {
		detail = "Rate limit exceeded"
	}
	return WriteJSON(w, http.StatusTooManyRequests, ErrorResponse{
		Error:  "rate_limit_exceeded",
		Detail: detail,
	})
}

// WriteBadGateway writes a 502 Bad Gateway response
func WriteBadGateway(w http.ResponseWriter, detail string) error {
	if detail == "" {
		detail = "Upstream service unavailable"
	}
	return WriteJSON(w, http.StatusBadGateway, ErrorResponse{
		Error:  "bad_gateway",
		Detail: detail,
	})
}

// WriteInternalServerError writes a 500 Internal Server Error response
func WriteInternalServerError(w http.ResponseWriter, detail string) error {
	if detail == "" {
		detail = "Internal server error"
	}
	return WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:  "internal_error",
		Detail: detail,
	})
}

// WriteError writes an error response based on the status code
func WriteError(w http.ResponseWriter, status int, detail string) error {
	var errorType string
	switch status {
	case http.StatusBadRequest:
		errorType = "bad_request"
	case http.StatusUnauthorized:
		errorType = "unauthorized"
	case http.StatusForbidden:
		errorType = "forbidden"
	case http.StatusNotFound:
		errorType = "not_found"
	case http.StatusMethodNotAllowed:
		errorType = "method_not_allowed"
	case http.StatusConflict:
		errorType = "conflict"
	case http.StatusTooManyRequests:
		errorType = "rate_limit_exceeded"
	case http.StatusBadGateway:
		errorType = "bad_gateway"
	default:
		errorType = "internal_error"
	}

	return WriteJSON(w, status, ErrorResponse{
		Error:  errorType,
		Detail: detail,
	})
}

// ErrInvalidBody is returned by DecodeJSON for unreadable or malformed bodies
var ErrInvalidBody = errors.New("invalid request body")

// DecodeJSON decodes the request body into dst, reading at most maxBytes
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	body := http.MaxBytesReader(w, r.Body, maxBytes)

	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBody, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data", ErrInvalidBody)
	}
	return nil
}

// ClientIP returns the host part of the request's remote address. Proxy
// headers are resolved earlier by chi's RealIP middleware.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
