package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/upb/smart-city-assistant/middleware"
	"github.com/upb/smart-city-assistant/models"
	"github.com/upb/smart-city-assistant/services/identity"
	"github.com/upb/smart-city-assistant/utils"
	"go.uber.org/zap"
)

// IdentityService is the subset of identity.Service used by AuthHandler
type IdentityService interface {
	RegisterCitizen(ctx context.Context, in identity.CitizenRegistration) (*models.Subject, error)
	RegisterAuthority(ctx context.Context, in identity.AuthorityRegistration) (*models.Subject, error)
	Login(ctx context.Context, identifier, password string) (*identity.LoginResult, error)
	VerifyToken(token string) (*identity.Claims, bool)
}

// UserRegisterRequest is the body of POST /api/auth/register/user
type UserRegisterRequest struct {
	Name        string  `json:"name" validate:"required,notblank,min=2,max=255"`
	PhoneNumber string  `json:"phone_number" validate:"required,min=10,max=20,phone"`
	Email       *string `json:"email" validate:"omitempty,email"`
	Password    string  `json:"password" validate:"required,min=6"`
	Address     *string `json:"address" validate:"omitempty,max=500"`
}

// AuthorityRegisterRequest is the body of POST /api/auth/register/authority
type AuthorityRegisterRequest struct {
	Name          string `json:"name" validate:"required,notblank,min=2,max=255"`
	Position      string `json:"position" validate:"required,notblank,min=2,max=255"`
	FeedbackRoute string `json:"feedback_route" validate:"required,notblank,min=2,max=255"`
	PhoneNumber   string `json:"phone_number" validate:"required,min=10,max=20,phone"`
	Email         string `json:"email" validate:"required,email"`
	Password      string `json:"password" validate:"required,min=6"`
}

// LoginRequest is the body of POST /api/auth/login. Identifier is a phone
// number or an email address.
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required,notblank"`
	Password   string `json:"password" validate:"required"`
}

// UserData is the subject summary returned on login
type UserData struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	PhoneNumber   string  `json:"phone_number"`
	Email         *string `json:"email"`
	Address       *string `json:"address"`
	Department    *string `json:"department"`
	Position      *string `json:"position"`
	FeedbackRoute *string `json:"feedback_route"`
	UserType      string  `json:"user_type"`
	IsActive      bool    `json:"is_active"`
	IsApproved    bool    `json:"is_approved"`
}

// LoginResponse is returned by a successful login
type LoginResponse struct {
	Message  string   `json:"message"`
	Token    string   `json:"token"`
	UserType string   `json:"user_type"`
	UserData UserData `json:"user_data"`
}

// VerifyTokenResponse is returned for a valid token
type VerifyTokenResponse struct {
	Valid   bool             `json:"valid"`
	Payload *identity.Claims `json:"payload"`
}

// AuthHandler serves /api/auth
type AuthHandler struct {
	identity IdentityService
	logger   *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(identity IdentityService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		identity: identity,
		logger:   logger,
	}
}

func newUserData(s *models.Subject) UserData {
	return UserData{
		ID:            s.ID,
		Name:          s.Name,
		PhoneNumber:   s.PhoneNumber,
		Email:         s.Email,
		Address:       s.Address,
		Department:    s.Department,
		Position:      s.Position,
		FeedbackRoute: s.FeedbackRoute,
		UserType:      string(s.Role),
		IsActive:      s.IsActive,
		IsApproved:    s.IsApproved,
	}
}

// HandleRegisterUser handles POST /api/auth/register/user
func (h *AuthHandler) HandleRegisterUser(w http.ResponseWriter, r *http.Request) {
	var req UserRegisterRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	subject, err := h.identity.RegisterCitizen(r.Context(), identity.CitizenRegistration{
		Name:        req.Name,
		PhoneNumber: req.PhoneNumber,
		Email:       req.Email,
		Password:    req.Password,
		Address:     req.Address,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, subject)
}

// HandleRegisterAuthority handles POST /api/auth/register/authority
func (h *AuthHandler) HandleRegisterAuthority(w http.ResponseWriter, r *http.Request) {
	var req AuthorityRegisterRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	subject, err := h.identity.RegisterAuthority(r.Context(), identity.AuthorityRegistration{
		Name:          req.Name,
		Position:      req.Position,
		FeedbackRoute: req.FeedbackRoute,
		PhoneNumber:   req.PhoneNumber,
		Email:         req.Email,
		Password:      req.Password,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, subject)
}

// HandleLogin handles POST /api/auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	result, err := h.identity.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, LoginResponse{
		Message:  "Login successful",
		Token:    result.Token,
		UserType: string(result.Subject.Role),
		UserData: newUserData(result.Subject),
	})
}

// HandleVerifyToken handles POST /api/auth/verify-token. The token comes
// from the query string or a {"token": "..."} body.
func (h *AuthHandler) HandleVerifyToken(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" && r.Body != nil {
		var body struct {
			Token string `json:"token"`
		}
		if err := utils.DecodeJSON(w, r, &body, utils.DefaultMaxBodyBytes); err != nil && !errors.Is(err, io.EOF) {
			HandleValidationError(w, err, h.logger)
			return
		}
		token = strings.TrimSpace(body.Token)
	}

	if token == "" {
		_ = utils.WriteBadRequest(w, "Token is required", nil)
		return
	}

	claims, ok := h.identity.VerifyToken(token)
	if !ok {
		_ = utils.WriteUnauthorized(w, "Invalid or expired token")
		return
	}

	_ = utils.WriteOK(w, VerifyTokenResponse{Valid: true, Payload: claims})
}

// HandleHealth handles GET /api/auth/health
func (h *AuthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, map[string]string{
		"status":  "healthy",
		"service": "authentication",
	})
}

// HandleMe handles GET /api/auth/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	subject := middleware.GetSubjectFromContext(r.Context())
	if subject == nil {
		_ = utils.WriteUnauthorized(w, "")
		return
	}
	_ = utils.WriteOK(w, subject)
}
