package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/upb/smart-city-assistant/models"
	"github.com/upb/smart-city-assistant/services"
	"github.com/upb/smart-city-assistant/services/identity"
	"github.com/upb/smart-city-assistant/utils"
	"go.uber.org/zap"
)

// SubjectResolver turns a bearer token into an active subject
type SubjectResolver interface {
	ResolveSubject(ctx context.Context, token string) (*models.Subject, *identity.Claims, error)
}

// AuthMiddleware provides authentication middleware functionality
type AuthMiddleware struct {
	resolver SubjectResolver
	logger   *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(resolver SubjectResolver, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		resolver: resolver,
		logger:   logger,
	}
}

// RequireAuth rejects requests without a bearer token that resolves to an
// active subject. The subject is reloaded on every request.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		token := extractBearerToken(r)
		if token == "" {
			m.logger.Debug("missing bearer token", zap.String("request_id", requestID))
			_ = utils.WriteUnauthorized(w, services.PublicMessage(services.ErrNotAuthenticated))
			return
		}

		subject, claims, err := m.resolver.ResolveSubject(ctx, token)
		if err != nil {
			if services.IsUnauthenticatedError(err) {
				m.logger.Warn("token rejected",
					zap.String("request_id", requestID),
					zap.String("reason", services.PublicMessage(err)))
				_ = utils.WriteUnauthorized(w, services.PublicMessage(err))
				return
			}
			m.logger.Error("failed to resolve subject",
				zap.String("request_id", requestID),
				zap.Error(err))
			_ = utils.WriteInternalServerError(w, "")
			return
		}

		ctx = WithSubject(ctx, subject)
		ctx = WithClaims(ctx, claims)

		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.Int64("subject_id", subject.ID),
			zap.String("role", subject.Role.String()))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole is a middleware that requires exactly role. Must run after RequireAuth.
func (m *AuthMiddleware) RequireRole(role models.Role) func(http.Handler) http.Handler {
	return m.RequireAnyRole(role)
}

// RequireAnyRole is a middleware that requires one of roles. Must run after RequireAuth.
func (m *AuthMiddleware) RequireAnyRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			subject := GetSubjectFromContext(ctx)

			if err := identity.AuthorizeAny(subject, roles...); err != nil {
				if services.IsUnauthenticatedError(err) {
					m.logger.Error("subject not found in context",
						zap.String("request_id", GetRequestIDFromContext(ctx)))
					_ = utils.WriteUnauthorized(w, services.PublicMessage(err))
					return
				}

				m.logger.Warn("insufficient permissions",
					zap.String("request_id", GetRequestIDFromContext(ctx)),
					zap.Int64("subject_id", subject.ID),
					zap.String("role", subject.Role.String()))
				_ = utils.WriteForbidden(w, services.PublicMessage(err))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// extractBearerToken extracts the Bearer token from the Authorization header
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
