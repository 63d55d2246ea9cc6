package middleware

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/upb/smart-city-assistant/models"
	"github.com/upb/smart-city-assistant/services/identity"
)

// Context key type to avoid collisions
type contextKey string

const (
	// SubjectKey is the context key for the authenticated subject
	SubjectKey contextKey = "subject"

	// ClaimsKey is the context key for verified token claims
	ClaimsKey contextKey = "claims"
)

// GetRequestIDFromContext retrieves the request ID set by chi's RequestID middleware
func GetRequestIDFromContext(ctx context.Context) string {
	return chimw.GetReqID(ctx)
}

// GetSubjectFromContext retrieves the authenticated subject from context
func GetSubjectFromContext(ctx context.Context) *models.Subject {
	if val := ctx.Value(SubjectKey); val != nil {
		if subject, ok := val.(*models.Subject); ok {
			return subject
		}
	}
	return nil
}

// WithSubject adds the authenticated subject to the context
func WithSubject(ctx context.Context, subject *models.Subject) context.Context {
	return context.WithValue(ctx, SubjectKey, subject)
}

// GetClaimsFromContext retrieves token claims from context
func GetClaimsFromContext(ctx context.Context) *identity.Claims {
	if val := ctx.Value(ClaimsKey); val != nil {
		if claims, ok := val.(*identity.Claims); ok {
			return claims
		}
	}
	return nil
}

// WithClaims adds token claims to the context
func WithClaims(ctx context.Context, claims *identity.Claims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}
