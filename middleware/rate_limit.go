package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/upb/smart-city-assistant/services/ratelimit"
	"github.com/upb/smart-city-assistant/utils"
	"go.uber.org/zap"
)

// RateChecker counts a request and reports whether it fits the budget
type RateChecker interface {
	Check(ctx context.Context, scope, client string) (*ratelimit.Result, error)
}

// RateLimit limits requests per client IP within scope. Store failures let
// the request through.
func RateLimit(checker RateChecker, scope string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			client := utils.ClientIP(r)

			result, err := checker.Check(ctx, scope, client)
			if err != nil {
				logger.Warn("rate limit store unavailable; allowing request",
					zap.String("request_id", GetRequestIDFromContext(ctx)),
					zap.String("scope", scope),
					zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			if result.Limit > 0 {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
			}

			if !result.Allowed {
				logger.Warn("rate limit exceeded",
					zap.String("request_id", GetRequestIDFromContext(ctx)),
					zap.String("scope", scope),
					zap.String("client_ip", client))
				_ = utils.WriteTooManyRequests(w, "")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
