package middleware

import (
	"net/http"

	"mathops/pkg/auth"
	appErrors "mathops/pkg/errors"

	"go.uber.org/zap"
)

// RateLimit rejects callers that exceed their token bucket. Authenticated
// callers are keyed by subject, anonymous ones by client IP.
func RateLimit(limiter *auth.IdentityRateLimiter, burst int, errorHandler *appErrors.ErrorHandler, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := ""
			if user, err := auth.GetUserFromContext(r.Context()); err == nil {
				identity = user.Subject
			}

			allowed, err := limiter.Allow(r.Context(), identity, getClientIP(r))
			if err != nil {
				logger.Error("Rate limiter error", zap.Error(err))
				errorHandler.Handle(w, r, appErrors.NewInternalError("rate limiter failed").WithCause(err))
				return
			}
			if !allowed {
				errorHandler.Handle(w, r, appErrors.NewRateLimitError(burst, "1s"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
