package middleware

import (
	"errors"
	"net/http"
	"strings"

	"mathops/pkg/auth"
	appErrors "mathops/pkg/errors"

	"github.com/aws/aws-lambda-go/events"
	"github.com/awslabs/aws-lambda-go-api-proxy/core"
	"go.uber.org/zap"
)

// Authenticate validates a bearer JWT and stores the caller in the request
// context.
func Authenticate(validator *auth.JWTValidator, errorHandler *appErrors.ErrorHandler, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				errorHandler.Handle(w, r, appErrors.NewUnauthorizedError("Missing authentication token"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.Warn("Invalid token",
					zap.Error(err),
					zap.String("ip", getClientIP(r)),
					zap.String("path", r.URL.Path),
				)
				switch {
				case errors.Is(err, auth.ErrExpiredToken):
					errorHandler.Handle(w, r, appErrors.NewUnauthorizedError("Token has expired"))
				case errors.Is(err, auth.ErrInvalidSignature):
					errorHandler.Handle(w, r, appErrors.NewUnauthorizedError("Invalid token signature"))
				default:
					errorHandler.Handle(w, r, appErrors.NewUnauthorizedError("Invalid token"))
				}
				return
			}

			ctx := auth.SetUserInContext(r.Context(), &auth.UserContext{
				Subject: claims.Subject,
				Email:   claims.Email,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AuthenticateForLambda trusts the claims API Gateway's authorizer already
// verified. The proxy adapter carries the gateway request context either in
// the Go context or in a header, depending on how it was invoked.
func AuthenticateForLambda(errorHandler *appErrors.ErrorHandler, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := gatewayUser(r)
			if !ok {
				logger.Warn("Request not authorized by API Gateway", zap.String("path", r.URL.Path))
				errorHandler.Handle(w, r, appErrors.NewUnauthorizedError("Request not authorized by API Gateway"))
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.SetUserInContext(r.Context(), user)))
		})
	}
}

func gatewayUser(r *http.Request) (*auth.UserContext, bool) {
	reqCtx, ok := core.GetAPIGatewayContextFromContext(r.Context())
	if !ok {
		var accessor core.RequestAccessor
		parsed, err := accessor.GetAPIGatewayContext(r)
		if err != nil {
			return nil, false
		}
		reqCtx = parsed
	}
	return userFromAuthorizer(reqCtx)
}

// userFromAuthorizer reads Cognito user pool claims, or the flat context a
// Lambda authorizer returns.
func userFromAuthorizer(reqCtx events.APIGatewayProxyRequestContext) (*auth.UserContext, bool) {
	fields := reqCtx.Authorizer
	if claims, ok := fields["claims"].(map[string]interface{}); ok {
		fields = claims
	}
	email, _ := fields["email"].(string)
	sub, _ := fields["sub"].(string)
	if sub == "" {
		sub, _ = fields["principalId"].(string)
	}
	if email == "" {
		return nil, false
	}
	if sub == "" {
		sub = email
	}
	return &auth.UserContext{Subject: sub, Email: email}, true
}

// extractToken reads the bearer token from the Authorization header.
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return authHeader
}

// getClientIP extracts the client IP address
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}
