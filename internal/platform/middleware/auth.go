// Package middleware holds the HTTP middleware shared across routes.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"crossrail/internal/platform/auth"
	"crossrail/pkg/platform/httputil"
)

type contextKeyUserID struct{}

// UserID retrieves the authenticated user from the request context.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(contextKeyUserID{}).(string)
	return id
}

// TokenValidator validates a bearer token and returns its claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*auth.Claims, error)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// authenticated user ID on the context.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", RequestID(ctx))
				httputil.WriteError(w, httputil.Unauthorized("missing or invalid Authorization header"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"request_id", RequestID(ctx),
					"error", err)
				httputil.WriteError(w, httputil.Unauthorized("invalid or expired token"))
				return
			}

			ctx = context.WithValue(ctx, contextKeyUserID{}, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
