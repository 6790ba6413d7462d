package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"votedeck/internal/jwttoken"
	dErrors "votedeck/pkg/domain-errors"
	"votedeck/pkg/platform/httputil"
	"votedeck/pkg/requestcontext"
)

// TokenValidator is the slice of the JWT service auth needs.
type TokenValidator interface {
	Validate(raw string) (*jwttoken.Claims, error)
}

type contextKeyAdminID struct{}
type contextKeyRole struct{}

// AdminID retrieves the authenticated admin's ID from the context.
func AdminID(ctx context.Context) string {
	if v, ok := ctx.Value(contextKeyAdminID{}).(string); ok {
		return v
	}
	return ""
}

// Role retrieves the authenticated admin's role from the context.
func Role(ctx context.Context) string {
	if v, ok := ctx.Value(contextKeyRole{}).(string); ok {
		return v
	}
	return ""
}

// WithIdentity injects an authenticated admin identity. Exposed for handler
// tests that bypass the middleware.
func WithIdentity(ctx context.Context, adminID, username, role string) context.Context {
	ctx = context.WithValue(ctx, contextKeyAdminID{}, adminID)
	ctx = context.WithValue(ctx, contextKeyRole{}, role)
	return requestcontext.WithActor(ctx, username)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// admin identity in the context.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(r.Context(), "unauthorized access, missing token",
					"request_id", requestcontext.RequestID(r.Context()),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			claims, err := validator.Validate(token)
			if err != nil {
				logger.WarnContext(r.Context(), "unauthorized access, invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(r.Context()),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			ctx := WithIdentity(r.Context(), claims.AdminID, claims.Username, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireWriteRole rejects view-only admins on mutating routes. Must run
// after RequireAuth.
func RequireWriteRole(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if Role(r.Context()) != "admin" {
			httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "this account has read-only access"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
