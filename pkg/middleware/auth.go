package middleware

import (
	"context"
	"net/http"
	"strings"

	"movers-dispatch/pkg/utils"

	"go.uber.org/zap"
)

// Authenticator resolves a bearer token to the caller, or nil when the
// token is not a live session.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*utils.Principal, error)
}

// AuthSession validates the session bearer token and stores the caller and
// token in the request context.
func AuthSession(auth Authenticator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				utils.ResponseUnauthorized(w, "Missing or malformed authorization header. Use: Bearer <token>")
				return
			}

			principal, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				logger.Error("Failed to validate session", zap.Error(err))
				utils.ResponseInternalError(w, "Internal server error")
				return
			}
			if principal == nil {
				logger.Warn("Invalid or expired session", zap.String("path", r.URL.Path))
				utils.ResponseUnauthorized(w, "Invalid or expired session")
				return
			}

			ctx := utils.SetPrincipal(r.Context(), principal)
			ctx = utils.SetTokenContext(ctx, token)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission lets the request through when the caller holds any of
// the given permissions.
func RequirePermission(logger *zap.Logger, permissions ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := utils.GetPrincipal(r.Context())
			if !ok {
				utils.ResponseUnauthorized(w, "Authentication required")
				return
			}

			for _, perm := range permissions {
				if principal.Can(perm) {
					next.ServeHTTP(w, r)
					return
				}
			}

			logger.Warn("Permission denied",
				zap.String("user_id", principal.UserID.String()),
				zap.String("role", principal.Role),
				zap.Strings("required", permissions),
				zap.String("path", r.URL.Path))
			utils.ResponseForbidden(w, "You do not have permission to perform this action")
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
