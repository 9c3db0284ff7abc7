package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"flowgate/pkg/requestcontext"
)

// TokenClaims represents the claims the middleware expects from the validator.
type TokenClaims struct {
	ActorID string
	Role    string
}

// TokenValidator validates bearer tokens. Token issuance lives outside the
// engine; only validation happens here.
type TokenValidator interface {
	ValidateToken(tokenString string) (*TokenClaims, error)
}

// RequireAuth extracts the bearer token, validates it, and injects the actor
// into the request context. Requests without a valid token never reach the
// coordinator.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(authHeader, bearerPrefix) {
				writeAuthError(w, http.StatusUnauthorized, "invalid_token", "missing bearer token")
				return
			}

			claims, err := validator.ValidateToken(strings.TrimPrefix(authHeader, bearerPrefix))
			if err != nil {
				logger.WarnContext(r.Context(), "token validation failed",
					"request_id", requestcontext.RequestID(r.Context()),
					"error", err.Error(),
				)
				writeAuthError(w, http.StatusUnauthorized, "invalid_token", "token validation failed")
				return
			}
			if claims.ActorID == "" {
				writeAuthError(w, http.StatusUnauthorized, "invalid_token", "token missing actor")
				return
			}

			ctx := requestcontext.WithActorID(r.Context(), claims.ActorID)
			ctx = requestcontext.WithActorRole(ctx, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeAuthError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}
