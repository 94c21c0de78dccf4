package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/tair/marketplace-payments/pkg/auth"
	"github.com/tair/marketplace-payments/pkg/logger"
)

type contextKey string

const claimsKey contextKey = "claims"

// ClaimsFromContext returns the authenticated caller, if any.
func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

// AuthMiddleware validates the bearer token and stores its claims in the context
func AuthMiddleware(signer *auth.Signer) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn(r.Context()).Msg("Missing authorization header")
				respondJSON(w, http.StatusUnauthorized, Response{Success: false, Error: "Authorization header required"})
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				logger.Warn(r.Context()).Msg("Invalid authorization header format")
				respondJSON(w, http.StatusUnauthorized, Response{Success: false, Error: "Invalid authorization header format"})
				return
			}

			if signer == nil {
				respondJSON(w, http.StatusUnauthorized, Response{Success: false, Error: "Authentication is not configured"})
				return
			}
			claims, err := signer.ValidateToken(parts[1])
			if err != nil {
				logger.Warn(r.Context()).Err(err).Msg("Invalid token")
				respondJSON(w, http.StatusUnauthorized, Response{Success: false, Error: "Invalid token"})
				return
			}

			logger.Debug(r.Context()).
				Str("user_id", claims.UserID).
				Str("tenant_id", claims.TenantID).
				Str("role", claims.Role).
				Msg("Caller authenticated")

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next(w, r.WithContext(ctx))
		}
	}
}

// AdminMiddleware checks if user has admin role
func AdminMiddleware(signer *auth.Signer) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return AuthMiddleware(signer)(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil || !claims.IsAdmin() {
				logger.Warn(r.Context()).Msg("Admin access denied")
				respondJSON(w, http.StatusForbidden, Response{Success: false, Error: "Admin access required"})
				return
			}
			next(w, r)
		})
	}
}
