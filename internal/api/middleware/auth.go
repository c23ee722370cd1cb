package middleware

import (
	"context"
	"net/http"
	"strings"

	apiContext "callflow/internal/api/context"
	"callflow/internal/pkg/errors"
	"callflow/internal/platform/auth"
)

type AuthMiddleware struct {
	tokenSvc *auth.TokenService
	enabled  bool
}

func NewAuthMiddleware(tokenSvc *auth.TokenService, enabled bool) *AuthMiddleware {
	return &AuthMiddleware{tokenSvc: tokenSvc, enabled: enabled}
}

// Handle guards the management endpoints with a bearer token. Ingestion
// never goes through this; webhook deliveries authenticate with HMAC
// signatures.
func (m *AuthMiddleware) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !m.enabled {
			next(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Missing authorization header", nil)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid authorization header format", nil)
			return
		}

		claims, err := m.tokenSvc.ValidateToken(parts[1])
		if err != nil {
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid or expired token", nil)
			return
		}

		ctx := context.WithValue(r.Context(), apiContext.Claims, claims)
		next(w, r.WithContext(ctx))
	}
}
