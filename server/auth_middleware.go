package server

import (
	"context"
	"net/http"
	"strings"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyTenantID stores the authenticated user's ID, which is also the
// tenant key for their session and messages.
const ContextKeyTenantID ContextKey = "tenant_id"

// RequireAuth is middleware that validates a Bearer access token and injects
// the tenant ID into the request context.
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "missing Authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
				writeError(w, http.StatusUnauthorized, "invalid Authorization header format")
				return
			}

			tenantID, err := s.parseAccessToken(parts[1])
			if err != nil {
				writeError(w, http.StatusUnauthorized, "token is not valid")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyTenantID, tenantID)
			next(w, r.WithContext(ctx))
		}
	}
}

// tenantID extracts the authenticated tenant from the request context.
func tenantID(r *http.Request) string {
	id, _ := r.Context().Value(ContextKeyTenantID).(string)
	return id
}
