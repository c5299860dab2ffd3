package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/ceasapp/auth-service/users"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyUser stores the authenticated user resolved from the access token
const ContextKeyUser ContextKey = "user"

// RequireAuth is middleware that resolves a Bearer access token to a user.
// Every failure mode, from a missing header to an unknown subject, produces
// the same unauthenticated response.
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeUnauthenticated(w)
				return
			}

			user, err := s.sessions.GetCurrentUser(r.Context(), token)
			if err != nil {
				writeUnauthenticated(w)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUser, user)
			next(w, r.WithContext(ctx))
		}
	}
}

// UserFromContext returns the user injected by RequireAuth, or nil when the
// request never passed through it.
func UserFromContext(ctx context.Context) *users.User {
	user, _ := ctx.Value(ContextKeyUser).(*users.User)
	return user
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return parts[1]
}
