package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/sambooru/sambooru-server/internal/domain"
	apperrors "github.com/sambooru/sambooru-server/internal/errors"
)

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

// userKey is the context key for the authenticated user.
const userKey ctxKey = "user"

// authenticate resolves the Bearer token against the user records. Tokens
// are opaque user references issued by the external auth collaborator.
// Requests without a valid token continue unauthenticated; handlers
// reject where auth is required.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || token == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, err := s.store.Users.Get(r.Context(), token)
		if err != nil {
			// Invalid token - continue without user (handler will reject if auth required)
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// currentUser returns the authenticated user from context.
func currentUser(ctx context.Context) (*domain.User, error) {
	user, ok := ctx.Value(userKey).(*domain.User)
	if !ok || user == nil {
		return nil, apperrors.Unauthorized("authentication required")
	}
	return user, nil
}

// requireAdmin returns the authenticated user if they hold the admin role.
func requireAdmin(ctx context.Context) (*domain.User, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin() {
		return nil, apperrors.Forbidden("admin access required")
	}
	return user, nil
}
