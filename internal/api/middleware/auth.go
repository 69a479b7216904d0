package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/7085ashishraj/Campus-Collab/internal/models"
	"github.com/7085ashishraj/Campus-Collab/internal/store"
)

type contextKey string

const UserContextKey contextKey = "user"

// AuthMiddleware resolves bearer tokens to user identities. Tokens are
// issued by the session endpoint on behalf of the upstream auth service
// and resolved through the session store on every request.
type AuthMiddleware struct {
	sessions store.SessionStore
	users    store.DataStore
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(sessions store.SessionStore, users store.DataStore) *AuthMiddleware {
	return &AuthMiddleware{sessions: sessions, users: users}
}

// RequireAuth verifies the Authorization header and attaches the
// authenticated user to the request context.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			jsonError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		userID, err := m.sessions.GetSession(r.Context(), token)
		if err != nil {
			jsonError(w, http.StatusInternalServerError, "session lookup failed")
			return
		}
		if userID == "" {
			jsonError(w, http.StatusUnauthorized, "invalid or expired session")
			return
		}

		user, err := m.users.GetUserByID(r.Context(), userID)
		if err != nil {
			jsonError(w, http.StatusInternalServerError, "database error")
			return
		}
		if user == nil {
			jsonError(w, http.StatusUnauthorized, "unknown user")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// ResolveSocketUser resolves the session token a websocket client passes
// in its upgrade request. Returns nil if the token is unknown.
func (m *AuthMiddleware) ResolveSocketUser(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, nil
	}
	userID, err := m.sessions.GetSession(ctx, token)
	if err != nil || userID == "" {
		return nil, err
	}
	return m.users.GetUserByID(ctx, userID)
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

func jsonError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// WithUser returns a context carrying the authenticated user.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, UserContextKey, user)
}

// GetUserFromContext retrieves the authenticated user from the request context.
func GetUserFromContext(ctx context.Context) *models.User {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}
