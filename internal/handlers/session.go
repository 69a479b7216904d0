package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/7085ashishraj/Campus-Collab/internal/models"
)

// CreateSessionRequest is the payload the upstream auth service sends
// when a user has authenticated and needs a chat session.
type CreateSessionRequest struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
}

// CreateSessionResponse carries the issued bearer token.
type CreateSessionResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// defaultSessionTTL applies when no SESSION_TTL is configured.
var defaultSessionTTL = 7 * 24 * time.Hour

// SessionTTL is the lifetime applied to issued tokens.
var SessionTTL = defaultSessionTTL

// CreateSession issues a chat session token for an already-authenticated
// user. This endpoint is the trust boundary with the auth service: the
// identity it asserts here is the only identity the relay will ever bind
// a socket to.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	if h.serviceKeyHash != "" {
		key := r.Header.Get("X-Service-Key")
		if key == "" {
			h.Error(w, http.StatusUnauthorized, "service key required")
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(h.serviceKeyHash), []byte(key)); err != nil {
			h.Error(w, http.StatusUnauthorized, "invalid service key")
			return
		}
	}

	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.UserID == "" {
		h.Error(w, http.StatusBadRequest, "userId is required")
		return
	}
	req.Name = sanitizeName(req.Name)

	user, err := h.db.UpsertUser(r.Context(), req.UserID, req.Name, req.Email)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to store user")
		return
	}

	token := uuid.NewString()
	if err := h.sessions.CreateSession(r.Context(), token, user.ID, SessionTTL); err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	h.JSON(w, http.StatusCreated, CreateSessionResponse{Token: token, User: user})
}
