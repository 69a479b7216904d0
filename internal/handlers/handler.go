package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/7085ashishraj/Campus-Collab/internal/relay"
	"github.com/7085ashishraj/Campus-Collab/internal/store"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	db       store.DataStore
	messages store.MessageStore
	sessions store.SessionStore
	hub      *relay.Hub
	log      zerolog.Logger

	// Bcrypt hash guarding session issuance; empty disables the check.
	serviceKeyHash string

	allowedOrigins []string
}

// NewHandler creates a new Handler with the given dependencies.
func NewHandler(db store.DataStore, messages store.MessageStore, sessions store.SessionStore, hub *relay.Hub, logger zerolog.Logger) *Handler {
	return &Handler{
		db:       db,
		messages: messages,
		sessions: sessions,
		hub:      hub,
		log:      logger,
	}
}

// SetServiceKeyHash configures the bcrypt hash required from the
// upstream auth service when issuing sessions.
func (h *Handler) SetServiceKeyHash(hash string) {
	h.serviceKeyHash = hash
}

// SetAllowedOrigins configures origins permitted to open a websocket.
func (h *Handler) SetAllowedOrigins(origins []string) {
	h.allowedOrigins = origins
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// sanitizeName trims and limits a display name to 100 characters,
// removing control characters.
func sanitizeName(name string) string {
	name = strings.TrimSpace(name)

	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)

	if len(name) > 100 {
		name = name[:100]
	}

	return name
}
