package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Socket upgrades the connection and registers it with the relay. The
// socket's identity comes from the session token, never from anything
// the client sends after the upgrade.
func (h *Handler) Socket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		h.Error(w, http.StatusUnauthorized, "token is required")
		return
	}

	userID, err := h.sessions.GetSession(r.Context(), token)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "session lookup failed")
		return
	}
	if userID == "" {
		h.Error(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}

	user, err := h.db.GetUserByID(r.Context(), userID)
	if err != nil || user == nil {
		h.Error(w, http.StatusUnauthorized, "unknown user")
		return
	}

	up := upgrader
	up.CheckOrigin = h.checkOrigin

	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		h.log.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}

	h.hub.Register(conn, user.ID, r.RemoteAddr)
}

// checkOrigin permits browser connections from configured origins, or
// same-host connections when none are configured. Non-browser clients
// send no Origin header and are always allowed.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	u, err := url.Parse(origin)
	if err != nil {
		return false
	}

	if len(h.allowedOrigins) == 0 {
		return strings.EqualFold(u.Host, r.Host)
	}

	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}
