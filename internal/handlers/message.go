package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/7085ashishraj/Campus-Collab/internal/api/middleware"
	"github.com/7085ashishraj/Campus-Collab/internal/metrics"
	"github.com/7085ashishraj/Campus-Collab/internal/models"
)

// SendMessageRequest persists a new message.
type SendMessageRequest struct {
	ChatID  string `json:"chatId"`
	Content string `json:"content"`
}

// GetMessages handles the catch-up fetch: the full message history of a
// chat in creation order. This is the client's sole recovery mechanism
// for events the relay dropped while it was offline.
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	chatIDStr := chi.URLParam(r, "chatID")
	chatID, err := uuid.Parse(chatIDStr)
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid chat ID format")
		return
	}

	chat, err := h.db.GetChat(r.Context(), chatID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if chat == nil {
		h.Error(w, http.StatusNotFound, "chat not found")
		return
	}
	if !chat.HasMember(user.ID) {
		h.Error(w, http.StatusForbidden, "not a chat participant")
		return
	}

	// Optional pagination; the default is the full history.
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	var before int64
	if b := r.URL.Query().Get("before"); b != "" {
		if parsed, err := strconv.ParseInt(b, 10, 64); err == nil {
			before = parsed
		}
	}

	msgs, err := h.messages.GetChatMessages(r.Context(), chatIDStr, limit, before)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to fetch messages")
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}

	h.JSON(w, http.StatusOK, msgs)
}

// SendMessage persists a message and returns it with the participant
// list denormalized, ready for the client to hand to the relay. The
// message is durable before any broadcast happens, which is what makes
// relay delivery safely fire-and-forget.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.Content == "" {
		h.Error(w, http.StatusBadRequest, "content is required")
		return
	}
	if len(req.Content) > 4096 {
		h.Error(w, http.StatusUnprocessableEntity, "content too long (max 4096 bytes)")
		return
	}

	chatID, err := uuid.Parse(req.ChatID)
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid chat ID format")
		return
	}

	chat, err := h.db.GetChat(r.Context(), chatID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if chat == nil {
		h.Error(w, http.StatusNotFound, "chat not found")
		return
	}
	if !chat.HasMember(user.ID) {
		h.Error(w, http.StatusForbidden, "not a chat participant")
		return
	}

	msg := &models.Message{
		ChatID:     req.ChatID,
		SenderID:   user.ID,
		SenderName: user.Name,
		Content:    req.Content,
		Chat:       chat.Ref(),
	}

	if err := h.messages.AddMessage(r.Context(), msg); err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to store message")
		return
	}

	if err := h.db.SetLatestMessage(r.Context(), chatID, msg.ID); err != nil {
		// The message is already durable; the preview pointer can lag.
		h.log.Warn().Err(err).Str("chat_id", req.ChatID).Msg("updating latest message pointer")
	}

	chatType := "direct"
	if chat.IsGroup {
		chatType = "group"
	}
	metrics.MessagesPosted.WithLabelValues(chatType).Inc()

	h.JSON(w, http.StatusCreated, msg)
}
