package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/7085ashishraj/Campus-Collab/internal/api/middleware"
	"github.com/7085ashishraj/Campus-Collab/internal/models"
)

// AccessChatRequest asks for the direct chat with another user.
type AccessChatRequest struct {
	UserID string `json:"userId"`
}

// CreateGroupChatRequest creates a named group chat.
type CreateGroupChatRequest struct {
	Name  string   `json:"name"`
	Users []string `json:"users"`
}

// MemberRequest adds or removes a group chat participant.
type MemberRequest struct {
	UserID string `json:"userId"`
}

// RenameGroupRequest renames a group chat.
type RenameGroupRequest struct {
	Name string `json:"name"`
}

// AccessChat returns the caller's direct chat with the given user,
// creating it on first contact.
func (h *Handler) AccessChat(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req AccessChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.UserID == "" {
		h.Error(w, http.StatusBadRequest, "userId is required")
		return
	}
	if req.UserID == user.ID {
		h.Error(w, http.StatusBadRequest, "cannot open a chat with yourself")
		return
	}

	target, err := h.db.GetUserByID(r.Context(), req.UserID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if target == nil {
		h.Error(w, http.StatusNotFound, "user not found")
		return
	}

	chat, err := h.db.FindDirectChat(r.Context(), user.ID, req.UserID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if chat != nil {
		h.JSON(w, http.StatusOK, chat)
		return
	}

	chat, err = h.db.CreateDirectChat(r.Context(), user.ID, req.UserID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to create chat")
		return
	}

	h.JSON(w, http.StatusCreated, chat)
}

// ListChats returns the caller's chats, most recently active first.
func (h *Handler) ListChats(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	chats, err := h.db.ListChatsForUser(r.Context(), user.ID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if chats == nil {
		chats = []models.Chat{}
	}

	h.JSON(w, http.StatusOK, chats)
}

// CreateGroupChat creates a group chat with the caller as admin.
func (h *Handler) CreateGroupChat(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req CreateGroupChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		h.Error(w, http.StatusBadRequest, "name is required")
		return
	}
	others := 0
	for _, id := range req.Users {
		if id != "" && id != user.ID {
			others++
		}
	}
	if others < 2 {
		h.Error(w, http.StatusBadRequest, "group chats need at least 2 other users")
		return
	}

	chat, err := h.db.CreateGroupChat(r.Context(), req.Name, user.ID, req.Users)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to create group chat")
		return
	}

	h.JSON(w, http.StatusCreated, chat)
}

// AddToGroup appends a participant to a group chat. This is the path the
// collaboration-request workflow calls on acceptance; it is also the only
// way this service ever mutates a chat's membership.
func (h *Handler) AddToGroup(w http.ResponseWriter, r *http.Request) {
	h.mutateGroupMember(w, r, true)
}

// RemoveFromGroup removes a participant from a group chat. The admin may
// remove anyone; members may remove themselves.
func (h *Handler) RemoveFromGroup(w http.ResponseWriter, r *http.Request) {
	h.mutateGroupMember(w, r, false)
}

func (h *Handler) mutateGroupMember(w http.ResponseWriter, r *http.Request, add bool) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	chat, ok := h.groupChatFromURL(w, r)
	if !ok {
		return
	}

	var req MemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.UserID == "" {
		h.Error(w, http.StatusBadRequest, "userId is required")
		return
	}

	if add {
		if chat.AdminID != user.ID {
			h.Error(w, http.StatusForbidden, "only the group admin can add members")
			return
		}
		if err := h.db.AddChatMember(r.Context(), chat.ID, req.UserID); err != nil {
			h.Error(w, http.StatusInternalServerError, "failed to add member")
			return
		}
	} else {
		if chat.AdminID != user.ID && req.UserID != user.ID {
			h.Error(w, http.StatusForbidden, "only the group admin can remove other members")
			return
		}
		if err := h.db.RemoveChatMember(r.Context(), chat.ID, req.UserID); err != nil {
			h.Error(w, http.StatusInternalServerError, "failed to remove member")
			return
		}
	}

	updated, err := h.db.GetChat(r.Context(), chat.ID)
	if err != nil || updated == nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	h.JSON(w, http.StatusOK, updated)
}

// RenameGroup renames a group chat (admin only).
func (h *Handler) RenameGroup(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	chat, ok := h.groupChatFromURL(w, r)
	if !ok {
		return
	}
	if chat.AdminID != user.ID {
		h.Error(w, http.StatusForbidden, "only the group admin can rename the chat")
		return
	}

	var req RenameGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		h.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	if err := h.db.RenameGroupChat(r.Context(), chat.ID, req.Name); err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to rename chat")
		return
	}

	updated, err := h.db.GetChat(r.Context(), chat.ID)
	if err != nil || updated == nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	h.JSON(w, http.StatusOK, updated)
}

// groupChatFromURL loads the group chat addressed by the {id} URL param,
// writing the error response itself when it fails.
func (h *Handler) groupChatFromURL(w http.ResponseWriter, r *http.Request) (*models.Chat, bool) {
	chatID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid chat ID format")
		return nil, false
	}

	chat, err := h.db.GetChat(r.Context(), chatID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return nil, false
	}
	if chat == nil {
		h.Error(w, http.StatusNotFound, "chat not found")
		return nil, false
	}
	if !chat.IsGroup {
		h.Error(w, http.StatusBadRequest, "not a group chat")
		return nil, false
	}
	return chat, true
}
