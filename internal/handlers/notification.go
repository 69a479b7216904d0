package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/7085ashishraj/Campus-Collab/internal/api/middleware"
	"github.com/7085ashishraj/Campus-Collab/internal/metrics"
	"github.com/7085ashishraj/Campus-Collab/internal/models"
)

// CreateNotificationRequest creates a notification for a recipient.
// Services post these on workflow events (collaboration requests,
// project invites); the recipient polls them via ListNotifications.
type CreateNotificationRequest struct {
	Recipient string `json:"recipient"`
	Type      string `json:"type"`
	Message   string `json:"message"`
	RelatedID string `json:"relatedId,omitempty"`
	Link      string `json:"link,omitempty"`
}

// CreateNotification stores a new notification.
func (h *Handler) CreateNotification(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req CreateNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.Recipient == "" {
		h.Error(w, http.StatusBadRequest, "recipient is required")
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		h.Error(w, http.StatusBadRequest, "message is required")
		return
	}
	if req.Type == "" {
		req.Type = models.NotificationInfo
	}
	if !models.ValidNotificationType(req.Type) {
		h.Error(w, http.StatusBadRequest, "invalid notification type")
		return
	}

	n := &models.Notification{
		Recipient: req.Recipient,
		Type:      req.Type,
		Message:   req.Message,
		RelatedID: req.RelatedID,
		Link:      req.Link,
	}

	created, err := h.db.CreateNotification(r.Context(), n)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to create notification")
		return
	}

	metrics.NotificationsCreated.Inc()
	h.JSON(w, http.StatusCreated, created)
}

// ListNotifications returns the caller's notifications, newest first.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	list, err := h.db.ListNotifications(r.Context(), user.ID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if list == nil {
		list = []models.Notification{}
	}

	h.JSON(w, http.StatusOK, list)
}

// MarkNotificationRead marks one of the caller's notifications as read.
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	n, ok := h.ownedNotificationFromURL(w, r, user.ID)
	if !ok {
		return
	}

	if err := h.db.MarkNotificationRead(r.Context(), n.ID); err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to update notification")
		return
	}

	n.Read = true
	h.JSON(w, http.StatusOK, n)
}

// MarkAllNotificationsRead marks every notification of the caller as read.
func (h *Handler) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := h.db.MarkAllNotificationsRead(r.Context(), user.ID); err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to update notifications")
		return
	}

	h.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// DeleteNotification removes one of the caller's notifications.
func (h *Handler) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	n, ok := h.ownedNotificationFromURL(w, r, user.ID)
	if !ok {
		return
	}

	if err := h.db.DeleteNotification(r.Context(), n.ID); err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to delete notification")
		return
	}

	h.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ownedNotificationFromURL loads the notification addressed by the {id}
// URL param and verifies the caller is its recipient, writing the error
// response itself when it fails.
func (h *Handler) ownedNotificationFromURL(w http.ResponseWriter, r *http.Request, userID string) (*models.Notification, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid notification ID format")
		return nil, false
	}

	n, err := h.db.GetNotification(r.Context(), id)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return nil, false
	}
	if n == nil {
		h.Error(w, http.StatusNotFound, "notification not found")
		return nil, false
	}
	if n.Recipient != userID {
		h.Error(w, http.StatusForbidden, "not your notification")
		return nil, false
	}
	return n, true
}
