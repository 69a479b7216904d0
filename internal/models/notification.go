package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification kinds accepted by the API.
const (
	NotificationInfo    = "info"
	NotificationSuccess = "success"
	NotificationWarning = "warning"
	NotificationError   = "error"
)

// Notification is a persisted notification record. These are distinct
// from the ephemeral unread badges the chat client keeps in memory.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	Recipient string    `json:"recipient"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	RelatedID string    `json:"related_id,omitempty"`
	Link      string    `json:"link,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidNotificationType reports whether t is a known notification kind.
func ValidNotificationType(t string) bool {
	switch t {
	case NotificationInfo, NotificationSuccess, NotificationWarning, NotificationError:
		return true
	}
	return false
}
