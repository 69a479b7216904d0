package models

import (
	"time"

	"github.com/google/uuid"
)

// Chat is a conversation between two or more users. Direct chats have
// exactly two members and no name; group chats carry a name and an admin.
type Chat struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name,omitempty"`
	IsGroup         bool      `json:"is_group"`
	AdminID         string    `json:"admin_id,omitempty"`
	Users           []string  `json:"users"` // member user IDs, join order
	LatestMessageID string    `json:"latest_message_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// HasMember reports whether the given user is a chat participant.
func (c *Chat) HasMember(userID string) bool {
	for _, id := range c.Users {
		if id == userID {
			return true
		}
	}
	return false
}

// Ref returns the slice of chat state that gets denormalized onto
// messages so the relay can fan out without a membership lookup.
func (c *Chat) Ref() *ChatRef {
	return &ChatRef{
		ID:      c.ID.String(),
		IsGroup: c.IsGroup,
		Users:   append([]string(nil), c.Users...),
	}
}
