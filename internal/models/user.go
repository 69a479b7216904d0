package models

import "time"

// User mirrors the identity record issued by the upstream auth service.
// The chat subsystem only stores the fields it needs for display and
// membership; it never owns the identity lifecycle.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
