package models

// ChatRef is the chat state carried on every message. The participant
// list is captured at creation time so recipients can be resolved
// without querying the membership store on each delivery.
type ChatRef struct {
	ID      string   `json:"id"`
	IsGroup bool     `json:"is_group"`
	Users   []string `json:"users"`
}

// Message is a persisted chat message stored in Redis.
type Message struct {
	ID         string   `json:"id"` // ULID
	ChatID     string   `json:"chat_id"`
	SenderID   string   `json:"sender_id"`
	SenderName string   `json:"sender_name,omitempty"`
	Content    string   `json:"content"`
	Timestamp  int64    `json:"ts"` // Unix ms
	Chat       *ChatRef `json:"chat,omitempty"`
}
