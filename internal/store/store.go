package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/7085ashishraj/Campus-Collab/internal/models"
)

// DataStore defines the interface for relational storage of users, chats,
// and notifications. Both PostgresStore and SQLiteStore implement it.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// User operations
	UpsertUser(ctx context.Context, id, name, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// Chat operations
	CreateDirectChat(ctx context.Context, userA, userB string) (*models.Chat, error)
	FindDirectChat(ctx context.Context, userA, userB string) (*models.Chat, error)
	CreateGroupChat(ctx context.Context, name, adminID string, members []string) (*models.Chat, error)
	GetChat(ctx context.Context, id uuid.UUID) (*models.Chat, error)
	ListChatsForUser(ctx context.Context, userID string) ([]models.Chat, error)
	AddChatMember(ctx context.Context, chatID uuid.UUID, userID string) error
	RemoveChatMember(ctx context.Context, chatID uuid.UUID, userID string) error
	RenameGroupChat(ctx context.Context, chatID uuid.UUID, name string) error
	SetLatestMessage(ctx context.Context, chatID uuid.UUID, messageID string) error

	// Notification operations
	CreateNotification(ctx context.Context, n *models.Notification) (*models.Notification, error)
	GetNotification(ctx context.Context, id uuid.UUID) (*models.Notification, error)
	ListNotifications(ctx context.Context, recipient string) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id uuid.UUID) error
	MarkAllNotificationsRead(ctx context.Context, recipient string) error
	DeleteNotification(ctx context.Context, id uuid.UUID) error
}

// MessageStore defines the interface for the append-only message log.
// RedisStore implements it.
type MessageStore interface {
	Ping(ctx context.Context) error
	AddMessage(ctx context.Context, msg *models.Message) error
	// GetChatMessages returns messages for a chat in creation order.
	// limit <= 0 returns the full history; limit > 0 returns the newest
	// limit messages, still ascending. before > 0 restricts to messages
	// strictly older than that timestamp, making limit+before a backward
	// pagination cursor.
	GetChatMessages(ctx context.Context, chatID string, limit int, before int64) ([]models.Message, error)
}

// SessionStore defines the interface for session token resolution.
type SessionStore interface {
	CreateSession(ctx context.Context, token, userID string, ttl time.Duration) error
	// GetSession returns the user ID bound to the token, or "" if the
	// token is unknown or expired.
	GetSession(ctx context.Context, token string) (string, error)
}
