package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/7085ashishraj/Campus-Collab/internal/models"
)

// SQLiteStore handles SQLite database operations.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/campuschat.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/campuschat.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	// Initialize schema
	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS chats (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		is_group INTEGER NOT NULL DEFAULT 0,
		admin_id TEXT NOT NULL DEFAULT '',
		latest_message_id TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS chat_members (
		chat_id TEXT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL,
		joined_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (chat_id, user_id)
	);

	CREATE INDEX IF NOT EXISTS idx_chat_members_user ON chat_members(user_id);

	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		recipient TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT 'info',
		message TEXT NOT NULL,
		related_id TEXT NOT NULL DEFAULT '',
		link TEXT NOT NULL DEFAULT '',
		read INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications(recipient, created_at);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// UpsertUser creates or refreshes a user record.
func (s *SQLiteStore) UpsertUser(ctx context.Context, id, name, email string) (*models.User, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			updated_at = CURRENT_TIMESTAMP
	`, id, name, email)
	if err != nil {
		return nil, err
	}
	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID. Returns nil if not found.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, created_at, updated_at FROM users WHERE id = ?
	`, id).Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CreateDirectChat creates a two-party chat.
func (s *SQLiteStore) CreateDirectChat(ctx context.Context, userA, userB string) (*models.Chat, error) {
	return s.createChat(ctx, "", false, "", []string{userA, userB})
}

// FindDirectChat returns the existing direct chat between two users, or
// nil if none exists.
func (s *SQLiteStore) FindDirectChat(ctx context.Context, userA, userB string) (*models.Chat, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT c.id FROM chats c
		JOIN chat_members a ON a.chat_id = c.id AND a.user_id = ?
		JOIN chat_members b ON b.chat_id = c.id AND b.user_id = ?
		WHERE c.is_group = 0
		LIMIT 1
	`, userA, userB).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	chatID, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	return s.GetChat(ctx, chatID)
}

// CreateGroupChat creates a named chat with an admin and initial members.
// The admin is always a member.
func (s *SQLiteStore) CreateGroupChat(ctx context.Context, name, adminID string, members []string) (*models.Chat, error) {
	all := []string{adminID}
	for _, m := range members {
		if m != adminID {
			all = append(all, m)
		}
	}
	return s.createChat(ctx, name, true, adminID, all)
}

func (s *SQLiteStore) createChat(ctx context.Context, name string, isGroup bool, adminID string, members []string) (*models.Chat, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	id := uuid.New()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO chats (id, name, is_group, admin_id) VALUES (?, ?, ?, ?)
	`, id.String(), name, isGroup, adminID); err != nil {
		return nil, err
	}

	for _, userID := range members {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO chat_members (chat_id, user_id) VALUES (?, ?)
		`, id.String(), userID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetChat(ctx, id)
}

// GetChat retrieves a chat with its member list. Returns nil if not found.
func (s *SQLiteStore) GetChat(ctx context.Context, id uuid.UUID) (*models.Chat, error) {
	chat := &models.Chat{}
	var idStr string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, is_group, admin_id, latest_message_id, created_at, updated_at
		FROM chats WHERE id = ?
	`, id.String()).Scan(&idStr, &chat.Name, &chat.IsGroup, &chat.AdminID, &chat.LatestMessageID, &chat.CreatedAt, &chat.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	chat.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}

	chat.Users, err = s.chatMembers(ctx, idStr)
	if err != nil {
		return nil, err
	}
	return chat, nil
}

// chatMembers returns member user IDs in join order.
func (s *SQLiteStore) chatMembers(ctx context.Context, chatID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id FROM chat_members WHERE chat_id = ? ORDER BY rowid
	`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		members = append(members, userID)
	}
	return members, rows.Err()
}

// ListChatsForUser returns the user's chats, most recently active first.
func (s *SQLiteStore) ListChatsForUser(ctx context.Context, userID string) ([]models.Chat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.is_group, c.admin_id, c.latest_message_id, c.created_at, c.updated_at
		FROM chats c
		JOIN chat_members m ON m.chat_id = c.id
		WHERE m.user_id = ?
		ORDER BY c.updated_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chats []models.Chat
	for rows.Next() {
		var chat models.Chat
		var idStr string
		if err := rows.Scan(&idStr, &chat.Name, &chat.IsGroup, &chat.AdminID, &chat.LatestMessageID, &chat.CreatedAt, &chat.UpdatedAt); err != nil {
			return nil, err
		}
		chat.ID, err = uuid.Parse(idStr)
		if err != nil {
			return nil, err
		}
		chats = append(chats, chat)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range chats {
		chats[i].Users, err = s.chatMembers(ctx, chats[i].ID.String())
		if err != nil {
			return nil, err
		}
	}
	return chats, nil
}

// AddChatMember appends a participant to a chat.
func (s *SQLiteStore) AddChatMember(ctx context.Context, chatID uuid.UUID, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_members (chat_id, user_id) VALUES (?, ?)
		ON CONFLICT(chat_id, user_id) DO NOTHING
	`, chatID.String(), userID)
	if err != nil {
		return err
	}
	return s.touchChat(ctx, chatID)
}

// RemoveChatMember removes a participant from a chat.
func (s *SQLiteStore) RemoveChatMember(ctx context.Context, chatID uuid.UUID, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM chat_members WHERE chat_id = ? AND user_id = ?
	`, chatID.String(), userID)
	if err != nil {
		return err
	}
	return s.touchChat(ctx, chatID)
}

// RenameGroupChat updates a group chat's name.
func (s *SQLiteStore) RenameGroupChat(ctx context.Context, chatID uuid.UUID, name string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE chats SET name = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, name, chatID.String())
	return err
}

// SetLatestMessage updates a chat's latest-message pointer and bumps its
// activity timestamp.
func (s *SQLiteStore) SetLatestMessage(ctx context.Context, chatID uuid.UUID, messageID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE chats SET latest_message_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, messageID, chatID.String())
	return err
}

func (s *SQLiteStore) touchChat(ctx context.Context, chatID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE chats SET updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, chatID.String())
	return err
}

// CreateNotification persists a notification record.
func (s *SQLiteStore) CreateNotification(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.Type == "" {
		n.Type = models.NotificationInfo
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, recipient, type, message, related_id, link)
		VALUES (?, ?, ?, ?, ?, ?)
	`, n.ID.String(), n.Recipient, n.Type, n.Message, n.RelatedID, n.Link)
	if err != nil {
		return nil, err
	}
	return s.GetNotification(ctx, n.ID)
}

// GetNotification retrieves a notification by ID. Returns nil if not found.
func (s *SQLiteStore) GetNotification(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	n := &models.Notification{}
	var idStr string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, recipient, type, message, related_id, link, read, created_at
		FROM notifications WHERE id = ?
	`, id.String()).Scan(&idStr, &n.Recipient, &n.Type, &n.Message, &n.RelatedID, &n.Link, &n.Read, &n.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	n.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// ListNotifications returns a user's notifications, newest first.
func (s *SQLiteStore) ListNotifications(ctx context.Context, recipient string) ([]models.Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, recipient, type, message, related_id, link, read, created_at
		FROM notifications WHERE recipient = ?
		ORDER BY created_at DESC
	`, recipient)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		var idStr string
		if err := rows.Scan(&idStr, &n.Recipient, &n.Type, &n.Message, &n.RelatedID, &n.Link, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.ID, err = uuid.Parse(idStr)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkNotificationRead marks a single notification as read.
func (s *SQLiteStore) MarkNotificationRead(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET read = 1 WHERE id = ?
	`, id.String())
	return err
}

// MarkAllNotificationsRead marks all of a user's notifications as read.
func (s *SQLiteStore) MarkAllNotificationsRead(ctx context.Context, recipient string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET read = 1 WHERE recipient = ? AND read = 0
	`, recipient)
	return err
}

// DeleteNotification removes a notification.
func (s *SQLiteStore) DeleteNotification(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM notifications WHERE id = ?
	`, id.String())
	return err
}
