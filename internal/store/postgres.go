package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/7085ashishraj/Campus-Collab/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool
// and ensures the schema exists.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	store := &PostgresStore{pool: pool}

	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ DEFAULT now(),
		updated_at TIMESTAMPTZ DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS chats (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		is_group BOOLEAN NOT NULL DEFAULT false,
		admin_id TEXT NOT NULL DEFAULT '',
		latest_message_id TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ DEFAULT now(),
		updated_at TIMESTAMPTZ DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS chat_members (
		chat_id UUID NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL,
		joined_at TIMESTAMPTZ DEFAULT now(),
		position BIGSERIAL,
		PRIMARY KEY (chat_id, user_id)
	);

	CREATE INDEX IF NOT EXISTS idx_chat_members_user ON chat_members(user_id);

	CREATE TABLE IF NOT EXISTS notifications (
		id UUID PRIMARY KEY,
		recipient TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT 'info',
		message TEXT NOT NULL,
		related_id TEXT NOT NULL DEFAULT '',
		link TEXT NOT NULL DEFAULT '',
		read BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMPTZ DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications(recipient, created_at);
	`

	_, err := s.pool.Exec(ctx, schema)
	return err
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// UpsertUser creates or refreshes a user record.
func (s *PostgresStore) UpsertUser(ctx context.Context, id, name, email string) (*models.User, error) {
	user := &models.User{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (id, name, email) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			updated_at = now()
		RETURNING id, name, email, created_at, updated_at
	`, id, name, email).Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByID retrieves a user by ID. Returns nil if not found.
func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	user := &models.User{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at FROM users WHERE id = $1
	`, id).Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt, &user.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CreateDirectChat creates a two-party chat.
func (s *PostgresStore) CreateDirectChat(ctx context.Context, userA, userB string) (*models.Chat, error) {
	return s.createChat(ctx, "", false, "", []string{userA, userB})
}

// FindDirectChat returns the existing direct chat between two users, or
// nil if none exists.
func (s *PostgresStore) FindDirectChat(ctx context.Context, userA, userB string) (*models.Chat, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx, `
		SELECT c.id FROM chats c
		JOIN chat_members a ON a.chat_id = c.id AND a.user_id = $1
		JOIN chat_members b ON b.chat_id = c.id AND b.user_id = $2
		WHERE c.is_group = false
		LIMIT 1
	`, userA, userB).Scan(&id)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.GetChat(ctx, id)
}

// CreateGroupChat creates a named chat with an admin and initial members.
func (s *PostgresStore) CreateGroupChat(ctx context.Context, name, adminID string, members []string) (*models.Chat, error) {
	all := []string{adminID}
	for _, m := range members {
		if m != adminID {
			all = append(all, m)
		}
	}
	return s.createChat(ctx, name, true, adminID, all)
}

func (s *PostgresStore) createChat(ctx context.Context, name string, isGroup bool, adminID string, members []string) (*models.Chat, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	id := uuid.New()
	if _, err := tx.Exec(ctx, `
		INSERT INTO chats (id, name, is_group, admin_id) VALUES ($1, $2, $3, $4)
	`, id, name, isGroup, adminID); err != nil {
		return nil, err
	}

	for _, userID := range members {
		if _, err := tx.Exec(ctx, `
			INSERT INTO chat_members (chat_id, user_id) VALUES ($1, $2)
		`, id, userID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return s.GetChat(ctx, id)
}

// GetChat retrieves a chat with its member list. Returns nil if not found.
func (s *PostgresStore) GetChat(ctx context.Context, id uuid.UUID) (*models.Chat, error) {
	chat := &models.Chat{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, is_group, admin_id, latest_message_id, created_at, updated_at
		FROM chats WHERE id = $1
	`, id).Scan(&chat.ID, &chat.Name, &chat.IsGroup, &chat.AdminID, &chat.LatestMessageID, &chat.CreatedAt, &chat.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	chat.Users, err = s.chatMembers(ctx, id)
	if err != nil {
		return nil, err
	}
	return chat, nil
}

func (s *PostgresStore) chatMembers(ctx context.Context, chatID uuid.UUID) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id FROM chat_members WHERE chat_id = $1 ORDER BY position
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
func (s *PostgresStore) ListChatsForUser(ctx context.Context, userID string) ([]models.Chat, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.id, c.name, c.is_group, c.admin_id, c.latest_message_id, c.created_at, c.updated_at
		FROM chats c
		JOIN chat_members m ON m.chat_id = c.id
		WHERE m.user_id = $1
		ORDER BY c.updated_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chats []models.Chat
	for rows.Next() {
		var chat models.Chat
		if err := rows.Scan(&chat.ID, &chat.Name, &chat.IsGroup, &chat.AdminID, &chat.LatestMessageID, &chat.CreatedAt, &chat.UpdatedAt); err != nil {
			return nil, err
		}
		chats = append(chats, chat)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range chats {
		chats[i].Users, err = s.chatMembers(ctx, chats[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return chats, nil
}

// AddChatMember appends a participant to a chat.
func (s *PostgresStore) AddChatMember(ctx context.Context, chatID uuid.UUID, userID string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO chat_members (chat_id, user_id) VALUES ($1, $2)
		ON CONFLICT (chat_id, user_id) DO NOTHING
	`, chatID, userID)
	if err != nil {
		return err
	}
	return s.touchChat(ctx, chatID)
}

// RemoveChatMember removes a participant from a chat.
func (s *PostgresStore) RemoveChatMember(ctx context.Context, chatID uuid.UUID, userID string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM chat_members WHERE chat_id = $1 AND user_id = $2
	`, chatID, userID)
	if err != nil {
		return err
	}
	return s.touchChat(ctx, chatID)
}

// RenameGroupChat updates a group chat's name.
func (s *PostgresStore) RenameGroupChat(ctx context.Context, chatID uuid.UUID, name string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE chats SET name = $1, updated_at = now() WHERE id = $2
	`, name, chatID)
	return err
}

// SetLatestMessage updates a chat's latest-message pointer and bumps its
// activity timestamp.
func (s *PostgresStore) SetLatestMessage(ctx context.Context, chatID uuid.UUID, messageID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE chats SET latest_message_id = $1, updated_at = now() WHERE id = $2
	`, messageID, chatID)
	return err
}

func (s *PostgresStore) touchChat(ctx context.Context, chatID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE chats SET updated_at = now() WHERE id = $1
	`, chatID)
	return err
}

// CreateNotification persists a notification record.
func (s *PostgresStore) CreateNotification(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.Type == "" {
		n.Type = models.NotificationInfo
	}
	out := &models.Notification{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO notifications (id, recipient, type, message, related_id, link)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, recipient, type, message, related_id, link, read, created_at
	`, n.ID, n.Recipient, n.Type, n.Message, n.RelatedID, n.Link).Scan(
		&out.ID, &out.Recipient, &out.Type, &out.Message, &out.RelatedID, &out.Link, &out.Read, &out.CreatedAt)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetNotification retrieves a notification by ID. Returns nil if not found.
func (s *PostgresStore) GetNotification(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	n := &models.Notification{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, recipient, type, message, related_id, link, read, created_at
		FROM notifications WHERE id = $1
	`, id).Scan(&n.ID, &n.Recipient, &n.Type, &n.Message, &n.RelatedID, &n.Link, &n.Read, &n.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

// ListNotifications returns a user's notifications, newest first.
func (s *PostgresStore) ListNotifications(ctx context.Context, recipient string) ([]models.Notification, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, recipient, type, message, related_id, link, read, created_at
		FROM notifications WHERE recipient = $1
		ORDER BY created_at DESC
	`, recipient)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.Recipient, &n.Type, &n.Message, &n.RelatedID, &n.Link, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkNotificationRead marks a single notification as read.
func (s *PostgresStore) MarkNotificationRead(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE notifications SET read = true WHERE id = $1
	`, id)
	return err
}

// MarkAllNotificationsRead marks all of a user's notifications as read.
func (s *PostgresStore) MarkAllNotificationsRead(ctx context.Context, recipient string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE notifications SET read = true WHERE recipient = $1 AND read = false
	`, recipient)
	return err
}

// DeleteNotification removes a notification.
func (s *PostgresStore) DeleteNotification(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM notifications WHERE id = $1
	`, id)
	return err
}
