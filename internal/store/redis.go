package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/7085ashishraj/Campus-Collab/internal/models"
)

// RedisStore handles Redis operations for the message log, sessions, and
// per-user rate limiting.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// chatMessagesKey returns the key for a chat's message sorted set.
func chatMessagesKey(chatID string) string {
	return fmt.Sprintf("chat:%s:messages", chatID)
}

// sessionKey returns the key for a session token.
func sessionKey(token string) string {
	return fmt.Sprintf("session:%s", token)
}

// rateLimitKey returns the key for a user's message rate counter.
func rateLimitKey(userID string) string {
	return fmt.Sprintf("ratelimit:msg:%s", userID)
}

// AddMessage appends a message to its chat's log. The message ID and
// timestamp are generated here if unset.
func (s *RedisStore) AddMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return s.client.ZAdd(ctx, chatMessagesKey(msg.ChatID), redis.Z{
		Score:  float64(msg.Timestamp),
		Member: string(data),
	}).Err()
}

// GetChatMessages retrieves messages for a chat in creation order. With
// limit set it returns the newest limit messages older than the cursor,
// so a client paging backwards always walks from the tail.
func (s *RedisStore) GetChatMessages(ctx context.Context, chatID string, limit int, before int64) ([]models.Message, error) {
	key := chatMessagesKey(chatID)

	maxScore := "+inf"
	if before > 0 {
		maxScore = fmt.Sprintf("(%d", before) // exclusive
	}

	rangeBy := &redis.ZRangeBy{
		Min: "-inf",
		Max: maxScore,
	}

	var results []string
	var err error
	if limit > 0 {
		rangeBy.Count = int64(limit)
		results, err = s.client.ZRevRangeByScore(ctx, key, rangeBy).Result()
	} else {
		results, err = s.client.ZRangeByScore(ctx, key, rangeBy).Result()
	}
	if err != nil {
		return nil, err
	}

	messages := make([]models.Message, 0, len(results))
	for _, data := range results {
		var msg models.Message
		if err := json.Unmarshal([]byte(data), &msg); err != nil {
			continue
		}
		messages = append(messages, msg)
	}

	// The reverse range yields newest first; flip back to display order.
	if limit > 0 {
		for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
			messages[i], messages[j] = messages[j], messages[i]
		}
	}

	return messages, nil
}

// CreateSession binds a token to a user ID with a TTL.
func (s *RedisStore) CreateSession(ctx context.Context, token, userID string, ttl time.Duration) error {
	return s.client.Set(ctx, sessionKey(token), userID, ttl).Err()
}

// GetSession returns the user ID bound to a token, or "" if unknown.
func (s *RedisStore) GetSession(ctx context.Context, token string) (string, error) {
	userID, err := s.client.Get(ctx, sessionKey(token)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return userID, nil
}

// AllowMessage reports whether the user is under the message rate limit
// and counts this attempt. The window starts on the first message.
func (s *RedisStore) AllowMessage(ctx context.Context, userID string, limit int, window time.Duration) (bool, error) {
	key := rateLimitKey(userID)

	pipe := s.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	return incr.Val() <= int64(limit), nil
}
