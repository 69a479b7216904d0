// Package campuschat is a Go client for the CampusCollab chat service.
// It wraps the REST API for durable operations and the websocket relay
// for realtime delivery.
package campuschat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// User is a chat participant.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Chat is a conversation between two or more users.
type Chat struct {
	ID              string   `json:"id"`
	Name            string   `json:"name,omitempty"`
	IsGroup         bool     `json:"is_group"`
	AdminID         string   `json:"admin_id,omitempty"`
	Users           []string `json:"users"`
	LatestMessageID string   `json:"latest_message_id,omitempty"`
}

// ChatRef is the chat summary denormalized onto each message so the
// relay can fan out without a membership lookup.
type ChatRef struct {
	ID      string   `json:"id"`
	IsGroup bool     `json:"is_group"`
	Users   []string `json:"users"`
}

// Message is a chat message.
type Message struct {
	ID         string   `json:"id"`
	ChatID     string   `json:"chat_id"`
	SenderID   string   `json:"sender_id"`
	SenderName string   `json:"sender_name,omitempty"`
	Content    string   `json:"content"`
	Timestamp  int64    `json:"ts"`
	Chat       *ChatRef `json:"chat,omitempty"`
}

// Notification is a workflow event delivered to a user.
type Notification struct {
	ID        string `json:"id"`
	Recipient string `json:"recipient"`
	Type      string `json:"type"`
	Message   string `json:"message"`
	RelatedID string `json:"related_id,omitempty"`
	Link      string `json:"link,omitempty"`
	Read      bool   `json:"read"`
}

// Client is a CampusCollab REST API client.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
}

// New creates a client for the given server URL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
}

// SetToken sets the bearer token for authenticated requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	return c.token
}

// NewSession obtains a session token for the given identity and stores
// it on the client. serviceKey may be empty when the server runs
// without a service key.
func (c *Client) NewSession(ctx context.Context, userID, name, email, serviceKey string) (*User, error) {
	body := map[string]string{"userId": userID, "name": name, "email": email}

	var resp struct {
		Token string `json:"token"`
		User  *User  `json:"user"`
	}
	headers := map[string]string{}
	if serviceKey != "" {
		headers["X-Service-Key"] = serviceKey
	}
	if err := c.doWithHeaders(ctx, http.MethodPost, "/auth/session", headers, body, &resp); err != nil {
		return nil, err
	}

	c.token = resp.Token
	return resp.User, nil
}

// ListChats returns the caller's chats, most recently active first.
func (c *Client) ListChats(ctx context.Context) ([]Chat, error) {
	var chats []Chat
	if err := c.do(ctx, http.MethodGet, "/chat", nil, &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

// AccessChat returns the direct chat with the given user, creating it on
// first contact.
func (c *Client) AccessChat(ctx context.Context, userID string) (*Chat, error) {
	var chat Chat
	if err := c.do(ctx, http.MethodPost, "/chat", map[string]string{"userId": userID}, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

// CreateGroupChat creates a group chat with the caller as admin.
func (c *Client) CreateGroupChat(ctx context.Context, name string, users []string) (*Chat, error) {
	body := map[string]interface{}{"name": name, "users": users}
	var chat Chat
	if err := c.do(ctx, http.MethodPost, "/chat/group", body, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

// RenameGroup renames a group chat.
func (c *Client) RenameGroup(ctx context.Context, chatID, name string) (*Chat, error) {
	var chat Chat
	if err := c.do(ctx, http.MethodPut, "/chat/group/"+chatID, map[string]string{"name": name}, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

// AddToGroup adds a user to a group chat.
func (c *Client) AddToGroup(ctx context.Context, chatID, userID string) (*Chat, error) {
	var chat Chat
	if err := c.do(ctx, http.MethodPut, "/chat/group/"+chatID+"/add", map[string]string{"userId": userID}, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

// RemoveFromGroup removes a user from a group chat.
func (c *Client) RemoveFromGroup(ctx context.Context, chatID, userID string) (*Chat, error) {
	var chat Chat
	if err := c.do(ctx, http.MethodPut, "/chat/group/"+chatID+"/remove", map[string]string{"userId": userID}, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

// GetMessages fetches the full message history of a chat in creation
// order. This is the recovery path for anything missed while offline.
func (c *Client) GetMessages(ctx context.Context, chatID string) ([]Message, error) {
	var msgs []Message
	if err := c.do(ctx, http.MethodGet, "/message/"+chatID, nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// SendMessage persists a message and returns it with its server-assigned
// ID and the participant list the relay needs for fan-out.
func (c *Client) SendMessage(ctx context.Context, chatID, content string) (*Message, error) {
	body := map[string]string{"chatId": chatID, "content": content}
	var msg Message
	if err := c.do(ctx, http.MethodPost, "/message", body, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Notifications returns the caller's notifications, newest first.
func (c *Client) Notifications(ctx context.Context) ([]Notification, error) {
	var list []Notification
	if err := c.do(ctx, http.MethodGet, "/notifications", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// NotifyRequest creates a notification for a recipient.
type NotifyRequest struct {
	Recipient string `json:"recipient"`
	Type      string `json:"type,omitempty"`
	Message   string `json:"message"`
	RelatedID string `json:"relatedId,omitempty"`
	Link      string `json:"link,omitempty"`
}

// CreateNotification posts a notification for a recipient.
func (c *Client) CreateNotification(ctx context.Context, req NotifyRequest) (*Notification, error) {
	var created Notification
	if err := c.do(ctx, http.MethodPost, "/notifications", req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// MarkNotificationRead marks a notification as read.
func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPut, "/notifications/"+id+"/read", nil, nil)
}

// MarkAllNotificationsRead marks all of the caller's notifications read.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	return c.do(ctx, http.MethodPut, "/notifications/read-all", nil, nil)
}

// DeleteNotification removes a notification.
func (c *Client) DeleteNotification(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/notifications/"+id, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	return c.doWithHeaders(ctx, method, path, nil, body, out)
}

func (c *Client) doWithHeaders(ctx context.Context, method, path string, headers map[string]string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s (status %d)", method, path, apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
