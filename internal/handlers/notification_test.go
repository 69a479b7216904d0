package handlers

import (
	"net/http"
	"testing"

	"github.com/7085ashishraj/Campus-Collab/internal/models"
)

func TestNotificationLifecycle(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addUser("alice", "Alice")
	bob := env.addUser("bob", "Bob")

	rec := env.request(t, alice, http.MethodPost, "/notifications", map[string]string{
		"recipient": "bob",
		"type":      "success",
		"message":   "Alice accepted your collaboration request",
		"relatedId": "req-42",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body)
	}
	var created models.Notification
	decodeBody(t, rec, &created)
	if created.Read {
		t.Error("new notification already marked read")
	}

	// Only the recipient sees it
	rec = env.request(t, bob, http.MethodGet, "/notifications", nil)
	var list []models.Notification
	decodeBody(t, rec, &list)
	if len(list) != 1 || list[0].Recipient != "bob" {
		t.Fatalf("recipient listing wrong: %+v", list)
	}
	rec = env.request(t, alice, http.MethodGet, "/notifications", nil)
	decodeBody(t, rec, &list)
	if len(list) != 0 {
		t.Fatalf("sender sees recipient's notifications: %+v", list)
	}

	// Mark read, then delete
	rec = env.request(t, bob, http.MethodPut, "/notifications/"+created.ID.String()+"/read", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("mark read: expected 200, got %d", rec.Code)
	}
	var read models.Notification
	decodeBody(t, rec, &read)
	if !read.Read {
		t.Error("notification not marked read")
	}

	rec = env.request(t, bob, http.MethodDelete, "/notifications/"+created.ID.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rec.Code)
	}
	rec = env.request(t, bob, http.MethodGet, "/notifications", nil)
	decodeBody(t, rec, &list)
	if len(list) != 0 {
		t.Fatalf("notification survived deletion: %+v", list)
	}
}

func TestNotificationOwnership(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addUser("alice", "Alice")
	mallory := env.addUser("mallory", "Mallory")

	rec := env.request(t, alice, http.MethodPost, "/notifications", map[string]string{
		"recipient": "alice", "message": "project deadline tomorrow",
	})
	var n models.Notification
	decodeBody(t, rec, &n)

	rec = env.request(t, mallory, http.MethodPut, "/notifications/"+n.ID.String()+"/read", nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("foreign mark read: expected 403, got %d", rec.Code)
	}
	rec = env.request(t, mallory, http.MethodDelete, "/notifications/"+n.ID.String(), nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("foreign delete: expected 403, got %d", rec.Code)
	}
}

func TestNotificationValidation(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addUser("alice", "Alice")

	rec := env.request(t, alice, http.MethodPost, "/notifications", map[string]string{
		"recipient": "", "message": "hi",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing recipient: expected 400, got %d", rec.Code)
	}

	rec = env.request(t, alice, http.MethodPost, "/notifications", map[string]string{
		"recipient": "bob", "message": "  ",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank message: expected 400, got %d", rec.Code)
	}

	rec = env.request(t, alice, http.MethodPost, "/notifications", map[string]string{
		"recipient": "bob", "message": "hi", "type": "urgent",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown type: expected 400, got %d", rec.Code)
	}

	// Omitted type defaults to info
	rec = env.request(t, alice, http.MethodPost, "/notifications", map[string]string{
		"recipient": "bob", "message": "hi",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var n models.Notification
	decodeBody(t, rec, &n)
	if n.Type != models.NotificationInfo {
		t.Errorf("expected default info type, got %q", n.Type)
	}
}

func TestMarkAllNotificationsRead(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addUser("alice", "Alice")
	bob := env.addUser("bob", "Bob")

	for i := 0; i < 3; i++ {
		env.request(t, alice, http.MethodPost, "/notifications", map[string]string{
			"recipient": "bob", "message": "ping",
		})
	}
	env.request(t, bob, http.MethodPost, "/notifications", map[string]string{
		"recipient": "alice", "message": "pong",
	})

	rec := env.request(t, bob, http.MethodPut, "/notifications/read-all", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var list []models.Notification
	rec = env.request(t, bob, http.MethodGet, "/notifications", nil)
	decodeBody(t, rec, &list)
	for _, n := range list {
		if !n.Read {
			t.Errorf("notification %s still unread", n.ID)
		}
	}

	// Alice's notifications are untouched
	rec = env.request(t, alice, http.MethodGet, "/notifications", nil)
	decodeBody(t, rec, &list)
	if len(list) != 1 || list[0].Read {
		t.Fatalf("read-all leaked across recipients: %+v", list)
	}
}
