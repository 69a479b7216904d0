package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestSocketRejectsBadTokens(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, nil, http.MethodGet, "/ws", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: expected 401, got %d", rec.Code)
	}

	rec = env.request(t, nil, http.MethodGet, "/ws?token=bogus", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unknown token: expected 401, got %d", rec.Code)
	}
}

func TestSocketUpgradeAndSetup(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("alice", "Alice")
	if err := env.sessions.CreateSession(context.Background(), "tok-alice", "alice", time.Hour); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(env.router)
	defer srv.Close()
	defer env.hub.Shutdown(time.Second)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=tok-alice"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dialing: %v", err)
	}
	defer conn.Close()

	if got := env.hub.ClientCount(); got != 1 {
		t.Fatalf("expected 1 registered client, got %d", got)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"setup"}`)); err != nil {
		t.Fatal(err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, frame, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("reading ack: %v", err)
	}
	var ev struct {
		Name string `json:"event"`
	}
	if err := json.Unmarshal(frame, &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Name != "connected" {
		t.Fatalf("expected connected ack, got %q", ev.Name)
	}
}

func TestCheckOrigin(t *testing.T) {
	env := newTestEnv(t)

	mkReq := func(origin, host string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		r.Host = host
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	// No configured origins: same host only
	if !env.handler.checkOrigin(mkReq("", "chat.campus.edu")) {
		t.Error("non-browser client without Origin should pass")
	}
	if !env.handler.checkOrigin(mkReq("https://chat.campus.edu", "chat.campus.edu")) {
		t.Error("same-host origin should pass")
	}
	if env.handler.checkOrigin(mkReq("https://evil.example", "chat.campus.edu")) {
		t.Error("cross-host origin should fail")
	}

	// Configured allow list
	env.handler.SetAllowedOrigins([]string{"https://app.campus.edu"})
	if !env.handler.checkOrigin(mkReq("https://app.campus.edu", "chat.campus.edu")) {
		t.Error("allowed origin should pass")
	}
	if env.handler.checkOrigin(mkReq("https://other.campus.edu", "chat.campus.edu")) {
		t.Error("unlisted origin should fail")
	}

	env.handler.SetAllowedOrigins([]string{"*"})
	if !env.handler.checkOrigin(mkReq("https://anything.example", "chat.campus.edu")) {
		t.Error("wildcard should allow any origin")
	}
}
