package campuschat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// fetchHold gates one history fetch so tests can interleave relay
// deliveries with an in-flight GET.
type fetchHold struct {
	started chan struct{}
	release chan struct{}
}

// chatServer fakes the REST API for view tests: a message log per chat
// that GET returns and POST appends to.
type chatServer struct {
	mu     sync.Mutex
	msgs   map[string][]Message
	holds  map[string]*fetchHold
	nextID int
}

func newChatServer() (*chatServer, *httptest.Server) {
	cs := &chatServer{
		msgs:  make(map[string][]Message),
		holds: make(map[string]*fetchHold),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/message/", func(w http.ResponseWriter, r *http.Request) {
		chatID := strings.TrimPrefix(r.URL.Path, "/message/")

		cs.mu.Lock()
		hold := cs.holds[chatID]
		delete(cs.holds, chatID)
		// Snapshot before blocking so the response reflects the log as
		// it was when the fetch arrived, like a real query would.
		list := append([]Message{}, cs.msgs[chatID]...)
		cs.mu.Unlock()

		if hold != nil {
			close(hold.started)
			<-hold.release
		}
		json.NewEncoder(w).Encode(list)
	})
	mux.HandleFunc("/message", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ChatID  string `json:"chatId"`
			Content string `json:"content"`
		}
		json.NewDecoder(r.Body).Decode(&req)

		cs.mu.Lock()
		defer cs.mu.Unlock()
		cs.nextID++
		msg := Message{
			ID:       fmt.Sprintf("m%d", cs.nextID),
			ChatID:   req.ChatID,
			SenderID: "alice",
			Content:  req.Content,
		}
		cs.msgs[req.ChatID] = append(cs.msgs[req.ChatID], msg)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(msg)
	})

	return cs, httptest.NewServer(mux)
}

// hold blocks the next history fetch for chatID until release is
// called. The started channel closes once the fetch is in flight.
func (cs *chatServer) hold(chatID string) (started <-chan struct{}, release func()) {
	h := &fetchHold{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	cs.mu.Lock()
	cs.holds[chatID] = h
	cs.mu.Unlock()
	return h.started, func() { close(h.release) }
}

func (cs *chatServer) seed(chatID string, contents ...string) []Message {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	for _, content := range contents {
		cs.nextID++
		cs.msgs[chatID] = append(cs.msgs[chatID], Message{
			ID:      fmt.Sprintf("m%d", cs.nextID),
			ChatID:  chatID,
			Content: content,
		})
	}
	return cs.msgs[chatID]
}

func newTestView(t *testing.T) (*ChatView, *chatServer, *emitRecorder) {
	t.Helper()
	cs, srv := newChatServer()
	t.Cleanup(srv.Close)

	api := New(srv.URL)
	api.SetToken("tok")
	rec := &emitRecorder{}
	return NewChatView(api, rec), cs, rec
}

func TestOpenFetchesHistoryAndJoins(t *testing.T) {
	view, cs, rec := newTestView(t)
	cs.seed("chat-1", "hi", "hello")

	if err := view.Open(context.Background(), "chat-1"); err != nil {
		t.Fatal(err)
	}

	msgs := view.Messages()
	if len(msgs) != 2 || msgs[0].Content != "hi" || msgs[1].Content != "hello" {
		t.Fatalf("buffer does not match fetched history: %+v", msgs)
	}
	if got := rec.entries(); len(got) != 1 || got[0] != "join chat-1" {
		t.Fatalf("expected join after fetch, got %v", got)
	}
	if view.OpenChatID() != "chat-1" {
		t.Fatalf("view not open")
	}
}

func TestIncomingDedupByID(t *testing.T) {
	view, cs, _ := newTestView(t)
	seeded := cs.seed("chat-1", "hi")

	if err := view.Open(context.Background(), "chat-1"); err != nil {
		t.Fatal(err)
	}

	// The relay redelivers a message the fetch already returned
	view.HandleIncoming(seeded[0])
	view.HandleIncoming(Message{ID: "m-new", ChatID: "chat-1", Content: "fresh"})
	view.HandleIncoming(Message{ID: "m-new", ChatID: "chat-1", Content: "fresh"})

	msgs := view.Messages()
	if len(msgs) != 2 {
		t.Fatalf("dedup failed, buffer: %+v", msgs)
	}
	if msgs[1].ID != "m-new" {
		t.Fatalf("relayed message not appended in arrival order: %+v", msgs)
	}
}

func TestIncomingForClosedChatBadges(t *testing.T) {
	view, cs, _ := newTestView(t)
	cs.seed("chat-1", "hi")

	if err := view.Open(context.Background(), "chat-1"); err != nil {
		t.Fatal(err)
	}

	view.HandleIncoming(Message{ID: "x1", ChatID: "chat-2"})
	view.HandleIncoming(Message{ID: "x2", ChatID: "chat-2"})
	view.HandleIncoming(Message{ID: "x3", ChatID: "chat-3"})

	if got := view.Unread("chat-2"); got != 2 {
		t.Errorf("expected 2 unread for chat-2, got %d", got)
	}
	if got := view.Unread("chat-3"); got != 1 {
		t.Errorf("expected 1 unread for chat-3, got %d", got)
	}
	if got := len(view.Messages()); got != 1 {
		t.Errorf("foreign messages leaked into the open buffer: %d", got)
	}

	// Opening the chat clears its badge
	if err := view.Open(context.Background(), "chat-2"); err != nil {
		t.Fatal(err)
	}
	if got := view.Unread("chat-2"); got != 0 {
		t.Errorf("badge not cleared on open, got %d", got)
	}
}

func TestSendClearsTypingThenRelays(t *testing.T) {
	view, _, rec := newTestView(t)

	if err := view.Open(context.Background(), "chat-1"); err != nil {
		t.Fatal(err)
	}
	view.Keystroke()

	msg, err := view.Send(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if msg.ID == "" {
		t.Fatal("sent message has no server ID")
	}

	got := rec.entries()
	want := []string{"join chat-1", "typing chat-1", "stop chat-1", "send " + msg.ID}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("emission order wrong at %d: expected %v, got %v", i, want, got)
		}
	}

	// The sent message is in the buffer exactly once, even if the relay
	// echoes it back
	view.HandleIncoming(*msg)
	msgs := view.Messages()
	if len(msgs) != 1 || msgs[0].ID != msg.ID {
		t.Fatalf("optimistic append broken: %+v", msgs)
	}
}

func TestSendWithoutOpenChat(t *testing.T) {
	view, _, _ := newTestView(t)

	if _, err := view.Send(context.Background(), "hello"); err != ErrNoOpenChat {
		t.Fatalf("expected ErrNoOpenChat, got %v", err)
	}
}

func TestCloseLeavesChat(t *testing.T) {
	view, cs, rec := newTestView(t)
	cs.seed("chat-1", "hi")

	if err := view.Open(context.Background(), "chat-1"); err != nil {
		t.Fatal(err)
	}
	view.Close()

	got := rec.entries()
	if got[len(got)-1] != "leave chat-1" {
		t.Fatalf("expected trailing leave, got %v", got)
	}
	if view.OpenChatID() != "" {
		t.Fatal("view still open after close")
	}

	// Messages for the closed chat now badge instead of buffering
	view.HandleIncoming(Message{ID: "x1", ChatID: "chat-1"})
	if got := view.Unread("chat-1"); got != 1 {
		t.Errorf("expected badge after close, got %d", got)
	}
}

func TestMessageRacingTheOpenFetchIsMerged(t *testing.T) {
	view, cs, _ := newTestView(t)
	cs.seed("chat-1", "hi")
	started, release := cs.hold("chat-1")

	done := make(chan error, 1)
	go func() { done <- view.Open(context.Background(), "chat-1") }()
	<-started

	// Persisted after the server built the fetch response, relayed while
	// the fetch is still in flight
	view.HandleIncoming(Message{ID: "m-raced", ChatID: "chat-1", Content: "raced"})

	release()
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	msgs := view.Messages()
	if len(msgs) != 2 || msgs[0].Content != "hi" || msgs[1].ID != "m-raced" {
		t.Fatalf("raced message not merged after fetch: %+v", msgs)
	}
	if got := view.Unread("chat-1"); got != 0 {
		t.Errorf("merged message also badged: %d", got)
	}

	// A relay echo of the merged message stays deduped
	view.HandleIncoming(Message{ID: "m-raced", ChatID: "chat-1", Content: "raced"})
	if got := len(view.Messages()); got != 2 {
		t.Fatalf("merge broke dedup: %d messages", got)
	}
}

func TestStaleOpenCompletionIsAbandoned(t *testing.T) {
	view, cs, rec := newTestView(t)
	cs.seed("chat-1", "one")
	cs.seed("chat-2", "two")
	started, release := cs.hold("chat-1")

	done := make(chan error, 1)
	go func() { done <- view.Open(context.Background(), "chat-1") }()
	<-started

	// The user switches chats before the first fetch returns
	if err := view.Open(context.Background(), "chat-2"); err != nil {
		t.Fatal(err)
	}
	release()
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	if got := view.OpenChatID(); got != "chat-2" {
		t.Fatalf("stale completion stole the view: open chat is %q", got)
	}
	msgs := view.Messages()
	if len(msgs) != 1 || msgs[0].Content != "two" {
		t.Fatalf("stale fetch overwrote the buffer: %+v", msgs)
	}
	for _, entry := range rec.entries() {
		if entry == "join chat-1" {
			t.Fatalf("abandoned open still joined its chat: %v", rec.entries())
		}
	}
}

func TestSwitchingChatsLeavesPrevious(t *testing.T) {
	view, cs, rec := newTestView(t)
	cs.seed("chat-1", "one")
	cs.seed("chat-2", "two")

	if err := view.Open(context.Background(), "chat-1"); err != nil {
		t.Fatal(err)
	}
	if err := view.Open(context.Background(), "chat-2"); err != nil {
		t.Fatal(err)
	}

	got := rec.entries()
	want := []string{"join chat-1", "leave chat-1", "join chat-2"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	msgs := view.Messages()
	if len(msgs) != 1 || msgs[0].Content != "two" {
		t.Fatalf("buffer not replaced on switch: %+v", msgs)
	}
}
