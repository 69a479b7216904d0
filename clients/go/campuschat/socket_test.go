package campuschat

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeWire scripts the relay side of a socket connection.
type fakeWire struct {
	inbound chan []byte
	done    chan struct{}
	once    sync.Once

	mu     sync.Mutex
	writes [][]byte
}

func newFakeWire() *fakeWire {
	return &fakeWire{
		inbound: make(chan []byte, 16),
		done:    make(chan struct{}),
	}
}

func (f *fakeWire) ReadMessage() (int, []byte, error) {
	select {
	case frame := <-f.inbound:
		return 1, frame, nil
	case <-f.done:
		return 0, nil, errors.New("closed")
	}
}

func (f *fakeWire) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, data)
	return nil
}

func (f *fakeWire) Close() error {
	f.once.Do(func() { close(f.done) })
	return nil
}

func (f *fakeWire) sentEvents(t *testing.T) []string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	names := make([]string, 0, len(f.writes))
	for _, frame := range f.writes {
		var ev event
		if err := json.Unmarshal(frame, &ev); err != nil {
			t.Fatalf("socket wrote invalid JSON: %s", frame)
		}
		names = append(names, ev.Name)
	}
	return names
}

func TestSocketEmitsSetupOnStart(t *testing.T) {
	wire := newFakeWire()
	s, err := startSocket(wire, Handlers{})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if got := wire.sentEvents(t); len(got) != 1 || got[0] != "setup" {
		t.Fatalf("expected setup frame first, got %v", got)
	}
}

func TestSocketDispatchesEvents(t *testing.T) {
	wire := newFakeWire()

	connected := make(chan struct{}, 1)
	received := make(chan Message, 1)
	typing := make(chan string, 1)
	stopped := make(chan string, 1)

	s, err := startSocket(wire, Handlers{
		OnConnected:       func() { connected <- struct{}{} },
		OnMessageReceived: func(m Message) { received <- m },
		OnTyping:          func(id string) { typing <- id },
		OnStopTyping:      func(id string) { stopped <- id },
	})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	wire.inbound <- []byte(`{"event":"connected"}`)
	wire.inbound <- []byte(`{"event":"message received","data":{"id":"m1","chat_id":"chat-1","content":"hi"}}`)
	wire.inbound <- []byte(`{"event":"typing","data":{"chatId":"chat-1"}}`)
	wire.inbound <- []byte(`{"event":"stop typing","data":"chat-1"}`)

	select {
	case <-connected:
	case <-time.After(time.Second):
		t.Fatal("connected handler not called")
	}
	select {
	case m := <-received:
		if m.ID != "m1" || m.ChatID != "chat-1" {
			t.Fatalf("wrong message dispatched: %+v", m)
		}
	case <-time.After(time.Second):
		t.Fatal("message handler not called")
	}
	select {
	case id := <-typing:
		if id != "chat-1" {
			t.Fatalf("typing chat ID: %q", id)
		}
	case <-time.After(time.Second):
		t.Fatal("typing handler not called")
	}
	select {
	case id := <-stopped:
		if id != "chat-1" {
			t.Fatalf("stop typing chat ID from bare string: %q", id)
		}
	case <-time.After(time.Second):
		t.Fatal("stop typing handler not called")
	}
}

func TestSocketIgnoresUnknownAndMalformedFrames(t *testing.T) {
	wire := newFakeWire()
	received := make(chan Message, 1)

	s, err := startSocket(wire, Handlers{
		OnMessageReceived: func(m Message) { received <- m },
	})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	wire.inbound <- []byte(`garbage`)
	wire.inbound <- []byte(`{"event":"mystery"}`)
	wire.inbound <- []byte(`{"event":"message received","data":{"id":"m1","chat_id":"c"}}`)

	select {
	case m := <-received:
		if m.ID != "m1" {
			t.Fatalf("wrong message after bad frames: %+v", m)
		}
	case <-time.After(time.Second):
		t.Fatal("dispatch broken by bad frames")
	}
}

func TestSocketEmitHelpers(t *testing.T) {
	wire := newFakeWire()
	s, err := startSocket(wire, Handlers{})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	s.JoinChat("chat-1")
	s.Typing("chat-1")
	s.StopTyping("chat-1")
	s.NewMessage(Message{ID: "m1", ChatID: "chat-1"})
	s.LeaveChat("chat-1")

	want := []string{"setup", "join chat", "typing", "stop typing", "new message", "leave chat"}
	got := wire.sentEvents(t)
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestSocketCloseReportsCleanDisconnect(t *testing.T) {
	wire := newFakeWire()
	disconnected := make(chan error, 1)

	s, err := startSocket(wire, Handlers{
		OnDisconnect: func(err error) { disconnected <- err },
	})
	if err != nil {
		t.Fatal(err)
	}

	s.Close()

	select {
	case err := <-disconnected:
		if err != nil {
			t.Fatalf("deliberate close reported as error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("disconnect handler not called")
	}
}
