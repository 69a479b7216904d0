package campuschat

import (
	"context"
	"errors"
	"sync"
)

// View states for the active chat pane.
const (
	ViewClosed = iota
	ViewOpening
	ViewOpen
)

// relayEmitter is the slice of the Socket a ChatView emits through.
// *Socket satisfies it; tests substitute a recorder.
type relayEmitter interface {
	JoinChat(chatID string) error
	LeaveChat(chatID string) error
	Typing(chatID string) error
	StopTyping(chatID string) error
	NewMessage(msg Message) error
}

// ErrNoOpenChat is returned when sending without an open chat.
var ErrNoOpenChat = errors.New("no open chat")

// ChatView tracks the client-side state of the chat UI: the buffer of
// the one open chat and unread counts for the rest. Wire HandleIncoming
// as the socket's OnMessageReceived handler.
//
// The fetch-then-join order in Open, together with dedup by message ID,
// keeps the buffer consistent: anything the fetch and the relay both see
// lands exactly once, and anything the relay drops is covered by the
// next fetch. Events relayed while the fetch is in flight are parked in
// pending and merged once it lands, so a message persisted after the
// server built the fetch response still reaches the buffer.
type ChatView struct {
	api      *Client
	sock     relayEmitter
	notifier *TypingNotifier

	mu      sync.Mutex
	state   int
	chatID  string
	msgs    []Message
	seen    map[string]struct{}
	pending []Message
	unread  map[string]int
}

// NewChatView creates a view emitting over the given socket.
func NewChatView(api *Client, sock relayEmitter) *ChatView {
	return &ChatView{
		api:      api,
		sock:     sock,
		notifier: NewTypingNotifier(sock, DefaultQuietInterval),
		unread:   make(map[string]int),
	}
}

// Open makes chatID the active chat: it fetches the full history,
// subscribes to the chat's typing signals, and clears its unread badge.
// Any previously open chat is left first.
func (v *ChatView) Open(ctx context.Context, chatID string) error {
	v.mu.Lock()
	if v.state == ViewOpen && v.chatID == chatID {
		v.mu.Unlock()
		return nil
	}
	if v.state == ViewOpen {
		v.notifier.Cancel()
		v.sock.LeaveChat(v.chatID)
	}
	// Superseding an in-flight open turns its raced events into badges.
	if len(v.pending) > 0 && v.chatID != chatID {
		v.unread[v.chatID] += len(v.pending)
	}
	v.pending = nil
	v.state = ViewOpening
	v.chatID = chatID
	v.mu.Unlock()

	msgs, err := v.api.GetMessages(ctx, chatID)

	v.mu.Lock()
	defer v.mu.Unlock()

	// A newer Open or Close won the race; this completion is stale.
	if v.state != ViewOpening || v.chatID != chatID {
		return nil
	}
	if err != nil {
		v.unread[chatID] += len(v.pending)
		v.pending = nil
		v.state = ViewClosed
		return err
	}

	// The fetch replaces the buffer wholesale; it is the authority.
	v.msgs = msgs
	v.seen = make(map[string]struct{}, len(msgs))
	for _, m := range msgs {
		v.seen[m.ID] = struct{}{}
	}
	// Merge events relayed mid-fetch; the fetch may or may not already
	// include them, so dedup by ID decides.
	for _, m := range v.pending {
		if _, dup := v.seen[m.ID]; dup {
			continue
		}
		v.seen[m.ID] = struct{}{}
		v.msgs = append(v.msgs, m)
	}
	v.pending = nil
	delete(v.unread, chatID)
	v.state = ViewOpen

	return v.sock.JoinChat(chatID)
}

// Close leaves the active chat.
func (v *ChatView) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state != ViewClosed {
		v.notifier.Cancel()
		v.sock.LeaveChat(v.chatID)
	}
	if len(v.pending) > 0 {
		v.unread[v.chatID] += len(v.pending)
	}
	v.pending = nil
	v.state = ViewClosed
	v.chatID = ""
	v.msgs = nil
	v.seen = nil
}

// HandleIncoming routes a relayed message: into the buffer if its chat
// is open, onto the unread badge otherwise. Duplicates of messages the
// fetch already returned are dropped by ID.
func (v *ChatView) HandleIncoming(msg Message) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state == ViewOpen && msg.ChatID == v.chatID {
		if _, dup := v.seen[msg.ID]; dup {
			return
		}
		v.seen[msg.ID] = struct{}{}
		v.msgs = append(v.msgs, msg)
		return
	}

	// Messages arriving mid-open park until the fetch lands; Open merges
	// them into the buffer with the same dedup.
	if v.state == ViewOpening && msg.ChatID == v.chatID {
		v.pending = append(v.pending, msg)
		return
	}

	v.unread[msg.ChatID]++
}

// Keystroke records composing activity in the open chat.
func (v *ChatView) Keystroke() {
	v.mu.Lock()
	chatID := v.chatID
	open := v.state == ViewOpen
	v.mu.Unlock()

	if open {
		v.notifier.Keystroke(chatID)
	}
}

// Send persists a message in the open chat and hands it to the relay.
// The typing indicator is cleared first so recipients never see typing
// outlive the message itself.
func (v *ChatView) Send(ctx context.Context, content string) (*Message, error) {
	v.mu.Lock()
	if v.state != ViewOpen {
		v.mu.Unlock()
		return nil, ErrNoOpenChat
	}
	chatID := v.chatID
	v.mu.Unlock()

	v.notifier.Cancel()
	v.sock.StopTyping(chatID)

	msg, err := v.api.SendMessage(ctx, chatID, content)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	if v.state == ViewOpen && v.chatID == chatID {
		if _, dup := v.seen[msg.ID]; !dup {
			v.seen[msg.ID] = struct{}{}
			v.msgs = append(v.msgs, *msg)
		}
	}
	v.mu.Unlock()

	// Fan-out is best effort; the message is already durable.
	v.sock.NewMessage(*msg)

	return msg, nil
}

// Messages returns a copy of the open chat's buffer in display order.
func (v *ChatView) Messages() []Message {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]Message, len(v.msgs))
	copy(out, v.msgs)
	return out
}

// Unread returns the unread badge count for a chat.
func (v *ChatView) Unread(chatID string) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.unread[chatID]
}

// OpenChatID returns the active chat ID, or "" when no chat is open.
func (v *ChatView) OpenChatID() string {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state != ViewOpen {
		return ""
	}
	return v.chatID
}
