package campuschat

import (
	"sync"
	"time"
)

// DefaultQuietInterval is how long after the last keystroke the typing
// indicator clears.
const DefaultQuietInterval = 3 * time.Second

// typingEmitter is the slice of the Socket the notifier uses.
type typingEmitter interface {
	Typing(chatID string) error
	StopTyping(chatID string) error
}

// TypingNotifier debounces keystrokes into at most one typing signal per
// composing burst. A single timer is re-armed on every keystroke; it
// fires once after the quiet interval and emits the stop signal.
type TypingNotifier struct {
	emitter typingEmitter
	quiet   time.Duration

	mu     sync.Mutex
	chatID string
	timer  *time.Timer
	active bool
}

// NewTypingNotifier creates a notifier emitting over the given socket.
// quiet <= 0 selects DefaultQuietInterval.
func NewTypingNotifier(emitter typingEmitter, quiet time.Duration) *TypingNotifier {
	if quiet <= 0 {
		quiet = DefaultQuietInterval
	}
	return &TypingNotifier{emitter: emitter, quiet: quiet}
}

// Keystroke records typing activity in a chat. The first keystroke of a
// burst emits the typing signal; every keystroke pushes the stop signal
// further out.
func (n *TypingNotifier) Keystroke(chatID string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.active && n.chatID == chatID {
		n.timer.Reset(n.quiet)
		return
	}

	// Switching chats mid-burst clears the old chat's indicator first.
	if n.active {
		n.timer.Stop()
		n.emitter.StopTyping(n.chatID)
	}

	n.chatID = chatID
	n.active = true
	n.emitter.Typing(chatID)
	n.timer = time.AfterFunc(n.quiet, n.fire)
}

func (n *TypingNotifier) fire() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.active {
		return
	}
	n.active = false
	n.emitter.StopTyping(n.chatID)
}

// Cancel disarms the pending stop signal without emitting it. The caller
// is about to emit stop typing itself, typically on send.
func (n *TypingNotifier) Cancel() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.timer != nil {
		n.timer.Stop()
	}
	n.active = false
}
