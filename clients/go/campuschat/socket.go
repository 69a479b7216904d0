package campuschat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// socketConn is the slice of a websocket connection the Socket needs.
// *websocket.Conn satisfies it; tests substitute a fake.
type socketConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// event is the JSON envelope for every frame on the socket.
type event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data,omitempty"`
}

type chatPayload struct {
	ChatID string `json:"chatId"`
}

// Handlers holds the callbacks a Socket dispatches to. All callbacks run
// on the socket's read goroutine; they must not block.
type Handlers struct {
	OnConnected       func()
	OnMessageReceived func(Message)
	OnTyping          func(chatID string)
	OnStopTyping      func(chatID string)
	OnDisconnect      func(err error)
}

// Socket is a realtime connection to the relay. Delivery over it is
// best effort; GetMessages on the REST client is the recovery path.
type Socket struct {
	conn     socketConn
	handlers Handlers

	writeMu sync.Mutex
	once    sync.Once
	done    chan struct{}
}

// DialSocket connects to the relay, announces readiness with a setup
// frame, and starts dispatching incoming events to the handlers.
func DialSocket(ctx context.Context, baseURL, token string, h Handlers) (*Socket, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	u.RawQuery = url.Values{"token": {token}}.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dialing relay: %w", err)
	}

	return startSocket(conn, h)
}

// startSocket wires a connection into a running Socket.
func startSocket(conn socketConn, h Handlers) (*Socket, error) {
	s := &Socket{
		conn:     conn,
		handlers: h,
		done:     make(chan struct{}),
	}

	if err := s.emit("setup", nil); err != nil {
		conn.Close()
		return nil, err
	}

	go s.readLoop()
	return s, nil
}

// Close tears down the connection. The read loop exits on the resulting
// read error.
func (s *Socket) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.conn.Close()
	})
	return err
}

// JoinChat subscribes to the typing signals of a chat. Call it when the
// chat's pane opens.
func (s *Socket) JoinChat(chatID string) error {
	return s.emit("join chat", chatPayload{ChatID: chatID})
}

// LeaveChat unsubscribes from a chat's typing signals.
func (s *Socket) LeaveChat(chatID string) error {
	return s.emit("leave chat", chatPayload{ChatID: chatID})
}

// Typing signals that the user is composing in a chat.
func (s *Socket) Typing(chatID string) error {
	return s.emit("typing", chatPayload{ChatID: chatID})
}

// StopTyping clears the typing signal for a chat.
func (s *Socket) StopTyping(chatID string) error {
	return s.emit("stop typing", chatPayload{ChatID: chatID})
}

// NewMessage hands an already-persisted message to the relay for fan-out
// to the other participants.
func (s *Socket) NewMessage(msg Message) error {
	return s.emit("new message", msg)
}

func (s *Socket) emit(name string, data interface{}) error {
	ev := event{Name: name}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return err
		}
		ev.Data = raw
	}
	frame, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, frame)
}

func (s *Socket) readLoop() {
	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
				err = nil // deliberate close
			default:
			}
			if s.handlers.OnDisconnect != nil {
				s.handlers.OnDisconnect(err)
			}
			return
		}

		var ev event
		if json.Unmarshal(frame, &ev) != nil {
			continue
		}

		switch ev.Name {
		case "connected":
			if s.handlers.OnConnected != nil {
				s.handlers.OnConnected()
			}
		case "message received":
			var msg Message
			if json.Unmarshal(ev.Data, &msg) != nil {
				continue
			}
			if s.handlers.OnMessageReceived != nil {
				s.handlers.OnMessageReceived(msg)
			}
		case "typing":
			if s.handlers.OnTyping != nil {
				s.handlers.OnTyping(decodeChatID(ev.Data))
			}
		case "stop typing":
			if s.handlers.OnStopTyping != nil {
				s.handlers.OnStopTyping(decodeChatID(ev.Data))
			}
		}
	}
}

// decodeChatID accepts both a bare string and a {chatId} object.
func decodeChatID(data json.RawMessage) string {
	var s string
	if json.Unmarshal(data, &s) == nil {
		return s
	}
	var p chatPayload
	if json.Unmarshal(data, &p) == nil {
		return p.ChatID
	}
	return ""
}
