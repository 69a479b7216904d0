// Package relay implements the realtime chat relay: the identity room
// registry, typing signal coordination, and message fan-out over
// websocket connections.
package relay

import "encoding/json"

// Wire event names. These match the event vocabulary of the web client,
// spaces included.
const (
	EventSetup           = "setup"
	EventConnected       = "connected"
	EventJoinChat        = "join chat"
	EventLeaveChat       = "leave chat"
	EventTyping          = "typing"
	EventStopTyping      = "stop typing"
	EventNewMessage      = "new message"
	EventMessageReceived = "message received"
)

// Event is the JSON envelope for every frame on the socket.
type Event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ChatPayload addresses a chat room for join/leave and typing signals.
type ChatPayload struct {
	ChatID string `json:"chatId"`
}

// SetupPayload is accepted for compatibility with clients that send an
// identity on setup. The identity bound at upgrade time wins; a payload
// mismatch is logged and ignored.
type SetupPayload struct {
	UserID string `json:"userId,omitempty"`
}

// identityRoom names the room every connection of a user joins for
// direct delivery.
func identityRoom(userID string) string {
	return "u:" + userID
}

// chatRoom names the room scoping typing signals to a chat's open viewers.
func chatRoom(chatID string) string {
	return "c:" + chatID
}

// marshalEvent encodes an event envelope with its payload.
func marshalEvent(name string, data interface{}) ([]byte, error) {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return json.Marshal(Event{Name: name, Data: raw})
}
