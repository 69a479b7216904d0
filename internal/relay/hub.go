package relay

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/7085ashishraj/Campus-Collab/internal/metrics"
	"github.com/7085ashishraj/Campus-Collab/internal/models"
)

// Hub owns every active websocket client and routes events between them.
// Room membership lives in the Registry; the hub adds identity binding,
// typing relay, and message fan-out on top of it.
type Hub struct {
	registry *Registry
	log      zerolog.Logger

	mu      sync.RWMutex
	clients map[*Client]struct{}
	wg      sync.WaitGroup
}

// NewHub creates a hub ready to accept client registrations.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		registry: NewRegistry(),
		log:      logger,
		clients:  make(map[*Client]struct{}),
	}
}

// Register wraps an upgraded connection in a Client bound to the given
// identity and starts its pumps. The identity comes from the verified
// session established during the HTTP handshake, never from event
// payloads.
func (h *Hub) Register(conn wsConn, userID, addr string) *Client {
	c := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		userID: userID,
		addr:   addr,
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	metrics.SocketsConnected.Inc()
	h.log.Info().Str("user_id", userID).Str("addr", addr).Int("clients", count).Msg("socket connected")

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		c.writePump()
	}()
	go func() {
		defer h.wg.Done()
		c.readPump()
	}()

	return c
}

// unregister removes the client from the hub and from every room it
// joined. Called once, from the read pump's teardown.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	c.closed = true
	count := len(h.clients)
	h.mu.Unlock()

	h.registry.Drop(c)
	close(c.send)

	metrics.SocketsConnected.Dec()
	h.log.Info().Str("user_id", c.userID).Str("addr", c.addr).Int("clients", count).Msg("socket disconnected")
}

// handleEvent dispatches one inbound frame. Malformed frames are logged
// and dropped; they never affect other connections.
func (h *Hub) handleEvent(c *Client, raw []byte) {
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		h.log.Warn().Err(err).Str("user_id", c.userID).Msg("malformed event frame")
		return
	}

	switch ev.Name {
	case EventSetup, EventJoinChat, EventLeaveChat, EventTyping, EventStopTyping, EventNewMessage:
		metrics.SocketEvents.WithLabelValues(ev.Name).Inc()
	default:
		h.log.Debug().Str("event", ev.Name).Str("user_id", c.userID).Msg("unknown event")
		return
	}

	switch ev.Name {
	case EventSetup:
		h.setup(c, ev.Data)
	case EventJoinChat:
		if id := chatID(ev.Data); id != "" {
			h.registry.Join(c, chatRoom(id))
		}
	case EventLeaveChat:
		if id := chatID(ev.Data); id != "" {
			h.registry.Leave(c, chatRoom(id))
		}
	case EventTyping, EventStopTyping:
		h.relayTyping(c, ev.Name, ev.Data)
	case EventNewMessage:
		h.broadcastFromClient(c, ev.Data)
	}
}

// setup joins the client's identity room and acknowledges. The identity
// room is joined at most once per connection.
func (h *Hub) setup(c *Client, data json.RawMessage) {
	var payload SetupPayload
	if len(data) > 0 {
		if err := json.Unmarshal(data, &payload); err == nil && payload.UserID != "" && payload.UserID != c.userID {
			h.log.Warn().
				Str("session_user", c.userID).
				Str("payload_user", payload.UserID).
				Msg("setup payload identity ignored; session identity wins")
		}
	}

	if !c.setupDone {
		c.setupDone = true
		h.registry.Join(c, identityRoom(c.userID))
	}

	ack, err := marshalEvent(EventConnected, nil)
	if err != nil {
		return
	}
	h.safeSend(c, ack)
}

// relayTyping forwards a typing signal to every other connection
// currently viewing the chat. Signals are scoped to the chat room, never
// the identity room, and are never persisted.
func (h *Hub) relayTyping(c *Client, name string, data json.RawMessage) {
	id := chatID(data)
	if id == "" {
		return
	}

	payload, err := marshalEvent(name, ChatPayload{ChatID: id})
	if err != nil {
		return
	}

	metrics.TypingSignals.Inc()
	for _, member := range h.registry.Members(chatRoom(id)) {
		if member == c {
			continue
		}
		h.safeSend(member, payload)
	}
}

// broadcastFromClient handles a "new message" frame carrying an
// already-persisted message.
func (h *Hub) broadcastFromClient(c *Client, data json.RawMessage) {
	var msg models.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		h.log.Warn().Err(err).Str("user_id", c.userID).Msg("malformed message payload; broadcast skipped")
		metrics.DeliveriesDropped.WithLabelValues("malformed").Inc()
		return
	}
	// The sender is whoever holds this connection, regardless of what
	// the payload claims.
	msg.SenderID = c.userID
	h.BroadcastMessage(&msg)
}

// BroadcastMessage fans a persisted message out to every participant of
// its chat except the sender. Delivery goes to identity rooms, not the
// chat room, so recipients viewing another chat (or none) still receive
// the event for their notification badge. Delivery is fire-and-forget;
// missed events are recovered by the REST catch-up fetch.
func (h *Hub) BroadcastMessage(msg *models.Message) {
	if msg.Chat == nil || len(msg.Chat.Users) == 0 {
		h.log.Warn().Str("message_id", msg.ID).Msg("message missing chat participants; broadcast skipped")
		metrics.DeliveriesDropped.WithLabelValues("malformed").Inc()
		return
	}

	payload, err := marshalEvent(EventMessageReceived, msg)
	if err != nil {
		h.log.Error().Err(err).Str("message_id", msg.ID).Msg("encoding broadcast")
		return
	}

	for _, userID := range msg.Chat.Users {
		if userID == msg.SenderID {
			continue
		}
		for _, member := range h.registry.Members(identityRoom(userID)) {
			if h.safeSend(member, payload) {
				metrics.Deliveries.Inc()
			}
		}
	}
}

// safeSend queues a payload for a client without blocking. A client
// whose buffer is full has the event dropped; the REST catch-up path is
// the recovery mechanism.
func (h *Hub) safeSend(c *Client, payload []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if _, ok := h.clients[c]; !ok || c.closed {
		return false
	}

	select {
	case c.send <- payload:
		return true
	default:
		metrics.DeliveriesDropped.WithLabelValues("slow_client").Inc()
		h.log.Warn().Str("user_id", c.userID).Str("addr", c.addr).Msg("send buffer full; event dropped")
		return false
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown closes every client connection and waits for the pump
// goroutines to finish, or until the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		_ = c.conn.Close()
	}
	h.log.Info().Int("clients", len(clients)).Msg("closed client connections")

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		h.log.Warn().Msg("hub shutdown timeout; some goroutines may still be running")
		return context.DeadlineExceeded
	}
}

// chatID extracts the chat ID from a join/leave/typing payload. The web
// client historically sent either a bare string or an object.
func chatID(data json.RawMessage) string {
	if len(data) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}
	var payload ChatPayload
	if err := json.Unmarshal(data, &payload); err == nil {
		return payload.ChatID
	}
	return ""
}
