package relay

import "sync"

// Registry maps room names to the set of connections that joined them,
// with a reverse index so a disconnecting connection can be removed from
// every room it belonged to. Each mutation is a single room-membership
// change scoped to one connection, so no cross-connection races exist.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Client]struct{}
	byConn map[*Client]map[string]struct{}
}

// NewRegistry creates an empty room registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms:  make(map[string]map[*Client]struct{}),
		byConn: make(map[*Client]map[string]struct{}),
	}
}

// Join adds the connection to a room. Idempotent.
func (r *Registry) Join(c *Client, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rooms[room] == nil {
		r.rooms[room] = make(map[*Client]struct{})
	}
	r.rooms[room][c] = struct{}{}

	if r.byConn[c] == nil {
		r.byConn[c] = make(map[string]struct{})
	}
	r.byConn[c][room] = struct{}{}
}

// Leave removes the connection from a room. Safe to call for rooms the
// connection never joined.
func (r *Registry) Leave(c *Client, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(c, room)
}

func (r *Registry) leaveLocked(c *Client, room string) {
	if members, ok := r.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(r.rooms, room)
		}
	}
	if joined, ok := r.byConn[c]; ok {
		delete(joined, room)
		if len(joined) == 0 {
			delete(r.byConn, c)
		}
	}
}

// Drop removes the connection from every room it belongs to. Called on
// disconnect so no membership leaks past the connection's lifetime.
func (r *Registry) Drop(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for room := range r.byConn[c] {
		r.leaveLocked(c, room)
	}
	delete(r.byConn, c)
}

// Members returns a snapshot of the connections in a room.
func (r *Registry) Members(room string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]*Client, 0, len(r.rooms[room]))
	for c := range r.rooms[room] {
		members = append(members, c)
	}
	return members
}

// Contains reports whether the connection is in the room.
func (r *Registry) Contains(c *Client, room string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byConn[c][room]
	return ok
}
