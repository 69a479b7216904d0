package relay

import "testing"

func TestRegistryJoinLeave(t *testing.T) {
	r := NewRegistry()
	a := &Client{userID: "alice"}
	b := &Client{userID: "bob"}

	r.Join(a, "c:1")
	r.Join(b, "c:1")
	r.Join(a, "c:1") // idempotent

	if got := len(r.Members("c:1")); got != 2 {
		t.Fatalf("expected 2 members, got %d", got)
	}
	if !r.Contains(a, "c:1") {
		t.Error("expected alice in room")
	}

	r.Leave(a, "c:1")
	if r.Contains(a, "c:1") {
		t.Error("alice still in room after leave")
	}
	if got := len(r.Members("c:1")); got != 1 {
		t.Fatalf("expected 1 member, got %d", got)
	}

	// Leaving a room never joined is a no-op
	r.Leave(a, "c:2")
}

func TestRegistryDrop(t *testing.T) {
	r := NewRegistry()
	a := &Client{userID: "alice"}
	b := &Client{userID: "bob"}

	r.Join(a, "u:alice")
	r.Join(a, "c:1")
	r.Join(a, "c:2")
	r.Join(b, "c:1")

	r.Drop(a)

	for _, room := range []string{"u:alice", "c:1", "c:2"} {
		if r.Contains(a, room) {
			t.Errorf("alice still in %s after drop", room)
		}
	}
	if !r.Contains(b, "c:1") {
		t.Error("drop removed the wrong connection")
	}
}

func TestRegistryMembersSnapshot(t *testing.T) {
	r := NewRegistry()
	a := &Client{userID: "alice"}
	r.Join(a, "c:1")

	members := r.Members("c:1")
	r.Leave(a, "c:1")

	// The snapshot taken before the leave is unaffected
	if len(members) != 1 {
		t.Fatalf("expected snapshot of 1 member, got %d", len(members))
	}
	if got := len(r.Members("c:1")); got != 0 {
		t.Fatalf("expected empty room, got %d members", got)
	}
}
