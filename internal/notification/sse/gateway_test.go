package sse

import (
	"testing"

	"crm_backend/platform/logger"

	"github.com/google/uuid"
)

func connect(g *Gateway, userID uuid.UUID) *client {
	c := &client{userID: userID, events: make(chan Event, clientBuffer)}
	g.addClient(c)
	return c
}

func TestEmitToUserOnlyReachesThatUser(t *testing.T) {
	g := New(logger.Discard())
	alice, bob := uuid.New(), uuid.New()
	a1, a2, b := connect(g, alice), connect(g, alice), connect(g, bob)

	g.EmitToUser(alice, "lead_assigned", map[string]string{"lead": "Acme"})

	for _, c := range []*client{a1, a2} {
		select {
		case ev := <-c.events:
			if ev.Type != "lead_assigned" {
				t.Fatalf("unexpected event %q", ev.Type)
			}
		default:
			t.Fatal("expected alice's connections to receive the event")
		}
	}
	select {
	case ev := <-b.events:
		t.Fatalf("bob should not receive %q", ev.Type)
	default:
	}
}

func TestBroadcastReachesEveryone(t *testing.T) {
	g := New(logger.Discard())
	clients := []*client{connect(g, uuid.New()), connect(g, uuid.New())}

	g.Broadcast("user_registered", nil)

	for _, c := range clients {
		if len(c.events) != 1 {
			t.Fatalf("expected one event, got %d", len(c.events))
		}
	}
}

func TestFullBufferDropsInsteadOfBlocking(t *testing.T) {
	g := New(logger.Discard())
	user := uuid.New()
	c := connect(g, user)

	for i := 0; i < clientBuffer+5; i++ {
		g.EmitToUser(user, "activity_created", i)
	}
	if len(c.events) != clientBuffer {
		t.Fatalf("expected buffer to cap at %d, got %d", clientBuffer, len(c.events))
	}
}

func TestCloseThenRemoveDoesNotPanic(t *testing.T) {
	g := New(logger.Discard())
	user := uuid.New()
	c := connect(g, user)

	g.Close()
	g.removeClient(c)

	if g.ConnectedUsers() != 0 {
		t.Fatalf("expected no connected users, got %d", g.ConnectedUsers())
	}
	if g.addClient(&client{userID: user, events: make(chan Event, 1)}) {
		t.Fatal("expected closed gateway to reject new clients")
	}
}
