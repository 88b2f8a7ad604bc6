package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

// fakeConn records written frames instead of hitting the network
type fakeConn struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	frame := make([]byte, len(data))
	copy(frame, data)
	f.frames = append(f.frames, frame)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) messages(t *testing.T) []Message {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Message, 0, len(f.frames))
	for _, frame := range f.frames {
		var msg Message
		if err := json.Unmarshal(frame, &msg); err != nil {
			t.Fatalf("bad frame %q: %v", frame, err)
		}
		out = append(out, msg)
	}
	return out
}

func setupHub(t *testing.T) *Hub {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	hub := NewHub(client)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub.Start(ctx)

	// wait until the consume loop is actually subscribed, otherwise
	// an early publish is silently lost
	waitFor(t, func() bool {
		counts, err := client.PubSubNumSub(ctx, eventsChannel).Result()
		return err == nil && counts[eventsChannel] > 0
	})
	return hub
}

func registerClient(t *testing.T, hub *Hub, id, namespace string) (*Client, *fakeConn) {
	t.Helper()
	conn := &fakeConn{}
	client := NewClient(id, namespace, Identity{Kind: IdentityCustomer, UserID: 1}, conn)
	hub.Register(client)
	return client, conn
}

// waitFor polls until the condition holds; the pub/sub loop is asynchronous
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestEmitToConnDeliversToLocalClient(t *testing.T) {
	hub := setupHub(t)
	_, conn := registerClient(t, hub, "conn-1", NamespaceTrips)

	hub.EmitToConn(context.Background(), "conn-1", "trip_updated", map[string]int{"id": 7})

	waitFor(t, func() bool { return len(conn.messages(t)) == 1 })
	msg := conn.messages(t)[0]
	if msg.Type != "trip_updated" {
		t.Errorf("type = %q", msg.Type)
	}
}

func TestEmitToUnknownConnIsDropped(t *testing.T) {
	hub := setupHub(t)
	_, conn := registerClient(t, hub, "conn-1", NamespaceTrips)

	hub.EmitToConn(context.Background(), "conn-elsewhere", "trip_updated", nil)
	hub.EmitToConn(context.Background(), "conn-1", "ping-check", nil)

	// the second emit arriving proves the first was processed and dropped
	waitFor(t, func() bool { return len(conn.messages(t)) == 1 })
	if got := conn.messages(t)[0].Type; got != "ping-check" {
		t.Errorf("delivered %q, want ping-check only", got)
	}
}

func TestEmitToRoomReachesMembersOnly(t *testing.T) {
	hub := setupHub(t)
	_, connA := registerClient(t, hub, "conn-a", NamespaceConversations)
	_, connB := registerClient(t, hub, "conn-b", NamespaceConversations)
	_, connC := registerClient(t, hub, "conn-c", NamespaceConversations)

	hub.JoinRoom("conn-a", "conversation_1")
	hub.JoinRoom("conn-b", "conversation_1")

	hub.EmitToRoom(context.Background(), NamespaceConversations, "conversation_1", "newMessage", map[string]string{"content": "hi"})

	waitFor(t, func() bool {
		return len(connA.messages(t)) == 1 && len(connB.messages(t)) == 1
	})
	if len(connC.messages(t)) != 0 {
		t.Error("non-member received the room event")
	}
}

func TestRoomsAreScopedByNamespace(t *testing.T) {
	hub := setupHub(t)
	_, tripsConn := registerClient(t, hub, "conn-trips", NamespaceTrips)
	_, scheduleConn := registerClient(t, hub, "conn-schedule", NamespaceDriverSchedule)

	// same room name in two namespaces
	hub.JoinRoom("conn-trips", "driver_5")
	hub.JoinRoom("conn-schedule", "driver_5")

	hub.EmitToRoom(context.Background(), NamespaceTrips, "driver_5", "trip_updated", nil)

	waitFor(t, func() bool { return len(tripsConn.messages(t)) == 1 })
	if len(scheduleConn.messages(t)) != 0 {
		t.Error("event leaked into the same-named room of another namespace")
	}
}

func TestLeaveRoomStopsDelivery(t *testing.T) {
	hub := setupHub(t)
	_, conn := registerClient(t, hub, "conn-1", NamespaceConversations)

	hub.JoinRoom("conn-1", "conversation_1")
	hub.LeaveRoom("conn-1", "conversation_1")

	hub.EmitToRoom(context.Background(), NamespaceConversations, "conversation_1", "newMessage", nil)
	hub.EmitToConn(context.Background(), "conn-1", "ping-check", nil)

	waitFor(t, func() bool { return len(conn.messages(t)) == 1 })
	if got := conn.messages(t)[0].Type; got != "ping-check" {
		t.Errorf("delivered %q after leaving the room", got)
	}
}

func TestUnregisterClosesAndCleansRooms(t *testing.T) {
	hub := setupHub(t)
	client, conn := registerClient(t, hub, "conn-1", NamespaceConversations)
	hub.JoinRoom("conn-1", "conversation_1")

	hub.Unregister(client)
	waitFor(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		_, ok := hub.conns["conn-1"]
		return !ok
	})

	conn.mu.Lock()
	closed := conn.closed
	conn.mu.Unlock()
	if !closed {
		t.Error("connection not closed on unregister")
	}

	hub.mu.RLock()
	_, roomExists := hub.rooms[roomKey(NamespaceConversations, "conversation_1")]
	hub.mu.RUnlock()
	if roomExists {
		t.Error("empty room not cleaned up")
	}
}

func TestJoinRoomRightAfterRegister(t *testing.T) {
	hub := setupHub(t)
	_, conn := registerClient(t, hub, "conn-1", NamespaceShareItinerary)

	// the handshake joins the role room immediately after Register;
	// membership must be in place before any event targets the room
	hub.JoinRoom("conn-1", "driver_1")

	hub.mu.RLock()
	_, joined := hub.rooms[roomKey(NamespaceShareItinerary, "driver_1")]["conn-1"]
	hub.mu.RUnlock()
	if !joined {
		t.Fatal("client is not a room member immediately after Register")
	}

	hub.EmitToRoom(context.Background(), NamespaceShareItinerary, "driver_1", "schedule_updated", "x")
	waitFor(t, func() bool { return len(conn.messages(t)) == 1 })
}
