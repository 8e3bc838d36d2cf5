package broadcast

import (
	"encoding/json"
	"testing"
)

func TestSubscribeAndBroadcast(t *testing.T) {
	r := NewRegistry()
	_, conn := newTestClient(r, "s1", testUser(1))

	r.Subscribe("s1", "news")
	r.Broadcast("news", "PostCreated", json.RawMessage(`{"id":7}`), "")

	frame := conn.nextFrame(t)
	if frame.Event != "PostCreated" {
		t.Errorf("expected event PostCreated, got %q", frame.Event)
	}
	if frame.Channel != "news" {
		t.Errorf("expected channel news, got %q", frame.Channel)
	}
	if string(frame.Data) != `{"id":7}` {
		t.Errorf("unexpected data: %s", frame.Data)
	}
}

func TestSubscribeIsIdempotent(t *testing.T) {
	r := NewRegistry()
	_, conn := newTestClient(r, "s1", testUser(1))

	r.Subscribe("s1", "news")
	r.Subscribe("s1", "news")

	if got := r.ChannelSize("news"); got != 1 {
		t.Fatalf("expected 1 member, got %d", got)
	}

	// One broadcast still delivers exactly one frame
	r.Broadcast("news", "E", json.RawMessage(`{}`), "")
	conn.nextFrame(t)
	conn.expectNoFrame(t)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	r := NewRegistry()
	_, conn := newTestClient(r, "s1", testUser(1))

	r.Subscribe("s1", "news")
	r.Unsubscribe("s1", "news")
	r.Broadcast("news", "E", json.RawMessage(`{}`), "")

	conn.expectNoFrame(t)
}

func TestEmptyChannelsAreRemoved(t *testing.T) {
	r := NewRegistry()
	newTestClient(r, "s1", testUser(1))

	r.Subscribe("s1", "news")
	if !r.Subscribed("s1", "news") {
		t.Fatal("expected s1 subscribed to news")
	}

	r.Unsubscribe("s1", "news")
	if r.ChannelSize("news") != 0 {
		t.Error("expected channel removed after last member left")
	}
}

func TestBroadcastExcludesSocket(t *testing.T) {
	r := NewRegistry()
	_, conn1 := newTestClient(r, "s1", testUser(1))
	_, conn2 := newTestClient(r, "s2", testUser(2))

	r.Subscribe("s1", "news")
	r.Subscribe("s2", "news")
	r.Broadcast("news", "E", json.RawMessage(`{}`), "s1")

	conn2.nextFrame(t)
	conn1.expectNoFrame(t)
}

func TestBroadcastToUnknownChannelIsNoop(t *testing.T) {
	r := NewRegistry()
	r.Broadcast("nowhere", "E", json.RawMessage(`{}`), "")
}

func TestDisconnectRemovesAllState(t *testing.T) {
	r := NewRegistry()
	client, conn := newTestClient(r, "s1", testUser(1))

	r.Subscribe("s1", "news")
	r.Subscribe("s1", "sports")

	r.Disconnect("s1")

	if r.Len() != 0 {
		t.Error("expected no live connections")
	}
	if r.Subscribed("s1", "news") || r.Subscribed("s1", "sports") {
		t.Error("expected socket removed from every channel")
	}
	if got := len(r.UserSockets(1)); got != 0 {
		t.Errorf("expected empty user index, got %d sockets", got)
	}
	if !conn.isClosed() {
		t.Error("expected underlying connection closed")
	}

	// Repeated disconnect is a no-op
	r.Disconnect("s1")
	r.Disconnect(client.ID())
}

func TestUserMayOwnMultipleConnections(t *testing.T) {
	r := NewRegistry()
	user := testUser(1)
	newTestClient(r, "s1", user)
	newTestClient(r, "s2", user)

	if got := len(r.UserSockets(1)); got != 2 {
		t.Fatalf("expected 2 sockets for user 1, got %d", got)
	}

	r.Disconnect("s1")
	if got := len(r.UserSockets(1)); got != 1 {
		t.Errorf("expected 1 socket after disconnect, got %d", got)
	}
}

func TestFailedDeliveryDisconnectsOnlyThatSocket(t *testing.T) {
	r := NewRegistry()

	// dead client: no write pump, buffer filled to capacity
	deadConn := newMockConn()
	dead := NewClient("dead", testUser(1), deadConn)
	r.Register(dead)
	for i := 0; i < sendBufferSize; i++ {
		if err := dead.Send([]byte(`{}`)); err != nil {
			t.Fatalf("buffer filled early at %d: %v", i, err)
		}
	}

	_, liveConn := newTestClient(r, "live", testUser(2))

	r.Subscribe("dead", "news")
	r.Subscribe("live", "news")

	r.Broadcast("news", "E", json.RawMessage(`{}`), "")

	// the live socket still gets the frame
	liveConn.nextFrame(t)

	// the dead socket is gone from the registry
	if r.Subscribed("dead", "news") {
		t.Error("expected dead socket removed from channel")
	}
	if r.Len() != 1 {
		t.Errorf("expected 1 live connection, got %d", r.Len())
	}
}

func TestCloseDisconnectsEverything(t *testing.T) {
	r := NewRegistry()
	_, conn1 := newTestClient(r, "s1", testUser(1))
	_, conn2 := newTestClient(r, "s2", testUser(2))
	r.Subscribe("s1", "news")

	r.Close()

	if r.Len() != 0 {
		t.Errorf("expected empty registry, got %d", r.Len())
	}
	if !conn1.isClosed() || !conn2.isClosed() {
		t.Error("expected all connections closed")
	}
}
