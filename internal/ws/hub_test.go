package ws

import (
	"encoding/json"
	"testing"
)

func testClient(h *Hub, uid string, buffer int) *Client {
	return &Client{
		hub:    h,
		send:   make(chan []byte, buffer),
		done:   make(chan struct{}),
		UserID: uid,
	}
}

func drain(c *Client) []Event {
	var events []Event
	for {
		select {
		case raw := <-c.send:
			var ev Event
			if err := json.Unmarshal(raw, &ev); err == nil {
				events = append(events, ev)
			}
		default:
			return events
		}
	}
}

func TestPresence(t *testing.T) {
	h := NewHub()
	u1 := testClient(h, "u1", 8)
	h.Register(u1)

	if !h.IsOnline("u1") {
		t.Fatal("u1 should be online after register")
	}
	if got := h.OnlineUsers(); len(got) != 1 || got[0] != "u1" {
		t.Fatalf("online users = %v", got)
	}

	u2 := testClient(h, "u2", 8)
	h.Register(u2)
	events := drain(u1)
	if len(events) != 1 || events[0].Type != EventUserOnline || events[0].SenderID != "u2" {
		t.Fatalf("u1 should see u2 come online, got %+v", events)
	}
	if events := drain(u2); len(events) != 0 {
		t.Fatalf("u2 should not see its own online event, got %+v", events)
	}

	h.Unregister(u2)
	if h.IsOnline("u2") {
		t.Fatal("u2 should be offline after unregister")
	}
	events = drain(u1)
	if len(events) != 1 || events[0].Type != EventUserOffline {
		t.Fatalf("u1 should see u2 go offline, got %+v", events)
	}
}

func TestRegisterReplacesChannel(t *testing.T) {
	h := NewHub()
	old := testClient(h, "u1", 8)
	h.Register(old)
	replacement := testClient(h, "u1", 8)
	h.Register(replacement)

	if !h.IsOnline("u1") {
		t.Fatal("u1 should still be online")
	}
	if old.trySend([]byte("x")) {
		t.Fatal("replaced channel should refuse sends")
	}

	// a late unregister from the replaced channel must not evict the
	// replacement
	h.Unregister(old)
	if !h.IsOnline("u1") {
		t.Fatal("stale unregister evicted the live channel")
	}
}

func TestSendToChatFanOut(t *testing.T) {
	h := NewHub()
	a := testClient(h, "a1", 8)
	b := testClient(h, "b1", 8)
	c := testClient(h, "c1", 8)
	h.Register(a)
	h.Register(b)
	h.Register(c)
	drain(a)
	drain(b)
	drain(c)

	h.Subscribe("a1", "conv1")
	h.Subscribe("b1", "conv1")
	// c1 is connected but not subscribed

	n := h.SendToChat("conv1", Event{Type: EventNewMessage, SenderID: "a1"}, "a1")
	if n != 1 {
		t.Fatalf("delivered = %d, want 1", n)
	}
	if events := drain(a); len(events) != 0 {
		t.Fatalf("sender should be excluded, got %+v", events)
	}
	events := drain(b)
	if len(events) != 1 || events[0].Type != EventNewMessage {
		t.Fatalf("b1 should receive exactly one new_message, got %+v", events)
	}
	if events := drain(c); len(events) != 0 {
		t.Fatalf("unsubscribed user should receive nothing, got %+v", events)
	}

	h.Unsubscribe("b1", "conv1")
	if n := h.SendToChat("conv1", Event{Type: EventNewMessage}, "a1"); n != 0 {
		t.Fatalf("delivered after unsubscribe = %d, want 0", n)
	}
}

func TestSendFailureEvictsUser(t *testing.T) {
	h := NewHub()
	// zero buffer and no pump: every delivery attempt fails. The
	// watcher registers first so its own presence broadcast does not
	// already evict the stuck channel.
	watcher := testClient(h, "u2", 8)
	stuck := testClient(h, "u1", 0)
	h.Register(watcher)
	h.Register(stuck)
	drain(watcher)
	h.Subscribe("u1", "conv1")

	if ok := h.SendToUser("u1", Event{Type: EventNewMessage}); ok {
		t.Fatal("delivery to a stuck channel should fail")
	}
	if h.IsOnline("u1") {
		t.Fatal("failed send should evict the user")
	}
	events := drain(watcher)
	if len(events) != 1 || events[0].Type != EventUserOffline {
		t.Fatalf("watcher should see the eviction as user_offline, got %+v", events)
	}

	// no channel left: unicast reports failure without panicking
	if ok := h.SendToUser("u1", Event{Type: EventNewMessage}); ok {
		t.Fatal("delivery to an offline user should fail")
	}
}

func TestTypingIndicator(t *testing.T) {
	h := NewHub()
	a := testClient(h, "a1", 8)
	b := testClient(h, "b1", 8)
	h.Register(a)
	h.Register(b)
	drain(a)
	drain(b)
	h.Subscribe("a1", "conv1")
	h.Subscribe("b1", "conv1")

	h.Typing("a1", "conv1", true)

	if events := drain(a); len(events) != 0 {
		t.Fatalf("typer should not receive its own indicator, got %+v", events)
	}
	events := drain(b)
	if len(events) != 1 || events[0].Type != EventUserTyping {
		t.Fatalf("b1 should receive user_typing, got %+v", events)
	}
	data, ok := events[0].Data.(map[string]interface{})
	if !ok || data["is_typing"] != true || data["user_id"] != "a1" {
		t.Fatalf("unexpected typing payload %+v", events[0].Data)
	}
}
