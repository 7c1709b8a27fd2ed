// Package ws tracks live chat channels and routes real-time events.
package ws

import (
	"encoding/json"
	"log"
	"sync"
)

// Hub is the process-wide connection registry: at most one live channel
// per user, plus each user's conversation subscriptions. State is
// rebuilt from scratch on restart; presence has no durability.
//
// A single RWMutex guards both maps. Map mutation never blocks on I/O;
// frame delivery is a non-blocking channel send, and a failed send is
// treated as a disconnect for that user (stale channels are pruned
// lazily on the next send attempt).
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	subs    map[string]map[string]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		subs:    make(map[string]map[string]struct{}),
	}
}

// Register records c as its user's single active channel, replacing any
// prior channel for that user, and announces the user to everyone else.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if old, ok := h.clients[c.UserID]; ok {
		old.shutdown()
	}
	h.clients[c.UserID] = c
	h.subs[c.UserID] = make(map[string]struct{})
	h.mu.Unlock()

	log.Printf("[ws] user %s connected", c.UserID)
	h.broadcastPresence(EventUserOnline, c.UserID)
}

// Unregister drops c if it is still the registered channel for its
// user. A replaced channel unregistering late must not evict its
// successor.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	cur, ok := h.clients[c.UserID]
	if !ok || cur != c {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.UserID)
	delete(h.subs, c.UserID)
	c.shutdown()
	h.mu.Unlock()

	log.Printf("[ws] user %s disconnected", c.UserID)
	h.broadcastPresence(EventUserOffline, c.UserID)
}

// Subscribe adds a conversation to the user's fan-out set. Sending does
// not require a subscription; receiving does. No-op while offline.
func (h *Hub) Subscribe(userID, conversationID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[userID]; ok {
		set[conversationID] = struct{}{}
	}
}

func (h *Hub) Unsubscribe(userID, conversationID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[userID]; ok {
		delete(set, conversationID)
	}
}

// SendToUser is a best-effort unicast. A failed delivery disconnects
// the target.
func (h *Hub) SendToUser(userID string, ev Event) bool {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[ws] marshal %s event: %v", ev.Type, err)
		return false
	}
	h.mu.RLock()
	c, ok := h.clients[userID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	if !c.trySend(payload) {
		h.Unregister(c)
		return false
	}
	return true
}

// SendToChat fans ev out to every connected user subscribed to the
// conversation except excludeUserID, and reports how many deliveries
// succeeded. Dead channels found along the way are evicted.
func (h *Hub) SendToChat(conversationID string, ev Event, excludeUserID string) int {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[ws] marshal %s event: %v", ev.Type, err)
		return 0
	}

	h.mu.RLock()
	var targets []*Client
	for uid, c := range h.clients {
		if uid == excludeUserID {
			continue
		}
		if _, ok := h.subs[uid][conversationID]; !ok {
			continue
		}
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	delivered := 0
	var dead []*Client
	for _, c := range targets {
		if c.trySend(payload) {
			delivered++
		} else {
			dead = append(dead, c)
		}
	}
	for _, c := range dead {
		h.Unregister(c)
	}
	return delivered
}

// Typing fans a typing indicator out to the conversation, excluding the
// typer.
func (h *Hub) Typing(userID, conversationID string, isTyping bool) {
	h.SendToChat(conversationID, Event{
		Type: EventUserTyping,
		Data: map[string]interface{}{
			"conversation_id": conversationID,
			"user_id":         userID,
			"is_typing":       isTyping,
		},
		SenderID: userID,
	}, userID)
}

// IsOnline reports whether the user has an open channel right now.
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

// OnlineUsers lists every currently connected user id.
func (h *Hub) OnlineUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.clients))
	for uid := range h.clients {
		out = append(out, uid)
	}
	return out
}

// broadcastPresence notifies every other connected user that userID
// went on- or offline.
func (h *Hub) broadcastPresence(eventType, userID string) {
	payload, err := json.Marshal(Event{
		Type:     eventType,
		Data:     map[string]interface{}{"user_id": userID},
		SenderID: userID,
	})
	if err != nil {
		log.Printf("[ws] marshal %s event: %v", eventType, err)
		return
	}

	h.mu.RLock()
	var targets []*Client
	for uid, c := range h.clients {
		if uid == userID {
			continue
		}
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	var dead []*Client
	for _, c := range targets {
		if !c.trySend(payload) {
			dead = append(dead, c)
		}
	}
	for _, c := range dead {
		h.Unregister(c)
	}
}
