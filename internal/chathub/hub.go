// Package chathub fans group chat updates out to live subscribers.
//
// Every update is the group's complete message list, so a subscriber that
// misses one update loses nothing: the next one supersedes it. That lets
// Publish stay non-blocking. When a subscriber's buffer is full the oldest
// pending update is dropped to make room for the newest.
package chathub

import (
	"sync"

	"github.com/sakif/study-buddy/internal/model"
)

// bufferSize is how many undelivered updates a subscriber may hold.
const bufferSize = 4

// Hub tracks subscribers per group.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[*Subscription]struct{}
}

// New returns an empty hub.
func New() *Hub {
	return &Hub{subs: make(map[string]map[*Subscription]struct{})}
}

// Subscription receives a group's message list each time it changes.
// Close it when done; C is closed afterwards.
type Subscription struct {
	C <-chan []model.GroupChatMessage

	ch      chan []model.GroupChatMessage
	groupID string
	hub     *Hub
	once    sync.Once
}

// Subscribe registers a new subscriber for groupID.
func (h *Hub) Subscribe(groupID string) *Subscription {
	ch := make(chan []model.GroupChatMessage, bufferSize)
	sub := &Subscription{C: ch, ch: ch, groupID: groupID, hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subs[groupID] == nil {
		h.subs[groupID] = make(map[*Subscription]struct{})
	}
	h.subs[groupID][sub] = struct{}{}
	return sub
}

// Close unregisters the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		defer h.mu.Unlock()

		delete(h.subs[s.groupID], s)
		if len(h.subs[s.groupID]) == 0 {
			delete(h.subs, s.groupID)
		}
		close(s.ch)
	})
}

// Publish delivers messages to every subscriber of groupID without blocking.
// The slice is shared between subscribers and must not be modified.
func (h *Hub) Publish(groupID string, messages []model.GroupChatMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs[groupID] {
		deliver(sub.ch, messages)
	}
}

// deliver sends without blocking, evicting the stalest pending update when
// the buffer is full.
func deliver(ch chan []model.GroupChatMessage, messages []model.GroupChatMessage) {
	for {
		select {
		case ch <- messages:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Subscribers returns the number of live subscribers for groupID.
func (h *Hub) Subscribers(groupID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[groupID])
}
