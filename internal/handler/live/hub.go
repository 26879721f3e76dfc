// Package live pushes engine decisions to websocket subscribers as they are
// recorded, one feed per negotiation.
package live

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/nsxzhou/haggle/backend/internal/model/negotiation"
)

// Event is the wire shape of one live feed entry.
type Event struct {
	Type          string               `json:"type"`
	NegotiationID string               `json:"negotiationId"`
	Decision      negotiation.Decision `json:"decision"`
	Timestamp     time.Time            `json:"timestamp"`
}

// client serializes writes to one websocket connection through its send
// channel; the writer goroutine lives in the handler.
type client struct {
	send chan []byte
}

// Hub fans recorded decisions out to the subscribers of each negotiation.
// It satisfies the turn service's Publisher interface.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*client]struct{}
	now         func() time.Time
}

// NewHub 创建一个空的订阅中心。
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[*client]struct{}),
		now:         time.Now,
	}
}

// Publish sends the decision to every subscriber of the negotiation. Slow
// subscribers are skipped rather than blocking the turn pipeline.
func (h *Hub) Publish(negotiationID string, d negotiation.Decision) {
	event := Event{
		Type:          "decision",
		NegotiationID: negotiationID,
		Decision:      d,
		Timestamp:     h.now().UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[live] failed to marshal event: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.subscribers[negotiationID] {
		select {
		case c.send <- data:
		default:
			log.Printf("[live] dropping event for slow subscriber negotiation=%s", negotiationID)
		}
	}
}

func (h *Hub) subscribe(negotiationID string) *client {
	c := &client{send: make(chan []byte, 16)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subscribers[negotiationID] == nil {
		h.subscribers[negotiationID] = make(map[*client]struct{})
	}
	h.subscribers[negotiationID][c] = struct{}{}
	return c
}

func (h *Hub) unsubscribe(negotiationID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.subscribers[negotiationID]
	if set == nil {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.subscribers, negotiationID)
	}
}

// SubscriberCount reports the current subscribers of a negotiation.
func (h *Hub) SubscriberCount(negotiationID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[negotiationID])
}
