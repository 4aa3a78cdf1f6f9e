// Package broadcast is the fan-out layer between the room engine and
// connected clients. It is pure delivery with no filtering or replay; a late
// joiner gets its state from a join snapshot, not from missed events.
package broadcast

import (
	"log"
	"sync"
)

// Subscriber receives events for the rooms it is subscribed to. Send must not
// block; the engine broadcasts while holding room locks.
type Subscriber interface {
	Send(event string, payload interface{}) error
}

// Gateway tracks which subscribers listen to which room and delivers each
// emitted event to all of them. Per-room ordering is the emitter's: events
// arrive here in the order the room engine produced them and are handed to
// each subscriber in that order.
type Gateway struct {
	mu    sync.RWMutex
	rooms map[string]map[Subscriber]struct{}
}

func NewGateway() *Gateway {
	return &Gateway{
		rooms: make(map[string]map[Subscriber]struct{}),
	}
}

// Subscribe registers s for roomID's events. Subscribing twice is a no-op.
func (g *Gateway) Subscribe(roomID string, s Subscriber) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.rooms[roomID] == nil {
		g.rooms[roomID] = make(map[Subscriber]struct{})
	}
	g.rooms[roomID][s] = struct{}{}
}

// Unsubscribe removes s from roomID, cleaning up empty room entries.
func (g *Gateway) Unsubscribe(roomID string, s Subscriber) {
	g.mu.Lock()
	defer g.mu.Unlock()

	subs, ok := g.rooms[roomID]
	if !ok {
		return
	}
	delete(subs, s)
	if len(subs) == 0 {
		delete(g.rooms, roomID)
	}
}

// Broadcast delivers the event to every subscriber of roomID. Delivery
// failures are logged and do not stop delivery to the rest.
func (g *Gateway) Broadcast(roomID, event string, payload interface{}) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for s := range g.rooms[roomID] {
		if err := s.Send(event, payload); err != nil {
			log.Printf("Failed to deliver %s to a subscriber of room %s: %v", event, roomID, err)
		}
	}
}

// SubscriberCount reports how many subscribers a room currently has.
func (g *Gateway) SubscriberCount(roomID string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms[roomID])
}

// Stats summarizes gateway state for the health endpoint.
func (g *Gateway) Stats() map[string]int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	total := 0
	for _, subs := range g.rooms {
		total += len(subs)
	}
	return map[string]int{
		"subscribed_rooms":  len(g.rooms),
		"total_subscribers": total,
	}
}
