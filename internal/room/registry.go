package room

import "sync"

// Registry maps room identifiers to room state. Rooms are created lazily on
// first reference and live for the life of the process; there is no eviction.
// The registry is an injected object rather than package state so tests get
// isolated instances.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*room
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*room),
	}
}

func (reg *Registry) get(id string) (*room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.rooms[id]
	return r, ok
}

// getOrCreate returns the room for id, creating it with default state when
// unknown. seed runs on the new room before it becomes visible.
func (reg *Registry) getOrCreate(id string, seed func(*room)) (*room, bool) {
	reg.mu.RLock()
	if r, ok := reg.rooms[id]; ok {
		reg.mu.RUnlock()
		return r, false
	}
	reg.mu.RUnlock()

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if r, ok := reg.rooms[id]; ok {
		return r, false
	}

	r := newRoom(id)
	if seed != nil {
		seed(r)
	}
	reg.rooms[id] = r
	return r, true
}

func (reg *Registry) all() []*room {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	rooms := make([]*room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		rooms = append(rooms, r)
	}
	return rooms
}

func (reg *Registry) count() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}
