package session

import (
	"sync"

	"canvas/internal/models"
)

// Registry owns every resident Room. It is constructed once per process and
// passed by reference to the handlers; rooms are only reached through lookup
// by id, never retained across calls.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewRegistry() *Registry { return &Registry{rooms: make(map[string]*Room)} }

func (reg *Registry) Get(id string) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.rooms[id]
	return r, ok
}

// Create inserts a room seeded with elements. If a room with the same id was
// inserted concurrently, the existing one wins and is returned.
func (reg *Registry) Create(id string, elements []models.Element) *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if r, ok := reg.rooms[id]; ok {
		return r
	}
	r := NewRoom(id, elements)
	reg.rooms[id] = r
	return r
}

// Delete evicts a room from memory. Nothing on the live path calls this yet;
// idle-room eviction is deferred.
func (reg *Registry) Delete(id string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	delete(reg.rooms, id)
}

func (reg *Registry) Len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}

// ParticipantCount sums connected participants across all resident rooms.
func (reg *Registry) ParticipantCount() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	total := 0
	for _, r := range reg.rooms {
		total += r.ParticipantCount()
	}
	return total
}

// Elements reports the current collection for a room. The persistence
// scheduler reads through this at fire time rather than snapshotting at
// schedule time.
func (reg *Registry) Elements(roomID string) ([]models.Element, bool) {
	room, ok := reg.Get(roomID)
	if !ok {
		return nil, false
	}
	return room.Elements(), true
}

func (reg *Registry) MarkClean(roomID string) {
	if room, ok := reg.Get(roomID); ok {
		room.MarkClean()
	}
}
