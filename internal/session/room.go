package session

import (
	"sync"

	"canvas/internal/models"
)

// Room holds the authoritative element collection and connected participants
// for one collaboration session. Once loaded it is the sole source of truth
// for that room until process restart.
type Room struct {
	ID string

	mu           sync.Mutex
	elements     []models.Element
	participants map[string]*member
	dirty        bool
}

// member is one live connection inside a room. Entries are keyed by
// connection key, not participant id: one logical participant may briefly
// hold several connections while a stale session times out.
type member struct {
	participantID string
	client        *Client
	cursor        *models.CursorPosition
}

func NewRoom(id string, elements []models.Element) *Room {
	return &Room{
		ID:           id,
		elements:     elements,
		participants: make(map[string]*member),
	}
}

func (r *Room) Register(connKey, participantID string, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.participants[connKey] = &member{participantID: participantID, client: client}
}

// Remove deletes the entry for connKey if present and reports the
// participant id it belonged to. A missing key is a no-op, not an error:
// disconnects can race with cleanup that already ran.
func (r *Room) Remove(connKey string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.participants[connKey]
	if !ok {
		return "", false
	}
	delete(r.participants, connKey)
	return m.participantID, true
}

// Others lists currently connected participants, excluding every connection
// that shares participantID: a rejoining user may still have a stale entry
// that has not timed out yet.
func (r *Room) Others(participantID string) []models.Participant {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Participant, 0, len(r.participants))
	for _, m := range r.participants {
		if m.participantID == participantID {
			continue
		}
		out = append(out, models.Participant{ParticipantID: m.participantID, Cursor: m.cursor})
	}
	return out
}

func (r *Room) Elements() []models.Element {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Element, len(r.elements))
	copy(out, r.elements)
	return out
}

// SetElements replaces the whole collection and marks the room dirty. The
// protocol is last full snapshot wins; there is no per-element patching.
func (r *Room) SetElements(elements []models.Element) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.elements = elements
	r.dirty = true
}

func (r *Room) Dirty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dirty
}

func (r *Room) MarkClean() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dirty = false
}

// SetCursor caches the cursor position for the connection and reports which
// participant it belongs to. Cursors are presence state only and never touch
// the element collection.
func (r *Room) SetCursor(connKey string, pos models.CursorPosition) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.participants[connKey]
	if !ok {
		return "", false
	}
	p := pos
	m.cursor = &p
	return m.participantID, true
}

func (r *Room) ParticipantCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.participants)
}

// Broadcast sends frame to every connection in the room except excludeKey.
// The sender never receives its own update echoed back.
func (r *Room) Broadcast(excludeKey string, frame models.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, m := range r.participants {
		if key == excludeKey {
			continue
		}
		m.client.Send(frame)
	}
}
