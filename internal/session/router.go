package session

import (
	"context"

	"go.uber.org/zap"

	"canvas/internal/models"
)

// Scheduler arms a deferred write-through for a room.
type Scheduler interface {
	Schedule(roomID string)
}

// Router applies incoming edit and cursor events to the room state and fans
// them out to every other connection. Events from one connection are applied
// in arrival order; concurrent snapshots from different connections resolve
// by simple overwrite.
type Router struct {
	manager   *Manager
	scheduler Scheduler
	log       *zap.Logger
}

func NewRouter(manager *Manager, scheduler Scheduler, log *zap.Logger) *Router {
	return &Router{manager: manager, scheduler: scheduler, log: log}
}

// ApplyElementUpdate replaces the room's element collection with the full
// snapshot, broadcasts it to everyone but the sender, and schedules
// persistence. If the room is absent (an update raced ahead of its join),
// the same lazy-load-or-create path as join runs first so updates are never
// silently dropped for a valid room id. Element updates never surface errors
// to the sender; the worst case is a locally-applied, not-yet-broadcast edit.
func (rt *Router) ApplyElementUpdate(ctx context.Context, roomID, connKey string, elements []models.Element) {
	if err := models.ValidateElements(elements); err != nil {
		rt.log.Warn("rejected element update", zap.String("roomId", roomID), zap.Error(err))
		return
	}

	room, err := rt.manager.ensureRoom(ctx, roomID)
	if err != nil {
		return
	}

	room.SetElements(elements)
	room.Broadcast(connKey, models.Frame{Type: models.EventElementsUpdated, Data: elements})
	rt.scheduler.Schedule(roomID)
}

// ApplyCursorUpdate caches the sender's cursor position and broadcasts it to
// the rest of the room. Cursor moves are never persisted and never schedule
// a save.
func (rt *Router) ApplyCursorUpdate(roomID, connKey string, pos models.CursorPosition) {
	room, ok := rt.manager.registry.Get(roomID)
	if !ok {
		return
	}
	participantID, ok := room.SetCursor(connKey, pos)
	if !ok {
		return
	}
	room.Broadcast(connKey, models.Frame{
		Type: models.EventCursorUpdate,
		Data: models.CursorBroadcast{ParticipantID: participantID, X: pos.X, Y: pos.Y},
	})
}
