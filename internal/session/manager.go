package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"canvas/internal/models"
	"canvas/internal/storage"
)

const loadTimeout = 10 * time.Second

// Manager orchestrates the join/leave lifecycle: lazy-loading rooms from the
// durable store on first access and keeping participant presence current.
type Manager struct {
	registry *Registry
	store    storage.Store
	log      *zap.Logger
}

func NewManager(registry *Registry, store storage.Store, log *zap.Logger) *Manager {
	return &Manager{registry: registry, store: store, log: log}
}

// Join registers a connection in roomID, loading the room from durable
// storage on first access. It returns the room's current element collection
// for the new joiner and the already-present participants, excluding entries
// that share participantID. Everyone else is notified of the arrival.
func (m *Manager) Join(ctx context.Context, roomID, participantID, connKey string, client *Client) ([]models.Element, []models.Participant, error) {
	room, err := m.ensureRoom(ctx, roomID)
	if err != nil {
		return nil, nil, err
	}

	others := room.Others(participantID)
	room.Register(connKey, participantID, client)
	room.Broadcast(connKey, models.Frame{
		Type: models.EventParticipantJoined,
		Data: models.Participant{ParticipantID: participantID},
	})

	m.log.Info("participant joined",
		zap.String("roomId", roomID),
		zap.String("participantId", participantID),
		zap.Int("participants", room.ParticipantCount()))

	return room.Elements(), others, nil
}

// Leave removes the connection's participant entry and notifies the rest of
// the room. A missing room or entry is a no-op: disconnects can race with
// room teardown. The room itself always stays resident; eviction of empty
// rooms is deferred.
func (m *Manager) Leave(roomID, connKey string) {
	room, ok := m.registry.Get(roomID)
	if !ok {
		return
	}
	participantID, removed := room.Remove(connKey)
	if !removed {
		return
	}
	room.Broadcast(connKey, models.Frame{
		Type: models.EventParticipantLeft,
		Data: models.ParticipantLeft{ParticipantID: participantID},
	})

	m.log.Info("participant left",
		zap.String("roomId", roomID),
		zap.String("participantId", participantID),
		zap.Int("participants", room.ParticipantCount()))
}

// ensureRoom returns the resident room, loading it from the durable store on
// first access. The store is read exactly once per residency: a "not found"
// seeds a brand-new empty room, while a storage failure leaves no registry
// entry so a later retry can re-attempt the load.
func (m *Manager) ensureRoom(ctx context.Context, roomID string) (*Room, error) {
	if room, ok := m.registry.Get(roomID); ok {
		return room, nil
	}

	ctx, cancel := context.WithTimeout(ctx, loadTimeout)
	defer cancel()

	doc, err := m.store.FindByID(ctx, roomID)
	if errors.Is(err, storage.ErrNotFound) {
		return m.registry.Create(roomID, nil), nil
	}
	if err != nil {
		m.log.Error("canvas load failed", zap.String("roomId", roomID), zap.Error(err))
		return nil, fmt.Errorf("load room %s: %w", roomID, err)
	}
	return m.registry.Create(roomID, doc.Elements), nil
}
