package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"canvas/internal/models"
	"canvas/internal/storage"
)

type upsertCall struct {
	roomID   string
	elements []models.Element
}

type fakeStore struct {
	mu        sync.Mutex
	docs      map[string][]models.Element
	findErr   error
	findCalls int
	upserts   []upsertCall
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: make(map[string][]models.Element)}
}

func (f *fakeStore) FindByID(_ context.Context, roomID string) (*storage.StoredCanvas, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findCalls++
	if f.findErr != nil {
		return nil, f.findErr
	}
	elements, ok := f.docs[roomID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &storage.StoredCanvas{RoomID: roomID, Elements: elements, LastModified: time.Now()}, nil
}

func (f *fakeStore) Upsert(_ context.Context, roomID string, elements []models.Element, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, upsertCall{roomID: roomID, elements: elements})
	return nil
}

func TestJoinNewRoomReturnsEmptyState(t *testing.T) {
	store := newFakeStore()
	manager := NewManager(NewRegistry(), store, zap.NewNop())

	elements, others, err := manager.Join(context.Background(), "r1", "alice", "k1", NewClient(nil))
	if err != nil {
		t.Fatalf("unexpected join error: %v", err)
	}
	if len(elements) != 0 {
		t.Fatalf("expected empty element list, got %#v", elements)
	}
	if len(others) != 0 {
		t.Fatalf("expected no other participants, got %#v", others)
	}
}

func TestJoinLoadsStoredCanvasOnce(t *testing.T) {
	store := newFakeStore()
	store.docs["r1"] = []models.Element{{ID: "e1", Type: models.ElementRectangle, Width: 10, Height: 10}}
	manager := NewManager(NewRegistry(), store, zap.NewNop())

	elements, _, err := manager.Join(context.Background(), "r1", "alice", "k1", NewClient(nil))
	if err != nil {
		t.Fatalf("unexpected join error: %v", err)
	}
	if len(elements) != 1 || elements[0].ID != "e1" {
		t.Fatalf("expected stored elements, got %#v", elements)
	}

	// Second join must hit the resident room, not the store.
	if _, _, err := manager.Join(context.Background(), "r1", "bob", "k2", NewClient(nil)); err != nil {
		t.Fatalf("unexpected join error: %v", err)
	}
	if store.findCalls != 1 {
		t.Fatalf("expected one store read, got %d", store.findCalls)
	}
}

func TestSecondJoinerSeesFirst(t *testing.T) {
	store := newFakeStore()
	manager := NewManager(NewRegistry(), store, zap.NewNop())

	first := NewClient(nil)
	firstCap := newFrameCapture()
	first.SetSendHook(firstCap.hook)

	if _, _, err := manager.Join(context.Background(), "r1", "alice", "k1", first); err != nil {
		t.Fatalf("join alice: %v", err)
	}

	_, others, err := manager.Join(context.Background(), "r1", "bob", "k2", NewClient(nil))
	if err != nil {
		t.Fatalf("join bob: %v", err)
	}
	if len(others) != 1 || others[0].ParticipantID != "alice" {
		t.Fatalf("expected exactly alice, got %#v", others)
	}

	got := firstCap.list()
	if len(got) != 1 || got[0].Type != models.EventParticipantJoined {
		t.Fatalf("expected participant-joined notification, got %#v", got)
	}
}

func TestJoinStoreFailureLeavesNoRoom(t *testing.T) {
	store := newFakeStore()
	store.findErr = errors.New("store down")
	registry := NewRegistry()
	manager := NewManager(registry, store, zap.NewNop())

	if _, _, err := manager.Join(context.Background(), "r1", "alice", "k1", NewClient(nil)); err == nil {
		t.Fatalf("expected join error")
	}
	if _, ok := registry.Get("r1"); ok {
		t.Fatalf("failed load must not leave a phantom room")
	}

	// A retry after recovery is not blocked.
	store.mu.Lock()
	store.findErr = nil
	store.mu.Unlock()
	if _, _, err := manager.Join(context.Background(), "r1", "alice", "k1", NewClient(nil)); err != nil {
		t.Fatalf("retry should succeed, got %v", err)
	}
}

func TestLeaveRemovesAndNotifies(t *testing.T) {
	store := newFakeStore()
	registry := NewRegistry()
	manager := NewManager(registry, store, zap.NewNop())

	remaining := NewClient(nil)
	remainingCap := newFrameCapture()
	remaining.SetSendHook(remainingCap.hook)

	if _, _, err := manager.Join(context.Background(), "r1", "alice", "k1", remaining); err != nil {
		t.Fatalf("join alice: %v", err)
	}
	if _, _, err := manager.Join(context.Background(), "r1", "bob", "k2", NewClient(nil)); err != nil {
		t.Fatalf("join bob: %v", err)
	}

	manager.Leave("r1", "k2")

	room, _ := registry.Get("r1")
	if room.ParticipantCount() != 1 {
		t.Fatalf("expected 1 participant, got %d", room.ParticipantCount())
	}

	got := remainingCap.list()
	last := got[len(got)-1]
	if last.Type != models.EventParticipantLeft {
		t.Fatalf("expected participant-left, got %#v", last)
	}
	left, ok := last.Data.(models.ParticipantLeft)
	if !ok || left.ParticipantID != "bob" {
		t.Fatalf("unexpected payload: %#v", last.Data)
	}

	// A third joiner must not see the disconnected participant.
	_, others, err := manager.Join(context.Background(), "r1", "carol", "k3", NewClient(nil))
	if err != nil {
		t.Fatalf("join carol: %v", err)
	}
	if len(others) != 1 || others[0].ParticipantID != "alice" {
		t.Fatalf("expected only alice, got %#v", others)
	}
}

func TestLeaveIsIdempotent(t *testing.T) {
	store := newFakeStore()
	manager := NewManager(NewRegistry(), store, zap.NewNop())

	manager.Leave("missing", "k1")

	if _, _, err := manager.Join(context.Background(), "r1", "alice", "k1", NewClient(nil)); err != nil {
		t.Fatalf("join: %v", err)
	}
	manager.Leave("r1", "k1")
	manager.Leave("r1", "k1")
}

func TestLeaveKeepsRoomResident(t *testing.T) {
	store := newFakeStore()
	registry := NewRegistry()
	manager := NewManager(registry, store, zap.NewNop())

	if _, _, err := manager.Join(context.Background(), "r1", "alice", "k1", NewClient(nil)); err != nil {
		t.Fatalf("join: %v", err)
	}
	manager.Leave("r1", "k1")

	room, ok := registry.Get("r1")
	if !ok || room.ParticipantCount() != 0 {
		t.Fatalf("empty room should stay resident")
	}
}
