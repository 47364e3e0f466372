package persist

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"canvas/internal/metrics"
	"canvas/internal/models"
	"canvas/internal/storage"
)

const (
	DefaultDelay        = 5 * time.Second
	DefaultWriteTimeout = 10 * time.Second
)

// Source reports the current element collection for a room. The scheduler
// reads it when the timer fires, not when the edit was scheduled.
type Source interface {
	Elements(roomID string) ([]models.Element, bool)
	MarkClean(roomID string)
}

// Scheduler coalesces rapid edits into a single deferred write per room.
// Each Schedule re-arms the room's timer, so a continuous edit stream defers
// persistence until the stream pauses for the full delay (trailing debounce,
// not a fixed-interval flush).
type Scheduler struct {
	store        storage.Store
	source       Source
	log          *zap.Logger
	delay        time.Duration
	writeTimeout time.Duration

	// OnPersist, when set, is invoked after every successful write.
	OnPersist func(roomID string)

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func New(store storage.Store, source Source, log *zap.Logger, delay, writeTimeout time.Duration) *Scheduler {
	if delay <= 0 {
		delay = DefaultDelay
	}
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	return &Scheduler{
		store:        store,
		source:       source,
		log:          log,
		delay:        delay,
		writeTimeout: writeTimeout,
		timers:       make(map[string]*time.Timer),
	}
}

// Schedule arms or re-arms the deferred write for roomID.
func (s *Scheduler) Schedule(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[roomID]; ok {
		t.Reset(s.delay)
		return
	}
	s.timers[roomID] = time.AfterFunc(s.delay, func() { s.fire(roomID) })
}

// Pending reports whether a write is currently armed for roomID.
func (s *Scheduler) Pending(roomID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[roomID]
	return ok
}

func (s *Scheduler) fire(roomID string) {
	s.mu.Lock()
	delete(s.timers, roomID)
	s.mu.Unlock()

	s.persist(roomID)
}

// persist writes the room's current collection. Durable persistence is
// best-effort relative to the live session: a failure is logged and the slot
// stays cleared with no automatic retry.
func (s *Scheduler) persist(roomID string) {
	elements, ok := s.source.Elements(roomID)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
	defer cancel()

	if err := s.store.Upsert(ctx, roomID, elements, time.Now().UTC()); err != nil {
		s.log.Error("canvas persist failed", zap.String("roomId", roomID), zap.Error(err))
		metrics.PersistFailures.Inc()
		return
	}

	s.source.MarkClean(roomID)
	metrics.PersistWrites.Inc()
	if s.OnPersist != nil {
		s.OnPersist(roomID)
	}
}

// Flush stops every armed timer and persists those rooms immediately. Used
// on shutdown so a pause shorter than the debounce delay does not lose the
// last edits.
func (s *Scheduler) Flush() {
	s.mu.Lock()
	pending := make([]string, 0, len(s.timers))
	for roomID, t := range s.timers {
		t.Stop()
		pending = append(pending, roomID)
	}
	s.timers = make(map[string]*time.Timer)
	s.mu.Unlock()

	for _, roomID := range pending {
		s.persist(roomID)
	}
}
