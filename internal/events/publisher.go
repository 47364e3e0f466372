package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Channel carries room lifecycle notifications for sibling services.
const Channel = "canvas:rooms"

const (
	TypeParticipantJoined = "participant-joined"
	TypeParticipantLeft   = "participant-left"
	TypeCanvasPersisted   = "canvas-persisted"
)

// Event is one room lifecycle notification.
type Event struct {
	Type          string    `json:"type"`
	RoomID        string    `json:"roomId"`
	ParticipantID string    `json:"participantId,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Publisher broadcasts room lifecycle events on a Redis channel. Publication
// is best-effort: failures are logged and never affect the live session. A
// nil Publisher is valid and publishes nothing, which is how the feature is
// disabled when no Redis address is configured.
type Publisher struct {
	rdb *redis.Client
	log *zap.Logger
}

func NewPublisher(redisAddr string, log *zap.Logger) *Publisher {
	if redisAddr == "" {
		return nil
	}
	return &Publisher{
		rdb: redis.NewClient(&redis.Options{Addr: redisAddr}),
		log: log,
	}
}

func (p *Publisher) Publish(ctx context.Context, event Event) {
	if p == nil {
		return
	}
	event.Timestamp = time.Now().UTC()
	data, err := json.Marshal(event)
	if err != nil {
		p.log.Warn("room event marshal failed", zap.String("roomId", event.RoomID), zap.Error(err))
		return
	}
	if err := p.rdb.Publish(ctx, Channel, data).Err(); err != nil {
		p.log.Warn("room event publish failed", zap.String("roomId", event.RoomID), zap.Error(err))
	}
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.rdb.Close()
}
