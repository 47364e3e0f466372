package storage

import (
	"context"
	"errors"
	"time"

	"canvas/internal/models"
)

// ErrNotFound is returned when no canvas document exists for a room id.
var ErrNotFound = errors.New("canvas not found")

// StoredCanvas is the durable document for one room.
type StoredCanvas struct {
	RoomID       string           `bson:"_id" json:"roomId"`
	Elements     []models.Element `bson:"elements" json:"elements"`
	LastModified time.Time        `bson:"lastModified" json:"lastModified"`
}

// Store is the durable-store collaborator. It is a checkpoint only: read
// once when a room is first loaded and written asynchronously afterwards,
// never read again while the room is resident.
type Store interface {
	FindByID(ctx context.Context, roomID string) (*StoredCanvas, error)
	Upsert(ctx context.Context, roomID string, elements []models.Element, lastModified time.Time) error
}
