package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"canvas/internal/models"
	"canvas/internal/storage"
)

// Repo keeps one document per room in a canvases collection, keyed by room
// id.
type Repo struct{ col *mongo.Collection }

func NewCanvasRepo(c *Client, dbName, colName string) *Repo {
	if dbName == "" {
		dbName = "canvas"
	}
	if colName == "" {
		colName = "canvases"
	}
	return &Repo{col: c.raw.Database(dbName).Collection(colName)}
}

func (r *Repo) FindByID(ctx context.Context, roomID string) (*storage.StoredCanvas, error) {
	var doc storage.StoredCanvas
	err := r.col.FindOne(ctx, bson.M{"_id": roomID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Upsert creates the document if absent, else overwrites the element array
// and last-modified stamp.
func (r *Repo) Upsert(ctx context.Context, roomID string, elements []models.Element, lastModified time.Time) error {
	update := bson.M{"$set": bson.M{
		"elements":     elements,
		"lastModified": lastModified,
	}}
	_, err := r.col.UpdateByID(ctx, roomID, update, options.Update().SetUpsert(true))
	return err
}
