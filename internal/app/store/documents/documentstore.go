// internal/app/store/documents/documentstore.go
package documentstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/stratagrc/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("document not found")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("documents")}
}

// Create inserts a draft at version 1 unless the caller set otherwise.
func (s *Store) Create(ctx context.Context, d models.Document) (models.Document, error) {
	now := time.Now().UTC()
	d.ID = primitive.NewObjectID()
	if d.Status == "" {
		d.Status = models.DocumentDraft
	}
	if d.Version == 0 {
		d.Version = 1
	}
	d.CreatedAt = now
	d.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, d); err != nil {
		return models.Document{}, err
	}
	return d, nil
}

// Get returns a live document scoped to orgID.
func (s *Store) Get(ctx context.Context, orgID, id primitive.ObjectID) (models.Document, error) {
	var d models.Document
	err := s.c.FindOne(ctx, bson.M{"_id": id, "org_id": orgID, "deleted_at": nil}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Document{}, ErrNotFound
	}
	return d, err
}

// List returns live documents ordered by title. Bodies are not loaded.
func (s *Store) List(ctx context.Context, orgID primitive.ObjectID) ([]models.Document, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "title", Value: 1}, {Key: "_id", Value: 1}}).
		SetProjection(bson.M{"body": 0})
	cur, err := s.c.Find(ctx, bson.M{"org_id": orgID, "deleted_at": nil}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Document
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Transition holds the fields written by a status change.
type Transition struct {
	From       string // expected current status; the update is a no-op otherwise
	To         string
	Version    int
	ApprovedBy *primitive.ObjectID
	ApprovedAt *time.Time
}

// ApplyTransition moves a live document from t.From to t.To. A concurrent
// change of status makes it return ErrNotFound.
func (s *Store) ApplyTransition(ctx context.Context, orgID, id primitive.ObjectID, t Transition) error {
	set := bson.M{
		"status":     t.To,
		"version":    t.Version,
		"updated_at": time.Now().UTC(),
	}
	if t.ApprovedBy != nil {
		set["approved_by"] = *t.ApprovedBy
	}
	if t.ApprovedAt != nil {
		set["approved_at"] = *t.ApprovedAt
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "org_id": orgID, "deleted_at": nil, "status": t.From},
		bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete marks a document deleted.
func (s *Store) SoftDelete(ctx context.Context, orgID, id primitive.ObjectID) error {
	now := time.Now().UTC()
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "org_id": orgID, "deleted_at": nil},
		bson.M{"$set": bson.M{"deleted_at": now, "updated_at": now}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
