// internal/app/store/evidence/evidencestore.go
package evidencestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/stratagrc/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound           = errors.New("evidence not found")
	ErrDuplicateReference = errors.New("evidence reference already in use")
)

// Store manages evidence records. (org_id, reference) is unique.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("evidence")}
}

func (s *Store) Create(ctx context.Context, e models.Evidence) (models.Evidence, error) {
	now := time.Now().UTC()
	e.ID = primitive.NewObjectID()
	if e.CollectedAt.IsZero() {
		e.CollectedAt = now
	}
	e.CreatedAt = now
	e.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, e); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Evidence{}, ErrDuplicateReference
		}
		return models.Evidence{}, err
	}
	return e, nil
}

// Get returns live evidence scoped to orgID.
func (s *Store) Get(ctx context.Context, orgID, id primitive.ObjectID) (models.Evidence, error) {
	var e models.Evidence
	err := s.c.FindOne(ctx, bson.M{"_id": id, "org_id": orgID, "deleted_at": nil}).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Evidence{}, ErrNotFound
	}
	return e, err
}

// List returns live evidence, most recently collected first. When
// implementationID is set only evidence linked to it is returned.
func (s *Store) List(ctx context.Context, orgID primitive.ObjectID, implementationID *primitive.ObjectID) ([]models.Evidence, error) {
	filter := bson.M{"org_id": orgID, "deleted_at": nil}
	if implementationID != nil {
		filter["implementation_id"] = *implementationID
	}
	opts := options.Find().SetSort(bson.D{{Key: "collected_at", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Evidence
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SoftDelete marks evidence deleted.
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
