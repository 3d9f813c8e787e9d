// internal/app/store/capas/capastore.go
package capastore

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

var ErrNotFound = errors.New("corrective action not found")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("capas")}
}

func (s *Store) Create(ctx context.Context, c models.CAPA) (models.CAPA, error) {
	now := time.Now().UTC()
	c.ID = primitive.NewObjectID()
	if c.Status == "" {
		c.Status = models.CAPAOpen
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, c); err != nil {
		return models.CAPA{}, err
	}
	return c, nil
}

// Get returns a live CAPA scoped to orgID.
func (s *Store) Get(ctx context.Context, orgID, id primitive.ObjectID) (models.CAPA, error) {
	var c models.CAPA
	err := s.c.FindOne(ctx, bson.M{"_id": id, "org_id": orgID, "deleted_at": nil}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.CAPA{}, ErrNotFound
	}
	return c, err
}

// List returns live CAPAs. openOnly excludes closed ones.
func (s *Store) List(ctx context.Context, orgID primitive.ObjectID, openOnly bool) ([]models.CAPA, error) {
	filter := bson.M{"org_id": orgID, "deleted_at": nil}
	if openOnly {
		filter["status"] = bson.M{"$ne": models.CAPAClosed}
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.CAPA
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Transition moves a live CAPA to status. rootCause is stored when
// non-empty; closing stamps closed_at.
func (s *Store) Transition(ctx context.Context, orgID, id primitive.ObjectID, status, rootCause string) error {
	now := time.Now().UTC()
	set := bson.M{"status": status, "updated_at": now}
	if rootCause != "" {
		set["root_cause"] = rootCause
	}
	update := bson.M{"$set": set}
	if status == models.CAPAClosed {
		set["closed_at"] = now
	} else {
		update["$unset"] = bson.M{"closed_at": ""}
	}
	return s.update(ctx, orgID, id, update)
}

// SoftDelete marks a CAPA deleted.
func (s *Store) SoftDelete(ctx context.Context, orgID, id primitive.ObjectID) error {
	now := time.Now().UTC()
	return s.update(ctx, orgID, id, bson.M{"$set": bson.M{"deleted_at": now, "updated_at": now}})
}

func (s *Store) update(ctx context.Context, orgID, id primitive.ObjectID, update bson.M) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id, "org_id": orgID, "deleted_at": nil}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
