// internal/app/store/risks/riskstore.go
package riskstore

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

var ErrNotFound = errors.New("risk not found")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("risks")}
}

func (s *Store) Create(ctx context.Context, r models.Risk) (models.Risk, error) {
	now := time.Now().UTC()
	r.ID = primitive.NewObjectID()
	if r.Status == "" {
		r.Status = models.RiskIdentified
	}
	r.CreatedAt = now
	r.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, r); err != nil {
		return models.Risk{}, err
	}
	return r, nil
}

// Get returns a live risk scoped to orgID.
func (s *Store) Get(ctx context.Context, orgID, id primitive.ObjectID) (models.Risk, error) {
	var r models.Risk
	err := s.c.FindOne(ctx, bson.M{"_id": id, "org_id": orgID, "deleted_at": nil}).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Risk{}, ErrNotFound
	}
	return r, err
}

// List returns live risks, highest score first. status filters when set.
func (s *Store) List(ctx context.Context, orgID primitive.ObjectID, status string) ([]models.Risk, error) {
	filter := bson.M{"org_id": orgID, "deleted_at": nil}
	if status != "" {
		filter["status"] = status
	}
	opts := options.Find().SetSort(bson.D{{Key: "score", Value: -1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Risk
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetStatus moves a live risk to status, optionally changing treatment.
func (s *Store) SetStatus(ctx context.Context, orgID, id primitive.ObjectID, status, treatment string) error {
	set := bson.M{"status": status}
	if treatment != "" {
		set["treatment"] = treatment
	}
	return s.set(ctx, orgID, id, set)
}

// SoftDelete marks a risk deleted.
func (s *Store) SoftDelete(ctx context.Context, orgID, id primitive.ObjectID) error {
	return s.set(ctx, orgID, id, bson.M{"deleted_at": time.Now().UTC()})
}

func (s *Store) set(ctx context.Context, orgID, id primitive.ObjectID, set bson.M) error {
	set["updated_at"] = time.Now().UTC()
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "org_id": orgID, "deleted_at": nil},
		bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
