// internal/app/store/assessments/assessmentstore.go
package assessmentstore

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

var ErrNotFound = errors.New("assessment not found")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("assessments")}
}

// Create inserts a new in-progress assessment.
func (s *Store) Create(ctx context.Context, a models.Assessment) (models.Assessment, error) {
	now := time.Now().UTC()
	a.ID = primitive.NewObjectID()
	if a.Status == "" {
		a.Status = models.AssessmentInProgress
	}
	a.CreatedAt = now
	a.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, a); err != nil {
		return models.Assessment{}, err
	}
	return a, nil
}

// Get returns a live assessment scoped to orgID.
func (s *Store) Get(ctx context.Context, orgID, id primitive.ObjectID) (models.Assessment, error) {
	var a models.Assessment
	err := s.c.FindOne(ctx, bson.M{"_id": id, "org_id": orgID, "deleted_at": nil}).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Assessment{}, ErrNotFound
	}
	return a, err
}

// List returns the organization's live assessments, newest first.
func (s *Store) List(ctx context.Context, orgID primitive.ObjectID) ([]models.Assessment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.c.Find(ctx, bson.M{"org_id": orgID, "deleted_at": nil}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Assessment
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Complete records the score and closes an in-progress assessment.
func (s *Store) Complete(ctx context.Context, orgID, id primitive.ObjectID, score int) error {
	now := time.Now().UTC()
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "org_id": orgID, "deleted_at": nil, "status": models.AssessmentInProgress},
		bson.M{"$set": bson.M{
			"status":       models.AssessmentCompleted,
			"score":        score,
			"completed_at": now,
			"updated_at":   now,
		}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete marks an assessment deleted.
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
