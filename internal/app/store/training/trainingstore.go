// internal/app/store/training/trainingstore.go
package trainingstore

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

var ErrNotFound = errors.New("training program not found")

// Store manages training programs and completions. Completions are unique
// on (program_id, user_id).
type Store struct {
	programs    *mongo.Collection
	completions *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		programs:    db.Collection("training_programs"),
		completions: db.Collection("training_completions"),
	}
}

func (s *Store) CreateProgram(ctx context.Context, p models.TrainingProgram) (models.TrainingProgram, error) {
	now := time.Now().UTC()
	p.ID = primitive.NewObjectID()
	p.CreatedAt = now
	p.UpdatedAt = now
	if _, err := s.programs.InsertOne(ctx, p); err != nil {
		return models.TrainingProgram{}, err
	}
	return p, nil
}

// GetProgram returns a live program scoped to orgID.
func (s *Store) GetProgram(ctx context.Context, orgID, id primitive.ObjectID) (models.TrainingProgram, error) {
	var p models.TrainingProgram
	err := s.programs.FindOne(ctx, bson.M{"_id": id, "org_id": orgID, "deleted_at": nil}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.TrainingProgram{}, ErrNotFound
	}
	return p, err
}

// ListPrograms returns live programs ordered by title.
func (s *Store) ListPrograms(ctx context.Context, orgID primitive.ObjectID) ([]models.TrainingProgram, error) {
	opts := options.Find().SetSort(bson.D{{Key: "title", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.programs.Find(ctx, bson.M{"org_id": orgID, "deleted_at": nil}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.TrainingProgram
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SoftDeleteProgram marks a program deleted. Completions are kept.
func (s *Store) SoftDeleteProgram(ctx context.Context, orgID, id primitive.ObjectID) error {
	now := time.Now().UTC()
	res, err := s.programs.UpdateOne(ctx,
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

// RecordCompletion upserts the completion of programID by userID.
// Completing again moves completed_at forward.
func (s *Store) RecordCompletion(ctx context.Context, orgID, programID, userID primitive.ObjectID, at time.Time) (models.TrainingCompletion, error) {
	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"org_id":       orgID,
			"completed_at": at.UTC(),
			"updated_at":   now,
		},
		"$setOnInsert": bson.M{
			"_id":        primitive.NewObjectID(),
			"created_at": now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var c models.TrainingCompletion
	err := s.completions.FindOneAndUpdate(ctx,
		bson.M{"program_id": programID, "user_id": userID}, update, opts).Decode(&c)
	return c, err
}

// Completions returns the completions recorded in orgID, keyed by program.
func (s *Store) Completions(ctx context.Context, orgID primitive.ObjectID) (map[primitive.ObjectID][]models.TrainingCompletion, error) {
	cur, err := s.completions.Find(ctx, bson.M{"org_id": orgID},
		options.Find().SetSort(bson.D{{Key: "completed_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := map[primitive.ObjectID][]models.TrainingCompletion{}
	for cur.Next(ctx) {
		var c models.TrainingCompletion
		if err := cur.Decode(&c); err != nil {
			return nil, err
		}
		out[c.ProgramID] = append(out[c.ProgramID], c)
	}
	return out, cur.Err()
}
