// internal/app/store/soa/soastore.go
package soastore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/stratagrc/internal/app/store/bulkinsert"
	"github.com/dalemusser/stratagrc/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("statement of applicability entry not found")

// Store manages Statement of Applicability rows. (assessment_id,
// control_id) is unique.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("soa_entries")}
}

// ExistingControlIDs returns the control IDs already present in the
// assessment's statement.
func (s *Store) ExistingControlIDs(ctx context.Context, assessmentID primitive.ObjectID) (map[primitive.ObjectID]bool, error) {
	vals, err := s.c.Distinct(ctx, "control_id", bson.M{"assessment_id": assessmentID})
	if err != nil {
		return nil, err
	}
	out := make(map[primitive.ObjectID]bool, len(vals))
	for _, v := range vals {
		if id, ok := v.(primitive.ObjectID); ok {
			out[id] = true
		}
	}
	return out, nil
}

// InsertMissing bulk-inserts entries, ignoring duplicates.
func (s *Store) InsertMissing(ctx context.Context, rows []models.SoAEntry) (int, error) {
	docs := make([]interface{}, len(rows))
	for i, r := range rows {
		docs[i] = r
	}
	res, err := bulkinsert.Unordered(ctx, s.c, docs)
	return res.Inserted, err
}

// Get returns an entry scoped to orgID.
func (s *Store) Get(ctx context.Context, orgID, id primitive.ObjectID) (models.SoAEntry, error) {
	var e models.SoAEntry
	err := s.c.FindOne(ctx, bson.M{"_id": id, "org_id": orgID}).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.SoAEntry{}, ErrNotFound
	}
	return e, err
}

// Update sets applicability and justification on an entry scoped to orgID.
func (s *Store) Update(ctx context.Context, orgID, id primitive.ObjectID, applicability, justification string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "org_id": orgID},
		bson.M{"$set": bson.M{
			"applicability": applicability,
			"justification": justification,
			"updated_at":    time.Now().UTC(),
		}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByAssessment returns the statement's entries.
func (s *Store) ListByAssessment(ctx context.Context, assessmentID primitive.ObjectID) ([]models.SoAEntry, error) {
	cur, err := s.c.Find(ctx, bson.M{"assessment_id": assessmentID},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.SoAEntry
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountByApplicability returns entry counts per applicability value.
func (s *Store) CountByApplicability(ctx context.Context, assessmentID primitive.ObjectID) (map[string]int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"assessment_id": assessmentID}}},
		{{Key: "$group", Value: bson.M{"_id": "$applicability", "n": bson.M{"$sum": 1}}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := map[string]int{}
	for cur.Next(ctx) {
		var row struct {
			ID string `bson:"_id"`
			N  int    `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.ID] = row.N
	}
	return out, cur.Err()
}
