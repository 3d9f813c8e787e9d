// internal/app/store/controls/controlstore.go
package controlstore

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

var ErrNotFound = errors.New("control implementation not found")

// Store manages per-organization control implementations. The
// (org_id, framework_id, control_id) index is unique.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("control_implementations")}
}

// ExistingControlIDs returns the template control IDs already materialized
// for (orgID, frameworkID).
func (s *Store) ExistingControlIDs(ctx context.Context, orgID, frameworkID primitive.ObjectID) (map[primitive.ObjectID]bool, error) {
	opts := options.Find().SetProjection(bson.M{"control_id": 1})
	cur, err := s.c.Find(ctx, bson.M{"org_id": orgID, "framework_id": frameworkID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[primitive.ObjectID]bool{}
	for cur.Next(ctx) {
		var row struct {
			ControlID primitive.ObjectID `bson:"control_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.ControlID] = true
	}
	return out, cur.Err()
}

// InsertMissing bulk-inserts rows, ignoring rows another writer inserted
// first. It returns how many rows this call created.
func (s *Store) InsertMissing(ctx context.Context, rows []models.ControlImplementation) (int, error) {
	docs := make([]interface{}, len(rows))
	for i, r := range rows {
		docs[i] = r
	}
	res, err := bulkinsert.Unordered(ctx, s.c, docs)
	return res.Inserted, err
}

// Get returns an implementation scoped to orgID.
func (s *Store) Get(ctx context.Context, orgID, id primitive.ObjectID) (models.ControlImplementation, error) {
	var ci models.ControlImplementation
	err := s.c.FindOne(ctx, bson.M{"_id": id, "org_id": orgID}).Decode(&ci)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.ControlImplementation{}, ErrNotFound
	}
	return ci, err
}

// Update holds the editable fields of an implementation.
type Update struct {
	Status        string
	Effectiveness string
	Notes         string
	OwnerID       *primitive.ObjectID
}

// Update writes u to the implementation scoped to orgID.
func (s *Store) Update(ctx context.Context, orgID, id primitive.ObjectID, u Update) error {
	set := bson.M{
		"status":        u.Status,
		"effectiveness": u.Effectiveness,
		"notes":         u.Notes,
		"updated_at":    time.Now().UTC(),
	}
	update := bson.M{"$set": set}
	if u.OwnerID != nil {
		set["owner_id"] = *u.OwnerID
	} else {
		update["$unset"] = bson.M{"owner_id": ""}
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id, "org_id": orgID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of implementations for (orgID, frameworkID).
func (s *Store) Count(ctx context.Context, orgID, frameworkID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"org_id": orgID, "framework_id": frameworkID})
}

// ActiveFrameworkIDs returns the frameworks with at least one
// implementation in orgID.
func (s *Store) ActiveFrameworkIDs(ctx context.Context, orgID primitive.ObjectID) ([]primitive.ObjectID, error) {
	vals, err := s.c.Distinct(ctx, "framework_id", bson.M{"org_id": orgID})
	if err != nil {
		return nil, err
	}
	out := make([]primitive.ObjectID, 0, len(vals))
	for _, v := range vals {
		if id, ok := v.(primitive.ObjectID); ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// StatusByControl maps control_id to implementation status for
// (orgID, frameworkID).
func (s *Store) StatusByControl(ctx context.Context, orgID, frameworkID primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	opts := options.Find().SetProjection(bson.M{"control_id": 1, "status": 1})
	cur, err := s.c.Find(ctx, bson.M{"org_id": orgID, "framework_id": frameworkID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := map[primitive.ObjectID]string{}
	for cur.Next(ctx) {
		var row models.ControlImplementation
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.ControlID] = row.Status
	}
	return out, cur.Err()
}
