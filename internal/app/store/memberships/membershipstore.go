// internal/app/store/memberships/membershipstore.go
package membershipstore

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

var (
	ErrNotFound = errors.New("membership not found")
	errBadRole  = errors.New("role must be owner, admin, member or auditor")
)

// Store manages tenant memberships. (user_id, org_id) is unique, so a user
// has at most one membership per organization; removal flips active off.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("memberships")}
}

// GetActive returns the active membership of userID in orgID.
func (s *Store) GetActive(ctx context.Context, userID, orgID primitive.ObjectID) (models.Membership, error) {
	return s.findOne(ctx, bson.M{"user_id": userID, "org_id": orgID, "active": true})
}

// Get returns the membership of userID in orgID, active or not.
func (s *Store) Get(ctx context.Context, userID, orgID primitive.ObjectID) (models.Membership, error) {
	return s.findOne(ctx, bson.M{"user_id": userID, "org_id": orgID})
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (models.Membership, error) {
	var m models.Membership
	err := s.c.FindOne(ctx, filter).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Membership{}, ErrNotFound
	}
	if err != nil {
		return models.Membership{}, err
	}
	return m, nil
}

// Upsert creates the membership or reactivates an existing one with role.
// The unique (user_id, org_id) index makes concurrent calls converge on a
// single row.
func (s *Store) Upsert(ctx context.Context, userID, orgID primitive.ObjectID, role string) (models.Membership, error) {
	if !models.ValidTenantRole(role) {
		return models.Membership{}, errBadRole
	}
	now := time.Now().UTC()
	filter := bson.M{"user_id": userID, "org_id": orgID}
	update := bson.M{
		"$set": bson.M{
			"role":       role,
			"active":     true,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"_id":        primitive.NewObjectID(),
			"created_at": now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var m models.Membership
	if err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&m); err != nil {
		return models.Membership{}, err
	}
	return m, nil
}

// Deactivate turns an active membership off.
func (s *Store) Deactivate(ctx context.Context, userID, orgID primitive.ObjectID) error {
	return s.updateActive(ctx, userID, orgID, bson.M{"active": false})
}

// ChangeRole sets the role of an active membership.
func (s *Store) ChangeRole(ctx context.Context, userID, orgID primitive.ObjectID, role string) error {
	if !models.ValidTenantRole(role) {
		return errBadRole
	}
	return s.updateActive(ctx, userID, orgID, bson.M{"role": role})
}

// Touch bumps updated_at on an active membership.
func (s *Store) Touch(ctx context.Context, userID, orgID primitive.ObjectID) error {
	return s.updateActive(ctx, userID, orgID, bson.M{})
}

func (s *Store) updateActive(ctx context.Context, userID, orgID primitive.ObjectID, set bson.M) error {
	set["updated_at"] = time.Now().UTC()
	res, err := s.c.UpdateOne(ctx,
		bson.M{"user_id": userID, "org_id": orgID, "active": true},
		bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByOrg returns the organization's memberships, newest first.
func (s *Store) ListByOrg(ctx context.Context, orgID primitive.ObjectID, activeOnly bool) ([]models.Membership, error) {
	filter := bson.M{"org_id": orgID}
	if activeOnly {
		filter["active"] = true
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Membership
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountActive returns the number of active memberships in orgID, optionally
// restricted to role.
func (s *Store) CountActive(ctx context.Context, orgID primitive.ObjectID, role string) (int64, error) {
	filter := bson.M{"org_id": orgID, "active": true}
	if role != "" {
		filter["role"] = role
	}
	return s.c.CountDocuments(ctx, filter)
}

// CountActiveByUser returns how many active memberships userID holds.
func (s *Store) CountActiveByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"user_id": userID, "active": true})
}
