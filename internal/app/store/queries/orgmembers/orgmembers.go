// Package orgmembers joins an organization's memberships to their users.
package orgmembers

import (
	"context"
	"time"

	"github.com/dalemusser/stratagrc/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Member is one membership with its user.
type Member struct {
	User      models.User `bson:"user"`
	Role      string      `bson:"role"`
	Active    bool        `bson:"active"`
	UpdatedAt time.Time   `bson:"updated_at"`
}

// Filter controls which memberships are listed.
type Filter struct {
	ActiveOnly bool
}

// List returns the members of orgID ordered by role (owners first), then
// by name.
func List(ctx context.Context, db *mongo.Database, orgID primitive.ObjectID, f Filter) ([]Member, error) {
	match := bson.M{"org_id": orgID}
	if f.ActiveOnly {
		match["active"] = true
	}

	pipe := mongo.Pipeline{
		bson.D{{Key: "$match", Value: match}},
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         "users",
			"localField":   "user_id",
			"foreignField": "_id",
			"as":           "user",
		}}},
		bson.D{{Key: "$unwind", Value: "$user"}},
		bson.D{{Key: "$addFields", Value: bson.M{
			"role_rank": bson.M{"$indexOfArray": bson.A{models.TenantRoles, "$role"}},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{
			{Key: "active", Value: -1},
			{Key: "role_rank", Value: 1},
			{Key: "user.full_name_ci", Value: 1},
			{Key: "user._id", Value: 1},
		}}},
		bson.D{{Key: "$project", Value: bson.M{"user": 1, "role": 1, "active": 1, "updated_at": 1}}},
	}

	cur, err := db.Collection("memberships").Aggregate(ctx, pipe)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []Member
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Option is a member offered in an owner or assignee picker.
type Option struct {
	ID   string
	Name string
}

// Options returns the active members of orgID as picker options.
func Options(ctx context.Context, db *mongo.Database, orgID primitive.ObjectID) ([]Option, error) {
	members, err := List(ctx, db, orgID, Filter{ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	out := make([]Option, 0, len(members))
	for _, m := range members {
		name := m.User.FullName
		if name == "" {
			name = m.User.Email
		}
		out = append(out, Option{ID: m.User.ID.Hex(), Name: name})
	}
	return out, nil
}

// Names maps user id (hex) to display name for the options.
func Names(opts []Option) map[string]string {
	out := make(map[string]string, len(opts))
	for _, o := range opts {
		out[o.ID] = o.Name
	}
	return out
}
