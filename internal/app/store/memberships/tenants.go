package membershipstore

import (
	"context"
	"time"

	"github.com/dalemusser/stratagrc/internal/app/system/auth"
	"github.com/dalemusser/stratagrc/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// TenantFetcher implements auth.TenantFetcher. It lists a user's active
// memberships whose organization is not soft-deleted.
type TenantFetcher struct {
	c *mongo.Collection
}

func NewTenantFetcher(db *mongo.Database) *TenantFetcher {
	return &TenantFetcher{c: db.Collection("memberships")}
}

type tenantRow struct {
	OrgID     primitive.ObjectID `bson:"org_id"`
	Role      string             `bson:"role"`
	UpdatedAt time.Time          `bson:"updated_at"`
	Org       struct {
		Slug string `bson:"slug"`
		Name string `bson:"name"`
	} `bson:"org"`
}

// FetchTenants returns options ordered by membership updated_at, newest
// first. Ordering is informational; auth.PickTenant does the selection.
func (f *TenantFetcher) FetchTenants(ctx context.Context, userID string) ([]auth.TenantOption, error) {
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user_id": uid, "active": true}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "organizations",
			"localField":   "org_id",
			"foreignField": "_id",
			"as":           "org",
		}}},
		{{Key: "$unwind", Value: "$org"}},
		{{Key: "$match", Value: bson.M{"org.deleted_at": nil}}},
		{{Key: "$sort", Value: bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$project", Value: bson.M{
			"org_id":     1,
			"role":       1,
			"updated_at": 1,
			"org.slug":   1,
			"org.name":   1,
		}}},
	}

	cur, err := f.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []auth.TenantOption
	for cur.Next(ctx) {
		var row tenantRow
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out = append(out, auth.TenantOption{
			OrgID:     row.OrgID.Hex(),
			OrgSlug:   row.Org.Slug,
			OrgName:   row.Org.Name,
			Role:      row.Role,
			UpdatedAt: row.UpdatedAt,
		})
	}
	return out, cur.Err()
}
