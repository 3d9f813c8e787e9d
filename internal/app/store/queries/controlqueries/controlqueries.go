// internal/app/store/queries/controlqueries/controlqueries.go
package controlqueries

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Row is one control implementation joined with its template control.
type Row struct {
	ID            primitive.ObjectID  `bson:"_id"`
	ControlID     primitive.ObjectID  `bson:"control_id"`
	Code          string              `bson:"code"`
	Title         string              `bson:"title"`
	Domain        string              `bson:"domain"`
	Status        string              `bson:"status"`
	Effectiveness string              `bson:"effectiveness"`
	Notes         string              `bson:"notes"`
	OwnerID       *primitive.ObjectID `bson:"owner_id"`
	SortKey       int                 `bson:"sort_key"`
	UpdatedAt     time.Time           `bson:"updated_at"`
}

// DomainGroup is a run of rows sharing a control domain, in sort order.
type DomainGroup struct {
	Domain string
	Rows   []Row
}

// ForFramework returns orgID's control implementations for frameworkID,
// ordered by the template's sort key.
func ForFramework(ctx context.Context, db *mongo.Database, orgID, frameworkID primitive.ObjectID) ([]Row, error) {
	return find(ctx, db, bson.M{"org_id": orgID, "framework_id": frameworkID})
}

// Labels returns "code title" for each of orgID's implementations in ids.
// Unknown or foreign ids are absent from the map.
func Labels(ctx context.Context, db *mongo.Database, orgID primitive.ObjectID, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	out := make(map[primitive.ObjectID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := find(ctx, db, bson.M{"org_id": orgID, "_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.ID] = r.Code + " " + r.Title
	}
	return out, nil
}

func find(ctx context.Context, db *mongo.Database, match bson.M) ([]Row, error) {
	pipe := mongo.Pipeline{
		bson.D{{Key: "$match", Value: match}},
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         "framework_controls",
			"localField":   "control_id",
			"foreignField": "_id",
			"as":           "tpl",
		}}},
		bson.D{{Key: "$unwind", Value: "$tpl"}},
		bson.D{{Key: "$project", Value: bson.M{
			"control_id":    1,
			"status":        1,
			"effectiveness": 1,
			"notes":         1,
			"owner_id":      1,
			"updated_at":    1,
			"code":          "$tpl.code",
			"title":         "$tpl.title",
			"domain":        "$tpl.domain",
			"sort_key":      "$tpl.sort_key",
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "sort_key", Value: 1}, {Key: "_id", Value: 1}}}},
	}

	cur, err := db.Collection("control_implementations").Aggregate(ctx, pipe)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []Row
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GroupByDomain splits rows into consecutive domain groups.
func GroupByDomain(rows []Row) []DomainGroup {
	var groups []DomainGroup
	for _, r := range rows {
		if n := len(groups); n > 0 && groups[n-1].Domain == r.Domain {
			groups[n-1].Rows = append(groups[n-1].Rows, r)
			continue
		}
		groups = append(groups, DomainGroup{Domain: r.Domain, Rows: []Row{r}})
	}
	return groups
}
