// internal/app/store/queries/soaqueries/soaqueries.go
package soaqueries

import (
	"context"

	"github.com/dalemusser/stratagrc/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Row is one SoA entry with its control title and the organization's
// implementation status for that control ("" when not implemented yet).
type Row struct {
	ID                   primitive.ObjectID `bson:"_id"`
	ControlID            primitive.ObjectID `bson:"control_id"`
	Code                 string             `bson:"code"`
	Title                string             `bson:"title"`
	Domain               string             `bson:"domain"`
	Applicability        string             `bson:"applicability"`
	Justification        string             `bson:"justification"`
	ImplementationStatus string             `bson:"implementation_status"`
	SortKey              int                `bson:"sort_key"`
}

// Statement is an assessment's Statement of Applicability.
type Statement struct {
	Rows       []Row
	Applicable int
	Excluded   int
	Undecided  int
	// Score is the share of applicable controls that are implemented.
	Score int
}

// ForAssessment loads the SoA rows of assessmentID (scoped to orgID) joined
// with control titles and implementation status, and computes its score.
func ForAssessment(ctx context.Context, db *mongo.Database, orgID, assessmentID primitive.ObjectID) (Statement, error) {
	pipe := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"org_id": orgID, "assessment_id": assessmentID}}},
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         "framework_controls",
			"localField":   "control_id",
			"foreignField": "_id",
			"as":           "tpl",
		}}},
		bson.D{{Key: "$unwind", Value: "$tpl"}},
		bson.D{{Key: "$lookup", Value: bson.M{
			"from": "control_implementations",
			"let":  bson.M{"cid": "$control_id", "oid": "$org_id"},
			"pipeline": mongo.Pipeline{
				bson.D{{Key: "$match", Value: bson.M{"$expr": bson.M{"$and": bson.A{
					bson.M{"$eq": bson.A{"$control_id", "$$cid"}},
					bson.M{"$eq": bson.A{"$org_id", "$$oid"}},
				}}}}},
				bson.D{{Key: "$project", Value: bson.M{"status": 1}}},
				bson.D{{Key: "$limit", Value: 1}},
			},
			"as": "impl",
		}}},
		bson.D{{Key: "$project", Value: bson.M{
			"control_id":    1,
			"applicability": 1,
			"justification": 1,
			"code":          "$tpl.code",
			"title":         "$tpl.title",
			"domain":        "$tpl.domain",
			"sort_key":      "$tpl.sort_key",
			"implementation_status": bson.M{"$ifNull": bson.A{
				bson.M{"$arrayElemAt": bson.A{"$impl.status", 0}}, "",
			}},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "sort_key", Value: 1}, {Key: "_id", Value: 1}}}},
	}

	cur, err := db.Collection("soa_entries").Aggregate(ctx, pipe)
	if err != nil {
		return Statement{}, err
	}
	defer cur.Close(ctx)

	var st Statement
	if err := cur.All(ctx, &st.Rows); err != nil {
		return Statement{}, err
	}
	st.tally()
	return st, nil
}

func (st *Statement) tally() {
	implemented := 0
	for _, r := range st.Rows {
		switch r.Applicability {
		case models.SoAApplicable:
			st.Applicable++
			if r.ImplementationStatus == models.ControlImplemented {
				implemented++
			}
		case models.SoAExcluded:
			st.Excluded++
		default:
			st.Undecided++
		}
	}
	if st.Applicable > 0 {
		st.Score = implemented * 100 / st.Applicable
	}
}
