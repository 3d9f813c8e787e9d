// internal/app/store/queries/dashboardqueries/summary.go
package dashboardqueries

import (
	"context"
	"strconv"

	"github.com/dalemusser/stratagrc/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Overview is the organization dashboard. Percentages are whole numbers
// rounded down, and 0 when there is nothing to measure.
type Overview struct {
	Frameworks int `json:"frameworks"`

	ControlsTotal       int `json:"controls_total"`
	ControlsImplemented int `json:"controls_implemented"`
	ControlPercent      int `json:"control_percent"`

	TasksTotal  int `json:"tasks_total"`
	TasksDone   int `json:"tasks_done"`
	TaskPercent int `json:"task_percent"`

	OpenRisks        int            `json:"open_risks"`
	OpenRisksByLevel map[string]int `json:"open_risks_by_level"`

	OpenCAPAs int `json:"open_capas"`

	DocumentsTotal    int `json:"documents_total"`
	DocumentsApproved int `json:"documents_approved"`
	DocumentPercent   int `json:"document_percent"`

	TrainingRequired  int `json:"training_required"`
	TrainingCompleted int `json:"training_completed"`
	TrainingPercent   int `json:"training_percent"`
}

// Percent returns n as a whole percentage of d, rounded down. It is 0 when
// d is 0 and never exceeds 100.
func Percent(n, d int) int {
	if d <= 0 || n <= 0 {
		return 0
	}
	if n >= d {
		return 100
	}
	return n * 100 / d
}

// Summary builds the dashboard overview for orgID.
func Summary(ctx context.Context, db *mongo.Database, orgID primitive.ObjectID) (Overview, error) {
	s := Overview{OpenRisksByLevel: map[string]int{"high": 0, "medium": 0, "low": 0}}

	// Controls. Not-applicable controls are excluded from the denominator.
	controls, err := countByField(ctx, db.Collection("control_implementations"), bson.M{"org_id": orgID}, "$status")
	if err != nil {
		return Overview{}, err
	}
	for status, n := range controls {
		if status == models.ControlNotApplicable {
			continue
		}
		s.ControlsTotal += n
		if status == models.ControlImplemented {
			s.ControlsImplemented += n
		}
	}
	s.ControlPercent = Percent(s.ControlsImplemented, s.ControlsTotal)

	fwIDs, err := db.Collection("control_implementations").Distinct(ctx, "framework_id", bson.M{"org_id": orgID})
	if err != nil {
		return Overview{}, err
	}
	s.Frameworks = len(fwIDs)

	// Tasks.
	tasks, err := countByField(ctx, db.Collection("tasks"), withLive(bson.M{"org_id": orgID}), "$status")
	if err != nil {
		return Overview{}, err
	}
	for status, n := range tasks {
		s.TasksTotal += n
		if status == models.TaskDone {
			s.TasksDone += n
		}
	}
	s.TaskPercent = Percent(s.TasksDone, s.TasksTotal)

	// Open risks, bucketed by score.
	risks, err := countByField(ctx, db.Collection("risks"), withLive(bson.M{
		"org_id": orgID,
		"status": bson.M{"$nin": bson.A{models.RiskClosed, models.RiskAccepted}},
	}), "$score")
	if err != nil {
		return Overview{}, err
	}
	for score, n := range risks {
		s.OpenRisks += n
		v, _ := strconv.Atoi(score)
		s.OpenRisksByLevel[models.RiskLevel(v)] += n
	}

	// CAPAs.
	openCAPAs, err := db.Collection("capas").CountDocuments(ctx, withLive(bson.M{
		"org_id": orgID,
		"status": bson.M{"$ne": models.CAPAClosed},
	}))
	if err != nil {
		return Overview{}, err
	}
	s.OpenCAPAs = int(openCAPAs)

	// Documents. Archived documents no longer count.
	docs, err := countByField(ctx, db.Collection("documents"), withLive(bson.M{"org_id": orgID}), "$status")
	if err != nil {
		return Overview{}, err
	}
	for status, n := range docs {
		if status == models.DocumentArchived {
			continue
		}
		s.DocumentsTotal += n
		if status == models.DocumentApproved {
			s.DocumentsApproved += n
		}
	}
	s.DocumentPercent = Percent(s.DocumentsApproved, s.DocumentsTotal)

	// Training: every active member should complete every mandatory program.
	if err := loadTraining(ctx, db, orgID, &s); err != nil {
		return Overview{}, err
	}
	s.TrainingPercent = Percent(s.TrainingCompleted, s.TrainingRequired)

	return s, nil
}

func loadTraining(ctx context.Context, db *mongo.Database, orgID primitive.ObjectID, s *Overview) error {
	programIDs, err := db.Collection("training_programs").Distinct(ctx, "_id", withLive(bson.M{
		"org_id":    orgID,
		"mandatory": true,
	}))
	if err != nil {
		return err
	}
	if len(programIDs) == 0 {
		return nil
	}
	memberIDs, err := db.Collection("memberships").Distinct(ctx, "user_id", bson.M{"org_id": orgID, "active": true})
	if err != nil {
		return err
	}
	s.TrainingRequired = len(programIDs) * len(memberIDs)
	if s.TrainingRequired == 0 {
		return nil
	}
	done, err := db.Collection("training_completions").CountDocuments(ctx, bson.M{
		"org_id":     orgID,
		"program_id": bson.M{"$in": programIDs},
		"user_id":    bson.M{"$in": memberIDs},
	})
	if err != nil {
		return err
	}
	s.TrainingCompleted = int(done)
	return nil
}

// withLive restricts filter to rows that are not soft-deleted.
func withLive(filter bson.M) bson.M {
	filter["deleted_at"] = nil
	return filter
}

// countByField groups the documents matching filter by the value of
// fieldExpr and returns counts keyed by that value's string form.
func countByField(ctx context.Context, c *mongo.Collection, filter bson.M, fieldExpr string) (map[string]int, error) {
	pipe := mongo.Pipeline{
		bson.D{{Key: "$match", Value: filter}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id": bson.M{"$toString": fieldExpr},
			"n":   bson.M{"$sum": 1},
		}}},
	}
	cur, err := c.Aggregate(ctx, pipe)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[string]int{}
	for cur.Next(ctx) {
		var row struct {
			Key string `bson:"_id"`
			N   int    `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.Key] = row.N
	}
	return out, cur.Err()
}
