// internal/app/store/frameworks/frameworkstore.go
package frameworkstore

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

var ErrNotFound = errors.New("framework not found")

// Store holds the global framework catalog: frameworks, their template
// controls and their certification task templates.
type Store struct {
	frameworks *mongo.Collection
	controls   *mongo.Collection
	templates  *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		frameworks: db.Collection("frameworks"),
		controls:   db.Collection("framework_controls"),
		templates:  db.Collection("task_templates"),
	}
}

// UpsertFramework creates or updates the framework identified by Code and
// returns it with its stored ID.
func (s *Store) UpsertFramework(ctx context.Context, f models.Framework) (models.Framework, error) {
	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"name":        f.Name,
			"version":     f.Version,
			"description": f.Description,
			"updated_at":  now,
		},
		"$setOnInsert": bson.M{
			"_id":        primitive.NewObjectID(),
			"created_at": now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var out models.Framework
	err := s.frameworks.FindOneAndUpdate(ctx, bson.M{"code": f.Code}, update, opts).Decode(&out)
	return out, err
}

// UpsertControl creates or updates a template control keyed by
// (framework_id, code). Existing IDs are kept so seeded rows stay linked.
func (s *Store) UpsertControl(ctx context.Context, c models.FrameworkControl) error {
	update := bson.M{
		"$set": bson.M{
			"title":          c.Title,
			"domain":         c.Domain,
			"description":    c.Description,
			"default_status": c.DefaultStatus,
			"sort_key":       c.SortKey,
		},
		"$setOnInsert": bson.M{"_id": primitive.NewObjectID()},
	}
	_, err := s.controls.UpdateOne(ctx,
		bson.M{"framework_id": c.FrameworkID, "code": c.Code},
		update, options.Update().SetUpsert(true))
	return err
}

// UpsertTaskTemplate creates or updates a task template keyed by
// (framework_id, key).
func (s *Store) UpsertTaskTemplate(ctx context.Context, t models.TaskTemplate) error {
	update := bson.M{
		"$set": bson.M{
			"title":           t.Title,
			"description":     t.Description,
			"phase":           t.Phase,
			"due_offset_days": t.DueOffset,
			"sort_key":        t.SortKey,
		},
		"$setOnInsert": bson.M{"_id": primitive.NewObjectID()},
	}
	_, err := s.templates.UpdateOne(ctx,
		bson.M{"framework_id": t.FrameworkID, "key": t.Key},
		update, options.Update().SetUpsert(true))
	return err
}

// List returns all frameworks ordered by name.
func (s *Store) List(ctx context.Context) ([]models.Framework, error) {
	cur, err := s.frameworks.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Framework
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Framework, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *Store) GetByCode(ctx context.Context, code string) (models.Framework, error) {
	return s.findOne(ctx, bson.M{"code": code})
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (models.Framework, error) {
	var f models.Framework
	err := s.frameworks.FindOne(ctx, filter).Decode(&f)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Framework{}, ErrNotFound
	}
	return f, err
}

// Controls returns the framework's template controls in sort order.
func (s *Store) Controls(ctx context.Context, frameworkID primitive.ObjectID) ([]models.FrameworkControl, error) {
	opts := options.Find().SetSort(bson.D{{Key: "sort_key", Value: 1}, {Key: "code", Value: 1}})
	cur, err := s.controls.Find(ctx, bson.M{"framework_id": frameworkID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.FrameworkControl
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TaskTemplates returns the framework's certification task templates in
// sort order.
func (s *Store) TaskTemplates(ctx context.Context, frameworkID primitive.ObjectID) ([]models.TaskTemplate, error) {
	opts := options.Find().SetSort(bson.D{{Key: "sort_key", Value: 1}, {Key: "key", Value: 1}})
	cur, err := s.templates.Find(ctx, bson.M{"framework_id": frameworkID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.TaskTemplate
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountControls returns the number of template controls per framework.
func (s *Store) CountControls(ctx context.Context) (map[primitive.ObjectID]int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$framework_id", "n": bson.M{"$sum": 1}}}},
	}
	cur, err := s.controls.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := map[primitive.ObjectID]int{}
	for cur.Next(ctx) {
		var row struct {
			ID primitive.ObjectID `bson:"_id"`
			N  int                `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.ID] = row.N
	}
	return out, cur.Err()
}
