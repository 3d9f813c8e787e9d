// internal/app/store/tasks/taskstore.go
package taskstore

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

var ErrNotFound = errors.New("task not found")

// Store manages tasks. Template-derived tasks are unique on
// (org_id, template_id); ad-hoc tasks have no template_id.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("tasks")}
}

// Create inserts an ad-hoc task.
func (s *Store) Create(ctx context.Context, t models.Task) (models.Task, error) {
	now := time.Now().UTC()
	t.ID = primitive.NewObjectID()
	if t.Status == "" {
		t.Status = models.TaskTodo
	}
	if t.Priority == "" {
		t.Priority = models.PriorityMedium
	}
	t.CreatedAt = now
	t.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, t); err != nil {
		return models.Task{}, err
	}
	return t, nil
}

// ExistingTemplateIDs returns the template IDs already materialized as
// tasks in orgID for frameworkID. Soft-deleted tasks count as materialized.
func (s *Store) ExistingTemplateIDs(ctx context.Context, orgID, frameworkID primitive.ObjectID) (map[primitive.ObjectID]bool, error) {
	vals, err := s.c.Distinct(ctx, "template_id", bson.M{
		"org_id":       orgID,
		"framework_id": frameworkID,
		"template_id":  bson.M{"$exists": true},
	})
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

// InsertMissing bulk-inserts template-derived tasks, ignoring duplicates.
func (s *Store) InsertMissing(ctx context.Context, rows []models.Task) (int, error) {
	docs := make([]interface{}, len(rows))
	for i, r := range rows {
		docs[i] = r
	}
	res, err := bulkinsert.Unordered(ctx, s.c, docs)
	return res.Inserted, err
}

// Get returns a live task scoped to orgID.
func (s *Store) Get(ctx context.Context, orgID, id primitive.ObjectID) (models.Task, error) {
	var t models.Task
	err := s.c.FindOne(ctx, bson.M{"_id": id, "org_id": orgID, "deleted_at": nil}).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Task{}, ErrNotFound
	}
	return t, err
}

// ListFilter narrows List.
type ListFilter struct {
	Status      string
	FrameworkID *primitive.ObjectID
}

// List returns live tasks ordered by due date (undated last), then title.
func (s *Store) List(ctx context.Context, orgID primitive.ObjectID, f ListFilter) ([]models.Task, error) {
	filter := bson.M{"org_id": orgID, "deleted_at": nil}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.FrameworkID != nil {
		filter["framework_id"] = *f.FrameworkID
	}
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{
		{Key: "due_date", Value: 1},
		{Key: "title", Value: 1},
		{Key: "_id", Value: 1},
	}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Task
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetStatus moves a live task to status.
func (s *Store) SetStatus(ctx context.Context, orgID, id primitive.ObjectID, status string) error {
	return s.set(ctx, orgID, id, bson.M{"status": status})
}

// SoftDelete marks a task deleted.
func (s *Store) SoftDelete(ctx context.Context, orgID, id primitive.ObjectID) error {
	return s.set(ctx, orgID, id, bson.M{"deleted_at": time.Now().UTC()})
}

func (s *Store) set(ctx context.Context, orgID, id primitive.ObjectID, set bson.M) error {
	set["updated_at"] = time.Now().UTC()
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "org_id": orgID, "deleted_at": nil},
		bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
