// internal/domain/models/framework.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Framework is a global compliance framework from the catalog
// (e.g. ISO 27001:2022). Code is unique.
type Framework struct {
	ID          primitive.ObjectID `bson:"_id"`
	Code        string             `bson:"code"`
	Name        string             `bson:"name"`
	Version     string             `bson:"version"`
	Description string             `bson:"description,omitempty"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

// FrameworkControl is a template control belonging to a Framework.
// (framework_id, code) is unique.
type FrameworkControl struct {
	ID            primitive.ObjectID `bson:"_id"`
	FrameworkID   primitive.ObjectID `bson:"framework_id"`
	Code          string             `bson:"code"`
	Title         string             `bson:"title"`
	Domain        string             `bson:"domain"`
	Description   string             `bson:"description,omitempty"`
	DefaultStatus string             `bson:"default_status"`
	SortKey       int                `bson:"sort_key"`
}

// TaskTemplate is a certification task seeded into an organization when a
// framework is activated. (framework_id, key) is unique.
type TaskTemplate struct {
	ID          primitive.ObjectID `bson:"_id"`
	FrameworkID primitive.ObjectID `bson:"framework_id"`
	Key         string             `bson:"key"`
	Title       string             `bson:"title"`
	Description string             `bson:"description,omitempty"`
	Phase       string             `bson:"phase"`
	DueOffset   int                `bson:"due_offset_days"` // days after activation
	SortKey     int                `bson:"sort_key"`
}
