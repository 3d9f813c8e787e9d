// internal/domain/models/training.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TrainingProgram is a course members of an organization must complete.
type TrainingProgram struct {
	ID             primitive.ObjectID `bson:"_id"`
	OrganizationID primitive.ObjectID `bson:"org_id"`
	Title          string             `bson:"title"`
	Description    string             `bson:"description,omitempty"`
	Mandatory      bool               `bson:"mandatory"`
	FrequencyDays  int                `bson:"frequency_days,omitempty"` // 0 = one-off
	DeletedAt      *time.Time         `bson:"deleted_at,omitempty"`
	CreatedAt      time.Time          `bson:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at"`
}

// TrainingCompletion records that a user completed a program.
// (program_id, user_id) is unique; re-completion updates CompletedAt.
type TrainingCompletion struct {
	ID             primitive.ObjectID `bson:"_id"`
	OrganizationID primitive.ObjectID `bson:"org_id"`
	ProgramID      primitive.ObjectID `bson:"program_id"`
	UserID         primitive.ObjectID `bson:"user_id"`
	CompletedAt    time.Time          `bson:"completed_at"`
	CreatedAt      time.Time          `bson:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at"`
}
