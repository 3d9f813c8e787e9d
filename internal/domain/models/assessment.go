// internal/domain/models/assessment.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Assessment is an organization's evaluation of a framework at a point in
// time. Creating one seeds its Statement of Applicability.
type Assessment struct {
	ID             primitive.ObjectID `bson:"_id"`
	OrganizationID primitive.ObjectID `bson:"org_id"`
	FrameworkID    primitive.ObjectID `bson:"framework_id"`
	FrameworkCode  string             `bson:"framework_code"`
	Title          string             `bson:"title"`
	Status         string             `bson:"status"`
	Score          *int               `bson:"score,omitempty"` // percent, set on completion
	DeletedAt      *time.Time         `bson:"deleted_at,omitempty"`
	CreatedBy      primitive.ObjectID `bson:"created_by"`
	CreatedAt      time.Time          `bson:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at"`
	CompletedAt    *time.Time         `bson:"completed_at,omitempty"`
}

// Assessment statuses.
const (
	AssessmentInProgress = "in_progress"
	AssessmentCompleted  = "completed"
)

// SoAEntry is one row of a Statement of Applicability: whether a framework
// control applies to the organization and why. (assessment_id, control_id)
// is unique.
type SoAEntry struct {
	ID             primitive.ObjectID `bson:"_id"`
	OrganizationID primitive.ObjectID `bson:"org_id"`
	AssessmentID   primitive.ObjectID `bson:"assessment_id"`
	ControlID      primitive.ObjectID `bson:"control_id"`
	Applicability  string             `bson:"applicability"`
	Justification  string             `bson:"justification,omitempty"`
	CreatedAt      time.Time          `bson:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at"`
}

// SoA applicability values.
const (
	SoAUndecided  = "undecided"
	SoAApplicable = "applicable"
	SoAExcluded   = "excluded"
)

// SoAApplicabilities lists applicability values.
var SoAApplicabilities = []string{SoAUndecided, SoAApplicable, SoAExcluded}

// ValidApplicability reports whether s is a known applicability value.
func ValidApplicability(s string) bool { return contains(SoAApplicabilities, s) }
