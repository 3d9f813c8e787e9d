package actions

import (
	"context"
	"time"

	controlstore "github.com/dalemusser/stratagrc/internal/app/store/controls"
	documentstore "github.com/dalemusser/stratagrc/internal/app/store/documents"
	"github.com/dalemusser/stratagrc/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FrameworkStore reads the framework catalog.
type FrameworkStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Framework, error)
}

// ControlStore writes control implementations.
type ControlStore interface {
	Get(ctx context.Context, orgID, id primitive.ObjectID) (models.ControlImplementation, error)
	Update(ctx context.Context, orgID, id primitive.ObjectID, u controlstore.Update) error
}

// AssessmentStore writes assessments.
type AssessmentStore interface {
	Create(ctx context.Context, a models.Assessment) (models.Assessment, error)
	Get(ctx context.Context, orgID, id primitive.ObjectID) (models.Assessment, error)
	Complete(ctx context.Context, orgID, id primitive.ObjectID, score int) error
}

// SoAStore writes Statement of Applicability entries.
type SoAStore interface {
	Get(ctx context.Context, orgID, id primitive.ObjectID) (models.SoAEntry, error)
	Update(ctx context.Context, orgID, id primitive.ObjectID, applicability, justification string) error
}

// AssessmentScorer computes an assessment's score and how many entries are
// still undecided.
type AssessmentScorer interface {
	Score(ctx context.Context, orgID, assessmentID primitive.ObjectID) (score, undecided int, err error)
}

// RiskStore writes the risk register.
type RiskStore interface {
	Create(ctx context.Context, r models.Risk) (models.Risk, error)
	Get(ctx context.Context, orgID, id primitive.ObjectID) (models.Risk, error)
	SetStatus(ctx context.Context, orgID, id primitive.ObjectID, status, treatment string) error
	SoftDelete(ctx context.Context, orgID, id primitive.ObjectID) error
}

// TaskStore writes tasks.
type TaskStore interface {
	Create(ctx context.Context, t models.Task) (models.Task, error)
	Get(ctx context.Context, orgID, id primitive.ObjectID) (models.Task, error)
	SetStatus(ctx context.Context, orgID, id primitive.ObjectID, status string) error
	SoftDelete(ctx context.Context, orgID, id primitive.ObjectID) error
}

// CAPAStore writes corrective actions.
type CAPAStore interface {
	Create(ctx context.Context, c models.CAPA) (models.CAPA, error)
	Get(ctx context.Context, orgID, id primitive.ObjectID) (models.CAPA, error)
	Transition(ctx context.Context, orgID, id primitive.ObjectID, status, rootCause string) error
	SoftDelete(ctx context.Context, orgID, id primitive.ObjectID) error
}

// DocumentStore writes controlled documents.
type DocumentStore interface {
	Create(ctx context.Context, d models.Document) (models.Document, error)
	Get(ctx context.Context, orgID, id primitive.ObjectID) (models.Document, error)
	ApplyTransition(ctx context.Context, orgID, id primitive.ObjectID, t documentstore.Transition) error
	SoftDelete(ctx context.Context, orgID, id primitive.ObjectID) error
}

// EvidenceStore writes evidence records.
type EvidenceStore interface {
	Create(ctx context.Context, e models.Evidence) (models.Evidence, error)
	Get(ctx context.Context, orgID, id primitive.ObjectID) (models.Evidence, error)
	SoftDelete(ctx context.Context, orgID, id primitive.ObjectID) error
}

// TrainingStore writes training programs and completions.
type TrainingStore interface {
	CreateProgram(ctx context.Context, p models.TrainingProgram) (models.TrainingProgram, error)
	GetProgram(ctx context.Context, orgID, id primitive.ObjectID) (models.TrainingProgram, error)
	SoftDeleteProgram(ctx context.Context, orgID, id primitive.ObjectID) error
	RecordCompletion(ctx context.Context, orgID, programID, userID primitive.ObjectID, at time.Time) (models.TrainingCompletion, error)
}

// UserStore reads users.
type UserStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
}

// OrganizationStore writes organizations.
type OrganizationStore interface {
	Create(ctx context.Context, org models.Organization) (models.Organization, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Organization, error)
	SoftDelete(ctx context.Context, id primitive.ObjectID) error
	Restore(ctx context.Context, id primitive.ObjectID) error
	UpdateSettings(ctx context.Context, id primitive.ObjectID, settings map[string]string) error
}

// MembershipStore writes memberships.
type MembershipStore interface {
	Get(ctx context.Context, userID, orgID primitive.ObjectID) (models.Membership, error)
	GetActive(ctx context.Context, userID, orgID primitive.ObjectID) (models.Membership, error)
	Upsert(ctx context.Context, userID, orgID primitive.ObjectID, role string) (models.Membership, error)
	ChangeRole(ctx context.Context, userID, orgID primitive.ObjectID, role string) error
	Deactivate(ctx context.Context, userID, orgID primitive.ObjectID) error
	CountActive(ctx context.Context, orgID primitive.ObjectID, role string) (int64, error)
}

// InvitationStore writes invitations.
type InvitationStore interface {
	Create(ctx context.Context, inv models.Invitation) (models.Invitation, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Invitation, error)
	MarkAccepted(ctx context.Context, id primitive.ObjectID, now time.Time) error
	Revoke(ctx context.Context, orgID, id primitive.ObjectID) error
}
