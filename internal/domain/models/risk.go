// internal/domain/models/risk.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Risk is an entry in an organization's risk register.
type Risk struct {
	ID             primitive.ObjectID  `bson:"_id"`
	OrganizationID primitive.ObjectID  `bson:"org_id"`
	Title          string              `bson:"title"`
	Description    string              `bson:"description,omitempty"`
	Category       string              `bson:"category,omitempty"`
	Likelihood     int                 `bson:"likelihood"` // 1..5
	Impact         int                 `bson:"impact"`     // 1..5
	Score          int                 `bson:"score"`      // likelihood * impact
	Treatment      string              `bson:"treatment"`
	Status         string              `bson:"status"`
	OwnerID        *primitive.ObjectID `bson:"owner_id,omitempty"`
	DeletedAt      *time.Time          `bson:"deleted_at,omitempty"`
	CreatedAt      time.Time           `bson:"created_at"`
	UpdatedAt      time.Time           `bson:"updated_at"`
}

// Risk statuses.
const (
	RiskIdentified = "identified"
	RiskAssessed   = "assessed"
	RiskTreated    = "treated"
	RiskAccepted   = "accepted"
	RiskClosed     = "closed"
)

// RiskStatuses lists statuses in workflow order.
var RiskStatuses = []string{RiskIdentified, RiskAssessed, RiskTreated, RiskAccepted, RiskClosed}

// Risk treatments.
const (
	TreatmentMitigate = "mitigate"
	TreatmentAccept   = "accept"
	TreatmentTransfer = "transfer"
	TreatmentAvoid    = "avoid"
)

// RiskTreatments lists treatment options.
var RiskTreatments = []string{TreatmentMitigate, TreatmentAccept, TreatmentTransfer, TreatmentAvoid}

// ValidRiskStatus reports whether s is a known risk status.
func ValidRiskStatus(s string) bool { return contains(RiskStatuses, s) }

// ValidTreatment reports whether s is a known treatment.
func ValidTreatment(s string) bool { return contains(RiskTreatments, s) }

// IsOpen reports whether the risk still needs attention.
func (r Risk) IsOpen() bool {
	return r.Status != RiskClosed && r.Status != RiskAccepted
}

// RiskLevel buckets a likelihood*impact score.
func RiskLevel(score int) string {
	switch {
	case score >= 15:
		return "high"
	case score >= 8:
		return "medium"
	default:
		return "low"
	}
}
