// internal/domain/models/capa.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CAPA is a corrective or preventive action raised against a finding.
type CAPA struct {
	ID             primitive.ObjectID  `bson:"_id"`
	OrganizationID primitive.ObjectID  `bson:"org_id"`
	Title          string              `bson:"title"`
	Kind           string              `bson:"kind"` // corrective | preventive
	Source         string              `bson:"source,omitempty"`
	Description    string              `bson:"description,omitempty"`
	RootCause      string              `bson:"root_cause,omitempty"`
	Status         string              `bson:"status"`
	OwnerID        *primitive.ObjectID `bson:"owner_id,omitempty"`
	DueDate        *time.Time          `bson:"due_date,omitempty"`
	ClosedAt       *time.Time          `bson:"closed_at,omitempty"`
	DeletedAt      *time.Time          `bson:"deleted_at,omitempty"`
	CreatedAt      time.Time           `bson:"created_at"`
	UpdatedAt      time.Time           `bson:"updated_at"`
}

// CAPA kinds.
const (
	CAPACorrective = "corrective"
	CAPAPreventive = "preventive"
)

// CAPA statuses.
const (
	CAPAOpen          = "open"
	CAPAInvestigating = "investigating"
	CAPAActionTaken   = "action_taken"
	CAPAVerified      = "verified"
	CAPAClosed        = "closed"
)

// CAPAStatuses lists statuses in workflow order.
var CAPAStatuses = []string{CAPAOpen, CAPAInvestigating, CAPAActionTaken, CAPAVerified, CAPAClosed}

// ValidCAPAStatus reports whether s is a known CAPA status.
func ValidCAPAStatus(s string) bool { return contains(CAPAStatuses, s) }

// ValidCAPAKind reports whether s is a known CAPA kind.
func ValidCAPAKind(s string) bool { return s == CAPACorrective || s == CAPAPreventive }
