// internal/domain/models/invitation.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Invitation offers an email address a role in an organization. The signed
// token sent to the invitee carries the invitation ID as its jti.
type Invitation struct {
	ID             primitive.ObjectID `bson:"_id"`
	OrganizationID primitive.ObjectID `bson:"org_id"`
	Email          string             `bson:"email"`
	EmailCI        string             `bson:"email_ci"`
	Role           string             `bson:"role"`
	Status         string             `bson:"status"`
	InvitedBy      primitive.ObjectID `bson:"invited_by"`
	ExpiresAt      time.Time          `bson:"expires_at"`
	AcceptedAt     *time.Time         `bson:"accepted_at,omitempty"`
	CreatedAt      time.Time          `bson:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at"`
}

// Invitation statuses.
const (
	InvitePending  = "pending"
	InviteAccepted = "accepted"
	InviteRevoked  = "revoked"
	InviteExpired  = "expired"
)
