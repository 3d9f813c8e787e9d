// internal/domain/models/membership.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Membership joins a User to an Organization. There is at most one per
// (user, organization) pair; removal deactivates instead of deleting.
type Membership struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	UserID         primitive.ObjectID `bson:"user_id"`
	OrganizationID primitive.ObjectID `bson:"org_id"`
	Role           string             `bson:"role"`
	Active         bool               `bson:"active"`
	CreatedAt      time.Time          `bson:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at"`
}

// Tenant roles.
const (
	RoleOwner   = "owner"
	RoleAdmin   = "admin"
	RoleMember  = "member"
	RoleAuditor = "auditor"
)

// TenantRoles lists tenant roles from most to least privileged.
var TenantRoles = []string{RoleOwner, RoleAdmin, RoleMember, RoleAuditor}

// ValidTenantRole reports whether role is a known tenant role.
func ValidTenantRole(role string) bool {
	for _, r := range TenantRoles {
		if r == role {
			return true
		}
	}
	return false
}
