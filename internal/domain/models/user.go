// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a global identity. Tenant access is granted through Membership,
// never through fields on the user record.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName     string             `bson:"full_name" json:"full_name"`
	FullNameCI   string             `bson:"full_name_ci" json:"-"`
	Email        string             `bson:"email" json:"email"`
	EmailCI      string             `bson:"email_ci" json:"-"` // folded, unique
	PasswordHash string             `bson:"password_hash,omitempty" json:"-"`
	AuthMethod   string             `bson:"auth_method" json:"auth_method"` // password | google
	IsSuperAdmin bool               `bson:"is_super_admin" json:"is_super_admin"`
	Status       string             `bson:"status" json:"status"` // active | disabled

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Auth methods.
const (
	AuthMethodPassword = "password"
	AuthMethodGoogle   = "google"
)

// User statuses.
const (
	UserActive   = "active"
	UserDisabled = "disabled"
)

// IsActive reports whether the user may sign in.
func (u User) IsActive() bool {
	return u.Status == "" || u.Status == UserActive
}
