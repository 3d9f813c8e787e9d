// internal/domain/models/evidence.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Evidence is an audit artifact, optionally linked to a control
// implementation. Files themselves live outside the app; URL points to them.
type Evidence struct {
	ID               primitive.ObjectID  `bson:"_id"`
	OrganizationID   primitive.ObjectID  `bson:"org_id"`
	Reference        string              `bson:"reference"` // short human code, unique per org
	Title            string              `bson:"title"`
	Description      string              `bson:"description,omitempty"`
	URL              string              `bson:"url,omitempty"`
	ImplementationID *primitive.ObjectID `bson:"implementation_id,omitempty"`
	CollectedAt      time.Time           `bson:"collected_at"`
	CollectedBy      primitive.ObjectID  `bson:"collected_by"`
	DeletedAt        *time.Time          `bson:"deleted_at,omitempty"`
	CreatedAt        time.Time           `bson:"created_at"`
	UpdatedAt        time.Time           `bson:"updated_at"`
}
