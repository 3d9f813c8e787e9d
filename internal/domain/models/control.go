// internal/domain/models/control.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ControlImplementation tracks an organization's implementation of one
// FrameworkControl. (org_id, framework_id, control_id) is unique so that
// seeding can rely on the index for idempotency.
type ControlImplementation struct {
	ID             primitive.ObjectID  `bson:"_id"`
	OrganizationID primitive.ObjectID  `bson:"org_id"`
	FrameworkID    primitive.ObjectID  `bson:"framework_id"`
	ControlID      primitive.ObjectID  `bson:"control_id"`
	Status         string              `bson:"status"`
	Effectiveness  string              `bson:"effectiveness"`
	OwnerID        *primitive.ObjectID `bson:"owner_id,omitempty"`
	Notes          string              `bson:"notes,omitempty"`
	CreatedAt      time.Time           `bson:"created_at"`
	UpdatedAt      time.Time           `bson:"updated_at"`
}

// Control implementation statuses.
const (
	ControlNotStarted    = "not_started"
	ControlInProgress    = "in_progress"
	ControlImplemented   = "implemented"
	ControlNotApplicable = "not_applicable"
)

// ControlStatuses lists statuses in workflow order.
var ControlStatuses = []string{ControlNotStarted, ControlInProgress, ControlImplemented, ControlNotApplicable}

// Control effectiveness ratings.
const (
	EffectivenessUnassessed  = "unassessed"
	EffectivenessIneffective = "ineffective"
	EffectivenessPartial     = "partially_effective"
	EffectivenessEffective   = "effective"
)

// EffectivenessRatings lists ratings from unknown to best.
var EffectivenessRatings = []string{EffectivenessUnassessed, EffectivenessIneffective, EffectivenessPartial, EffectivenessEffective}

// ValidControlStatus reports whether s is a known control status.
func ValidControlStatus(s string) bool { return contains(ControlStatuses, s) }

// ValidEffectiveness reports whether s is a known effectiveness rating.
func ValidEffectiveness(s string) bool { return contains(EffectivenessRatings, s) }

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
