// internal/app/features/organizations/handler.go
//
// Package organizations is the platform administration of tenants:
// listing, creating, soft-deleting and restoring organizations and
// granting memberships directly. It is mounted under /admin/orgs and is
// reachable by super-admins only.
package organizations

import (
	"github.com/dalemusser/stratagrc/internal/app/actions"
	uierrors "github.com/dalemusser/stratagrc/internal/app/features/errors"
	membershipstore "github.com/dalemusser/stratagrc/internal/app/store/memberships"
	orgstore "github.com/dalemusser/stratagrc/internal/app/store/organizations"
	userstore "github.com/dalemusser/stratagrc/internal/app/store/users"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the feature-level entry point for Organizations.
type Handler struct {
	Orgs        *orgstore.Store
	Memberships *membershipstore.Store
	Users       *userstore.Store
	Actions     *actions.Actions
	ErrLog      *uierrors.ErrorLogger
	Log         *zap.Logger
}

// NewHandler constructs a new Organizations handler bound to a DB and logger.
func NewHandler(db *mongo.Database, acts *actions.Actions, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Orgs:        orgstore.New(db),
		Memberships: membershipstore.New(db),
		Users:       userstore.New(db),
		Actions:     acts,
		ErrLog:      errLog,
		Log:         logger,
	}
}
