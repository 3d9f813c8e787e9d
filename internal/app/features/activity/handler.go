// internal/app/features/activity/handler.go
package activity

import (
	uierrors "github.com/dalemusser/stratagrc/internal/app/features/errors"
	"github.com/dalemusser/stratagrc/internal/app/store/audit"
	userstore "github.com/dalemusser/stratagrc/internal/app/store/users"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler owns the organization activity (audit trail) pages.
type Handler struct {
	Audit  *audit.Store
	Users  *userstore.Store
	Log    *zap.Logger
	ErrLog *uierrors.ErrorLogger
}

// NewHandler creates a new activity Handler.
func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Audit:  audit.New(db),
		Users:  userstore.New(db),
		ErrLog: errLog,
		Log:    logger,
	}
}
