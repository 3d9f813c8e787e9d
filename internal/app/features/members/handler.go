// internal/app/features/members/handler.go
package members

import (
	"github.com/dalemusser/stratagrc/internal/app/actions"
	uierrors "github.com/dalemusser/stratagrc/internal/app/features/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves organization membership: the member list, invitations,
// role changes and removal.
type Handler struct {
	DB      *mongo.Database
	Actions *actions.Actions
	// AppOrigin prefixes invitation links shown after an invite.
	AppOrigin string
	ErrLog    *uierrors.ErrorLogger
	Log       *zap.Logger
}

func NewHandler(db *mongo.Database, acts *actions.Actions, appOrigin string, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:        db,
		Actions:   acts,
		AppOrigin: appOrigin,
		ErrLog:    errLog,
		Log:       logger,
	}
}
