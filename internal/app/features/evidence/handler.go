// internal/app/features/evidence/handler.go
package evidence

import (
	"github.com/dalemusser/stratagrc/internal/app/actions"
	uierrors "github.com/dalemusser/stratagrc/internal/app/features/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the evidence register.
type Handler struct {
	DB      *mongo.Database
	Actions *actions.Actions
	ErrLog  *uierrors.ErrorLogger
	Log     *zap.Logger
}

// NewHandler constructs an evidence Handler.
func NewHandler(db *mongo.Database, acts *actions.Actions, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:      db,
		Actions: acts,
		ErrLog:  errLog,
		Log:     logger,
	}
}
