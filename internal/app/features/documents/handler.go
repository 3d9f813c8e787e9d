// internal/app/features/documents/handler.go
package documents

import (
	"github.com/dalemusser/stratagrc/internal/app/actions"
	uierrors "github.com/dalemusser/stratagrc/internal/app/features/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves controlled documents.
type Handler struct {
	DB      *mongo.Database
	Actions *actions.Actions
	ErrLog  *uierrors.ErrorLogger
	Log     *zap.Logger
}

// NewHandler constructs a documents Handler.
func NewHandler(db *mongo.Database, acts *actions.Actions, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:      db,
		Actions: acts,
		ErrLog:  errLog,
		Log:     logger,
	}
}
