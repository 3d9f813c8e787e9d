// internal/app/features/admin/handler.go
//
// Package admin is the super-admin landing page and the read-only view of
// the framework catalog. Organization administration lives in the
// organizations feature, mounted beside it under /admin/orgs.
package admin

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/stratagrc/internal/app/features/errors"
	frameworkstore "github.com/dalemusser/stratagrc/internal/app/store/frameworks"
	orgstore "github.com/dalemusser/stratagrc/internal/app/store/organizations"
	"github.com/dalemusser/stratagrc/internal/app/system/formutil"
	"github.com/dalemusser/stratagrc/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Orgs       *orgstore.Store
	Frameworks *frameworkstore.Store
	ErrLog     *uierrors.ErrorLogger
	Log        *zap.Logger
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Orgs:       orgstore.New(db),
		Frameworks: frameworkstore.New(db),
		ErrLog:     errLog,
		Log:        logger,
	}
}

type indexData struct {
	formutil.Base
	LiveOrgs    int
	DeletedOrgs int
	Frameworks  int
}

type frameworkRow struct {
	Code     string
	Name     string
	Version  string
	Controls int
}

type catalogData struct {
	formutil.Base
	Rows []frameworkRow
}

// ServeIndex handles GET /admin.
func (h *Handler) ServeIndex(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	data, err := h.summary(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "admin summary failed", err, "Unable to load the admin overview.", "/")
		return
	}
	formutil.SetBase(&data.Base, r, "Administration", "/")
	templates.Render(w, r, "admin_index", data)
}

func (h *Handler) summary(ctx context.Context) (indexData, error) {
	var data indexData
	orgs, err := h.Orgs.List(ctx, true)
	if err != nil {
		return data, err
	}
	for _, o := range orgs {
		if o.IsDeleted() {
			data.DeletedOrgs++
		} else {
			data.LiveOrgs++
		}
	}
	fws, err := h.Frameworks.List(ctx)
	if err != nil {
		return data, err
	}
	data.Frameworks = len(fws)
	return data, nil
}

// ServeFrameworks handles GET /admin/frameworks.
func (h *Handler) ServeFrameworks(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rows, err := h.catalog(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load catalog failed", err, "Unable to load the framework catalog.", "/admin")
		return
	}
	data := catalogData{Rows: rows}
	formutil.SetBase(&data.Base, r, "Framework catalog", "/admin")
	templates.Render(w, r, "admin_frameworks", data)
}

func (h *Handler) catalog(ctx context.Context) ([]frameworkRow, error) {
	fws, err := h.Frameworks.List(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := h.Frameworks.CountControls(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]frameworkRow, 0, len(fws))
	for _, f := range fws {
		rows = append(rows, frameworkRow{
			Code:     f.Code,
			Name:     f.Name,
			Version:  f.Version,
			Controls: counts[f.ID],
		})
	}
	return rows, nil
}
