// internal/app/features/dashboard/handler.go
package dashboard

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/stratagrc/internal/app/features/errors"
	"github.com/dalemusser/stratagrc/internal/app/store/queries/dashboardqueries"
	"github.com/dalemusser/stratagrc/internal/app/system/formutil"
	"github.com/dalemusser/stratagrc/internal/app/system/metrics"
	"github.com/dalemusser/stratagrc/internal/app/system/navigation"
	"github.com/dalemusser/stratagrc/internal/app/system/tenant"
	"github.com/dalemusser/stratagrc/internal/app/system/timeouts"
	"github.com/dalemusser/stratagrc/internal/app/system/viewcache"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	_ "github.com/dalemusser/stratagrc/internal/app/features/dashboard/views"
)

// summaryView names the cached dashboard overview.
const summaryView = "dashboard"

type Handler struct {
	DB      *mongo.Database
	Cache   viewcache.Cache
	Metrics *metrics.Metrics
	ErrLog  *uierrors.ErrorLogger
	Log     *zap.Logger
}

func NewHandler(db *mongo.Database, cache viewcache.Cache, m *metrics.Metrics, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:      db,
		Cache:   cache,
		Metrics: m,
		ErrLog:  errLog,
		Log:     logger,
	}
}

type dashboardData struct {
	formutil.Base
	dashboardqueries.Overview
	Cached bool
}

// ServeDashboard renders the organization overview. The summary is served
// from the view cache when present; mutations in the organization drop it.
func (h *Handler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	t, ok := tenant.FromRequest(r)
	if !ok {
		h.ErrLog.LogForbidden(w, r, "dashboard: no tenant", "You don't have access to this organization.", "/")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	sum, cached, err := h.summary(ctx, t)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "dashboard summary failed", err, "Could not load the dashboard.", "/onboarding")
		return
	}

	data := dashboardData{Overview: sum, Cached: cached}
	formutil.SetBase(&data.Base, r, t.Org.Name, navigation.OrgPath(t.Org.Slug))
	templates.Render(w, r, "dashboard_org", data)
}

func (h *Handler) summary(ctx context.Context, t tenant.Tenant) (dashboardqueries.Overview, bool, error) {
	key := viewcache.Key(t.Org.ID.Hex(), summaryView)

	var sum dashboardqueries.Overview
	if viewcache.GetJSON(ctx, h.Cache, h.Metrics, key, &sum) {
		return sum, true, nil
	}

	sum, err := dashboardqueries.Summary(ctx, h.DB, t.Org.ID)
	if err != nil {
		return dashboardqueries.Overview{}, false, err
	}
	if err := viewcache.SetJSON(ctx, h.Cache, key, sum); err != nil {
		h.Log.Warn("dashboard cache write failed", zap.String("org", t.Org.Slug), zap.Error(err))
	}
	return sum, false, nil
}
