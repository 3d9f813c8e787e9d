// internal/app/features/activity/export.go
package activity

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"github.com/dalemusser/stratagrc/internal/app/system/navigation"
	"github.com/dalemusser/stratagrc/internal/app/system/tenant"
	"github.com/dalemusser/stratagrc/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// exportLimit caps a single CSV download.
const exportLimit = 10000

// ServeCSV streams the organization's audit events as CSV, honoring the
// same category filter as the list.
func (h *Handler) ServeCSV(w http.ResponseWriter, r *http.Request) {
	t, ok := tenant.FromRequest(r)
	if !ok {
		h.ErrLog.LogForbidden(w, r, "activity: no tenant", "You don't have access to this organization.", "/")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "activity export")
	defer cancel()

	filter := filterFor(r, t)
	filter.Limit = exportLimit
	events, err := h.Audit.Query(ctx, filter)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "export audit events failed", err, "Could not export activity.", navigation.OrgPath(t.Org.Slug, "activity"))
		return
	}
	rows, err := h.rows(ctx, events)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load actors failed", err, "Could not export activity.", navigation.OrgPath(t.Org.Slug, "activity"))
		return
	}

	filename := fmt.Sprintf("%s-activity-%s.csv", t.Org.Slug, time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"timestamp", "actor", "event", "entity", "success", "changes"})
	for _, row := range rows {
		_ = cw.Write([]string{row.When, row.Actor, row.Event, row.Entity, fmt.Sprint(row.Success), joinChanges(row.Changes)})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		h.Log.Warn("activity csv write failed", zap.String("org", t.Org.Slug), zap.Error(err))
	}
}
