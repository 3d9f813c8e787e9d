// internal/app/features/frameworks/list.go
package frameworks

import (
	"context"
	"net/http"

	"github.com/dalemusser/stratagrc/internal/app/actions"
	controlstore "github.com/dalemusser/stratagrc/internal/app/store/controls"
	frameworkstore "github.com/dalemusser/stratagrc/internal/app/store/frameworks"
	"github.com/dalemusser/stratagrc/internal/app/system/formutil"
	"github.com/dalemusser/stratagrc/internal/app/system/navigation"
	"github.com/dalemusser/stratagrc/internal/app/system/tenant"
	"github.com/dalemusser/stratagrc/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type frameworkRow struct {
	ID          string
	Code        string
	Name        string
	Version     string
	Description string
	Controls    int
	Active      bool
}

type listData struct {
	formutil.Base
	Rows []frameworkRow
}

// ServeList renders the catalog with this organization's activation state.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	h.renderList(w, r, "")
}

func (h *Handler) renderList(w http.ResponseWriter, r *http.Request, errMsg string) {
	t, ok := tenant.FromRequest(r)
	if !ok {
		h.ErrLog.LogForbidden(w, r, "frameworks: no tenant", "You don't have access to this organization.", "/")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	back := navigation.OrgPath(t.Org.Slug)
	fws := frameworkstore.New(h.DB)
	all, err := fws.List(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list frameworks failed", err, "Could not load frameworks.", back)
		return
	}
	counts, err := fws.CountControls(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "count controls failed", err, "Could not load frameworks.", back)
		return
	}
	activeIDs, err := controlstore.New(h.DB).ActiveFrameworkIDs(ctx, t.Org.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list active frameworks failed", err, "Could not load frameworks.", back)
		return
	}
	active := make(map[string]bool, len(activeIDs))
	for _, id := range activeIDs {
		active[id.Hex()] = true
	}

	var data listData
	for _, fw := range all {
		data.Rows = append(data.Rows, frameworkRow{
			ID:          fw.ID.Hex(),
			Code:        fw.Code,
			Name:        fw.Name,
			Version:     fw.Version,
			Description: fw.Description,
			Controls:    counts[fw.ID],
			Active:      active[fw.ID.Hex()],
		})
	}

	formutil.SetBase(&data.Base, r, "Frameworks", back)
	data.SetError(errMsg)
	templates.Render(w, r, "frameworks_list", data)
}

// HandleActivate seeds the framework's controls and certification tasks.
// Activating an already active framework only fills gaps.
func (h *Handler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	actor, ok := actions.ActorFromRequest(r)
	if !ok {
		h.ErrLog.LogForbidden(w, r, "frameworks: no actor", "You don't have access to this organization.", "/")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	id := chi.URLParam(r, "id")
	res, err := h.Actions.ActivateFramework(ctx, actor, id)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "activate framework failed", err, "Could not activate the framework.", listPath(r))
		return
	}
	if !res.OK() {
		h.renderList(w, r, res.Error)
		return
	}
	h.Log.Debug("framework activation handled", zap.String("framework_id", id), zap.Int("created", res.Created))
	http.Redirect(w, r, formutil.WithNotice(navigation.OrgPath(chi.URLParam(r, "slug"), "frameworks", id), "activated"), http.StatusSeeOther)
}

func listPath(r *http.Request) string {
	return navigation.OrgPath(chi.URLParam(r, "slug"), "frameworks")
}
