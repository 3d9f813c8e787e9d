// internal/app/features/frameworks/controls.go
package frameworks

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/stratagrc/internal/app/actions"
	frameworkstore "github.com/dalemusser/stratagrc/internal/app/store/frameworks"
	"github.com/dalemusser/stratagrc/internal/app/store/queries/controlqueries"
	"github.com/dalemusser/stratagrc/internal/app/store/queries/orgmembers"
	"github.com/dalemusser/stratagrc/internal/app/system/formutil"
	"github.com/dalemusser/stratagrc/internal/app/system/navigation"
	"github.com/dalemusser/stratagrc/internal/app/system/tenant"
	"github.com/dalemusser/stratagrc/internal/app/system/timeouts"
	"github.com/dalemusser/stratagrc/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type controlRow struct {
	ID            string
	Code          string
	Title         string
	Status        string
	Effectiveness string
	Notes         string
	OwnerID       string
	Owner         string
}

type domainGroup struct {
	Domain string
	Rows   []controlRow
}

type controlsData struct {
	formutil.Base
	FrameworkID   string
	FrameworkName string
	Groups        []domainGroup
	Total         int
	Implemented   int
	Percent       int
	Statuses      []string
	Effectiveness []string
	Owners        []orgmembers.Option
}

// ServeControls renders a framework's control implementations grouped by
// domain. An inactive framework shows an empty list with an activate button.
func (h *Handler) ServeControls(w http.ResponseWriter, r *http.Request) {
	h.renderControls(w, r, "")
}

func (h *Handler) renderControls(w http.ResponseWriter, r *http.Request, errMsg string) {
	t, ok := tenant.FromRequest(r)
	if !ok {
		h.ErrLog.LogForbidden(w, r, "frameworks: no tenant", "You don't have access to this organization.", "/")
		return
	}
	back := navigation.OrgPath(t.Org.Slug, "frameworks")

	fwID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.LogBadRequest(w, r, "bad framework id", err, "That framework link is not valid.", back)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	fw, err := frameworkstore.New(h.DB).GetByID(ctx, fwID)
	if errors.Is(err, frameworkstore.ErrNotFound) {
		h.ErrLog.LogBadRequest(w, r, "framework not found", err, "That framework is not in the catalog.", back)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load framework failed", err, "Could not load the framework.", back)
		return
	}
	rows, err := controlqueries.ForFramework(ctx, h.DB, t.Org.ID, fwID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list controls failed", err, "Could not load controls.", back)
		return
	}
	owners, err := orgmembers.Options(ctx, h.DB, t.Org.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list owners failed", err, "Could not load controls.", back)
		return
	}
	names := orgmembers.Names(owners)

	data := controlsData{
		FrameworkID:   fw.ID.Hex(),
		FrameworkName: fw.Name,
		Total:         len(rows),
		Statuses:      models.ControlStatuses,
		Effectiveness: models.EffectivenessRatings,
		Owners:        owners,
	}
	for _, g := range controlqueries.GroupByDomain(rows) {
		dg := domainGroup{Domain: g.Domain}
		for _, row := range g.Rows {
			cr := controlRow{
				ID:            row.ID.Hex(),
				Code:          row.Code,
				Title:         row.Title,
				Status:        row.Status,
				Effectiveness: row.Effectiveness,
				Notes:         row.Notes,
			}
			if row.OwnerID != nil {
				cr.OwnerID = row.OwnerID.Hex()
				cr.Owner = names[cr.OwnerID]
			}
			if row.Status == models.ControlImplemented {
				data.Implemented++
			}
			dg.Rows = append(dg.Rows, cr)
		}
		data.Groups = append(data.Groups, dg)
	}
	if data.Total > 0 {
		data.Percent = data.Implemented * 100 / data.Total
	}

	formutil.SetBase(&data.Base, r, fw.Name, back)
	data.SetError(errMsg)
	templates.Render(w, r, "frameworks_controls", data)
}

// HandleUpdateControl records progress on one control implementation.
func (h *Handler) HandleUpdateControl(w http.ResponseWriter, r *http.Request) {
	actor, ok := actions.ActorFromRequest(r)
	if !ok {
		h.ErrLog.LogForbidden(w, r, "frameworks: no actor", "You don't have access to this organization.", "/")
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form submission.", listPath(r))
		return
	}

	in := actions.ControlInput{
		ImplementationID: chi.URLParam(r, "control"),
		Status:           r.FormValue("status"),
		Effectiveness:    r.FormValue("effectiveness"),
		Notes:            r.FormValue("notes"),
		OwnerID:          r.FormValue("owner_id"),
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res, err := h.Actions.UpdateControlStatus(ctx, actor, in)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "update control failed", err, "Could not save the control.", listPath(r))
		return
	}
	if !res.OK() {
		h.renderControls(w, r, res.Error)
		return
	}
	ret := navigation.OrgPath(chi.URLParam(r, "slug"), "frameworks", chi.URLParam(r, "id"))
	http.Redirect(w, r, formutil.WithNotice(ret, "updated")+"#c-"+res.ID, http.StatusSeeOther)
}
