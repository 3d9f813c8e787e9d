// internal/app/features/capa/list.go
package capa

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/stratagrc/internal/app/actions"
	capastore "github.com/dalemusser/stratagrc/internal/app/store/capas"
	"github.com/dalemusser/stratagrc/internal/app/store/queries/orgmembers"
	"github.com/dalemusser/stratagrc/internal/app/system/formutil"
	"github.com/dalemusser/stratagrc/internal/app/system/navigation"
	"github.com/dalemusser/stratagrc/internal/app/system/tenant"
	"github.com/dalemusser/stratagrc/internal/app/system/timeouts"
	"github.com/dalemusser/stratagrc/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
)

type capaRow struct {
	ID        string
	Title     string
	Kind      string
	Source    string
	RootCause string
	Status    string
	Owner     string
	Due       string
	Overdue   bool
	Closed    string
}

type listData struct {
	formutil.Base
	OpenOnly bool
	Statuses []string
	Owners   []orgmembers.Option
	Rows     []capaRow
	Form     actions.CAPAInput
}

// ServeList renders CAPAs. ?open=1 hides closed ones.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, actions.CAPAInput{Kind: models.CAPACorrective}, "")
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, form actions.CAPAInput, errMsg string) {
	t, ok := tenant.FromRequest(r)
	if !ok {
		h.ErrLog.LogForbidden(w, r, "capa: no tenant", "You don't have access to this organization.", "/")
		return
	}
	openOnly := query.Get(r, "open") == "1"

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	back := navigation.OrgPath(t.Org.Slug)
	capas, err := capastore.New(h.DB).List(ctx, t.Org.ID, openOnly)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list capas failed", err, "Could not load CAPAs.", back)
		return
	}
	owners, err := orgmembers.Options(ctx, h.DB, t.Org.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list owners failed", err, "Could not load CAPAs.", back)
		return
	}
	names := orgmembers.Names(owners)
	today := time.Now().UTC().Truncate(24 * time.Hour)

	data := listData{
		OpenOnly: openOnly,
		Statuses: models.CAPAStatuses,
		Owners:   owners,
		Form:     form,
	}
	for _, c := range capas {
		row := capaRow{
			ID:        c.ID.Hex(),
			Title:     c.Title,
			Kind:      c.Kind,
			Source:    c.Source,
			RootCause: c.RootCause,
			Status:    c.Status,
		}
		if c.OwnerID != nil {
			row.Owner = names[c.OwnerID.Hex()]
		}
		if c.DueDate != nil {
			row.Due = c.DueDate.UTC().Format("2006-01-02")
			row.Overdue = c.Status != models.CAPAClosed && c.DueDate.Before(today)
		}
		if c.ClosedAt != nil {
			row.Closed = c.ClosedAt.UTC().Format("2006-01-02")
		}
		data.Rows = append(data.Rows, row)
	}

	formutil.SetBase(&data.Base, r, "Corrective and preventive actions", back)
	data.SetError(errMsg)
	templates.Render(w, r, "capa_list", data)
}

// HandleCreate raises a CAPA.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := actions.ActorFromRequest(r)
	if !ok {
		h.ErrLog.LogForbidden(w, r, "capa: no actor", "You don't have access to this organization.", "/")
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form submission.", "/")
		return
	}

	in := actions.CAPAInput{
		Title:       r.FormValue("title"),
		Kind:        r.FormValue("kind"),
		Source:      r.FormValue("source"),
		Description: r.FormValue("description"),
		OwnerID:     r.FormValue("owner_id"),
		DueDate:     r.FormValue("due_date"),
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res, err := h.Actions.CreateCAPA(ctx, actor, in)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create capa failed", err, "Could not save the CAPA.", listPath(r))
		return
	}
	if !res.OK() {
		h.render(w, r, in, res.Error)
		return
	}
	http.Redirect(w, r, formutil.WithNotice(listPath(r), "created"), http.StatusSeeOther)
}

// HandleStatus advances a CAPA. Closing needs a recorded root cause.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actions.ActorFromRequest(r)
	if !ok {
		h.ErrLog.LogForbidden(w, r, "capa: no actor", "You don't have access to this organization.", "/")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res, err := h.Actions.TransitionCAPA(ctx, actor, chi.URLParam(r, "id"), r.FormValue("status"), r.FormValue("root_cause"))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "transition capa failed", err, "Could not update the CAPA.", listPath(r))
		return
	}
	if !res.OK() {
		h.render(w, r, actions.CAPAInput{Kind: models.CAPACorrective}, res.Error)
		return
	}
	http.Redirect(w, r, formutil.WithNotice(backPath(r), "updated"), http.StatusSeeOther)
}

// HandleDelete soft-deletes a CAPA.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actions.ActorFromRequest(r)
	if !ok {
		h.ErrLog.LogForbidden(w, r, "capa: no actor", "You don't have access to this organization.", "/")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	res, err := h.Actions.DeleteCAPA(ctx, actor, chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "delete capa failed", err, "Could not delete the CAPA.", listPath(r))
		return
	}
	if !res.OK() {
		h.render(w, r, actions.CAPAInput{Kind: models.CAPACorrective}, res.Error)
		return
	}
	http.Redirect(w, r, formutil.WithNotice(backPath(r), "deleted"), http.StatusSeeOther)
}

func listPath(r *http.Request) string {
	return navigation.OrgPath(chi.URLParam(r, "slug"), "capa")
}

func backPath(r *http.Request) string {
	return navigation.SafeBackURL(r, navigation.Section(chi.URLParam(r, "slug"), "capa"))
}
