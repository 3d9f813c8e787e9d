// internal/app/features/risks/list.go
package risks

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/stratagrc/internal/app/actions"
	"github.com/dalemusser/stratagrc/internal/app/store/queries/orgmembers"
	riskstore "github.com/dalemusser/stratagrc/internal/app/store/risks"
	"github.com/dalemusser/stratagrc/internal/app/system/formutil"
	"github.com/dalemusser/stratagrc/internal/app/system/navigation"
	"github.com/dalemusser/stratagrc/internal/app/system/tenant"
	"github.com/dalemusser/stratagrc/internal/app/system/timeouts"
	"github.com/dalemusser/stratagrc/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
)

type riskRow struct {
	ID         string
	Title      string
	Category   string
	Likelihood int
	Impact     int
	Score      int
	Level      string
	Treatment  string
	Status     string
	Owner      string
	Open       bool
}

type listData struct {
	formutil.Base
	Status     string
	Statuses   []string
	Treatments []string
	Owners     []orgmembers.Option
	Rows       []riskRow
	OpenCount  int
	Form       actions.RiskInput
}

// ServeList renders the register, optionally filtered by ?status=.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, actions.RiskInput{Likelihood: 3, Impact: 3}, "")
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, form actions.RiskInput, errMsg string) {
	t, ok := tenant.FromRequest(r)
	if !ok {
		h.ErrLog.LogForbidden(w, r, "risks: no tenant", "You don't have access to this organization.", "/")
		return
	}
	status := strings.TrimSpace(query.Get(r, "status"))
	if !models.ValidRiskStatus(status) {
		status = ""
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	risks, err := riskstore.New(h.DB).List(ctx, t.Org.ID, status)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list risks failed", err, "Could not load risks.", navigation.OrgPath(t.Org.Slug))
		return
	}
	owners, err := orgmembers.Options(ctx, h.DB, t.Org.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list owners failed", err, "Could not load risks.", navigation.OrgPath(t.Org.Slug))
		return
	}
	names := orgmembers.Names(owners)

	data := listData{
		Status:     status,
		Statuses:   models.RiskStatuses,
		Treatments: models.RiskTreatments,
		Owners:     owners,
		Form:       form,
	}
	for _, rk := range risks {
		row := riskRow{
			ID:         rk.ID.Hex(),
			Title:      rk.Title,
			Category:   rk.Category,
			Likelihood: rk.Likelihood,
			Impact:     rk.Impact,
			Score:      rk.Score,
			Level:      models.RiskLevel(rk.Score),
			Treatment:  rk.Treatment,
			Status:     rk.Status,
			Open:       rk.IsOpen(),
		}
		if rk.OwnerID != nil {
			row.Owner = names[rk.OwnerID.Hex()]
		}
		if row.Open {
			data.OpenCount++
		}
		data.Rows = append(data.Rows, row)
	}

	formutil.SetBase(&data.Base, r, "Risk register", navigation.OrgPath(t.Org.Slug))
	data.SetError(errMsg)
	templates.Render(w, r, "risks_list", data)
}

// HandleCreate adds a risk.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := actions.ActorFromRequest(r)
	if !ok {
		h.ErrLog.LogForbidden(w, r, "risks: no actor", "You don't have access to this organization.", "/")
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form submission.", "/")
		return
	}

	in := actions.RiskInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
		Likelihood:  formutil.Int(r, "likelihood"),
		Impact:      formutil.Int(r, "impact"),
		Treatment:   r.FormValue("treatment"),
		OwnerID:     r.FormValue("owner_id"),
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res, err := h.Actions.CreateRisk(ctx, actor, in)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create risk failed", err, "Could not save the risk.", listPath(r))
		return
	}
	if !res.OK() {
		h.render(w, r, in, res.Error)
		return
	}
	http.Redirect(w, r, formutil.WithNotice(listPath(r), "created"), http.StatusSeeOther)
}

// HandleStatus moves a risk through its workflow.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actions.ActorFromRequest(r)
	if !ok {
		h.ErrLog.LogForbidden(w, r, "risks: no actor", "You don't have access to this organization.", "/")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res, err := h.Actions.TransitionRisk(ctx, actor, chi.URLParam(r, "id"), r.FormValue("status"), r.FormValue("treatment"))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "transition risk failed", err, "Could not update the risk.", listPath(r))
		return
	}
	if !res.OK() {
		h.render(w, r, actions.RiskInput{Likelihood: 3, Impact: 3}, res.Error)
		return
	}
	http.Redirect(w, r, formutil.WithNotice(backPath(r), "updated"), http.StatusSeeOther)
}

// HandleDelete soft-deletes a risk.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actions.ActorFromRequest(r)
	if !ok {
		h.ErrLog.LogForbidden(w, r, "risks: no actor", "You don't have access to this organization.", "/")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	res, err := h.Actions.DeleteRisk(ctx, actor, chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "delete risk failed", err, "Could not delete the risk.", listPath(r))
		return
	}
	if !res.OK() {
		h.render(w, r, actions.RiskInput{Likelihood: 3, Impact: 3}, res.Error)
		return
	}
	http.Redirect(w, r, formutil.WithNotice(backPath(r), "deleted"), http.StatusSeeOther)
}

func listPath(r *http.Request) string {
	return navigation.OrgPath(chi.URLParam(r, "slug"), "risks")
}

// backPath honors a return URL inside the register, e.g. a filtered list.
func backPath(r *http.Request) string {
	return navigation.SafeBackURL(r, navigation.Section(chi.URLParam(r, "slug"), "risks"))
}
