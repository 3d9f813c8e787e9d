// internal/app/features/evidence/list.go
package evidence

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/stratagrc/internal/app/actions"
	evidencestore "github.com/dalemusser/stratagrc/internal/app/store/evidence"
	"github.com/dalemusser/stratagrc/internal/app/store/queries/controlqueries"
	"github.com/dalemusser/stratagrc/internal/app/store/queries/orgmembers"
	"github.com/dalemusser/stratagrc/internal/app/system/formutil"
	"github.com/dalemusser/stratagrc/internal/app/system/navigation"
	"github.com/dalemusser/stratagrc/internal/app/system/tenant"
	"github.com/dalemusser/stratagrc/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type evidenceRow struct {
	ID          string
	Reference   string
	Title       string
	Description string
	URL         string
	Control     string
	CollectedBy string
	CollectedAt string
}

type listData struct {
	formutil.Base
	ControlID    string // filter; also the control new evidence links to
	ControlLabel string
	Rows         []evidenceRow
	Form         actions.EvidenceInput
}

// ServeList renders evidence. ?control=<implementation id> narrows the list
// to one control and links new evidence to it.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, actions.EvidenceInput{}, "")
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, form actions.EvidenceInput, errMsg string) {
	t, ok := tenant.FromRequest(r)
	if !ok {
		h.ErrLog.LogForbidden(w, r, "evidence: no tenant", "You don't have access to this organization.", "/")
		return
	}

	var implID *primitive.ObjectID
	controlHex := strings.TrimSpace(query.Get(r, "control"))
	if controlHex == "" {
		controlHex = strings.TrimSpace(form.ImplementationID)
	}
	if id, err := primitive.ObjectIDFromHex(controlHex); err == nil {
		implID = &id
	} else {
		controlHex = ""
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	back := navigation.OrgPath(t.Org.Slug)
	items, err := evidencestore.New(h.DB).List(ctx, t.Org.ID, implID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list evidence failed", err, "Could not load evidence.", back)
		return
	}

	var implIDs []primitive.ObjectID
	if implID != nil {
		implIDs = append(implIDs, *implID)
	}
	for _, e := range items {
		if e.ImplementationID != nil {
			implIDs = append(implIDs, *e.ImplementationID)
		}
	}
	labels, err := controlqueries.Labels(ctx, h.DB, t.Org.ID, implIDs)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load control labels failed", err, "Could not load evidence.", back)
		return
	}
	members, err := orgmembers.List(ctx, h.DB, t.Org.ID, orgmembers.Filter{})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list members failed", err, "Could not load evidence.", back)
		return
	}
	names := make(map[primitive.ObjectID]string, len(members))
	for _, m := range members {
		names[m.User.ID] = m.User.FullName
	}

	data := listData{ControlID: controlHex, Form: form}
	if implID != nil {
		data.ControlLabel = labels[*implID]
	}
	for _, e := range items {
		row := evidenceRow{
			ID:          e.ID.Hex(),
			Reference:   e.Reference,
			Title:       e.Title,
			Description: e.Description,
			URL:         e.URL,
			CollectedBy: names[e.CollectedBy],
			CollectedAt: e.CollectedAt.UTC().Format("2006-01-02"),
		}
		if e.ImplementationID != nil {
			row.Control = labels[*e.ImplementationID]
		}
		data.Rows = append(data.Rows, row)
	}

	formutil.SetBase(&data.Base, r, "Evidence", back)
	data.SetError(errMsg)
	templates.Render(w, r, "evidence_list", data)
}

// HandleCreate records evidence.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := actions.ActorFromRequest(r)
	if !ok {
		h.ErrLog.LogForbidden(w, r, "evidence: no actor", "You don't have access to this organization.", "/")
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form submission.", listPath(r))
		return
	}

	in := actions.EvidenceInput{
		Title:            r.FormValue("title"),
		Description:      r.FormValue("description"),
		URL:              r.FormValue("url"),
		ImplementationID: r.FormValue("implementation_id"),
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res, err := h.Actions.CreateEvidence(ctx, actor, in)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create evidence failed", err, "Could not save the evidence.", listPath(r))
		return
	}
	if !res.OK() {
		h.render(w, r, in, res.Error)
		return
	}

	ret := listPath(r)
	if id := strings.TrimSpace(in.ImplementationID); id != "" {
		ret += "?control=" + id
	}
	http.Redirect(w, r, formutil.WithNotice(ret, "created"), http.StatusSeeOther)
}

// HandleDelete soft-deletes evidence.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actions.ActorFromRequest(r)
	if !ok {
		h.ErrLog.LogForbidden(w, r, "evidence: no actor", "You don't have access to this organization.", "/")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	res, err := h.Actions.DeleteEvidence(ctx, actor, chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "delete evidence failed", err, "Could not delete the evidence.", listPath(r))
		return
	}
	if !res.OK() {
		h.render(w, r, actions.EvidenceInput{}, res.Error)
		return
	}
	http.Redirect(w, r, formutil.WithNotice(backPath(r), "deleted"), http.StatusSeeOther)
}

func listPath(r *http.Request) string {
	return navigation.OrgPath(chi.URLParam(r, "slug"), "evidence")
}

func backPath(r *http.Request) string {
	return navigation.SafeBackURL(r, navigation.Section(chi.URLParam(r, "slug"), "evidence"))
}
