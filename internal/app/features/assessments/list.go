// internal/app/features/assessments/list.go
package assessments

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dalemusser/stratagrc/internal/app/actions"
	assessmentstore "github.com/dalemusser/stratagrc/internal/app/store/assessments"
	frameworkstore "github.com/dalemusser/stratagrc/internal/app/store/frameworks"
	"github.com/dalemusser/stratagrc/internal/app/system/formutil"
	"github.com/dalemusser/stratagrc/internal/app/system/navigation"
	"github.com/dalemusser/stratagrc/internal/app/system/tenant"
	"github.com/dalemusser/stratagrc/internal/app/system/timeouts"
	"github.com/dalemusser/stratagrc/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type assessmentRow struct {
	ID        string
	Title     string
	Framework string
	Status    string
	Score     string
	Created   string
	Completed string
}

type frameworkOption struct {
	ID   string
	Name string
}

type listData struct {
	formutil.Base
	Rows       []assessmentRow
	Frameworks []frameworkOption
	Form       actions.AssessmentInput
}

// ServeList renders the organization's assessments, newest first.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	h.renderList(w, r, actions.AssessmentInput{}, "")
}

func (h *Handler) renderList(w http.ResponseWriter, r *http.Request, form actions.AssessmentInput, errMsg string) {
	t, ok := tenant.FromRequest(r)
	if !ok {
		h.ErrLog.LogForbidden(w, r, "assessments: no tenant", "You don't have access to this organization.", "/")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	back := navigation.OrgPath(t.Org.Slug)
	list, err := assessmentstore.New(h.DB).List(ctx, t.Org.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list assessments failed", err, "Could not load assessments.", back)
		return
	}
	fws, err := frameworkstore.New(h.DB).List(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list frameworks failed", err, "Could not load assessments.", back)
		return
	}

	data := listData{Form: form}
	for _, fw := range fws {
		data.Frameworks = append(data.Frameworks, frameworkOption{ID: fw.ID.Hex(), Name: fw.Code + " " + fw.Name})
	}
	for _, a := range list {
		row := assessmentRow{
			ID:        a.ID.Hex(),
			Title:     a.Title,
			Framework: a.FrameworkCode,
			Status:    a.Status,
			Created:   a.CreatedAt.Format("2006-01-02"),
		}
		if a.Score != nil {
			row.Score = scoreLabel(*a.Score)
		}
		if a.CompletedAt != nil {
			row.Completed = a.CompletedAt.Format("2006-01-02")
		}
		data.Rows = append(data.Rows, row)
	}

	formutil.SetBase(&data.Base, r, "Assessments", back)
	data.SetError(errMsg)
	templates.Render(w, r, "assessments_list", data)
}

// HandleCreate starts an assessment and seeds its Statement of
// Applicability.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := actions.ActorFromRequest(r)
	if !ok {
		h.ErrLog.LogForbidden(w, r, "assessments: no actor", "You don't have access to this organization.", "/")
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form submission.", listPath(r))
		return
	}

	in := actions.AssessmentInput{
		FrameworkID: r.FormValue("framework_id"),
		Title:       r.FormValue("title"),
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	res, err := h.Actions.CreateAssessment(ctx, actor, in)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create assessment failed", err, "Could not start the assessment.", listPath(r))
		return
	}
	if !res.OK() {
		h.renderList(w, r, in, res.Error)
		return
	}
	h.Log.Debug("assessment created", zap.String("assessment_id", res.ID), zap.Int("entries", res.Created))
	http.Redirect(w, r, formutil.WithNotice(navigation.OrgPath(chi.URLParam(r, "slug"), "assessments", res.ID), "created"), http.StatusSeeOther)
}

func scoreLabel(score int) string {
	return strconv.Itoa(score) + "%"
}

func listPath(r *http.Request) string {
	return navigation.OrgPath(chi.URLParam(r, "slug"), "assessments")
}

func statementPath(r *http.Request) string {
	return navigation.OrgPath(chi.URLParam(r, "slug"), "assessments", chi.URLParam(r, "id"))
}

func completed(a models.Assessment) bool {
	return a.Status == models.AssessmentCompleted
}
