// internal/app/features/assessments/statement.go
package assessments

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/stratagrc/internal/app/actions"
	assessmentstore "github.com/dalemusser/stratagrc/internal/app/store/assessments"
	"github.com/dalemusser/stratagrc/internal/app/store/queries/soaqueries"
	"github.com/dalemusser/stratagrc/internal/app/system/formutil"
	"github.com/dalemusser/stratagrc/internal/app/system/navigation"
	"github.com/dalemusser/stratagrc/internal/app/system/tenant"
	"github.com/dalemusser/stratagrc/internal/app/system/timeouts"
	"github.com/dalemusser/stratagrc/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type entryRow struct {
	ID             string
	Code           string
	Title          string
	Domain         string
	Applicability  string
	Justification  string
	Implementation string
}

type statementData struct {
	formutil.Base
	AssessmentID    string
	AssessmentTitle string
	Framework       string
	Status          string
	Completed       bool
	Rows            []entryRow
	Applicable      int
	Excluded        int
	Undecided       int
	Score           int
	Applicabilities []string
}

// ServeStatement renders an assessment's Statement of Applicability with the
// live score.
func (h *Handler) ServeStatement(w http.ResponseWriter, r *http.Request) {
	h.renderStatement(w, r, "")
}

func (h *Handler) renderStatement(w http.ResponseWriter, r *http.Request, errMsg string) {
	t, ok := tenant.FromRequest(r)
	if !ok {
		h.ErrLog.LogForbidden(w, r, "assessments: no tenant", "You don't have access to this organization.", "/")
		return
	}
	back := navigation.OrgPath(t.Org.Slug, "assessments")

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.LogBadRequest(w, r, "bad assessment id", err, "That assessment link is not valid.", back)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	asmt, err := assessmentstore.New(h.DB).Get(ctx, t.Org.ID, id)
	if errors.Is(err, assessmentstore.ErrNotFound) {
		h.ErrLog.LogBadRequest(w, r, "assessment not found", err, "That assessment no longer exists.", back)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load assessment failed", err, "Could not load the assessment.", back)
		return
	}
	st, err := soaqueries.ForAssessment(ctx, h.DB, t.Org.ID, id)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load statement failed", err, "Could not load the assessment.", back)
		return
	}

	data := statementData{
		AssessmentID:    asmt.ID.Hex(),
		AssessmentTitle: asmt.Title,
		Framework:       asmt.FrameworkCode,
		Status:          asmt.Status,
		Completed:       completed(asmt),
		Applicable:      st.Applicable,
		Excluded:        st.Excluded,
		Undecided:       st.Undecided,
		Score:           st.Score,
		Applicabilities: models.SoAApplicabilities,
	}
	if asmt.Score != nil {
		data.Score = *asmt.Score
	}
	for _, row := range st.Rows {
		data.Rows = append(data.Rows, entryRow{
			ID:             row.ID.Hex(),
			Code:           row.Code,
			Title:          row.Title,
			Domain:         row.Domain,
			Applicability:  row.Applicability,
			Justification:  row.Justification,
			Implementation: row.ImplementationStatus,
		})
	}

	formutil.SetBase(&data.Base, r, asmt.Title, back)
	data.SetError(errMsg)
	templates.Render(w, r, "assessments_statement", data)
}

// HandleUpdateEntry records one applicability decision.
func (h *Handler) HandleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	actor, ok := actions.ActorFromRequest(r)
	if !ok {
		h.ErrLog.LogForbidden(w, r, "assessments: no actor", "You don't have access to this organization.", "/")
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form submission.", statementPath(r))
		return
	}

	in := actions.SoAInput{
		EntryID:       chi.URLParam(r, "entry"),
		Applicability: r.FormValue("applicability"),
		Justification: r.FormValue("justification"),
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res, err := h.Actions.UpdateSoAEntry(ctx, actor, in)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "update soa entry failed", err, "Could not save the decision.", statementPath(r))
		return
	}
	if !res.OK() {
		h.renderStatement(w, r, res.Error)
		return
	}
	http.Redirect(w, r, formutil.WithNotice(statementPath(r), "updated")+"#e-"+res.ID, http.StatusSeeOther)
}

// HandleComplete freezes the assessment and stores its score.
func (h *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actions.ActorFromRequest(r)
	if !ok {
		h.ErrLog.LogForbidden(w, r, "assessments: no actor", "You don't have access to this organization.", "/")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res, err := h.Actions.CompleteAssessment(ctx, actor, chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "complete assessment failed", err, "Could not complete the assessment.", statementPath(r))
		return
	}
	if !res.OK() {
		h.renderStatement(w, r, res.Error)
		return
	}
	http.Redirect(w, r, formutil.WithNotice(statementPath(r), "completed"), http.StatusSeeOther)
}
