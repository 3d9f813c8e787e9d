// internal/app/features/training/list.go
package training

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/stratagrc/internal/app/actions"
	"github.com/dalemusser/stratagrc/internal/app/store/queries/orgmembers"
	trainingstore "github.com/dalemusser/stratagrc/internal/app/store/training"
	"github.com/dalemusser/stratagrc/internal/app/system/auth"
	"github.com/dalemusser/stratagrc/internal/app/system/formutil"
	"github.com/dalemusser/stratagrc/internal/app/system/navigation"
	"github.com/dalemusser/stratagrc/internal/app/system/tenant"
	"github.com/dalemusser/stratagrc/internal/app/system/timeouts"
	"github.com/dalemusser/stratagrc/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type programRow struct {
	ID          string
	Title       string
	Description string
	Mandatory   bool
	Frequency   int
	Completed   int // current completions among active members
	Members     int
	Percent     int
	Mine        string // the viewer's last completion date, if current
}

type listData struct {
	formutil.Base
	Rows    []programRow
	Members []orgmembers.Option
	Form    actions.TrainingInput
}

// ServeList renders programs with completion coverage.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, actions.TrainingInput{}, "")
}

// current reports whether a completion at done still counts for a program
// repeating every freqDays (0 = never expires).
func current(done time.Time, freqDays int, now time.Time) bool {
	if freqDays <= 0 {
		return true
	}
	return now.Sub(done) <= time.Duration(freqDays)*24*time.Hour
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, form actions.TrainingInput, errMsg string) {
	t, ok := tenant.FromRequest(r)
	if !ok {
		h.ErrLog.LogForbidden(w, r, "training: no tenant", "You don't have access to this organization.", "/")
		return
	}
	var viewer primitive.ObjectID
	if u, ok := auth.CurrentUser(r); ok {
		viewer, _ = primitive.ObjectIDFromHex(u.ID)
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	back := navigation.OrgPath(t.Org.Slug)
	store := trainingstore.New(h.DB)
	programs, err := store.ListPrograms(ctx, t.Org.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list training programs failed", err, "Could not load training.", back)
		return
	}
	completions, err := store.Completions(ctx, t.Org.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list completions failed", err, "Could not load training.", back)
		return
	}
	members, err := orgmembers.Options(ctx, h.DB, t.Org.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list members failed", err, "Could not load training.", back)
		return
	}
	active := orgmembers.Names(members)
	now := time.Now().UTC()

	data := listData{Members: members, Form: form}
	for _, p := range programs {
		row := programRow{
			ID:          p.ID.Hex(),
			Title:       p.Title,
			Description: p.Description,
			Mandatory:   p.Mandatory,
			Frequency:   p.FrequencyDays,
			Members:     len(members),
		}
		for _, c := range completions[p.ID] {
			if !current(c.CompletedAt, p.FrequencyDays, now) {
				continue
			}
			if _, ok := active[c.UserID.Hex()]; ok {
				row.Completed++
			}
			if c.UserID == viewer {
				row.Mine = c.CompletedAt.Format("2006-01-02")
			}
		}
		if row.Members > 0 {
			row.Percent = row.Completed * 100 / row.Members
		}
		data.Rows = append(data.Rows, row)
	}

	formutil.SetBase(&data.Base, r, "Training", back)
	data.SetError(errMsg)
	templates.Render(w, r, "training_list", data)
}

// HandleCreate adds a program.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := actions.ActorFromRequest(r)
	if !ok {
		h.ErrLog.LogForbidden(w, r, "training: no actor", "You don't have access to this organization.", "/")
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form submission.", listPath(r))
		return
	}

	in := actions.TrainingInput{
		Title:         r.FormValue("title"),
		Description:   r.FormValue("description"),
		Mandatory:     formutil.Bool(r, "mandatory"),
		FrequencyDays: formutil.Int(r, "frequency_days"),
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res, err := h.Actions.CreateTrainingProgram(ctx, actor, in)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create training program failed", err, "Could not save the program.", listPath(r))
		return
	}
	if !res.OK() {
		h.render(w, r, in, res.Error)
		return
	}
	http.Redirect(w, r, formutil.WithNotice(listPath(r), "created"), http.StatusSeeOther)
}

// HandleComplete records a completion for the caller, or for user_id when
// an owner or admin records it on someone's behalf.
func (h *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actions.ActorFromRequest(r)
	if !ok {
		h.ErrLog.LogForbidden(w, r, "training: no actor", "You don't have access to this organization.", "/")
		return
	}
	userID := r.FormValue("user_id")
	if userID != "" && userID != actor.UserID.Hex() {
		if t, _ := tenant.FromRequest(r); t.Role() != models.RoleOwner && t.Role() != models.RoleAdmin {
			h.ErrLog.LogForbidden(w, r, "completion for another user by non-manager", "Only owners and admins record training for others.", listPath(r))
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res, err := h.Actions.RecordCompletion(ctx, actor, chi.URLParam(r, "id"), userID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "record completion failed", err, "Could not record the completion.", listPath(r))
		return
	}
	if !res.OK() {
		h.render(w, r, actions.TrainingInput{}, res.Error)
		return
	}
	http.Redirect(w, r, formutil.WithNotice(listPath(r), "completed"), http.StatusSeeOther)
}

// HandleDelete soft-deletes a program.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actions.ActorFromRequest(r)
	if !ok {
		h.ErrLog.LogForbidden(w, r, "training: no actor", "You don't have access to this organization.", "/")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	res, err := h.Actions.DeleteTrainingProgram(ctx, actor, chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "delete training program failed", err, "Could not delete the program.", listPath(r))
		return
	}
	if !res.OK() {
		h.render(w, r, actions.TrainingInput{}, res.Error)
		return
	}
	http.Redirect(w, r, formutil.WithNotice(listPath(r), "deleted"), http.StatusSeeOther)
}

func listPath(r *http.Request) string {
	return navigation.OrgPath(chi.URLParam(r, "slug"), "training")
}
