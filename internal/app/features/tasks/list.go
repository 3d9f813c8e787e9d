// internal/app/features/tasks/list.go
package tasks

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/dalemusser/stratagrc/internal/app/actions"
	controlstore "github.com/dalemusser/stratagrc/internal/app/store/controls"
	frameworkstore "github.com/dalemusser/stratagrc/internal/app/store/frameworks"
	"github.com/dalemusser/stratagrc/internal/app/store/queries/orgmembers"
	taskstore "github.com/dalemusser/stratagrc/internal/app/store/tasks"
	"github.com/dalemusser/stratagrc/internal/app/system/formutil"
	"github.com/dalemusser/stratagrc/internal/app/system/navigation"
	"github.com/dalemusser/stratagrc/internal/app/system/tenant"
	"github.com/dalemusser/stratagrc/internal/app/system/timeouts"
	"github.com/dalemusser/stratagrc/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type taskRow struct {
	ID        string
	Title     string
	Framework string
	Priority  string
	Status    string
	Assignee  string
	Due       string
	Overdue   bool
}

type frameworkOption struct {
	ID   string
	Name string
}

type listData struct {
	formutil.Base
	Status     string
	Framework  string
	Statuses   []string
	Priorities []string
	Frameworks []frameworkOption
	Assignees  []orgmembers.Option
	Rows       []taskRow
	Form       actions.TaskInput
}

// ServeList renders tasks, filtered by ?status= and ?framework=.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, actions.TaskInput{Priority: models.PriorityMedium}, "")
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, form actions.TaskInput, errMsg string) {
	t, ok := tenant.FromRequest(r)
	if !ok {
		h.ErrLog.LogForbidden(w, r, "tasks: no tenant", "You don't have access to this organization.", "/")
		return
	}

	f := taskstore.ListFilter{Status: strings.TrimSpace(query.Get(r, "status"))}
	if !models.ValidTaskStatus(f.Status) {
		f.Status = ""
	}
	fwHex := strings.TrimSpace(query.Get(r, "framework"))
	if id, err := primitive.ObjectIDFromHex(fwHex); err == nil {
		f.FrameworkID = &id
	} else {
		fwHex = ""
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	back := navigation.OrgPath(t.Org.Slug)
	tasks, err := taskstore.New(h.DB).List(ctx, t.Org.ID, f)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list tasks failed", err, "Could not load tasks.", back)
		return
	}
	frameworks, err := h.activeFrameworks(ctx, t.Org.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list frameworks failed", err, "Could not load tasks.", back)
		return
	}
	assignees, err := orgmembers.Options(ctx, h.DB, t.Org.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list assignees failed", err, "Could not load tasks.", back)
		return
	}

	fwNames := make(map[string]string, len(frameworks))
	for _, fw := range frameworks {
		fwNames[fw.ID] = fw.Name
	}
	names := orgmembers.Names(assignees)
	today := time.Now().UTC().Truncate(24 * time.Hour)

	data := listData{
		Status:     f.Status,
		Framework:  fwHex,
		Statuses:   models.TaskStatuses,
		Priorities: models.Priorities,
		Frameworks: frameworks,
		Assignees:  assignees,
		Form:       form,
	}
	for _, tk := range tasks {
		row := taskRow{
			ID:       tk.ID.Hex(),
			Title:    tk.Title,
			Priority: tk.Priority,
			Status:   tk.Status,
		}
		if tk.FrameworkID != nil {
			row.Framework = fwNames[tk.FrameworkID.Hex()]
		}
		if tk.AssigneeID != nil {
			row.Assignee = names[tk.AssigneeID.Hex()]
		}
		if tk.DueDate != nil {
			row.Due = tk.DueDate.UTC().Format("2006-01-02")
			row.Overdue = tk.Status != models.TaskDone && tk.DueDate.Before(today)
		}
		data.Rows = append(data.Rows, row)
	}

	formutil.SetBase(&data.Base, r, "Tasks", back)
	data.SetError(errMsg)
	templates.Render(w, r, "tasks_list", data)
}

// activeFrameworks returns the frameworks orgID has activated, by name.
func (h *Handler) activeFrameworks(ctx context.Context, orgID primitive.ObjectID) ([]frameworkOption, error) {
	ids, err := controlstore.New(h.DB).ActiveFrameworkIDs(ctx, orgID)
	if err != nil {
		return nil, err
	}
	active := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		active[id] = true
	}
	all, err := frameworkstore.New(h.DB).List(ctx)
	if err != nil {
		return nil, err
	}
	var out []frameworkOption
	for _, fw := range all {
		if active[fw.ID] {
			out = append(out, frameworkOption{ID: fw.ID.Hex(), Name: fw.Name})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// HandleCreate adds an ad hoc task.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := actions.ActorFromRequest(r)
	if !ok {
		h.ErrLog.LogForbidden(w, r, "tasks: no actor", "You don't have access to this organization.", "/")
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form submission.", "/")
		return
	}

	in := actions.TaskInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Priority:    r.FormValue("priority"),
		AssigneeID:  r.FormValue("assignee_id"),
		DueDate:     r.FormValue("due_date"),
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res, err := h.Actions.CreateTask(ctx, actor, in)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create task failed", err, "Could not save the task.", listPath(r))
		return
	}
	if !res.OK() {
		h.render(w, r, in, res.Error)
		return
	}
	http.Redirect(w, r, formutil.WithNotice(listPath(r), "created"), http.StatusSeeOther)
}

// HandleStatus sets a task's status.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actions.ActorFromRequest(r)
	if !ok {
		h.ErrLog.LogForbidden(w, r, "tasks: no actor", "You don't have access to this organization.", "/")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res, err := h.Actions.TransitionTask(ctx, actor, chi.URLParam(r, "id"), r.FormValue("status"))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "transition task failed", err, "Could not update the task.", listPath(r))
		return
	}
	if !res.OK() {
		h.render(w, r, actions.TaskInput{Priority: models.PriorityMedium}, res.Error)
		return
	}
	http.Redirect(w, r, formutil.WithNotice(backPath(r), "updated"), http.StatusSeeOther)
}

// HandleDelete soft-deletes a task.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actions.ActorFromRequest(r)
	if !ok {
		h.ErrLog.LogForbidden(w, r, "tasks: no actor", "You don't have access to this organization.", "/")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	res, err := h.Actions.DeleteTask(ctx, actor, chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "delete task failed", err, "Could not delete the task.", listPath(r))
		return
	}
	if !res.OK() {
		h.render(w, r, actions.TaskInput{Priority: models.PriorityMedium}, res.Error)
		return
	}
	http.Redirect(w, r, formutil.WithNotice(backPath(r), "deleted"), http.StatusSeeOther)
}

func listPath(r *http.Request) string {
	return navigation.OrgPath(chi.URLParam(r, "slug"), "tasks")
}

func backPath(r *http.Request) string {
	return navigation.SafeBackURL(r, navigation.Section(chi.URLParam(r, "slug"), "tasks"))
}
