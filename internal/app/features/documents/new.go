// internal/app/features/documents/new.go
package documents

import (
	"context"
	"net/http"

	"github.com/dalemusser/stratagrc/internal/app/actions"
	"github.com/dalemusser/stratagrc/internal/app/system/formutil"
	"github.com/dalemusser/stratagrc/internal/app/system/navigation"
	"github.com/dalemusser/stratagrc/internal/app/system/tenant"
	"github.com/dalemusser/stratagrc/internal/app/system/timeouts"
	"github.com/dalemusser/stratagrc/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
)

type newData struct {
	formutil.Base
	Kinds []string
	Form  actions.DocumentInput
}

// ServeNew renders the new document form.
func (h *Handler) ServeNew(w http.ResponseWriter, r *http.Request) {
	h.renderNew(w, r, actions.DocumentInput{Kind: "policy"}, "")
}

func (h *Handler) renderNew(w http.ResponseWriter, r *http.Request, form actions.DocumentInput, errMsg string) {
	data := newData{Kinds: models.DocumentKinds, Form: form}
	formutil.SetBase(&data.Base, r, "New document", listPath(r))
	data.SetError(errMsg)
	templates.Render(w, r, "documents_new", data)
}

// HandleCreate stores a draft document.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := actions.ActorFromRequest(r)
	if !ok {
		h.ErrLog.LogForbidden(w, r, "documents: no actor", "You don't have access to this organization.", "/")
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form submission.", listPath(r))
		return
	}

	in := actions.DocumentInput{
		Title: r.FormValue("title"),
		Kind:  r.FormValue("kind"),
		Body:  r.FormValue("body"),
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res, err := h.Actions.CreateDocument(ctx, actor, in)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create document failed", err, "Could not save the document.", listPath(r))
		return
	}
	if !res.OK() {
		h.renderNew(w, r, in, res.Error)
		return
	}
	http.Redirect(w, r, formutil.WithNotice(navigation.OrgPath(chi.URLParam(r, "slug"), "documents", res.ID), "created"), http.StatusSeeOther)
}

// HandleStatus moves a document along its workflow. Only owners and admins
// approve.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actions.ActorFromRequest(r)
	if !ok {
		h.ErrLog.LogForbidden(w, r, "documents: no actor", "You don't have access to this organization.", "/")
		return
	}
	to := r.FormValue("status")
	if to == models.DocumentApproved {
		if t, _ := tenant.FromRequest(r); t.Role() != models.RoleOwner && t.Role() != models.RoleAdmin {
			h.ErrLog.LogForbidden(w, r, "document approval by non-manager", "Only owners and admins approve documents.", listPath(r))
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	id := chi.URLParam(r, "id")
	res, err := h.Actions.TransitionDocument(ctx, actor, id, to)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "transition document failed", err, "Could not update the document.", listPath(r))
		return
	}
	if !res.OK() {
		h.renderList(w, r, res.Error)
		return
	}
	http.Redirect(w, r, formutil.WithNotice(navigation.OrgPath(chi.URLParam(r, "slug"), "documents", id), "updated"), http.StatusSeeOther)
}

// HandleDelete soft-deletes a document.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actions.ActorFromRequest(r)
	if !ok {
		h.ErrLog.LogForbidden(w, r, "documents: no actor", "You don't have access to this organization.", "/")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	res, err := h.Actions.DeleteDocument(ctx, actor, chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "delete document failed", err, "Could not delete the document.", listPath(r))
		return
	}
	if !res.OK() {
		h.renderList(w, r, res.Error)
		return
	}
	http.Redirect(w, r, formutil.WithNotice(listPath(r), "deleted"), http.StatusSeeOther)
}

func listPath(r *http.Request) string {
	return navigation.OrgPath(chi.URLParam(r, "slug"), "documents")
}
