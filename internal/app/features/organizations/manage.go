// internal/app/features/organizations/manage.go
package organizations

import (
	"context"
	"net/http"

	"github.com/dalemusser/stratagrc/internal/app/actions"
	"github.com/dalemusser/stratagrc/internal/app/system/auth"
	"github.com/dalemusser/stratagrc/internal/app/system/formutil"
	"github.com/dalemusser/stratagrc/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// actorID returns the signed-in super-admin's id.
func (h *Handler) actorID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	u, ok := auth.CurrentUser(r)
	if !ok || !u.IsSuperAdmin {
		h.ErrLog.LogForbidden(w, r, "organizations: not a super admin", "You don't have access to this page.", "/")
		return primitive.NilObjectID, false
	}
	oid, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		h.ErrLog.LogBadRequest(w, r, "organizations: bad session user id", err, "Please sign in again.", "/login")
		return primitive.NilObjectID, false
	}
	return oid, true
}

// HandleCreate handles POST /admin/orgs.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actorID(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form submission.", "/admin/orgs")
		return
	}
	in := actions.OrganizationInput{
		Name:       r.FormValue("name"),
		Slug:       r.FormValue("slug"),
		OwnerEmail: r.FormValue("owner_email"),
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res, err := h.Actions.CreateOrganization(ctx, actor, in)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create organization failed", err, "Could not create the organization.", "/admin/orgs")
		return
	}
	if !res.OK() {
		h.render(w, r, in, res.Error)
		return
	}
	http.Redirect(w, r, formutil.WithNotice("/admin/orgs/"+res.ID, "created"), http.StatusSeeOther)
}

// HandleAddMember handles POST /admin/orgs/{id}/members.
func (h *Handler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actorID(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form submission.", "/admin/orgs")
		return
	}
	id := chi.URLParam(r, "id")
	in := actions.MembershipInput{
		OrgID: id,
		Email: r.FormValue("email"),
		Role:  r.FormValue("role"),
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res, err := h.Actions.AddMembership(ctx, actor, in)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "add membership failed", err, "Could not add the member.", "/admin/orgs/"+id)
		return
	}
	if !res.OK() {
		h.renderView(w, r, in, res.Error)
		return
	}
	http.Redirect(w, r, formutil.WithNotice("/admin/orgs/"+id, "updated"), http.StatusSeeOther)
}

// HandleDelete handles POST /admin/orgs/{id}/delete (soft delete).
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.Actions.SoftDeleteOrganization, "deleted")
}

// HandleRestore handles POST /admin/orgs/{id}/restore.
func (h *Handler) HandleRestore(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.Actions.RestoreOrganization, "updated")
}

func (h *Handler) lifecycle(w http.ResponseWriter, r *http.Request,
	op func(context.Context, primitive.ObjectID, string) (actions.Result, error), notice string) {
	actor, ok := h.actorID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res, err := op(ctx, actor, chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "organization lifecycle failed", err, "Could not update the organization.", "/admin/orgs")
		return
	}
	if !res.OK() {
		h.render(w, r, actions.OrganizationInput{}, res.Error)
		return
	}
	http.Redirect(w, r, formutil.WithNotice("/admin/orgs?deleted=1", notice), http.StatusSeeOther)
}
