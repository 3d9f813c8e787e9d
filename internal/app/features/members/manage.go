// internal/app/features/members/manage.go
package members

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/stratagrc/internal/app/actions"
	"github.com/dalemusser/stratagrc/internal/app/system/formutil"
	"github.com/dalemusser/stratagrc/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// HandleInvite creates an invitation. Email delivery is out of scope, so
// the page shows the link once for the inviter to pass on.
func (h *Handler) HandleInvite(w http.ResponseWriter, r *http.Request) {
	actor, ok := actions.ActorFromRequest(r)
	if !ok {
		h.ErrLog.LogForbidden(w, r, "members: no actor", "You don't have access to this organization.", "/")
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form submission.", listPath(r))
		return
	}

	in := actions.InviteInput{
		Email: r.FormValue("email"),
		Role:  r.FormValue("role"),
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res, err := h.Actions.InviteMember(ctx, actor, in)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "invite member failed", err, "Could not create the invitation.", listPath(r))
		return
	}
	if !res.OK() {
		h.render(w, r, in, "", res.Error)
		return
	}
	h.Log.Info("member invited", zap.String("invitation_id", res.ID), zap.String("role", in.Role))
	h.render(w, r, actions.InviteInput{Role: in.Role}, h.inviteLink(res.Token), "")
}

func (h *Handler) inviteLink(token string) string {
	return strings.TrimRight(h.AppOrigin, "/") + "/invite/" + token
}

// HandleRevoke withdraws a pending invitation.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	actor, ok := actions.ActorFromRequest(r)
	if !ok {
		h.ErrLog.LogForbidden(w, r, "members: no actor", "You don't have access to this organization.", "/")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res, err := h.Actions.RevokeInvitation(ctx, actor, chi.URLParam(r, "id"))
	h.finish(w, r, res, err, "revoke invitation failed")
}

// HandleRole changes a member's role.
func (h *Handler) HandleRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := actions.ActorFromRequest(r)
	if !ok {
		h.ErrLog.LogForbidden(w, r, "members: no actor", "You don't have access to this organization.", "/")
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form submission.", listPath(r))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res, err := h.Actions.ChangeRole(ctx, actor, chi.URLParam(r, "user"), r.FormValue("role"))
	h.finish(w, r, res, err, "change role failed")
}

// HandleDeactivate removes a member, keeping the membership row inactive.
func (h *Handler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	actor, ok := actions.ActorFromRequest(r)
	if !ok {
		h.ErrLog.LogForbidden(w, r, "members: no actor", "You don't have access to this organization.", "/")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res, err := h.Actions.DeactivateMember(ctx, actor, chi.URLParam(r, "user"))
	h.finish(w, r, res, err, "deactivate member failed")
}

func (h *Handler) finish(w http.ResponseWriter, r *http.Request, res actions.Result, err error, msg string) {
	if err != nil {
		h.ErrLog.LogServerError(w, r, msg, err, "Could not save the change.", listPath(r))
		return
	}
	if !res.OK() {
		h.render(w, r, actions.InviteInput{}, "", res.Error)
		return
	}
	http.Redirect(w, r, formutil.WithNotice(listPath(r), "updated"), http.StatusSeeOther)
}
