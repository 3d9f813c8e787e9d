// internal/app/features/invite/handler.go
package invite

import (
	"context"
	"net/http"

	"github.com/dalemusser/stratagrc/internal/app/actions"
	uierrors "github.com/dalemusser/stratagrc/internal/app/features/errors"
	"github.com/dalemusser/stratagrc/internal/app/system/auth"
	"github.com/dalemusser/stratagrc/internal/app/system/timeouts"
	"github.com/dalemusser/stratagrc/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves invitation links. The link carries a signed token; the
// signed-in user accepts it with a form post.
type Handler struct {
	Actions *actions.Actions
	ErrLog  *uierrors.ErrorLogger
	Log     *zap.Logger
}

func NewHandler(acts *actions.Actions, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Actions: acts,
		ErrLog:  errLog,
		Log:     logger,
	}
}

type pageData struct {
	viewdata.BaseVM
	Token string
	Error string
}

func (h *Handler) ServeInvite(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "")
}

// HandleAccept accepts the invitation for the current user. The session is
// left alone: the new membership is the most recently updated one, so the
// next session read carries its organization.
func (h *Handler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	uid, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		h.ErrLog.LogBadRequest(w, r, "invite: bad session user id", err, "Please sign in again.", "/login")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res, err := h.Actions.AcceptInvitation(ctx, uid, chi.URLParam(r, "token"))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "accept invitation failed", err, "Could not accept the invitation.", "/onboarding")
		return
	}
	if !res.OK() {
		h.render(w, r, res.Error)
		return
	}

	h.Log.Info("invitation accepted", zap.String("user_id", u.ID), zap.String("org_id", res.ID))
	http.Redirect(w, r, "/onboarding", http.StatusSeeOther)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, errMsg string) {
	templates.Render(w, r, "invite", pageData{
		BaseVM: viewdata.NewBaseVM(r, "Invitation", "/onboarding"),
		Token:  chi.URLParam(r, "token"),
		Error:  errMsg,
	})
}
