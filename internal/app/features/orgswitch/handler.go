// internal/app/features/orgswitch/handler.go
package orgswitch

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/stratagrc/internal/app/features/errors"
	"github.com/dalemusser/stratagrc/internal/app/system/auditlog"
	"github.com/dalemusser/stratagrc/internal/app/system/auth"
	"github.com/dalemusser/stratagrc/internal/app/system/navigation"
	"github.com/dalemusser/stratagrc/internal/app/system/tenant"
	"github.com/dalemusser/stratagrc/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Toucher bumps a membership's updated_at. *memberships.Store implements it.
type Toucher interface {
	Touch(ctx context.Context, userID, orgID primitive.ObjectID) error
}

// Handler records an explicit active-organization choice in the session.
type Handler struct {
	Sessions *auth.SessionManager
	Members  Toucher
	Audit    *auditlog.Logger
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger
}

func NewHandler(sm *auth.SessionManager, members Toucher, audit *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{Sessions: sm, Members: members, Audit: audit, ErrLog: errLog, Log: logger}
}

// HandleSwitch makes the addressed organization the session's active one
// and touches the membership so it is also the most recently updated.
// The tenant gate already verified an active membership, and the choice
// only holds while that membership stays active.
func (h *Handler) HandleSwitch(w http.ResponseWriter, r *http.Request) {
	t, ok := tenant.FromRequest(r)
	if !ok {
		h.ErrLog.LogForbidden(w, r, "orgswitch: no tenant", "You don't have access to this organization.", "/")
		return
	}
	u, ok := auth.CurrentUser(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if err := h.Sessions.SetActiveOrg(w, r, t.Org.ID.Hex()); err != nil {
		h.ErrLog.LogServerError(w, r, "set active org failed", err, "Could not switch organizations.", navigation.OrgPath(t.Org.Slug))
		return
	}
	if h.Members != nil {
		h.touch(r.Context(), u.ID, t.Org.ID)
	}
	h.Audit.OrgSwitched(r.Context(), r, u.ID, t.Org.ID)
	h.Log.Debug("active organization switched", zap.String("user_id", u.ID), zap.String("org", t.Org.Slug))

	http.Redirect(w, r, navigation.OrgPath(t.Org.Slug), http.StatusSeeOther)
}

func (h *Handler) touch(ctx context.Context, userID string, orgID primitive.ObjectID) {
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()
	if err := h.Members.Touch(ctx, uid, orgID); err != nil {
		h.Log.Warn("orgswitch: touch membership failed", zap.Error(err), zap.String("org_id", orgID.Hex()))
	}
}
