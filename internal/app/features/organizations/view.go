// internal/app/features/organizations/view.go
package organizations

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dalemusser/stratagrc/internal/app/actions"
	orgstore "github.com/dalemusser/stratagrc/internal/app/store/organizations"
	"github.com/dalemusser/stratagrc/internal/app/system/formutil"
	"github.com/dalemusser/stratagrc/internal/app/system/timeouts"
	"github.com/dalemusser/stratagrc/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memberRow struct {
	Name      string
	Email     string
	Role      string
	Active    bool
	UpdatedAt time.Time
}

type viewData struct {
	formutil.Base
	Org     models.Organization
	OrgID   string
	Members []memberRow
	Roles   []string
	Form    actions.MembershipInput
}

// ServeView handles GET /admin/orgs/{id}.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	h.renderView(w, r, actions.MembershipInput{Role: models.RoleMember}, "")
}

func (h *Handler) renderView(w http.ResponseWriter, r *http.Request, form actions.MembershipInput, errMsg string) {
	oid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.LogBadRequest(w, r, "bad organization id", err, "Organization not found.", "/admin/orgs")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	org, err := h.Orgs.GetByID(ctx, oid)
	if errors.Is(err, orgstore.ErrNotFound) {
		h.ErrLog.LogBadRequest(w, r, "organization not found", err, "Organization not found.", "/admin/orgs")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load organization failed", err, "Unable to load the organization.", "/admin/orgs")
		return
	}

	ms, err := h.Memberships.ListByOrg(ctx, oid, false)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list memberships failed", err, "Unable to load the organization.", "/admin/orgs")
		return
	}
	ids := make([]primitive.ObjectID, 0, len(ms))
	for _, m := range ms {
		ids = append(ids, m.UserID)
	}
	users, err := h.Users.GetByIDs(ctx, ids)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load users failed", err, "Unable to load the organization.", "/admin/orgs")
		return
	}

	data := viewData{Org: org, OrgID: org.ID.Hex(), Roles: roleOptions, Form: form}
	for _, m := range ms {
		u := users[m.UserID]
		data.Members = append(data.Members, memberRow{
			Name:      u.FullName,
			Email:     u.Email,
			Role:      m.Role,
			Active:    m.Active,
			UpdatedAt: m.UpdatedAt,
		})
	}

	formutil.SetBase(&data.Base, r, org.Name, "/admin/orgs")
	data.SetError(errMsg)
	templates.Render(w, r, "admin_orgs_view", data)
}
