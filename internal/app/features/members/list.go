// internal/app/features/members/list.go
package members

import (
	"context"
	"net/http"

	"github.com/dalemusser/stratagrc/internal/app/actions"
	invitationstore "github.com/dalemusser/stratagrc/internal/app/store/invitations"
	"github.com/dalemusser/stratagrc/internal/app/store/queries/orgmembers"
	"github.com/dalemusser/stratagrc/internal/app/system/formutil"
	"github.com/dalemusser/stratagrc/internal/app/system/navigation"
	"github.com/dalemusser/stratagrc/internal/app/system/tenant"
	"github.com/dalemusser/stratagrc/internal/app/system/timeouts"
	"github.com/dalemusser/stratagrc/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
)

type memberRow struct {
	UserID string
	Name   string
	Email  string
	Role   string
	Active bool
	Self   bool
	Since  string
}

type inviteRow struct {
	ID      string
	Email   string
	Role    string
	Expires string
}

type listData struct {
	formutil.Base
	Rows        []memberRow
	Invitations []inviteRow
	Roles       []string
	ShowAll     bool
	Form        actions.InviteInput
	// InviteLink is shown once, right after an invitation is created.
	InviteLink string
}

// ServeList renders the organization's members and pending invitations.
// Inactive members are listed with ?all=1.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, actions.InviteInput{Role: models.RoleMember}, "", "")
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, form actions.InviteInput, inviteLink, errMsg string) {
	t, ok := tenant.FromRequest(r)
	if !ok {
		h.ErrLog.LogForbidden(w, r, "members: no tenant", "You don't have access to this organization.", "/")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	back := navigation.OrgPath(t.Org.Slug)
	showAll := query.Get(r, "all") == "1"
	members, err := orgmembers.List(ctx, h.DB, t.Org.ID, orgmembers.Filter{ActiveOnly: !showAll})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list members failed", err, "Could not load members.", back)
		return
	}

	data := listData{
		Roles:      models.TenantRoles,
		ShowAll:    showAll,
		Form:       form,
		InviteLink: inviteLink,
	}
	for _, m := range members {
		data.Rows = append(data.Rows, memberRow{
			UserID: m.User.ID.Hex(),
			Name:   m.User.FullName,
			Email:  m.User.Email,
			Role:   m.Role,
			Active: m.Active,
			Self:   m.User.ID == t.Membership.UserID,
			Since:  m.UpdatedAt.Format("2006-01-02"),
		})
	}

	if t.Role() == models.RoleOwner || t.Role() == models.RoleAdmin {
		pending, err := invitationstore.New(h.DB).ListPending(ctx, t.Org.ID)
		if err != nil {
			h.ErrLog.LogServerError(w, r, "list invitations failed", err, "Could not load members.", back)
			return
		}
		for _, inv := range pending {
			data.Invitations = append(data.Invitations, inviteRow{
				ID:      inv.ID.Hex(),
				Email:   inv.Email,
				Role:    inv.Role,
				Expires: inv.ExpiresAt.Format("2006-01-02"),
			})
		}
	}

	formutil.SetBase(&data.Base, r, "Members", back)
	data.SetError(errMsg)
	templates.Render(w, r, "members_list", data)
}

func listPath(r *http.Request) string {
	return navigation.OrgPath(chi.URLParam(r, "slug"), "members")
}
