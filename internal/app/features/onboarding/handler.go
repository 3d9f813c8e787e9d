// internal/app/features/onboarding/handler.go
package onboarding

import (
	"net/http"

	"github.com/dalemusser/stratagrc/internal/app/system/auth"
	"github.com/dalemusser/stratagrc/internal/app/system/navigation"
	"github.com/dalemusser/stratagrc/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

// Handler serves /onboarding, the landing point for signed-in users.
// Users with an organization context are forwarded to it; everyone else
// sees what they can do next.
type Handler struct {
	Log *zap.Logger
}

func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{Log: logger}
}

type pageData struct {
	viewdata.BaseVM
	// Waiting is true for users who can do nothing until someone grants
	// them a membership.
	Waiting bool
	// CanCreate offers organization creation (super-admins only).
	CanCreate bool
}

// page decides what a user without an organization context is shown.
func page(u *auth.SessionUser) pageData {
	return pageData{
		Waiting:   !u.IsSuperAdmin,
		CanCreate: u.IsSuperAdmin,
	}
}

func (h *Handler) ServeOnboarding(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	if u.HasTenant() {
		http.Redirect(w, r, navigation.OrgPath(u.OrgSlug), http.StatusSeeOther)
		return
	}

	data := page(u)
	data.BaseVM = viewdata.NewBaseVM(r, "Getting started", "/")
	templates.Render(w, r, "onboarding", data)
}
