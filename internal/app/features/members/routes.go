// internal/app/features/members/routes.go
package members

import (
	"github.com/dalemusser/stratagrc/internal/app/system/auth"
	"github.com/dalemusser/stratagrc/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts membership under /org/{slug}/members. Everyone in the
// organization sees the list; owners and admins change it.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ServeList)

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireOrgRole(models.RoleOwner, models.RoleAdmin))
		pr.Post("/invite", h.HandleInvite)
		pr.Post("/invitations/{id}/revoke", h.HandleRevoke)
		pr.Post("/{user}/role", h.HandleRole)
		pr.Post("/{user}/deactivate", h.HandleDeactivate)
	})

	return r
}
