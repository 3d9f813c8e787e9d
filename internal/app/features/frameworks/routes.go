// internal/app/features/frameworks/routes.go
package frameworks

import (
	"github.com/dalemusser/stratagrc/internal/app/system/auth"
	"github.com/dalemusser/stratagrc/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts frameworks under /org/{slug}/frameworks. Owners and admins
// activate frameworks; members record control progress.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ServeList)
	r.Get("/{id}", h.ServeControls)

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireOrgRole(models.RoleOwner, models.RoleAdmin))
		pr.Post("/{id}/activate", h.HandleActivate)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireOrgRole(models.RoleOwner, models.RoleAdmin, models.RoleMember))
		pr.Post("/{id}/controls/{control}", h.HandleUpdateControl)
	})

	return r
}
