// internal/app/features/assessments/routes.go
package assessments

import (
	"github.com/dalemusser/stratagrc/internal/app/system/auth"
	"github.com/dalemusser/stratagrc/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts assessments under /org/{slug}/assessments.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ServeList)
	r.Get("/{id}", h.ServeStatement)

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireOrgRole(models.RoleOwner, models.RoleAdmin, models.RoleMember))
		pr.Post("/", h.HandleCreate)
		pr.Post("/{id}/entries/{entry}", h.HandleUpdateEntry)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireOrgRole(models.RoleOwner, models.RoleAdmin))
		pr.Post("/{id}/complete", h.HandleComplete)
	})

	return r
}
