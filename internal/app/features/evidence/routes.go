// internal/app/features/evidence/routes.go
package evidence

import (
	"github.com/dalemusser/stratagrc/internal/app/system/auth"
	"github.com/dalemusser/stratagrc/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the evidence register under /org/{slug}/evidence.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ServeList)

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireOrgRole(models.RoleOwner, models.RoleAdmin, models.RoleMember))
		pr.Post("/", h.HandleCreate)
		pr.Post("/{id}/delete", h.HandleDelete)
	})

	return r
}
