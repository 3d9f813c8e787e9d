// internal/app/features/capa/routes.go
package capa

import (
	"github.com/dalemusser/stratagrc/internal/app/system/auth"
	"github.com/dalemusser/stratagrc/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts CAPA tracking under /org/{slug}/capa. The tenant gate
// has already run; every member may read, auditors may not write.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ServeList)

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireOrgRole(models.RoleOwner, models.RoleAdmin, models.RoleMember))
		pr.Post("/", h.HandleCreate)
		pr.Post("/{id}/status", h.HandleStatus)
		pr.Post("/{id}/delete", h.HandleDelete)
	})

	return r
}
