// internal/app/features/documents/routes.go
package documents

import (
	"github.com/dalemusser/stratagrc/internal/app/system/auth"
	"github.com/dalemusser/stratagrc/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts controlled documents under /org/{slug}/documents.
// Approval is limited to owners and admins.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ServeList)
	r.Get("/{id}", h.ServeView)

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireOrgRole(models.RoleOwner, models.RoleAdmin, models.RoleMember))
		pr.Get("/new", h.ServeNew)
		pr.Post("/", h.HandleCreate)
		pr.Post("/{id}/status", h.HandleStatus)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireOrgRole(models.RoleOwner, models.RoleAdmin))
		pr.Post("/{id}/delete", h.HandleDelete)
	})

	return r
}
