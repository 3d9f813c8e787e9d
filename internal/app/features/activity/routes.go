// internal/app/features/activity/routes.go
package activity

import (
	"github.com/dalemusser/stratagrc/internal/app/system/auth"
	"github.com/dalemusser/stratagrc/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes returns the router for /org/{slug}/activity. Members who only
// edit records do not see the trail; auditors do.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireOrgRole(models.RoleOwner, models.RoleAdmin, models.RoleAuditor))
		pr.Get("/", h.ServeList)
		pr.Get("/export.csv", h.ServeCSV)
	})

	return r
}
