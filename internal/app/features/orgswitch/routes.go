// internal/app/features/orgswitch/routes.go
package orgswitch

import "github.com/go-chi/chi/v5"

// MountRoutes mounts POST /switch on an organization router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/switch", h.HandleSwitch)
}
