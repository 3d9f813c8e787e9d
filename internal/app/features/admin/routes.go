package admin

import "github.com/go-chi/chi/v5"

// MountRoutes adds the admin landing page and catalog to r, which the
// caller guards with the super-admin gate.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.ServeIndex)
	r.Get("/frameworks", h.ServeFrameworks)
}
