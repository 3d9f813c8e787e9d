// internal/app/features/organizations/routes.go
package organizations

import "github.com/go-chi/chi/v5"

// Routes mounts the organization administration under /admin/orgs. The
// super-admin gate is applied by the caller.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	// LIST + CREATE
	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)

	// VIEW (memberships)
	r.Get("/{id}", h.ServeView)
	r.Post("/{id}/members", h.HandleAddMember)

	// DELETE / RESTORE
	r.Post("/{id}/delete", h.HandleDelete)
	r.Post("/{id}/restore", h.HandleRestore)

	return r
}
