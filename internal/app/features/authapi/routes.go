// internal/app/features/authapi/routes.go
package authapi

import "github.com/go-chi/chi/v5"

// Routes returns the router mounted at /api/auth. The caller wraps it with
// the auth CORS policy.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/session", h.ServeSession)

	// Google OAuth round trip
	r.Get("/google/start", h.ServeGoogleStart)
	r.Get("/google/callback", h.ServeGoogleCallback)

	return r
}
