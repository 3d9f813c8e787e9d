package invite

import "github.com/go-chi/chi/v5"

// Routes is mounted at /invite behind the global gate, so visitors
// without a session are sent to sign in first.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/{token}", h.ServeInvite)
	r.Post("/{token}", h.HandleAccept)
	return r
}
