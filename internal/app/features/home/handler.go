package home

import (
	"net/http"

	"github.com/dalemusser/stratagrc/internal/app/system/auth"
	"github.com/dalemusser/stratagrc/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"

	_ "github.com/dalemusser/stratagrc/internal/app/features/home/views"
)

// Handler holds dependencies needed to serve the home page.
type Handler struct {
	GoogleEnabled bool
	Log           *zap.Logger
}

func NewHandler(googleEnabled bool, logger *zap.Logger) *Handler {
	return &Handler{
		GoogleEnabled: googleEnabled,
		Log:           logger,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET / – landing                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeRoot shows the public landing page. Signed-in users go straight to
// onboarding, which forwards them to their organization.
func (h *Handler) ServeRoot(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.CurrentUser(r); ok {
		http.Redirect(w, r, "/onboarding", http.StatusSeeOther)
		return
	}

	data := struct {
		viewdata.BaseVM
		GoogleEnabled bool
	}{
		BaseVM:        viewdata.NewBaseVM(r, "Welcome", "/"),
		GoogleEnabled: h.GoogleEnabled,
	}

	templates.Render(w, r, "home", data)
}
