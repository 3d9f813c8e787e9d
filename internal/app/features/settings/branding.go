// internal/app/features/settings/branding.go
package settings

import (
	"context"
	"net/http"

	"github.com/dalemusser/stratagrc/internal/app/actions"
	"github.com/dalemusser/stratagrc/internal/app/system/formutil"
	"github.com/dalemusser/stratagrc/internal/app/system/navigation"
	"github.com/dalemusser/stratagrc/internal/app/system/tenant"
	"github.com/dalemusser/stratagrc/internal/app/system/timeouts"
	"github.com/dalemusser/stratagrc/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type settingsVM struct {
	formutil.Base
	Form actions.BrandingInput
}

// ServeSettings displays the branding form filled from the organization's
// current settings.
func (h *Handler) ServeSettings(w http.ResponseWriter, r *http.Request) {
	t, ok := tenant.FromRequest(r)
	if !ok {
		h.ErrLog.LogForbidden(w, r, "settings: no tenant", "You don't have access to this organization.", "/")
		return
	}
	s := t.Org.Settings
	h.render(w, r, actions.BrandingInput{
		DisplayName:  s[models.SettingDisplayName],
		PrimaryColor: s[models.SettingPrimaryColor],
		LogoURL:      s[models.SettingLogoURL],
		FooterText:   s[models.SettingFooterText],
	}, "")
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, form actions.BrandingInput, errMsg string) {
	vm := settingsVM{Form: form}
	formutil.SetBase(&vm.Base, r, "Settings", navigation.OrgPath(chi.URLParam(r, "slug")))
	vm.SetError(errMsg)
	templates.Render(w, r, "settings_branding", vm)
}

// HandleSettings saves the branding form.
func (h *Handler) HandleSettings(w http.ResponseWriter, r *http.Request) {
	actor, ok := actions.ActorFromRequest(r)
	if !ok {
		h.ErrLog.LogForbidden(w, r, "settings: no actor", "You don't have access to this organization.", "/")
		return
	}
	self := navigation.OrgPath(chi.URLParam(r, "slug"), "settings")
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form submission.", self)
		return
	}

	in := actions.BrandingInput{
		DisplayName:  r.FormValue("display_name"),
		PrimaryColor: r.FormValue("primary_color"),
		LogoURL:      r.FormValue("logo_url"),
		FooterText:   r.FormValue("footer_text"),
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res, err := h.Actions.UpdateBranding(ctx, actor, in)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "update branding failed", err, "Failed to save settings.", self)
		return
	}
	if !res.OK() {
		h.render(w, r, in, res.Error)
		return
	}
	h.Log.Info("branding updated", zap.String("org_id", actor.OrgID.Hex()))
	http.Redirect(w, r, formutil.WithNotice(self, "updated"), http.StatusSeeOther)
}
