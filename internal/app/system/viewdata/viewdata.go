// internal/app/system/viewdata/viewdata.go
package viewdata

import (
	"net/http"

	"github.com/dalemusser/stratagrc/internal/app/system/auth"
	"github.com/dalemusser/stratagrc/internal/app/system/tenant"
	"github.com/dalemusser/stratagrc/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/httpnav"
	"github.com/gorilla/csrf"
)

// BaseVM contains common fields for all view models.
// Embed this struct in your feature-specific view models.
//
// Usage:
//
//	type myPageData struct {
//	    viewdata.BaseVM
//	    // page-specific fields...
//	}
//
//	data := myPageData{
//	    BaseVM: viewdata.NewBaseVM(r, "Page Title", "/default-back"),
//	}
type BaseVM struct {
	// Branding (from the organization addressed by the URL)
	SiteName     string
	LogoURL      string
	PrimaryColor string
	FooterText   string

	// User context (from auth middleware)
	IsLoggedIn   bool
	IsSuperAdmin bool
	UserName     string

	// Tenant context. On org routes these describe the addressed
	// organization; elsewhere, the session's active organization.
	OrgSlug string
	OrgName string
	OrgRole string

	// Page context
	Title       string
	BackURL     string
	CurrentPath string

	// CSRF protection
	CSRFToken string
}

// CanEdit reports whether the role may change records.
func (vm BaseVM) CanEdit() bool {
	return vm.OrgRole == models.RoleOwner || vm.OrgRole == models.RoleAdmin || vm.OrgRole == models.RoleMember
}

// CanManage reports whether the role may manage members and settings.
func (vm BaseVM) CanManage() bool {
	return vm.OrgRole == models.RoleOwner || vm.OrgRole == models.RoleAdmin
}

// NewBaseVM creates a fully populated BaseVM for a page.
func NewBaseVM(r *http.Request, title, backDefault string) BaseVM {
	vm := BaseVM{
		SiteName:    models.DefaultSiteName,
		Title:       title,
		BackURL:     httpnav.ResolveBackURL(r, backDefault),
		CurrentPath: httpnav.CurrentPath(r),
		CSRFToken:   csrf.Token(r),
	}

	if u, ok := auth.CurrentUser(r); ok {
		vm.IsLoggedIn = true
		vm.IsSuperAdmin = u.IsSuperAdmin
		vm.UserName = u.Name
		vm.OrgSlug, vm.OrgName, vm.OrgRole = u.OrgSlug, u.OrgName, u.OrgRole
	}

	if t, ok := tenant.FromRequest(r); ok {
		vm.OrgSlug = t.Org.Slug
		vm.OrgName = t.Org.Name
		vm.OrgRole = t.Role()
		vm.SiteName = t.Org.DisplayName()
		vm.LogoURL = t.Org.Settings[models.SettingLogoURL]
		vm.PrimaryColor = t.Org.Settings[models.SettingPrimaryColor]
		vm.FooterText = t.Org.Settings[models.SettingFooterText]
	}

	return vm
}
