package gates_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/stratagrc/internal/app/system/auth"
	"github.com/dalemusser/stratagrc/internal/app/system/gates"
	"github.com/dalemusser/stratagrc/internal/app/system/tenant"
	"github.com/dalemusser/stratagrc/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name string
		in   gates.Input
		want gates.Outcome
		loc  string
	}{
		// API passes through regardless of session.
		{"api anonymous", gates.Input{Path: "/api/auth/session"}, gates.Continue, ""},
		{"api signed in", gates.Input{Path: "/api/auth/session", SignedIn: true}, gates.Continue, ""},
		{"api admin anonymous", gates.Input{Path: "/api/admin/x"}, gates.Continue, ""},

		// Sign-in pages.
		{"login anonymous", gates.Input{Path: "/login"}, gates.Continue, ""},
		{"register anonymous", gates.Input{Path: "/register"}, gates.Continue, ""},
		{"login signed in", gates.Input{Path: "/login", SignedIn: true}, gates.RedirectOnboarding, "/onboarding"},
		{"register signed in", gates.Input{Path: "/register", SignedIn: true}, gates.RedirectOnboarding, "/onboarding"},

		// Session required.
		{"root anonymous", gates.Input{Path: "/"}, gates.Continue, ""},
		{"empty path anonymous", gates.Input{Path: ""}, gates.Continue, ""},
		{"forgot password anonymous", gates.Input{Path: "/forgot-password"}, gates.Continue, ""},
		{"onboarding anonymous", gates.Input{Path: "/onboarding"}, gates.RedirectLogin, "/login?return=%2Fonboarding"},
		{"org anonymous", gates.Input{Path: "/org/acme/risks", ReturnTo: "/org/acme/risks?page=2"}, gates.RedirectLogin, "/login?return=%2Forg%2Facme%2Frisks%3Fpage%3D2"},
		{"admin anonymous", gates.Input{Path: "/admin"}, gates.RedirectLogin, "/login?return=%2Fadmin"},
		{"onboarding signed in", gates.Input{Path: "/onboarding", SignedIn: true}, gates.Continue, ""},

		// Admin.
		{"admin non super", gates.Input{Path: "/admin/orgs", SignedIn: true}, gates.RedirectOnboarding, "/onboarding"},
		{"admin super", gates.Input{Path: "/admin/orgs", SignedIn: true, SuperAdmin: true}, gates.Continue, ""},
		{"administrator is not admin", gates.Input{Path: "/administrators", SignedIn: true}, gates.Continue, ""},

		// Org routes.
		{"org missing", gates.Input{Path: "/org/nope", SignedIn: true, Tenant: gates.TenantOrgMissing}, gates.NotFound, ""},
		{"org missing super", gates.Input{Path: "/org/nope", SignedIn: true, SuperAdmin: true, Tenant: gates.TenantOrgMissing}, gates.NotFound, ""},
		{"org no membership", gates.Input{Path: "/org/globex", SignedIn: true, Tenant: gates.TenantNoMembership}, gates.RedirectOnboarding, "/onboarding"},
		{"org ok", gates.Input{Path: "/org/acme", SignedIn: true, Tenant: gates.TenantOK}, gates.Continue, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := gates.Decide(tt.in)
			if d.Outcome != tt.want {
				t.Errorf("outcome = %q, want %q", d.Outcome, tt.want)
			}
			if d.Location != tt.loc {
				t.Errorf("location = %q, want %q", d.Location, tt.loc)
			}
		})
	}
}

type fakeOrgs map[string]models.Organization

func (f fakeOrgs) GetLiveBySlug(_ context.Context, slug string) (models.Organization, error) {
	o, ok := f[slug]
	if !ok {
		return models.Organization{}, errors.New("not found")
	}
	return o, nil
}

type fakeMembers map[primitive.ObjectID]models.Membership

func (f fakeMembers) GetActive(_ context.Context, userID, orgID primitive.ObjectID) (models.Membership, error) {
	m, ok := f[orgID]
	if !ok || m.UserID != userID {
		return models.Membership{}, errors.New("no membership")
	}
	return m, nil
}

type fixture struct {
	user   primitive.ObjectID
	acme   models.Organization
	globex models.Organization
	router http.Handler
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	f := fixture{
		user:   primitive.NewObjectID(),
		acme:   models.Organization{ID: primitive.NewObjectID(), Slug: "acme", Name: "Acme"},
		globex: models.Organization{ID: primitive.NewObjectID(), Slug: "globex", Name: "Globex"},
	}
	members := fakeMembers{
		f.acme.ID: {UserID: f.user, OrganizationID: f.acme.ID, Role: models.RoleMember, Active: true},
	}
	resolver := tenant.NewResolver(fakeOrgs{"acme": f.acme, "globex": f.globex}, members)

	notFound := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "custom not found", http.StatusNotFound)
	})
	g := gates.New(resolver, notFound, nil, zap.NewNop())

	ok := func(w http.ResponseWriter, r *http.Request) {
		if tn, found := tenant.FromRequest(r); found {
			w.Header().Set("X-Org", tn.Org.Slug)
			w.Header().Set("X-Role", auth.RoleFromContext(r.Context()))
		}
		w.WriteHeader(http.StatusOK)
	}

	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(g.Global)
		pr.Get("/", ok)
		pr.Get("/login", ok)
		pr.Get("/register", ok)
		pr.Get("/onboarding", ok)
		pr.Route("/org/{slug}", func(or chi.Router) {
			or.Use(g.Tenant)
			or.Get("/", ok)
			or.Get("/risks", ok)
		})
		pr.Route("/admin", func(ar chi.Router) {
			ar.Use(g.SuperAdmin)
			ar.Get("/", ok)
		})
	})
	r.Get("/api/auth/session", ok)
	f.router = r
	return f
}

func (f fixture) do(method, path string, u *auth.SessionUser) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if u != nil {
		req = auth.WithTestUser(req, u)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f fixture) member() *auth.SessionUser {
	return &auth.SessionUser{ID: f.user.Hex(), Name: "Member", OrgID: f.acme.ID.Hex(), OrgSlug: "acme", OrgRole: models.RoleMember}
}

func TestGate_APIPassesThrough(t *testing.T) {
	f := newFixture(t)
	if rec := f.do("GET", "/api/auth/session", nil); rec.Code != http.StatusOK {
		t.Errorf("anonymous api: status = %d, want 200", rec.Code)
	}
	if rec := f.do("GET", "/api/auth/session", f.member()); rec.Code != http.StatusOK {
		t.Errorf("signed-in api: status = %d, want 200", rec.Code)
	}
}

func TestGate_SignedInLoginRedirectsToOnboarding(t *testing.T) {
	f := newFixture(t)
	for _, p := range []string{"/login", "/register"} {
		rec := f.do("GET", p, f.member())
		if rec.Code != http.StatusSeeOther {
			t.Fatalf("%s: status = %d, want 303", p, rec.Code)
		}
		if loc := rec.Header().Get("Location"); loc != "/onboarding" {
			t.Errorf("%s: location = %q, want /onboarding", p, loc)
		}
	}
}

func TestGate_AnonymousRedirectsToLogin(t *testing.T) {
	f := newFixture(t)
	for _, p := range []string{"/onboarding", "/org/acme", "/org/acme/risks", "/org/nope", "/admin"} {
		rec := f.do("GET", p, nil)
		if rec.Code != http.StatusSeeOther {
			t.Fatalf("%s: status = %d, want 303", p, rec.Code)
		}
		loc := rec.Header().Get("Location")
		if len(loc) < len("/login") || loc[:len("/login")] != "/login" {
			t.Errorf("%s: location = %q, want /login...", p, loc)
		}
	}

	if rec := f.do("GET", "/", nil); rec.Code != http.StatusOK {
		t.Errorf("root: status = %d, want 200", rec.Code)
	}
}

func TestGate_UnknownSlugIsNotFound(t *testing.T) {
	f := newFixture(t)
	rec := f.do("GET", "/org/initech/risks", f.member())
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "" {
		t.Errorf("unexpected redirect to %q", loc)
	}

	super := f.member()
	super.IsSuperAdmin = true
	if rec := f.do("GET", "/org/initech", super); rec.Code != http.StatusNotFound {
		t.Errorf("super-admin: status = %d, want 404", rec.Code)
	}
}

func TestGate_OtherTenantRedirectsToOnboarding(t *testing.T) {
	f := newFixture(t)
	rec := f.do("GET", "/org/globex/risks", f.member())
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/onboarding" {
		t.Errorf("location = %q, want /onboarding", loc)
	}
	if rec.Header().Get("X-Org") != "" {
		t.Error("handler for globex must not run")
	}
}

func TestGate_MemberReachesOwnTenant(t *testing.T) {
	f := newFixture(t)
	rec := f.do("GET", "/org/acme/risks", f.member())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("X-Org"); got != "acme" {
		t.Errorf("tenant in context = %q, want acme", got)
	}
	if got := rec.Header().Get("X-Role"); got != models.RoleMember {
		t.Errorf("role in context = %q, want %q", got, models.RoleMember)
	}
}

func TestGate_AdminRequiresSuperAdmin(t *testing.T) {
	f := newFixture(t)

	rec := f.do("GET", "/admin/", f.member())
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/onboarding" {
		t.Errorf("member: status = %d location = %q, want 303 /onboarding", rec.Code, rec.Header().Get("Location"))
	}

	super := f.member()
	super.IsSuperAdmin = true
	if rec := f.do("GET", "/admin/", super); rec.Code != http.StatusOK {
		t.Errorf("super-admin: status = %d, want 200", rec.Code)
	}
}

func TestGate_HTMXRedirect(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest("GET", "/org/globex", nil)
	req.Header.Set("HX-Request", "true")
	req = auth.WithTestUser(req, f.member())
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if got := rec.Header().Get("HX-Redirect"); got != "/onboarding" {
		t.Errorf("HX-Redirect = %q, want /onboarding", got)
	}
}
