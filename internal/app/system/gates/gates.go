// Package gates is the authorization gate that runs in front of every page.
//
// The decision itself is the pure function Decide. The middlewares gather the
// inputs (session user, tenant lookup) and turn a Decision into a response:
//
//  1. Paths under /api/ pass through; the API authorizes its own requests.
//  2. /login and /register redirect a signed-in user to /onboarding.
//  3. Everything else except the public pages requires a session.
//  4. /org/{slug}/... requires a live organization (else 404) and an active
//     membership in it (else /onboarding). /admin/... requires the
//     super-admin flag (else /onboarding).
//
// Global covers rules 1 through 3 and sits on the whole page tree. Tenant
// and SuperAdmin cover rule 4 on their subtrees.
//
// The gate reads the session and the store but never writes to either.
package gates

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/dalemusser/stratagrc/internal/app/system/auth"
	"github.com/dalemusser/stratagrc/internal/app/system/metrics"
	"github.com/dalemusser/stratagrc/internal/app/system/tenant"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	APIPrefix      = "/api/"
	LoginPath      = "/login"
	RegisterPath   = "/register"
	OnboardingPath = "/onboarding"
	AdminPrefix    = "/admin"
	OrgPrefix      = "/org/"
)

// publicPaths are reachable without a session.
var publicPaths = map[string]bool{
	"/":                true,
	LoginPath:          true,
	RegisterPath:       true,
	"/forgot-password": true,
}

// Outcome is what the gate does with a request. The string value is used
// as the metrics label.
type Outcome string

const (
	Continue           Outcome = "continue"
	RedirectLogin      Outcome = "redirect_login"
	RedirectOnboarding Outcome = "redirect_onboarding"
	NotFound           Outcome = "not_found"
)

// TenantResult is the outcome of resolving /org/{slug} for the caller.
type TenantResult int

const (
	TenantNotChecked TenantResult = iota
	TenantOK
	TenantOrgMissing
	TenantNoMembership
)

// Input describes one request as far as the gate is concerned.
type Input struct {
	Path       string
	ReturnTo   string // request URI to come back to after sign-in; Path when empty
	SignedIn   bool
	SuperAdmin bool
	Tenant     TenantResult
}

// Decision is the gate's verdict. Location is set for redirects.
type Decision struct {
	Outcome  Outcome
	Location string
}

// Decide evaluates the gate rules in order.
func Decide(in Input) Decision {
	p := in.Path
	if p == "" {
		p = "/"
	}

	if strings.HasPrefix(p, APIPrefix) {
		return Decision{Outcome: Continue}
	}

	if p == LoginPath || p == RegisterPath {
		if in.SignedIn {
			return Decision{Outcome: RedirectOnboarding, Location: OnboardingPath}
		}
		return Decision{Outcome: Continue}
	}

	if !in.SignedIn {
		if publicPaths[p] {
			return Decision{Outcome: Continue}
		}
		ret := in.ReturnTo
		if ret == "" {
			ret = p
		}
		return Decision{Outcome: RedirectLogin, Location: LoginPath + "?return=" + url.QueryEscape(ret)}
	}

	if isAdminPath(p) && !in.SuperAdmin {
		return Decision{Outcome: RedirectOnboarding, Location: OnboardingPath}
	}

	if strings.HasPrefix(p, OrgPrefix) {
		switch in.Tenant {
		case TenantOrgMissing:
			return Decision{Outcome: NotFound}
		case TenantNoMembership:
			return Decision{Outcome: RedirectOnboarding, Location: OnboardingPath}
		}
	}

	return Decision{Outcome: Continue}
}

func isAdminPath(p string) bool {
	return p == AdminPrefix || strings.HasPrefix(p, AdminPrefix+"/")
}

// Gate applies Decide to live requests.
type Gate struct {
	resolver *tenant.Resolver
	notFound http.Handler
	metrics  *metrics.Metrics
	log      *zap.Logger
}

// New builds a Gate. notFound renders the 404 page; http.NotFoundHandler()
// is used when it is nil. m may be nil.
func New(resolver *tenant.Resolver, notFound http.Handler, m *metrics.Metrics, logger *zap.Logger) *Gate {
	if notFound == nil {
		notFound = http.NotFoundHandler()
	}
	return &Gate{resolver: resolver, notFound: notFound, metrics: m, log: logger}
}

// Global enforces the session rules on the whole page tree.
func (g *Gate) Global(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, signedIn := auth.CurrentUser(r)
		d := Decide(Input{
			Path:       r.URL.Path,
			ReturnTo:   r.URL.RequestURI(),
			SignedIn:   signedIn,
			SuperAdmin: signedIn && u.IsSuperAdmin,
		})
		g.apply(w, r, d, next)
	})
}

// SuperAdmin guards the /admin subtree.
func (g *Gate) SuperAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, signedIn := auth.CurrentUser(r)
		d := Decide(Input{
			Path:       AdminPrefix,
			ReturnTo:   r.URL.RequestURI(),
			SignedIn:   signedIn,
			SuperAdmin: signedIn && u.IsSuperAdmin,
		})
		g.apply(w, r, d, next)
	})
}

// Tenant guards the /org/{slug} subtree. On success the resolved tenant and
// the caller's role are placed in the request context.
func (g *Gate) Tenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, signedIn := auth.CurrentUser(r)
		slug := chi.URLParam(r, "slug")

		in := Input{
			Path:     OrgPrefix + slug,
			ReturnTo: r.URL.RequestURI(),
			SignedIn: signedIn,
		}
		if !signedIn {
			g.apply(w, r, Decide(in), next)
			return
		}
		in.SuperAdmin = u.IsSuperAdmin

		t, err := g.resolver.Resolve(r.Context(), slug, u.ID)
		switch {
		case err == nil:
			in.Tenant = TenantOK
		case errors.Is(err, tenant.ErrOrgNotFound):
			in.Tenant = TenantOrgMissing
		default:
			in.Tenant = TenantNoMembership
		}
		if err != nil {
			g.log.Debug("tenant gate denied",
				zap.String("slug", slug),
				zap.String("user_id", u.ID),
				zap.Error(err))
		}

		d := Decide(in)
		if d.Outcome == Continue {
			ctx := tenant.WithTenant(r.Context(), t)
			ctx = auth.WithOrgRole(ctx, t.Role())
			r = r.WithContext(ctx)
		}
		g.apply(w, r, d, next)
	})
}

func (g *Gate) apply(w http.ResponseWriter, r *http.Request, d Decision, next http.Handler) {
	g.metrics.Gate(string(d.Outcome))

	switch d.Outcome {
	case Continue:
		next.ServeHTTP(w, r)
	case NotFound:
		g.notFound.ServeHTTP(w, r)
	default:
		if r.Header.Get("HX-Request") == "true" {
			w.Header().Set("HX-Redirect", d.Location)
			w.WriteHeader(http.StatusOK)
			return
		}
		http.Redirect(w, r, d.Location, http.StatusSeeOther)
	}
}
