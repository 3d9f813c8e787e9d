// internal/app/bootstrap/routes.go
package bootstrap

import (
	"crypto/sha256"
	"net/http"

	"github.com/dalemusser/stratagrc/internal/app/actions"
	activityfeature "github.com/dalemusser/stratagrc/internal/app/features/activity"
	adminfeature "github.com/dalemusser/stratagrc/internal/app/features/admin"
	assessmentsfeature "github.com/dalemusser/stratagrc/internal/app/features/assessments"
	authapifeature "github.com/dalemusser/stratagrc/internal/app/features/authapi"
	capafeature "github.com/dalemusser/stratagrc/internal/app/features/capa"
	dashboardfeature "github.com/dalemusser/stratagrc/internal/app/features/dashboard"
	documentsfeature "github.com/dalemusser/stratagrc/internal/app/features/documents"
	errorsfeature "github.com/dalemusser/stratagrc/internal/app/features/errors"
	evidencefeature "github.com/dalemusser/stratagrc/internal/app/features/evidence"
	forgotpasswordfeature "github.com/dalemusser/stratagrc/internal/app/features/forgotpassword"
	frameworksfeature "github.com/dalemusser/stratagrc/internal/app/features/frameworks"
	healthfeature "github.com/dalemusser/stratagrc/internal/app/features/health"
	homefeature "github.com/dalemusser/stratagrc/internal/app/features/home"
	invitefeature "github.com/dalemusser/stratagrc/internal/app/features/invite"
	loginfeature "github.com/dalemusser/stratagrc/internal/app/features/login"
	logoutfeature "github.com/dalemusser/stratagrc/internal/app/features/logout"
	membersfeature "github.com/dalemusser/stratagrc/internal/app/features/members"
	onboardingfeature "github.com/dalemusser/stratagrc/internal/app/features/onboarding"
	organizationsfeature "github.com/dalemusser/stratagrc/internal/app/features/organizations"
	orgswitchfeature "github.com/dalemusser/stratagrc/internal/app/features/orgswitch"
	registerfeature "github.com/dalemusser/stratagrc/internal/app/features/register"
	risksfeature "github.com/dalemusser/stratagrc/internal/app/features/risks"
	settingsfeature "github.com/dalemusser/stratagrc/internal/app/features/settings"
	tasksfeature "github.com/dalemusser/stratagrc/internal/app/features/tasks"
	trainingfeature "github.com/dalemusser/stratagrc/internal/app/features/training"
	controlstore "github.com/dalemusser/stratagrc/internal/app/store/controls"
	frameworkstore "github.com/dalemusser/stratagrc/internal/app/store/frameworks"
	membershipstore "github.com/dalemusser/stratagrc/internal/app/store/memberships"
	orgstore "github.com/dalemusser/stratagrc/internal/app/store/organizations"
	soastore "github.com/dalemusser/stratagrc/internal/app/store/soa"
	taskstore "github.com/dalemusser/stratagrc/internal/app/store/tasks"
	userstore "github.com/dalemusser/stratagrc/internal/app/store/users"
	"github.com/dalemusser/stratagrc/internal/app/system/auth"
	"github.com/dalemusser/stratagrc/internal/app/system/authcors"
	"github.com/dalemusser/stratagrc/internal/app/system/gates"
	"github.com/dalemusser/stratagrc/internal/app/system/invitetoken"
	"github.com/dalemusser/stratagrc/internal/app/system/ratelimit"
	"github.com/dalemusser/stratagrc/internal/app/system/secureheaders"
	"github.com/dalemusser/stratagrc/internal/app/system/seeding"
	"github.com/dalemusser/stratagrc/internal/app/system/tenant"
	"github.com/dalemusser/stratagrc/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// Middleware runs in this order on every request: request id, real IP,
// panic recovery, security headers, metrics, session load. The page tree
// adds the authorization gate and CSRF protection; /api/auth, /health,
// /metrics and /static sit outside it.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase
	secure := coreCfg.Env == "prod"

	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}
	// Identity and tenant context are refreshed from the store on every
	// request, so role changes and disabled accounts take effect at once.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(db))
	sessionMgr.SetTenantFetcher(membershipstore.NewTenantFetcher(db))

	// Dev mode enables template reloading for faster iteration.
	eng := templates.New(coreCfg.Env == "dev")
	if err := eng.Boot(logger); err != nil {
		logger.Error("template engine boot failed", zap.Error(err))
		return nil, err
	}
	templates.UseEngine(eng, logger)

	tokens, err := invitetoken.New(appCfg.InviteSecret, appCfg.InviteTTL)
	if err != nil {
		logger.Error("invitation tokens init failed", zap.Error(err))
		return nil, err
	}
	seeder := seeding.New(frameworkstore.New(db), controlstore.New(db), soastore.New(db), taskstore.New(db), deps.Metrics, logger)
	acts := actions.New(actions.MongoStores(db), seeder, deps.Audit, deps.Cache, tokens, deps.Metrics, logger)

	errLog := errorsfeature.NewErrorLogger(logger)
	errorsHandler := errorsfeature.NewHandler()
	gate := gates.New(tenant.NewResolver(orgstore.New(db), membershipstore.New(db)),
		http.HandlerFunc(errorsHandler.NotFound), deps.Metrics, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(secureheaders.Middleware(appCfg.CSP))
	r.Use(deps.Metrics.Middleware)
	r.Use(sessionMgr.LoadSessionUser)
	r.NotFound(errorsHandler.NotFound)

	// Operational endpoints
	healthHandler := healthfeature.NewHandler(deps.MongoClient, deps.Audit, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.Handle("/metrics", deps.Metrics.Handler())

	// Static assets with pre-compressed file support (gzip/brotli)
	r.Handle("/static/*", fileserver.Handler("/static", "public"))

	// Delegated auth API, callable from the app origin only
	authAPIHandler := authapifeature.NewHandler(db, sessionMgr, deps.Audit,
		appCfg.GoogleClientID, appCfg.GoogleClientSecret, appCfg.AppOrigin, logger)
	r.Route("/api/auth", func(ar chi.Router) {
		ar.Use(authcors.Middleware(appCfg.AppOrigin))
		ar.Mount("/", authapifeature.Routes(authAPIHandler))
	})

	r.Group(func(pages chi.Router) {
		pages.Use(gate.Global)
		pages.Use(csrfProtect(appCfg.SessionKey, secure, errLog))

		// Public pages and authentication
		homeHandler := homefeature.NewHandler(appCfg.GoogleEnabled(), logger)
		pages.Mount("/", homefeature.Routes(homeHandler))

		limiter := ratelimit.NewLoginLimiter(appCfg.LoginRate, appCfg.LoginBurst)
		loginHandler := loginfeature.NewHandler(db, sessionMgr, limiter, deps.Audit, errLog, appCfg.GoogleEnabled(), logger)
		pages.Mount("/login", loginfeature.Routes(loginHandler))

		registerHandler := registerfeature.NewHandler(db, sessionMgr, deps.Audit, errLog, logger)
		pages.Mount("/register", registerfeature.Routes(registerHandler))

		forgotHandler := forgotpasswordfeature.NewHandler(errLog, logger)
		pages.Mount("/forgot-password", forgotpasswordfeature.Routes(forgotHandler))

		logoutHandler := logoutfeature.NewHandler(sessionMgr, deps.Audit, logger)
		pages.Mount("/logout", logoutfeature.Routes(logoutHandler, sessionMgr))

		// Error pages
		pages.Get("/forbidden", errorsHandler.Forbidden)

		// Signed in, no organization required
		onboardingHandler := onboardingfeature.NewHandler(logger)
		pages.Mount("/onboarding", onboardingfeature.Routes(onboardingHandler))

		inviteHandler := invitefeature.NewHandler(acts, errLog, logger)
		pages.Mount("/invite", invitefeature.Routes(inviteHandler))

		// Platform administration
		adminHandler := adminfeature.NewHandler(db, errLog, logger)
		orgsHandler := organizationsfeature.NewHandler(db, acts, errLog, logger)
		pages.Route("/admin", func(ar chi.Router) {
			ar.Use(gate.SuperAdmin)
			adminHandler.MountRoutes(ar)
			ar.Mount("/orgs", organizationsfeature.Routes(orgsHandler))
		})

		// Organization workspace
		dashboardHandler := dashboardfeature.NewHandler(db, deps.Cache, deps.Metrics, errLog, logger)
		switchHandler := orgswitchfeature.NewHandler(sessionMgr, membershipstore.New(db), deps.Audit, errLog, logger)
		frameworksHandler := frameworksfeature.NewHandler(db, acts, errLog, logger)
		assessmentsHandler := assessmentsfeature.NewHandler(db, acts, errLog, logger)
		risksHandler := risksfeature.NewHandler(db, acts, errLog, logger)
		tasksHandler := tasksfeature.NewHandler(db, acts, errLog, logger)
		capaHandler := capafeature.NewHandler(db, acts, errLog, logger)
		documentsHandler := documentsfeature.NewHandler(db, acts, errLog, logger)
		evidenceHandler := evidencefeature.NewHandler(db, acts, errLog, logger)
		trainingHandler := trainingfeature.NewHandler(db, acts, errLog, logger)
		membersHandler := membersfeature.NewHandler(db, acts, appCfg.AppOrigin, errLog, logger)
		settingsHandler := settingsfeature.NewHandler(db, acts, errLog, logger)
		activityHandler := activityfeature.NewHandler(db, errLog, logger)

		pages.Route("/org/{slug}", func(or chi.Router) {
			or.Use(gate.Tenant)

			or.Mount("/", dashboardfeature.Routes(dashboardHandler))
			switchHandler.MountRoutes(or)

			or.Mount("/frameworks", frameworksfeature.Routes(frameworksHandler, sessionMgr))
			or.Mount("/assessments", assessmentsfeature.Routes(assessmentsHandler, sessionMgr))
			or.Mount("/risks", risksfeature.Routes(risksHandler, sessionMgr))
			or.Mount("/tasks", tasksfeature.Routes(tasksHandler, sessionMgr))
			or.Mount("/capa", capafeature.Routes(capaHandler, sessionMgr))
			or.Mount("/documents", documentsfeature.Routes(documentsHandler, sessionMgr))
			or.Mount("/evidence", evidencefeature.Routes(evidenceHandler, sessionMgr))
			or.Mount("/training", trainingfeature.Routes(trainingHandler, sessionMgr))
			or.Mount("/members", membersfeature.Routes(membersHandler, sessionMgr))
			or.Mount("/activity", activityfeature.Routes(activityHandler, sessionMgr))

			or.Group(func(mr chi.Router) {
				mr.Use(sessionMgr.RequireOrgRole(models.RoleOwner, models.RoleAdmin))
				mr.Route("/settings", settingsHandler.MountRoutes)
			})
		})
	})

	return r, nil
}

// csrfProtect guards every page form. The token key is derived from the
// session key so one secret covers both. Plain-http requests are marked as
// such outside prod, where there is no TLS to check the Referer against.
func csrfProtect(sessionKey string, secure bool, errLog *errorsfeature.ErrorLogger) func(http.Handler) http.Handler {
	key := sha256.Sum256([]byte("csrf:" + sessionKey))
	protect := csrf.Protect(key[:],
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reason := "unknown"
			if err := csrf.FailureReason(r); err != nil {
				reason = err.Error()
			}
			errLog.LogForbidden(w, r, "csrf check failed: "+reason,
				"Your form expired. Go back, reload the page and try again.", "/")
		})),
	)
	return func(next http.Handler) http.Handler {
		h := protect(next)
		if secure {
			return h
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
		})
	}
}
