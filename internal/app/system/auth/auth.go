package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const (
	userIDKey    = "user_id"
	activeOrgKey = "active_org_id"
	signedInKey  = "signed_in_at"
)

// SessionUser is the identity attached to r.Context() by LoadSessionUser.
// Org fields are empty when the user has no active membership ("no tenant yet").
type SessionUser struct {
	ID           string
	Name         string
	Email        string
	IsSuperAdmin bool

	OrgID   string
	OrgSlug string
	OrgName string
	OrgRole string
}

// HasTenant reports whether the session carries an organization context.
func (u *SessionUser) HasTenant() bool {
	return u != nil && u.OrgID != ""
}

// UserFetcher loads the current identity for a session's user ID.
// It returns nil when the user no longer exists or is disabled.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) *SessionUser
}

// TenantFetcher lists the active memberships (in live organizations) of a user.
type TenantFetcher interface {
	FetchTenants(ctx context.Context, userID string) ([]TenantOption, error)
}

// SessionManager owns the signed session cookie and the request middleware
// that turns it into a SessionUser.
type SessionManager struct {
	store   *sessions.CookieStore
	name    string
	log     *zap.Logger
	users   UserFetcher
	tenants TenantFetcher
}

// NewSessionManager builds a cookie-backed session manager. secure enables
// Secure cookies; use false for local http development.
func NewSessionManager(sessionKey, name, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, errors.New("session key is empty; provide at least 32 random characters")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended", zap.Int("length", len(sessionKey)))
	}
	if name == "" {
		return nil, errors.New("session name is empty")
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	store.Options = &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	logger.Info("session manager initialized",
		zap.String("name", name),
		zap.Bool("secure", secure),
		zap.Duration("max_age", maxAge))

	return &SessionManager{store: store, name: name, log: logger}, nil
}

// SetUserFetcher installs the identity loader used on every request.
func (m *SessionManager) SetUserFetcher(f UserFetcher) { m.users = f }

// SetTenantFetcher installs the membership loader used for augmentation.
func (m *SessionManager) SetTenantFetcher(f TenantFetcher) { m.tenants = f }

// SignIn starts a new session for userID. Any previous org selection is cleared.
func (m *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, userID string) error {
	sess, _ := m.store.Get(r, m.name)
	sess.Values = map[interface{}]interface{}{
		userIDKey:   userID,
		signedInKey: time.Now().UTC().Unix(),
	}
	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// SignOut expires the session cookie.
func (m *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) error {
	sess, _ := m.store.Get(r, m.name)
	sess.Values = map[interface{}]interface{}{}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// SetActiveOrg records an explicit organization selection in the session.
// It is honored by LoadSessionUser only while the user still holds an active
// membership in that organization.
func (m *SessionManager) SetActiveOrg(w http.ResponseWriter, r *http.Request, orgID string) error {
	sess, _ := m.store.Get(r, m.name)
	if _, ok := sess.Values[userIDKey].(string); !ok {
		return errors.New("no session to update")
	}
	sess.Values[activeOrgKey] = orgID
	return sess.Save(r, w)
}

// LoadSessionUser resolves the session cookie into a SessionUser, refreshing
// identity and tenant context from the store on every request. Requests
// without a valid session continue anonymously.
func (m *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := m.store.Get(r, m.name)
		if err != nil {
			// Tampered or rotated-key cookie: treat as anonymous.
			var scErr securecookie.Error
			if errors.As(err, &scErr) && scErr.IsDecode() {
				m.log.Debug("session cookie rejected", zap.Error(err))
			}
			next.ServeHTTP(w, r)
			return
		}
		userID, _ := sess.Values[userIDKey].(string)
		if userID == "" || m.users == nil {
			next.ServeHTTP(w, r)
			return
		}

		u := m.users.FetchUser(r.Context(), userID)
		if u == nil {
			next.ServeHTTP(w, r)
			return
		}

		if m.tenants != nil {
			opts, err := m.tenants.FetchTenants(r.Context(), userID)
			if err != nil {
				m.log.Warn("tenant lookup failed; continuing without org context",
					zap.String("user_id", userID), zap.Error(err))
			} else {
				preferred, _ := sess.Values[activeOrgKey].(string)
				Augment(u, opts, preferred)
			}
		}

		next.ServeHTTP(w, withUser(r, u))
	})
}

// RequireSignedIn ensures there is a user in context (set by LoadSessionUser).
// If not signed in:
//   - HTMX: sends HX-Redirect to /login?return=...
//   - HTML: 303 redirect to /login?return=...
//   - API:  401 Unauthorized with a plain error body.
func (m *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		denyUnauthenticated(w, r)
	})
}

// RequireOrgRole ensures the current tenant role is one of allowed.
// It assumes the tenant gate already ran for org-scoped routes.
func (m *SessionManager) RequireOrgRole(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		set[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := CurrentUser(r)
			if !ok {
				denyUnauthenticated(w, r)
				return
			}
			role := strings.ToLower(RoleFromContext(r.Context()))
			if role == "" {
				role = strings.ToLower(u.OrgRole)
			}
			if _, has := set[role]; has {
				next.ServeHTTP(w, r)
				return
			}

			if r.Header.Get("HX-Request") == "true" {
				w.Header().Set("HX-Redirect", "/forbidden")
				w.WriteHeader(http.StatusForbidden)
				return
			}
			if wantsHTML(r) {
				http.Redirect(w, r, "/forbidden", http.StatusSeeOther)
				return
			}
			http.Error(w, "forbidden", http.StatusForbidden)
		})
	}
}

func denyUnauthenticated(w http.ResponseWriter, r *http.Request) {
	ret := url.QueryEscape(r.URL.RequestURI())

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/login?return="+ret)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if wantsHTML(r) {
		http.Redirect(w, r, "/login?return="+ret, http.StatusSeeOther)
		return
	}
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

func wantsHTML(r *http.Request) bool {
	if r.Header.Get("HX-Request") == "true" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
