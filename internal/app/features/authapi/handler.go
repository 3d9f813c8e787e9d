// internal/app/features/authapi/handler.go
//
// Package authapi serves the delegated authentication endpoints under
// /api/auth: the session probe used by scripts and the Google sign-in
// round trip. The gate passes these through; they authenticate themselves.
package authapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/stratagrc/internal/app/store/audit"
	"github.com/dalemusser/stratagrc/internal/app/store/oauthstate"
	userstore "github.com/dalemusser/stratagrc/internal/app/store/users"
	"github.com/dalemusser/stratagrc/internal/app/system/auditlog"
	"github.com/dalemusser/stratagrc/internal/app/system/auth"
	"github.com/dalemusser/stratagrc/internal/app/system/timeouts"
	"github.com/dalemusser/stratagrc/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	stateTTL          = 10 * time.Minute
)

// Handler serves /api/auth.
type Handler struct {
	Users      *userstore.Store
	StateStore *oauthstate.Store
	SessionMgr *auth.SessionManager
	AuditLog   *auditlog.Logger
	Log        *zap.Logger

	// OAuth configuration
	ClientID     string
	ClientSecret string
	RedirectURL  string // e.g. "https://grc.example.com/api/auth/google/callback"

	// Endpoint and UserInfoURL default to Google's.
	Endpoint    oauth2.Endpoint
	UserInfoURL string
}

// NewHandler creates the auth API handler. appOrigin is the public base URL
// the Google callback is registered under.
func NewHandler(
	db *mongo.Database,
	sessionMgr *auth.SessionManager,
	audit *auditlog.Logger,
	clientID, clientSecret, appOrigin string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Users:        userstore.New(db),
		StateStore:   oauthstate.New(db),
		SessionMgr:   sessionMgr,
		AuditLog:     audit,
		Log:          logger,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  strings.TrimRight(appOrigin, "/") + "/api/auth/google/callback",
		Endpoint:     google.Endpoint,
		UserInfoURL:  googleUserInfoURL,
	}
}

func (h *Handler) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.ClientID,
		ClientSecret: h.ClientSecret,
		RedirectURL:  h.RedirectURL,
		Scopes: []string{
			"openid",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: h.Endpoint,
	}
}

// IsConfigured returns true if Google OAuth is configured.
func (h *Handler) IsConfigured() bool {
	return h.ClientID != "" && h.ClientSecret != ""
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/auth/session                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

type sessionOrg struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
	Role string `json:"role"`
}

type sessionResponse struct {
	SignedIn bool `json:"signed_in"`
	User     *struct {
		ID           string `json:"id"`
		Name         string `json:"name"`
		Email        string `json:"email"`
		IsSuperAdmin bool   `json:"is_super_admin"`
	} `json:"user,omitempty"`
	Org *sessionOrg `json:"org,omitempty"`
}

// ServeSession reports the identity and organization context of the
// caller's session. Anonymous callers get {"signed_in":false}.
func (h *Handler) ServeSession(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")

	var resp sessionResponse
	if u, ok := auth.CurrentUser(r); ok {
		resp.SignedIn = true
		resp.User = &struct {
			ID           string `json:"id"`
			Name         string `json:"name"`
			Email        string `json:"email"`
			IsSuperAdmin bool   `json:"is_super_admin"`
		}{u.ID, u.Name, u.Email, u.IsSuperAdmin}
		if u.HasTenant() {
			resp.Org = &sessionOrg{ID: u.OrgID, Slug: u.OrgSlug, Name: u.OrgName, Role: u.OrgRole}
		}
	}
	_ = json.NewEncoder(w).Encode(resp)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/auth/google/start                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeGoogleStart(w http.ResponseWriter, r *http.Request) {
	if !h.IsConfigured() {
		h.Log.Warn("Google OAuth not configured")
		http.Redirect(w, r, "/login?error=google_not_configured", http.StatusSeeOther)
		return
	}

	state := uuid.NewString()
	returnURL := query.Get(r, "return")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.StateStore.Save(ctx, state, returnURL, time.Now().UTC().Add(stateTTL)); err != nil {
		h.Log.Error("failed to save OAuth state", zap.Error(err))
		http.Redirect(w, r, "/login?error=internal", http.StatusSeeOther)
		return
	}

	url := h.oauth2Config().AuthCodeURL(state)
	h.Log.Debug("initiating Google OAuth flow", zap.String("return_url", returnURL))
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/auth/google/callback                                                |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeGoogleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.Log.Warn("Google OAuth error",
			zap.String("error", errParam),
			zap.String("description", r.URL.Query().Get("error_description")))
		http.Redirect(w, r, "/login?error=google_denied", http.StatusSeeOther)
		return
	}

	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if state == "" || code == "" {
		http.Redirect(w, r, "/login?error=invalid_state", http.StatusSeeOther)
		return
	}

	short, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	returnURL, valid, err := h.StateStore.Consume(short, state)
	if err != nil {
		h.Log.Error("failed to validate OAuth state", zap.Error(err))
		http.Redirect(w, r, "/login?error=internal", http.StatusSeeOther)
		return
	}
	if !valid {
		h.Log.Warn("invalid or expired OAuth state")
		http.Redirect(w, r, "/login?error=invalid_state", http.StatusSeeOther)
		return
	}

	token, err := h.oauth2Config().Exchange(ctx, code)
	if err != nil {
		h.Log.Error("failed to exchange OAuth code", zap.Error(err))
		http.Redirect(w, r, "/login?error=token_exchange", http.StatusSeeOther)
		return
	}

	info, err := h.fetchUserInfo(ctx, token)
	if err != nil {
		h.Log.Error("failed to fetch Google user info", zap.Error(err))
		http.Redirect(w, r, "/login?error=user_info", http.StatusSeeOther)
		return
	}
	if !info.EmailVerified || info.Email == "" {
		h.AuditLog.LoginFailed(short, r, audit.EventLoginFailedUserNotFound, nil, info.Email, "google email not verified")
		http.Redirect(w, r, "/login?error=email_unverified", http.StatusSeeOther)
		return
	}

	u, err := h.findOrCreate(short, r, info)
	switch {
	case errors.Is(err, errUserDisabled):
		h.AuditLog.LoginFailed(short, r, audit.EventLoginFailedUserDisabled, &u.ID, info.Email, "user disabled")
		http.Redirect(w, r, "/login?error=account_disabled", http.StatusSeeOther)
		return
	case err != nil:
		h.Log.Error("failed to look up user", zap.Error(err))
		http.Redirect(w, r, "/login?error=internal", http.StatusSeeOther)
		return
	}

	if err := h.SessionMgr.SignIn(w, r, u.ID.Hex()); err != nil {
		h.Log.Error("save session failed", zap.Error(err), zap.String("user_id", u.ID.Hex()))
		http.Redirect(w, r, "/login?error=internal", http.StatusSeeOther)
		return
	}
	h.AuditLog.LoginSuccess(short, r, u.ID, models.AuthMethodGoogle)

	http.Redirect(w, r, urlutil.SafeReturn(returnURL, "", "/onboarding"), http.StatusSeeOther)
}

/*─────────────────────────────────────────────────────────────────────────────*
| User lookup                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

var errUserDisabled = errors.New("user disabled")

// googleUserInfo represents user info returned from Google.
type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"verified_email"`
	Name          string `json:"name"`
}

func (h *Handler) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))

	resp, err := client.Get(h.UserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode user info: %w", err)
	}
	return &info, nil
}

// findOrCreate signs in the account owning the verified email, or creates
// one. Like self-service registration, a new account has no memberships.
func (h *Handler) findOrCreate(ctx context.Context, r *http.Request, info *googleUserInfo) (models.User, error) {
	u, err := h.Users.GetByEmail(ctx, info.Email)
	if err == nil {
		if !u.IsActive() {
			return u, errUserDisabled
		}
		return u, nil
	}
	if !errors.Is(err, userstore.ErrNotFound) {
		return models.User{}, err
	}

	name := strings.TrimSpace(info.Name)
	if name == "" {
		name = info.Email
	}
	u, err = h.Users.Create(ctx, models.User{
		FullName:   name,
		Email:      info.Email,
		AuthMethod: models.AuthMethodGoogle,
	})
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		// Lost a race with a concurrent first sign-in.
		return h.Users.GetByEmail(ctx, info.Email)
	}
	if err != nil {
		return models.User{}, err
	}
	h.AuditLog.Registered(ctx, r, u.ID, models.AuthMethodGoogle)
	h.Log.Info("user registered via Google", zap.String("user_id", u.ID.Hex()))
	return u, nil
}
