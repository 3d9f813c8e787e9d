package testutil

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/stratagrc/internal/app/system/auth"
	"github.com/dalemusser/stratagrc/internal/app/system/tenant"
	"github.com/dalemusser/stratagrc/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// TestUser represents user data for testing HTTP handlers.
type TestUser struct {
	ID           string
	Name         string
	Email        string
	IsSuperAdmin bool

	OrgID   string
	OrgSlug string
	OrgRole string
}

// SuperAdminUser returns a super-admin with no tenant.
func SuperAdminUser() TestUser {
	return TestUser{
		ID:           primitive.NewObjectID().Hex(),
		Name:         "Test Super Admin",
		Email:        "super@test.com",
		IsSuperAdmin: true,
	}
}

// NoTenantUser returns a signed-in user with no memberships.
func NoTenantUser() TestUser {
	return TestUser{
		ID:    primitive.NewObjectID().Hex(),
		Name:  "Test Newcomer",
		Email: "newcomer@test.com",
	}
}

// MemberOf returns a user whose session context is org with role.
func MemberOf(org models.Organization, role string) TestUser {
	return TestUser{
		ID:      primitive.NewObjectID().Hex(),
		Name:    "Test " + role,
		Email:   role + "@test.com",
		OrgID:   org.ID.Hex(),
		OrgSlug: org.Slug,
		OrgRole: role,
	}
}

// SessionUser converts u to the auth representation.
func (u TestUser) SessionUser() *auth.SessionUser {
	return &auth.SessionUser{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		IsSuperAdmin: u.IsSuperAdmin,
		OrgID:        u.OrgID,
		OrgSlug:      u.OrgSlug,
		OrgRole:      u.OrgRole,
	}
}

// ObjectID returns the user's id as an ObjectID.
func (u TestUser) ObjectID() primitive.ObjectID {
	oid, _ := primitive.ObjectIDFromHex(u.ID)
	return oid
}

// WithUser adds a user to the request context for testing authenticated handlers.
// This bypasses the session middleware and injects the user directly.
func WithUser(r *http.Request, user TestUser) *http.Request {
	return auth.WithTestUser(r, user.SessionUser())
}

// WithTenant simulates the tenant gate: it sets the chi slug parameter, the
// resolved tenant and the caller's role.
func WithTenant(r *http.Request, org models.Organization, userID primitive.ObjectID, role string) *http.Request {
	r = WithChiURLParam(r, "slug", org.Slug)
	t := tenant.Tenant{
		Org: org,
		Membership: models.Membership{
			UserID:         userID,
			OrganizationID: org.ID,
			Role:           role,
			Active:         true,
		},
	}
	ctx := tenant.WithTenant(r.Context(), t)
	ctx = auth.WithOrgRole(ctx, role)
	return r.WithContext(ctx)
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

// NewAuthenticatedRequest creates an HTTP request with a user in context.
func NewAuthenticatedRequest(method, target string, user TestUser) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	return WithUser(req, user)
}

// NewFormRequest creates a urlencoded POST with a user in context.
func NewFormRequest(target string, form url.Values, user TestUser) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return WithUser(req, user)
}

// ResponseRecorder wraps httptest.ResponseRecorder with helper methods.
type ResponseRecorder struct {
	*httptest.ResponseRecorder
}

// NewRecorder creates a new ResponseRecorder.
func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{httptest.NewRecorder()}
}

// AssertStatus checks the response status code.
func (r *ResponseRecorder) AssertStatus(t interface{ Errorf(string, ...any) }, expected int) {
	if r.Code != expected {
		t.Errorf("status code: got %d, want %d", r.Code, expected)
	}
}

// AssertRedirect checks for a redirect to the expected location.
func (r *ResponseRecorder) AssertRedirect(t interface{ Errorf(string, ...any) }, expectedLocation string) {
	if r.Code != http.StatusSeeOther && r.Code != http.StatusFound && r.Code != http.StatusMovedPermanently {
		t.Errorf("expected redirect status, got %d", r.Code)
	}
	location := r.Header().Get("Location")
	if location != expectedLocation {
		t.Errorf("redirect location: got %q, want %q", location, expectedLocation)
	}
}

// AssertNotRedirected checks that a rejected submission was not
// redirected, i.e. the form was shown again.
func (r *ResponseRecorder) AssertNotRedirected(t interface{ Errorf(string, ...any) }) {
	if loc := r.Header().Get("Location"); loc != "" {
		t.Errorf("unexpected redirect to %q (status %d)", loc, r.Code)
	}
}

// AssertContains checks if the response body contains the expected string.
func (r *ResponseRecorder) AssertContains(t interface{ Errorf(string, ...any) }, expected string) {
	if !strings.Contains(r.Body.String(), expected) {
		t.Errorf("response body does not contain %q", expected)
	}
}

// Serve runs h, swallowing a template panic. Handlers render through the
// template registry, which is not built in unit tests; status codes and
// redirects written before rendering are still observable.
func Serve(rec *ResponseRecorder, req *http.Request, h http.HandlerFunc) {
	defer func() {
		_ = recover()
	}()
	h(rec, req)
}

// TestSessionKey signs session cookies in tests.
const TestSessionKey = "0123456789abcdef0123456789abcdef"

// NewSessionManager returns a cookie session manager for tests.
func NewSessionManager(t interface {
	Helper()
	Fatalf(string, ...any)
}) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager(TestSessionKey, "grc-test", "", time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}
	return sm
}

// NewAnonymousFormRequest creates a urlencoded POST with no user in context.
func NewAnonymousFormRequest(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}
