package auth

import (
	"context"
	"net/http"
)

type ctxKey string

const (
	currentUserKey ctxKey = "currentUser"
	orgRoleKey     ctxKey = "orgRole"
)

// CurrentUser returns the user & "found?" flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok && u != nil
}

// WithTestUser injects u into the request context. Tests use it to bypass
// the session cookie.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

// WithOrgRole records the caller's role in the organization addressed by
// the current URL. The tenant gate sets it after resolving the slug.
func WithOrgRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, orgRoleKey, role)
}

// RoleFromContext returns the role set by WithOrgRole, or "".
func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(orgRoleKey).(string)
	return role
}

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}
