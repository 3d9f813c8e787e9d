// Package tenant resolves the organization addressed by a URL slug and the
// caller's membership in it.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dalemusser/stratagrc/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrOrgNotFound means the slug does not name a live organization, or
	// the lookup failed.
	ErrOrgNotFound = errors.New("organization not found")
	// ErrNoMembership means the caller has no active membership in the
	// organization, or the lookup failed.
	ErrNoMembership = errors.New("no active membership")
)

// OrgLookup finds a non-deleted organization by slug.
type OrgLookup interface {
	GetLiveBySlug(ctx context.Context, slug string) (models.Organization, error)
}

// MembershipLookup finds the active membership of a user in an organization.
type MembershipLookup interface {
	GetActive(ctx context.Context, userID, orgID primitive.ObjectID) (models.Membership, error)
}

// Tenant is a resolved organization plus the caller's membership in it.
type Tenant struct {
	Org        models.Organization
	Membership models.Membership
}

// Role returns the caller's role in the organization.
func (t Tenant) Role() string { return t.Membership.Role }

// Resolver combines organization and membership lookups.
type Resolver struct {
	orgs    OrgLookup
	members MembershipLookup
}

// NewResolver constructs a Resolver.
func NewResolver(orgs OrgLookup, members MembershipLookup) *Resolver {
	return &Resolver{orgs: orgs, members: members}
}

// Resolve loads the organization for slug and userID's active membership.
// Every failure maps to ErrOrgNotFound or ErrNoMembership (wrapping the
// underlying error when there is one) so callers can deny without crashing.
func (r *Resolver) Resolve(ctx context.Context, slug, userID string) (Tenant, error) {
	if slug == "" {
		return Tenant{}, ErrOrgNotFound
	}
	org, err := r.orgs.GetLiveBySlug(ctx, slug)
	if err != nil {
		return Tenant{}, fmt.Errorf("%w: %v", ErrOrgNotFound, err)
	}

	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return Tenant{Org: org}, fmt.Errorf("%w: bad user id", ErrNoMembership)
	}
	m, err := r.members.GetActive(ctx, uid, org.ID)
	if err != nil {
		return Tenant{Org: org}, fmt.Errorf("%w: %v", ErrNoMembership, err)
	}
	return Tenant{Org: org, Membership: m}, nil
}

type ctxKey struct{}

// WithTenant stores t in ctx.
func WithTenant(ctx context.Context, t Tenant) context.Context {
	return context.WithValue(ctx, ctxKey{}, t)
}

// FromRequest returns the tenant resolved for this request, if any.
func FromRequest(r *http.Request) (Tenant, bool) {
	t, ok := r.Context().Value(ctxKey{}).(Tenant)
	return t, ok
}
