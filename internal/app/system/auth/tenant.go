package auth

import "time"

// TenantOption is one active membership a session may take its org context from.
type TenantOption struct {
	OrgID     string
	OrgSlug   string
	OrgName   string
	Role      string
	UpdatedAt time.Time // membership updated_at
}

// PickTenant chooses the organization context for a session.
//
// An explicit selection (preferredOrgID) wins while it is still among the
// user's active memberships. Otherwise the membership with the latest
// UpdatedAt is used; ties keep the earlier option so the result is stable
// for a given input order.
func PickTenant(opts []TenantOption, preferredOrgID string) (TenantOption, bool) {
	if len(opts) == 0 {
		return TenantOption{}, false
	}
	if preferredOrgID != "" {
		for _, o := range opts {
			if o.OrgID == preferredOrgID {
				return o, true
			}
		}
	}
	best := opts[0]
	for _, o := range opts[1:] {
		if o.UpdatedAt.After(best.UpdatedAt) {
			best = o
		}
	}
	return best, true
}

// Augment copies the chosen tenant onto u. With no options, org fields are
// cleared so callers see "no tenant yet".
func Augment(u *SessionUser, opts []TenantOption, preferredOrgID string) {
	t, ok := PickTenant(opts, preferredOrgID)
	if !ok {
		u.OrgID, u.OrgSlug, u.OrgName, u.OrgRole = "", "", "", ""
		return
	}
	u.OrgID = t.OrgID
	u.OrgSlug = t.OrgSlug
	u.OrgName = t.OrgName
	u.OrgRole = t.Role
}
