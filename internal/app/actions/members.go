package actions

import (
	"context"
	"errors"

	userstore "github.com/dalemusser/stratagrc/internal/app/store/users"
	"github.com/dalemusser/stratagrc/internal/app/system/invitetoken"
	"github.com/dalemusser/stratagrc/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InviteInput is the invite member form.
type InviteInput struct {
	Email string `validate:"required,email,max=254" label:"Email"`
	Role  string `validate:"required,tenantrole" label:"Role"`
}

// InviteMember creates a pending invitation and returns its signed token
// in Result.Token. Delivering the link is up to the caller.
func (a *Actions) InviteMember(ctx context.Context, actor Actor, in InviteInput) (Result, error) {
	const action = "member.invite"

	trimAll(&in.Email, &in.Role)
	if res, ok := a.validate(action, in); !ok {
		return res, nil
	}
	if a.tokens == nil {
		return a.fail(action, errors.New("invitation tokens are not configured"))
	}

	u, err := a.Users.GetByEmail(ctx, in.Email)
	switch {
	case err == nil:
		if _, err := a.Memberships.GetActive(ctx, u.ID, actor.OrgID); err == nil {
			return a.invalid(action, in.Email+" is already a member.")
		} else if !isNotFound(err) {
			return a.fail(action, err)
		}
	case !isNotFound(err):
		return a.fail(action, err)
	}

	inv, err := a.Invitations.Create(ctx, models.Invitation{
		OrganizationID: actor.OrgID,
		Email:          in.Email,
		EmailCI:        userstore.NormalizeEmail(in.Email),
		Role:           in.Role,
		InvitedBy:      actor.UserID,
		ExpiresAt:      a.now().UTC().Add(a.tokens.TTL()),
	})
	if err != nil {
		return a.fail(action, err)
	}
	token, _, err := a.tokens.Issue(inv.ID.Hex(), actor.OrgID.Hex(), inv.EmailCI, inv.Role)
	if err != nil {
		return a.fail(action, err)
	}

	res, err := a.done(ctx, action, actor, "invitation", inv.ID, map[string]string{
		"email": " → " + inv.Email,
		"role":  " → " + inv.Role,
	})
	res.Token = token
	return res, err
}

// RevokeInvitation withdraws a pending invitation.
func (a *Actions) RevokeInvitation(ctx context.Context, actor Actor, invitationID string) (Result, error) {
	const action = "member.invite_revoke"

	id, ok := parseID(invitationID)
	if !ok {
		return a.invalid(action, "Choose an invitation.")
	}
	if err := a.Invitations.Revoke(ctx, actor.OrgID, id); err != nil {
		if isNotFound(err) {
			return a.invalid(action, "That invitation is no longer pending.")
		}
		return a.fail(action, err)
	}
	return a.done(ctx, action, actor, "invitation", id, map[string]string{
		"status": models.InvitePending + " → " + models.InviteRevoked,
	})
}

// AcceptInvitation turns a valid token into an active membership for
// userID, creating it or reactivating a previous one. Result.ID is the
// organization's id.
func (a *Actions) AcceptInvitation(ctx context.Context, userID primitive.ObjectID, token string) (Result, error) {
	const action = "member.accept"

	if a.tokens == nil {
		return a.fail(action, errors.New("invitation tokens are not configured"))
	}
	claims, err := a.tokens.Parse(token)
	switch {
	case errors.Is(err, invitetoken.ErrExpired):
		return a.invalid(action, "This invitation has expired. Ask for a new one.")
	case err != nil:
		return a.invalid(action, "This invitation link is not valid.")
	}
	invID, ok := parseID(claims.Invitation)
	if !ok {
		return a.invalid(action, "This invitation link is not valid.")
	}

	inv, err := a.Invitations.GetByID(ctx, invID)
	if isNotFound(err) {
		return a.invalid(action, "This invitation link is not valid.")
	}
	if err != nil {
		return a.fail(action, err)
	}
	if inv.OrganizationID.Hex() != claims.Org {
		return a.invalid(action, "This invitation link is not valid.")
	}
	if inv.Status != models.InvitePending {
		return a.invalid(action, "This invitation has already been used or withdrawn.")
	}

	u, err := a.Users.GetByID(ctx, userID)
	if err != nil {
		return a.fail(action, err)
	}
	if userstore.NormalizeEmail(u.Email) != inv.EmailCI {
		return a.invalid(action, "This invitation was sent to a different email address.")
	}

	org, err := a.Organizations.GetByID(ctx, inv.OrganizationID)
	if isNotFound(err) || (err == nil && org.IsDeleted()) {
		return a.invalid(action, "The organization for this invitation no longer exists.")
	}
	if err != nil {
		return a.fail(action, err)
	}

	now := a.now().UTC()
	if !inv.ExpiresAt.After(now) {
		return a.invalid(action, "This invitation has expired. Ask for a new one.")
	}

	// The invitation stays pending until the membership exists.
	m, err := a.Memberships.Upsert(ctx, userID, org.ID, inv.Role)
	if err != nil {
		return a.fail(action, err)
	}
	if err := a.Invitations.MarkAccepted(ctx, inv.ID, now); err != nil && !isNotFound(err) {
		return a.fail(action, err)
	}

	actor := Actor{UserID: userID, OrgID: org.ID}
	if _, err := a.done(ctx, action, actor, "membership", m.ID, map[string]string{
		"role":   " → " + m.Role,
		"active": " → true",
	}); err != nil {
		return Result{}, err
	}
	return Result{ID: org.ID.Hex()}, nil
}

// ChangeRole sets a member's role. Only owners grant or remove the owner
// role, and the last owner cannot be demoted.
func (a *Actions) ChangeRole(ctx context.Context, actor Actor, userID, role string) (Result, error) {
	const action = "member.role"

	trimAll(&userID, &role)
	uid, ok := parseID(userID)
	if !ok {
		return a.invalid(action, "Choose a member.")
	}
	if !models.ValidTenantRole(role) {
		return a.invalid(action, "Role must be owner, admin, member or auditor.")
	}

	m, err := a.Memberships.GetActive(ctx, uid, actor.OrgID)
	if isNotFound(err) {
		return a.invalid(action, "That person is not an active member.")
	}
	if err != nil {
		return a.fail(action, err)
	}
	if m.Role == role {
		return a.invalid(action, "The member already has that role.")
	}
	if (role == models.RoleOwner || m.Role == models.RoleOwner) && actor.Role != models.RoleOwner {
		return a.invalid(action, "Only an owner can grant or remove the owner role.")
	}
	if m.Role == models.RoleOwner {
		if res, ok, err := a.keepAnOwner(ctx, action, actor.OrgID); !ok {
			return res, err
		}
	}

	if err := a.Memberships.ChangeRole(ctx, uid, actor.OrgID, role); err != nil {
		if isNotFound(err) {
			return a.invalid(action, "That person is not an active member.")
		}
		return a.fail(action, err)
	}
	return a.done(ctx, action, actor, "membership", m.ID, map[string]string{"role": m.Role + " → " + role})
}

// DeactivateMember removes a member from the organization. The membership
// row is kept inactive; the last owner cannot be removed.
func (a *Actions) DeactivateMember(ctx context.Context, actor Actor, userID string) (Result, error) {
	const action = "member.deactivate"

	uid, ok := parseID(userID)
	if !ok {
		return a.invalid(action, "Choose a member.")
	}
	m, err := a.Memberships.GetActive(ctx, uid, actor.OrgID)
	if isNotFound(err) {
		return a.invalid(action, "That person is not an active member.")
	}
	if err != nil {
		return a.fail(action, err)
	}
	if m.Role == models.RoleOwner {
		if res, ok, err := a.keepAnOwner(ctx, action, actor.OrgID); !ok {
			return res, err
		}
	}

	if err := a.Memberships.Deactivate(ctx, uid, actor.OrgID); err != nil {
		if isNotFound(err) {
			return a.invalid(action, "That person is not an active member.")
		}
		return a.fail(action, err)
	}
	return a.done(ctx, action, actor, "membership", m.ID, map[string]string{"active": "true → false"})
}

// keepAnOwner refuses when orgID has a single active owner.
func (a *Actions) keepAnOwner(ctx context.Context, action string, orgID primitive.ObjectID) (Result, bool, error) {
	owners, err := a.Memberships.CountActive(ctx, orgID, models.RoleOwner)
	if err != nil {
		res, err := a.fail(action, err)
		return res, false, err
	}
	if owners <= 1 {
		res, _ := a.invalid(action, "An organization needs at least one owner.")
		return res, false, nil
	}
	return Result{}, true, nil
}
