package actions

import (
	"context"
	"errors"

	organizationstore "github.com/dalemusser/stratagrc/internal/app/store/organizations"
	"github.com/dalemusser/stratagrc/internal/app/system/auditlog"
	"github.com/dalemusser/stratagrc/internal/app/system/slug"
	"github.com/dalemusser/stratagrc/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrganizationInput is the admin create organization form. A blank Slug is
// derived from Name. OwnerEmail, when set, must name an existing user who
// becomes the first owner.
type OrganizationInput struct {
	Name       string `validate:"required,max=200" label:"Name"`
	Slug       string `validate:"max=48" label:"Slug"`
	OwnerEmail string `validate:"omitempty,email" label:"Owner email"`
}

// CreateOrganization creates a tenant.
func (a *Actions) CreateOrganization(ctx context.Context, actorID primitive.ObjectID, in OrganizationInput) (Result, error) {
	const action = "org.create"

	trimAll(&in.Name, &in.Slug, &in.OwnerEmail)
	if res, ok := a.validate(action, in); !ok {
		return res, nil
	}
	if in.Slug == "" {
		in.Slug = slug.Derive(in.Name)
	}
	switch err := slug.Validate(in.Slug); {
	case errors.Is(err, slug.ErrReserved):
		return a.invalid(action, "The slug \""+in.Slug+"\" is reserved; choose another.")
	case err != nil:
		return a.invalid(action, "Slug may contain lowercase letters, digits and single dashes.")
	}

	var owner *models.User
	if in.OwnerEmail != "" {
		u, err := a.Users.GetByEmail(ctx, in.OwnerEmail)
		if isNotFound(err) {
			return a.invalid(action, "No user has the email "+in.OwnerEmail+".")
		}
		if err != nil {
			return a.fail(action, err)
		}
		owner = &u
	}

	org, err := a.Organizations.Create(ctx, models.Organization{Slug: in.Slug, Name: in.Name})
	if errors.Is(err, organizationstore.ErrDuplicateSlug) {
		return a.invalid(action, "An organization with the slug \""+in.Slug+"\" already exists.")
	}
	if err != nil {
		return a.fail(action, err)
	}
	details := map[string]string{"slug": org.Slug, "name": org.Name}
	if owner != nil {
		if _, err := a.Memberships.Upsert(ctx, owner.ID, org.ID, models.RoleOwner); err != nil {
			return a.fail(action, err)
		}
		details["owner"] = owner.Email
	}
	return a.admin(ctx, action, actorID, org.ID, details)
}

// SoftDeleteOrganization hides an organization. Its slug stays reserved
// and its data is kept for restore.
func (a *Actions) SoftDeleteOrganization(ctx context.Context, actorID primitive.ObjectID, orgID string) (Result, error) {
	const action = "org.delete"

	id, ok := parseID(orgID)
	if !ok {
		return a.invalid(action, "Choose an organization.")
	}
	if err := a.Organizations.SoftDelete(ctx, id); err != nil {
		if isNotFound(err) {
			return a.invalid(action, "That organization is already deleted.")
		}
		return a.fail(action, err)
	}
	return a.admin(ctx, action, actorID, id, nil)
}

// RestoreOrganization undoes SoftDeleteOrganization.
func (a *Actions) RestoreOrganization(ctx context.Context, actorID primitive.ObjectID, orgID string) (Result, error) {
	const action = "org.restore"

	id, ok := parseID(orgID)
	if !ok {
		return a.invalid(action, "Choose an organization.")
	}
	if err := a.Organizations.Restore(ctx, id); err != nil {
		if isNotFound(err) {
			return a.invalid(action, "That organization is not deleted.")
		}
		return a.fail(action, err)
	}
	return a.admin(ctx, action, actorID, id, nil)
}

// MembershipInput is the admin add member form.
type MembershipInput struct {
	OrgID string `validate:"required,objectid" label:"Organization"`
	Email string `validate:"required,email" label:"Email"`
	Role  string `validate:"required,tenantrole" label:"Role"`
}

// AddMembership grants an existing user a role in an organization,
// reactivating a previous membership if there is one.
func (a *Actions) AddMembership(ctx context.Context, actorID primitive.ObjectID, in MembershipInput) (Result, error) {
	const action = "org.add_member"

	trimAll(&in.OrgID, &in.Email, &in.Role)
	if res, ok := a.validate(action, in); !ok {
		return res, nil
	}
	orgID, _ := parseID(in.OrgID)
	org, err := a.Organizations.GetByID(ctx, orgID)
	if isNotFound(err) || (err == nil && org.IsDeleted()) {
		return a.invalid(action, "That organization does not exist.")
	}
	if err != nil {
		return a.fail(action, err)
	}
	u, err := a.Users.GetByEmail(ctx, in.Email)
	if isNotFound(err) {
		return a.invalid(action, "No user has the email "+in.Email+".")
	}
	if err != nil {
		return a.fail(action, err)
	}

	if _, err := a.Memberships.Upsert(ctx, u.ID, org.ID, in.Role); err != nil {
		return a.fail(action, err)
	}
	return a.admin(ctx, action, actorID, org.ID, map[string]string{"user": u.Email, "role": in.Role})
}

// BrandingInput is the organization settings form.
type BrandingInput struct {
	DisplayName  string `validate:"max=100" label:"Display name"`
	PrimaryColor string `validate:"omitempty,hexcolor" label:"Primary color"`
	LogoURL      string `validate:"omitempty,httpurl,max=2000" label:"Logo URL"`
	FooterText   string `validate:"max=500" label:"Footer text"`
}

// UpdateBranding replaces the organization's branding settings. Blank
// fields are removed.
func (a *Actions) UpdateBranding(ctx context.Context, actor Actor, in BrandingInput) (Result, error) {
	const action = "org.branding"

	trimAll(&in.DisplayName, &in.PrimaryColor, &in.LogoURL, &in.FooterText)
	if res, ok := a.validate(action, in); !ok {
		return res, nil
	}

	before, err := a.Organizations.GetByID(ctx, actor.OrgID)
	if isNotFound(err) {
		return a.invalid(action, "That organization does not exist.")
	}
	if err != nil {
		return a.fail(action, err)
	}

	settings := map[string]string{}
	for k, v := range map[string]string{
		models.SettingDisplayName:  in.DisplayName,
		models.SettingPrimaryColor: in.PrimaryColor,
		models.SettingLogoURL:      in.LogoURL,
		models.SettingFooterText:   in.FooterText,
	} {
		if v != "" {
			settings[k] = v
		}
	}
	if err := a.Organizations.UpdateSettings(ctx, actor.OrgID, settings); err != nil {
		if isNotFound(err) {
			return a.invalid(action, "That organization does not exist.")
		}
		return a.fail(action, err)
	}

	after := before
	after.Settings = settings
	return a.done(ctx, action, actor, "organization", actor.OrgID, auditlog.Diff(before, after))
}

// admin records an admin event for an organization-level change and
// invalidates that organization's cached views.
func (a *Actions) admin(ctx context.Context, action string, actorID, orgID primitive.ObjectID, details map[string]string) (Result, error) {
	a.m.Mutation(action, "ok")
	if a.audit != nil {
		actor := Actor{UserID: actorID}
		a.audit.Admin(ctx, action, actor.userPtr(), &orgID, details)
	}
	a.invalidate(orgID)
	return Result{ID: orgID.Hex()}, nil
}
