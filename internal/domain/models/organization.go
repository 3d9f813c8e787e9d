// internal/domain/models/organization.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Organization is the tenant boundary. Slug is the URL key and is unique
// across live and soft-deleted organizations.
type Organization struct {
	ID       primitive.ObjectID `bson:"_id"`
	Slug     string             `bson:"slug"`
	Name     string             `bson:"name"`
	NameCI   string             `bson:"name_ci"`
	Settings map[string]string  `bson:"settings,omitempty"` // branding key-value

	DeletedAt *time.Time `bson:"deleted_at,omitempty"`
	CreatedAt time.Time  `bson:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at"`
}

// Branding setting keys accepted by the settings page.
const (
	SettingDisplayName  = "display_name"
	SettingPrimaryColor = "primary_color"
	SettingLogoURL      = "logo_url"
	SettingFooterText   = "footer_text"
)

// BrandingKeys lists the editable branding keys in display order.
var BrandingKeys = []string{SettingDisplayName, SettingPrimaryColor, SettingLogoURL, SettingFooterText}

// IsDeleted reports whether the organization has been soft-deleted.
func (o Organization) IsDeleted() bool {
	return o.DeletedAt != nil
}

// DisplayName returns the branding display name, falling back to Name.
func (o Organization) DisplayName() string {
	if v := o.Settings[SettingDisplayName]; v != "" {
		return v
	}
	return o.Name
}

// DefaultSiteName is shown when no organization context exists.
const DefaultSiteName = "StrataGRC"
