package testutil

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/stratagrc/internal/app/system/authutil"
	"github.com/dalemusser/stratagrc/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context, keeping
// any parameters already present.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, _ := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data directly in the
// database, bypassing store validation.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

func (f *Fixtures) insert(ctx context.Context, coll string, doc interface{}) {
	f.t.Helper()
	if _, err := f.db.Collection(coll).InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("fixture insert into %s failed: %v", coll, err)
	}
}

// CreateOrganization creates a live organization.
func (f *Fixtures) CreateOrganization(ctx context.Context, slug, name string) models.Organization {
	f.t.Helper()
	now := time.Now().UTC()
	org := models.Organization{
		ID:        primitive.NewObjectID(),
		Slug:      slug,
		Name:      name,
		NameCI:    text.Fold(name),
		Settings:  map[string]string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "organizations", org)
	return org
}

// SoftDeleteOrganization stamps deleted_at on org.
func (f *Fixtures) SoftDeleteOrganization(ctx context.Context, orgID primitive.ObjectID) {
	f.t.Helper()
	_, err := f.db.Collection("organizations").UpdateByID(ctx, orgID,
		bson.M{"$set": bson.M{"deleted_at": time.Now().UTC()}})
	if err != nil {
		f.t.Fatalf("soft delete org failed: %v", err)
	}
}

// CreateUser creates an active password user.
func (f *Fixtures) CreateUser(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()
	now := time.Now().UTC()
	u := models.User{
		ID:         primitive.NewObjectID(),
		FullName:   fullName,
		FullNameCI: text.Fold(fullName),
		Email:      email,
		EmailCI:    strings.ToLower(email),
		AuthMethod: models.AuthMethodPassword,
		Status:     models.UserActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	f.insert(ctx, "users", u)
	return u
}

// CreateSuperAdmin creates an active super-admin.
func (f *Fixtures) CreateSuperAdmin(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()
	u := f.CreateUser(ctx, fullName, email)
	_, err := f.db.Collection("users").UpdateByID(ctx, u.ID, bson.M{"$set": bson.M{"is_super_admin": true}})
	if err != nil {
		f.t.Fatalf("promote super admin failed: %v", err)
	}
	u.IsSuperAdmin = true
	return u
}

// CreateMembership creates an active membership with updated_at set to
// updatedAt (now when zero).
func (f *Fixtures) CreateMembership(ctx context.Context, userID, orgID primitive.ObjectID, role string, updatedAt time.Time) models.Membership {
	f.t.Helper()
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	m := models.Membership{
		ID:             primitive.NewObjectID(),
		UserID:         userID,
		OrganizationID: orgID,
		Role:           role,
		Active:         true,
		CreatedAt:      updatedAt,
		UpdatedAt:      updatedAt,
	}
	f.insert(ctx, "memberships", m)
	return m
}

// CreateFramework creates a framework with nControls template controls
// (default status not_started) and nTasks task templates.
func (f *Fixtures) CreateFramework(ctx context.Context, code string, nControls, nTasks int) (models.Framework, []models.FrameworkControl, []models.TaskTemplate) {
	f.t.Helper()
	now := time.Now().UTC()
	fw := models.Framework{
		ID:        primitive.NewObjectID(),
		Code:      code,
		Name:      "Framework " + code,
		Version:   "1",
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "frameworks", fw)

	controls := make([]models.FrameworkControl, nControls)
	for i := range controls {
		controls[i] = models.FrameworkControl{
			ID:            primitive.NewObjectID(),
			FrameworkID:   fw.ID,
			Code:          fmt.Sprintf("%s-%d", code, i+1),
			Title:         fmt.Sprintf("Control %d", i+1),
			Domain:        "General",
			DefaultStatus: models.ControlNotStarted,
			SortKey:       i + 1,
		}
		f.insert(ctx, "framework_controls", controls[i])
	}

	templates := make([]models.TaskTemplate, nTasks)
	for i := range templates {
		templates[i] = models.TaskTemplate{
			ID:          primitive.NewObjectID(),
			FrameworkID: fw.ID,
			Key:         fmt.Sprintf("task-%d", i+1),
			Title:       fmt.Sprintf("Certification task %d", i+1),
			Phase:       "prepare",
			DueOffset:   7 * (i + 1),
			SortKey:     i + 1,
		}
		f.insert(ctx, "task_templates", templates[i])
	}
	return fw, controls, templates
}

// Count returns the number of documents in coll matching filter.
func (f *Fixtures) Count(ctx context.Context, coll string, filter bson.M) int64 {
	f.t.Helper()
	n, err := f.db.Collection(coll).CountDocuments(ctx, filter)
	if err != nil {
		f.t.Fatalf("count %s failed: %v", coll, err)
	}
	return n
}

// CreatePasswordUser creates an active user who signs in with password.
func (f *Fixtures) CreatePasswordUser(ctx context.Context, fullName, email, password string) models.User {
	f.t.Helper()
	u := f.CreateUser(ctx, fullName, email)
	hash, err := authutil.HashPassword(password)
	if err != nil {
		f.t.Fatalf("hash password: %v", err)
	}
	if _, err := f.db.Collection("users").UpdateByID(ctx, u.ID, bson.M{"$set": bson.M{"password_hash": hash}}); err != nil {
		f.t.Fatalf("set password failed: %v", err)
	}
	u.PasswordHash = hash
	return u
}
