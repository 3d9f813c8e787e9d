package organizationstore_test

import (
	"errors"
	"testing"

	organizationstore "github.com/dalemusser/stratagrc/internal/app/store/organizations"
	"github.com/dalemusser/stratagrc/internal/app/system/indexes"
	"github.com/dalemusser/stratagrc/internal/domain/models"
	"github.com/dalemusser/stratagrc/internal/testutil"
)

func TestCreate_DuplicateSlug(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	store := organizationstore.New(db)

	if _, err := store.Create(ctx, models.Organization{Slug: "acme", Name: "Acme"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err := store.Create(ctx, models.Organization{Slug: "acme", Name: "Acme Two"})
	if !errors.Is(err, organizationstore.ErrDuplicateSlug) {
		t.Fatalf("got %v, want ErrDuplicateSlug", err)
	}
}

func TestSoftDeleteAndRestore(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := organizationstore.New(db)

	org, err := store.Create(ctx, models.Organization{Slug: "acme", Name: "Acme"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.GetLiveBySlug(ctx, "acme"); err != nil {
		t.Fatalf("GetLiveBySlug before delete: %v", err)
	}

	if err := store.SoftDelete(ctx, org.ID); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	if _, err := store.GetLiveBySlug(ctx, "acme"); !errors.Is(err, organizationstore.ErrNotFound) {
		t.Errorf("GetLiveBySlug after delete: got %v, want ErrNotFound", err)
	}
	got, err := store.GetBySlug(ctx, "acme")
	if err != nil {
		t.Fatalf("GetBySlug: %v", err)
	}
	if !got.IsDeleted() {
		t.Error("expected deleted_at to be set")
	}
	if err := store.SoftDelete(ctx, org.ID); !errors.Is(err, organizationstore.ErrNotFound) {
		t.Errorf("second SoftDelete: got %v, want ErrNotFound", err)
	}
	if err := store.UpdateSettings(ctx, org.ID, map[string]string{"display_name": "X"}); !errors.Is(err, organizationstore.ErrNotFound) {
		t.Errorf("UpdateSettings on deleted org: got %v, want ErrNotFound", err)
	}

	live, err := store.List(ctx, false)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(live) != 0 {
		t.Errorf("live list should be empty, got %d", len(live))
	}
	all, err := store.List(ctx, true)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("full list: got %d, want 1", len(all))
	}

	if err := store.Restore(ctx, org.ID); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if _, err := store.GetLiveBySlug(ctx, "acme"); err != nil {
		t.Errorf("GetLiveBySlug after restore: %v", err)
	}
}

func TestUpdateSettings(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := organizationstore.New(db)

	org, err := store.Create(ctx, models.Organization{Slug: "acme", Name: "Acme"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	settings := map[string]string{
		models.SettingDisplayName:  "Acme Compliance",
		models.SettingPrimaryColor: "#004488",
	}
	if err := store.UpdateSettings(ctx, org.ID, settings); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	got, err := store.GetByID(ctx, org.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.DisplayName() != "Acme Compliance" {
		t.Errorf("DisplayName: got %q", got.DisplayName())
	}
	if got.Settings[models.SettingPrimaryColor] != "#004488" {
		t.Errorf("primary color: got %q", got.Settings[models.SettingPrimaryColor])
	}
}
