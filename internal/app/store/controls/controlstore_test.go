package controlstore_test

import (
	"testing"
	"time"

	controlstore "github.com/dalemusser/stratagrc/internal/app/store/controls"
	"github.com/dalemusser/stratagrc/internal/app/system/indexes"
	"github.com/dalemusser/stratagrc/internal/domain/models"
	"github.com/dalemusser/stratagrc/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func implRows(orgID primitive.ObjectID, controls []models.FrameworkControl) []models.ControlImplementation {
	now := time.Now().UTC()
	rows := make([]models.ControlImplementation, len(controls))
	for i, c := range controls {
		rows[i] = models.ControlImplementation{
			ID:             primitive.NewObjectID(),
			OrganizationID: orgID,
			FrameworkID:    c.FrameworkID,
			ControlID:      c.ID,
			Status:         c.DefaultStatus,
			Effectiveness:  models.EffectivenessUnassessed,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
	}
	return rows
}

func TestInsertMissing_IgnoresDuplicates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	fx := testutil.NewFixtures(t, db)
	store := controlstore.New(db)

	org := fx.CreateOrganization(ctx, "acme", "Acme")
	fw, controls, _ := fx.CreateFramework(ctx, "ISO27001", 4, 0)

	n, err := store.InsertMissing(ctx, implRows(org.ID, controls[:2]))
	if err != nil {
		t.Fatalf("first InsertMissing: %v", err)
	}
	if n != 2 {
		t.Fatalf("first insert: got %d, want 2", n)
	}

	// Overlaps the first batch on two controls; fresh _ids so only the
	// unique (org, framework, control) key rejects them.
	n, err = store.InsertMissing(ctx, implRows(org.ID, controls))
	if err != nil {
		t.Fatalf("second InsertMissing: %v", err)
	}
	if n != 2 {
		t.Errorf("second insert: got %d, want 2", n)
	}

	total, err := store.Count(ctx, org.ID, fw.ID)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if total != 4 {
		t.Errorf("total rows: got %d, want 4", total)
	}

	existing, err := store.ExistingControlIDs(ctx, org.ID, fw.ID)
	if err != nil {
		t.Fatalf("ExistingControlIDs: %v", err)
	}
	for _, c := range controls {
		if !existing[c.ID] {
			t.Errorf("control %s missing from existing set", c.Code)
		}
	}
}

func TestUpdate_ScopedToOrg(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	store := controlstore.New(db)

	acme := fx.CreateOrganization(ctx, "acme", "Acme")
	globex := fx.CreateOrganization(ctx, "globex", "Globex")
	_, controls, _ := fx.CreateFramework(ctx, "SOC2", 1, 0)
	rows := implRows(acme.ID, controls)
	if _, err := store.InsertMissing(ctx, rows); err != nil {
		t.Fatalf("InsertMissing: %v", err)
	}

	upd := controlstore.Update{Status: models.ControlImplemented, Effectiveness: models.EffectivenessEffective, Notes: "done"}
	if err := store.Update(ctx, globex.ID, rows[0].ID, upd); err != controlstore.ErrNotFound {
		t.Fatalf("cross-org update: got %v, want ErrNotFound", err)
	}
	if err := store.Update(ctx, acme.ID, rows[0].ID, upd); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err := store.Get(ctx, acme.ID, rows[0].ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != models.ControlImplemented || got.Notes != "done" {
		t.Errorf("update not applied: %+v", got)
	}
}
