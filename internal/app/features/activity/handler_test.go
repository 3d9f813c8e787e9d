package activity_test

import (
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/stratagrc/internal/app/features/activity"
	uierrors "github.com/dalemusser/stratagrc/internal/app/features/errors"
	"github.com/dalemusser/stratagrc/internal/app/store/audit"
	"github.com/dalemusser/stratagrc/internal/domain/models"
	"github.com/dalemusser/stratagrc/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestServeCSV(t *testing.T) {
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	h := activity.NewHandler(db, uierrors.NewErrorLogger(logger), logger)
	fx := testutil.NewFixtures(t, db)

	ctx, cancel := testutil.TestContext()
	defer cancel()
	org := fx.CreateOrganization(ctx, "acme", "Acme")
	other := fx.CreateOrganization(ctx, "globex", "Globex")
	u := fx.CreateUser(ctx, "Aud Itor", "audit@example.com")

	store := audit.New(db)
	entity := primitive.NewObjectID()
	base := time.Now().UTC().Add(-time.Hour)
	events := []audit.Event{
		{Timestamp: base, OrganizationID: &org.ID, Category: audit.CategoryData, EventType: "risk.create",
			ActorID: &u.ID, EntityType: "risk", EntityID: &entity, Success: true, Diff: map[string]string{"title": " → Flood"}},
		{Timestamp: base.Add(time.Minute), OrganizationID: &org.ID, Category: audit.CategoryAdmin, EventType: "org.branding", Success: true},
		{Timestamp: base, OrganizationID: &other.ID, Category: audit.CategoryData, EventType: "risk.create", Success: true},
	}
	for _, ev := range events {
		if err := store.Log(ctx, ev); err != nil {
			t.Fatalf("log event: %v", err)
		}
	}

	get := func(target string) [][]string {
		t.Helper()
		rec := testutil.NewRecorder()
		req := testutil.NewAuthenticatedRequest("GET", target, testutil.MemberOf(org, models.RoleAuditor))
		req = testutil.WithTenant(req, org, u.ID, models.RoleAuditor)
		h.ServeCSV(rec, req)
		rec.AssertStatus(t, 200)
		recs, err := csv.NewReader(strings.NewReader(rec.Body.String())).ReadAll()
		if err != nil {
			t.Fatalf("parse csv: %v", err)
		}
		return recs
	}

	all := get("/org/acme/activity/export.csv")
	if len(all) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(all))
	}
	if all[1][2] != "org.branding" || all[1][1] != "system" {
		t.Errorf("newest row = %v", all[1])
	}
	if all[2][1] != "Aud Itor" || all[2][5] != "title:  → Flood" {
		t.Errorf("data row = %v", all[2])
	}

	data := get("/org/acme/activity/export.csv?category=data")
	if len(data) != 2 || data[1][2] != "risk.create" {
		t.Errorf("filtered rows = %v", data)
	}
}
