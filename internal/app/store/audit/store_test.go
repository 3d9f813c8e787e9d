package audit_test

import (
	"testing"
	"time"

	"github.com/dalemusser/stratagrc/internal/app/store/audit"
	"github.com/dalemusser/stratagrc/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_LogAndQuery(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	orgA := primitive.NewObjectID()
	orgB := primitive.NewObjectID()
	actor := primitive.NewObjectID()

	events := []audit.Event{
		{OrganizationID: &orgA, Category: audit.CategoryData, EventType: audit.EventCreated, ActorID: &actor, EntityType: "risk", Success: true,
			Diff: map[string]string{"title": " → Vendor outage"}},
		{OrganizationID: &orgA, Category: audit.CategoryAdmin, EventType: audit.EventMemberInvited, ActorID: &actor, Success: true},
		{OrganizationID: &orgB, Category: audit.CategoryData, EventType: audit.EventDeleted, Success: true},
	}
	for _, e := range events {
		if err := store.Log(ctx, e); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	got, err := store.Query(ctx, audit.QueryFilter{OrganizationID: &orgA})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events for org A, got %d", len(got))
	}
	for _, e := range got {
		if e.ID.IsZero() {
			t.Error("expected ID to be generated")
		}
		if e.Timestamp.IsZero() {
			t.Error("expected timestamp to be set")
		}
	}

	n, err := store.Count(ctx, audit.QueryFilter{OrganizationID: &orgA, Category: audit.CategoryData})
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 1 {
		t.Errorf("data events for org A = %d, want 1", n)
	}

	data, err := store.Query(ctx, audit.QueryFilter{OrganizationID: &orgA, Category: audit.CategoryData})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(data) != 1 || data[0].Diff["title"] != " → Vendor outage" {
		t.Errorf("diff not stored: %+v", data)
	}
}

func TestStore_Query_TimeRangeAndPaging(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org := primitive.NewObjectID()
	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Millisecond)
	for i := 0; i < 5; i++ {
		err := store.Log(ctx, audit.Event{
			OrganizationID: &org,
			Timestamp:      base.Add(time.Duration(i) * time.Minute),
			Category:       audit.CategoryAuth,
			EventType:      audit.EventLoginSuccess,
			Success:        true,
		})
		if err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	start := base.Add(2 * time.Minute)
	got, err := store.Query(ctx, audit.QueryFilter{OrganizationID: &org, StartTime: &start})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 events since start, got %d", len(got))
	}
	if !got[0].Timestamp.After(got[2].Timestamp) {
		t.Error("expected newest first")
	}

	page, err := store.Query(ctx, audit.QueryFilter{OrganizationID: &org, Limit: 2, Offset: 4})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(page) != 1 {
		t.Errorf("expected 1 event on last page, got %d", len(page))
	}
}
