package controlqueries_test

import (
	"testing"

	"github.com/dalemusser/stratagrc/internal/app/store/queries/controlqueries"
	"github.com/dalemusser/stratagrc/internal/domain/models"
	"github.com/dalemusser/stratagrc/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestForFramework_OrderedBySortKey(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	org := fx.CreateOrganization(ctx, "acme", "Acme")
	fw, controls, _ := fx.CreateFramework(ctx, "ISO27001", 3, 0)

	// Insert in reverse order; the query must sort by template sort key.
	for i := len(controls) - 1; i >= 0; i-- {
		_, err := db.Collection("control_implementations").InsertOne(ctx, bson.M{
			"_id":          primitive.NewObjectID(),
			"org_id":       org.ID,
			"framework_id": fw.ID,
			"control_id":   controls[i].ID,
			"status":       models.ControlNotStarted,
		})
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	rows, err := controlqueries.ForFramework(ctx, db, org.ID, fw.ID)
	if err != nil {
		t.Fatalf("ForFramework: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	for i, r := range rows {
		if r.Code != controls[i].Code || r.Title != controls[i].Title {
			t.Errorf("row %d: got %s %q, want %s %q", i, r.Code, r.Title, controls[i].Code, controls[i].Title)
		}
	}

	other, err := controlqueries.ForFramework(ctx, db, primitive.NewObjectID(), fw.ID)
	if err != nil {
		t.Fatalf("ForFramework other org: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("other org should see no rows, got %d", len(other))
	}

	ids := []primitive.ObjectID{rows[0].ID, primitive.NewObjectID()}
	labels, err := controlqueries.Labels(ctx, db, org.ID, ids)
	if err != nil {
		t.Fatalf("Labels: %v", err)
	}
	if len(labels) != 1 || labels[rows[0].ID] != rows[0].Code+" "+rows[0].Title {
		t.Errorf("Labels = %v", labels)
	}
	foreign, err := controlqueries.Labels(ctx, db, primitive.NewObjectID(), ids)
	if err != nil {
		t.Fatalf("Labels other org: %v", err)
	}
	if len(foreign) != 0 {
		t.Errorf("other org labels = %v, want none", foreign)
	}
}

func TestGroupByDomain(t *testing.T) {
	rows := []controlqueries.Row{
		{Code: "A.5.1", Domain: "Organizational"},
		{Code: "A.5.2", Domain: "Organizational"},
		{Code: "A.6.1", Domain: "People"},
		{Code: "A.8.1", Domain: "Technological"},
		{Code: "A.8.2", Domain: "Technological"},
	}
	groups := controlqueries.GroupByDomain(rows)
	if len(groups) != 3 {
		t.Fatalf("got %d groups, want 3", len(groups))
	}
	if groups[0].Domain != "Organizational" || len(groups[0].Rows) != 2 {
		t.Errorf("first group: %+v", groups[0])
	}
	if groups[2].Domain != "Technological" || len(groups[2].Rows) != 2 {
		t.Errorf("last group: %+v", groups[2])
	}
	if controlqueries.GroupByDomain(nil) != nil {
		t.Error("nil rows should give nil groups")
	}
}
