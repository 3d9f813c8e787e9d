package indexes_test

import (
	"testing"

	"github.com/dalemusser/stratagrc/internal/app/system/indexes"
	"github.com/dalemusser/stratagrc/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func indexNames(t *testing.T, db *mongo.Database, coll string) map[string]bool {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cur, err := db.Collection(coll).Indexes().List(ctx)
	if err != nil {
		t.Fatalf("List indexes on %s failed: %v", coll, err)
	}
	defer cur.Close(ctx)

	names := make(map[string]bool)
	for cur.Next(ctx) {
		var ix bson.M
		if err := cur.Decode(&ix); err != nil {
			continue
		}
		if name, ok := ix["name"].(string); ok {
			names[name] = true
		}
	}
	return names
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("first EnsureAll failed: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesInvariantIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	want := map[string]string{
		"organizations":           "uniq_orgs_slug",
		"memberships":             "uniq_memberships_user_org",
		"control_implementations": "uniq_controlimpl_org_fw_control",
		"soa_entries":             "uniq_soa_assessment_control",
		"tasks":                   "uniq_tasks_org_template",
		"training_completions":    "uniq_trainingcompletions_program_user",
		"oauth_states":            "ttl_oauth_expires",
	}
	for coll, name := range want {
		if !indexNames(t, db, coll)[name] {
			t.Errorf("expected index %q on %s", name, coll)
		}
	}
}

func TestEnsureAll_RenamesMismatchedIndex(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// Same keys, different name and no uniqueness.
	_, err := db.Collection("organizations").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "slug", Value: 1}},
	})
	if err != nil {
		t.Fatalf("seed index failed: %v", err)
	}

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	names := indexNames(t, db, "organizations")
	if !names["uniq_orgs_slug"] {
		t.Error("expected uniq_orgs_slug to replace the default-named index")
	}
	if names["slug_1"] {
		t.Error("expected slug_1 to be dropped")
	}
}

func TestEnsureAll_TaskTemplateIndexIsPartial(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	org := primitive.NewObjectID()
	tasks := db.Collection("tasks")

	// Two ad-hoc tasks (no template) in the same org are fine.
	for i := 0; i < 2; i++ {
		if _, err := tasks.InsertOne(ctx, bson.M{"org_id": org, "title": "ad hoc"}); err != nil {
			t.Fatalf("ad-hoc insert %d failed: %v", i, err)
		}
	}

	// Two tasks from the same template are not.
	tpl := primitive.NewObjectID()
	if _, err := tasks.InsertOne(ctx, bson.M{"org_id": org, "template_id": tpl}); err != nil {
		t.Fatalf("templated insert failed: %v", err)
	}
	_, err := tasks.InsertOne(ctx, bson.M{"org_id": org, "template_id": tpl})
	if !mongo.IsDuplicateKeyError(err) {
		t.Fatalf("expected duplicate key error, got %v", err)
	}
}
