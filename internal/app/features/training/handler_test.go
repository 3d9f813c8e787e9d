package training_test

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	uierrors "github.com/dalemusser/stratagrc/internal/app/features/errors"
	"github.com/dalemusser/stratagrc/internal/app/features/training"
	"github.com/dalemusser/stratagrc/internal/domain/models"
	"github.com/dalemusser/stratagrc/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func TestTrainingCompletion(t *testing.T) {
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	h := training.NewHandler(db, testutil.NewActions(t, db), uierrors.NewErrorLogger(logger), logger)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org := fx.CreateOrganization(ctx, "acme", "Acme")
	mu := fx.CreateUser(ctx, "Mel Member", "mel@example.com")
	ou := fx.CreateUser(ctx, "Oli Other", "oli@example.com")
	fx.CreateMembership(ctx, mu.ID, org.ID, models.RoleMember, time.Time{})
	fx.CreateMembership(ctx, ou.ID, org.ID, models.RoleMember, time.Time{})
	member := testutil.MemberOf(org, models.RoleMember)
	member.ID = mu.ID.Hex()

	do := func(target, id string, form url.Values, fn http.HandlerFunc) *testutil.ResponseRecorder {
		req := testutil.WithTenant(testutil.NewFormRequest(target, form, member), org, member.ObjectID(), member.OrgRole)
		if id != "" {
			req = testutil.WithChiURLParam(req, "id", id)
		}
		rec := testutil.NewRecorder()
		testutil.Serve(rec, req, fn)
		return rec
	}

	rec := do("/org/acme/training", "", url.Values{"title": {"Security awareness"}, "mandatory": {"on"}, "frequency_days": {"365"}}, h.HandleCreate)
	rec.AssertRedirect(t, "/org/acme/training?notice=created")

	var p models.TrainingProgram
	if err := db.Collection("training_programs").FindOne(ctx, bson.M{"org_id": org.ID}).Decode(&p); err != nil {
		t.Fatalf("find program: %v", err)
	}
	if !p.Mandatory || p.FrequencyDays != 365 {
		t.Errorf("stored program = %+v", p)
	}
	id := p.ID.Hex()

	rec = do("/org/acme/training/"+id+"/complete", id, url.Values{}, h.HandleComplete)
	rec.AssertRedirect(t, "/org/acme/training?notice=completed")

	rec = do("/org/acme/training/"+id+"/complete", id, url.Values{"user_id": {ou.ID.Hex()}}, h.HandleComplete)
	rec.AssertStatus(t, http.StatusForbidden)

	if n := fx.Count(ctx, "training_completions", bson.M{"program_id": p.ID}); n != 1 {
		t.Errorf("completions = %d, want 1", n)
	}
	if n := fx.Count(ctx, "training_completions", bson.M{"user_id": mu.ID}); n != 1 {
		t.Errorf("own completions = %d, want 1", n)
	}
}
