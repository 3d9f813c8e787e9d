package frameworks_test

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	uierrors "github.com/dalemusser/stratagrc/internal/app/features/errors"
	"github.com/dalemusser/stratagrc/internal/app/features/frameworks"
	"github.com/dalemusser/stratagrc/internal/domain/models"
	"github.com/dalemusser/stratagrc/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

type env struct {
	h    *frameworks.Handler
	fx   *testutil.Fixtures
	org  models.Organization
	user testutil.TestUser
}

func newEnv(t *testing.T) env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	h := frameworks.NewHandler(db, testutil.NewActions(t, db), uierrors.NewErrorLogger(logger), logger)
	fx := testutil.NewFixtures(t, db)

	ctx, cancel := testutil.TestContext()
	defer cancel()
	org := fx.CreateOrganization(ctx, "acme", "Acme")
	u := fx.CreateUser(ctx, "Ada Admin", "ada@example.com")
	fx.CreateMembership(ctx, u.ID, org.ID, models.RoleAdmin, time.Time{})
	user := testutil.MemberOf(org, models.RoleAdmin)
	user.ID = u.ID.Hex()

	return env{h: h, fx: fx, org: org, user: user}
}

func (e env) post(target string, form url.Values) *http.Request {
	req := testutil.NewFormRequest(target, form, e.user)
	return testutil.WithTenant(req, e.org, e.user.ObjectID(), e.user.OrgRole)
}

func TestHandleActivate_SeedsControlsAndTasks(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fw, _, _ := e.fx.CreateFramework(ctx, "ISO27001", 3, 2)
	id := fw.ID.Hex()

	rec := testutil.NewRecorder()
	req := testutil.WithChiURLParam(e.post("/org/acme/frameworks/"+id+"/activate", url.Values{}), "id", id)
	testutil.Serve(rec, req, e.h.HandleActivate)
	rec.AssertRedirect(t, "/org/acme/frameworks/"+id+"?notice=activated")

	if n := e.fx.Count(ctx, "control_implementations", bson.M{"org_id": e.org.ID}); n != 3 {
		t.Errorf("control implementations = %d, want 3", n)
	}
	if n := e.fx.Count(ctx, "tasks", bson.M{"org_id": e.org.ID}); n != 2 {
		t.Errorf("tasks = %d, want 2", n)
	}

	// A second activation fills gaps only.
	rec = testutil.NewRecorder()
	req = testutil.WithChiURLParam(e.post("/org/acme/frameworks/"+id+"/activate", url.Values{}), "id", id)
	testutil.Serve(rec, req, e.h.HandleActivate)
	if n := e.fx.Count(ctx, "control_implementations", bson.M{"org_id": e.org.ID}); n != 3 {
		t.Errorf("after re-activation control implementations = %d, want 3", n)
	}
}

func TestHandleActivate_UnknownFramework(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	rec := testutil.NewRecorder()
	req := testutil.WithChiURLParam(e.post("/org/acme/frameworks/x/activate", url.Values{}), "id", "not-an-id")
	testutil.Serve(rec, req, e.h.HandleActivate)

	if rec.Code == http.StatusSeeOther {
		t.Fatalf("unknown framework redirected to %q", rec.Header().Get("Location"))
	}
	if n := e.fx.Count(ctx, "control_implementations", bson.M{}); n != 0 {
		t.Errorf("control implementations = %d, want 0", n)
	}
}

func TestHandleUpdateControl(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fw, _, _ := e.fx.CreateFramework(ctx, "SOC2", 1, 0)
	id := fw.ID.Hex()
	rec := testutil.NewRecorder()
	testutil.Serve(rec, testutil.WithChiURLParam(e.post("/", url.Values{}), "id", id), e.h.HandleActivate)

	var impl models.ControlImplementation
	if err := e.fx.DB().Collection("control_implementations").FindOne(ctx, bson.M{"org_id": e.org.ID}).Decode(&impl); err != nil {
		t.Fatalf("find implementation: %v", err)
	}
	cid := impl.ID.Hex()

	update := func(form url.Values) *testutil.ResponseRecorder {
		rec := testutil.NewRecorder()
		req := e.post("/org/acme/frameworks/"+id+"/controls/"+cid, form)
		req = testutil.WithChiURLParam(req, "id", id)
		req = testutil.WithChiURLParam(req, "control", cid)
		testutil.Serve(rec, req, e.h.HandleUpdateControl)
		return rec
	}

	// not_started cannot carry an effectiveness rating.
	rec = update(url.Values{"status": {models.ControlNotStarted}, "effectiveness": {models.EffectivenessEffective}})
	rec.AssertNotRedirected(t)

	rec = update(url.Values{"status": {models.ControlImplemented}, "effectiveness": {models.EffectivenessEffective}, "notes": {"MFA enforced"}})
	rec.AssertRedirect(t, "/org/acme/frameworks/"+id+"?notice=updated#c-"+cid)

	if err := e.fx.DB().Collection("control_implementations").FindOne(ctx, bson.M{"_id": impl.ID}).Decode(&impl); err != nil {
		t.Fatalf("reload implementation: %v", err)
	}
	if impl.Status != models.ControlImplemented || impl.Effectiveness != models.EffectivenessEffective || impl.Notes != "MFA enforced" {
		t.Errorf("implementation = %+v", impl)
	}
}
