package invite_test

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/dalemusser/stratagrc/internal/app/actions"
	uierrors "github.com/dalemusser/stratagrc/internal/app/features/errors"
	"github.com/dalemusser/stratagrc/internal/app/features/invite"
	membershipstore "github.com/dalemusser/stratagrc/internal/app/store/memberships"
	userstore "github.com/dalemusser/stratagrc/internal/app/store/users"
	"github.com/dalemusser/stratagrc/internal/app/system/auth"
	"github.com/dalemusser/stratagrc/internal/domain/models"
	"github.com/dalemusser/stratagrc/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func TestHandleAccept(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	acts := testutil.NewActions(t, db)
	sm := testutil.NewSessionManager(t)
	logger := zap.NewNop()
	h := invite.NewHandler(acts, uierrors.NewErrorLogger(logger), logger)

	org := fx.CreateOrganization(ctx, "acme", "Acme")
	owner := fx.CreateUser(ctx, "Olive Owner", "olive@example.com")
	fx.CreateMembership(ctx, owner.ID, org.ID, models.RoleOwner, time.Time{})
	invitee := fx.CreateUser(ctx, "Ivy Invitee", "ivy@example.com")
	stranger := fx.CreateUser(ctx, "Sam Stranger", "sam@example.com")

	res, err := acts.InviteMember(ctx, actions.Actor{UserID: owner.ID, OrgID: org.ID, Role: models.RoleOwner}, actions.InviteInput{Email: "ivy@example.com", Role: models.RoleMember})
	if err != nil || !res.OK() || res.Token == "" {
		t.Fatalf("invite: %+v %v", res, err)
	}

	accept := func(u models.User, token string) *testutil.ResponseRecorder {
		signIn := testutil.NewRecorder()
		if err := sm.SignIn(signIn, testutil.NewRequest("POST", "/login"), u.ID.Hex()); err != nil {
			t.Fatalf("sign in: %v", err)
		}
		tu := testutil.NoTenantUser()
		tu.ID, tu.Email = u.ID.Hex(), u.Email
		req := testutil.NewFormRequest("/invite/"+token, url.Values{}, tu)
		for _, c := range signIn.Result().Cookies() {
			req.AddCookie(c)
		}
		req = testutil.WithChiURLParam(req, "token", token)
		rec := testutil.NewRecorder()
		testutil.Serve(rec, req, h.HandleAccept)
		return rec
	}

	// Someone else cannot redeem the link.
	rec := accept(stranger, res.Token)
	rec.AssertNotRedirected(t)
	if n := fx.Count(ctx, "memberships", bson.M{"user_id": stranger.ID}); n != 0 {
		t.Fatalf("stranger got a membership")
	}

	rec = accept(invitee, "garbage")
	rec.AssertNotRedirected(t)

	rec = accept(invitee, res.Token)
	rec.AssertRedirect(t, "/onboarding")
	if rec.Header().Get("Set-Cookie") != "" {
		t.Error("accepting an invitation should not rewrite the session")
	}
	if n := fx.Count(ctx, "memberships", bson.M{"user_id": invitee.ID, "org_id": org.ID, "active": true, "role": models.RoleMember}); n != 1 {
		t.Errorf("expected an active membership, got %d", n)
	}

	// Used links stay used.
	rec = accept(invitee, res.Token)
	rec.AssertNotRedirected(t)
}

// sessionOrg signs userID in and returns the org slug the next session read
// carries.
func sessionOrg(t *testing.T, db *mongo.Database, userID string) string {
	t.Helper()
	sm := testutil.NewSessionManager(t)
	sm.SetUserFetcher(userstore.NewFetcher(db))
	sm.SetTenantFetcher(membershipstore.NewTenantFetcher(db))

	signIn := testutil.NewRecorder()
	if err := sm.SignIn(signIn, testutil.NewRequest("POST", "/login"), userID); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	req := testutil.NewRequest("GET", "/onboarding")
	for _, c := range signIn.Result().Cookies() {
		req.AddCookie(c)
	}

	var slug string
	sm.LoadSessionUser(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		if u, ok := auth.CurrentUser(r); ok {
			slug = u.OrgSlug
		}
	})).ServeHTTP(testutil.NewRecorder(), req)
	return slug
}

func TestHandleAccept_LatestMembershipStillWins(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	acts := testutil.NewActions(t, db)
	logger := zap.NewNop()
	h := invite.NewHandler(acts, uierrors.NewErrorLogger(logger), logger)

	acme := fx.CreateOrganization(ctx, "acme", "Acme")
	initech := fx.CreateOrganization(ctx, "initech", "Initech")
	owner := fx.CreateUser(ctx, "Olive Owner", "olive@example.com")
	fx.CreateMembership(ctx, owner.ID, acme.ID, models.RoleOwner, time.Time{})
	invitee := fx.CreateUser(ctx, "Ivy Invitee", "ivy@example.com")
	fx.CreateMembership(ctx, invitee.ID, initech.ID, models.RoleMember, time.Now().Add(-time.Hour))

	res, err := acts.InviteMember(ctx, actions.Actor{UserID: owner.ID, OrgID: acme.ID, Role: models.RoleOwner}, actions.InviteInput{Email: invitee.Email, Role: models.RoleMember})
	if err != nil || !res.OK() {
		t.Fatalf("invite: %+v %v", res, err)
	}

	tu := testutil.NoTenantUser()
	tu.ID, tu.Email = invitee.ID.Hex(), invitee.Email
	req := testutil.WithChiURLParam(testutil.NewFormRequest("/invite/"+res.Token, url.Values{}, tu), "token", res.Token)
	rec := testutil.NewRecorder()
	testutil.Serve(rec, req, h.HandleAccept)
	rec.AssertRedirect(t, "/onboarding")

	if got := sessionOrg(t, db, invitee.ID.Hex()); got != "acme" {
		t.Fatalf("after accept org = %q, want acme", got)
	}

	// A membership granted later takes over without a switch.
	globex := fx.CreateOrganization(ctx, "globex", "Globex")
	fx.CreateMembership(ctx, invitee.ID, globex.ID, models.RoleMember, time.Now().Add(time.Minute))
	if got := sessionOrg(t, db, invitee.ID.Hex()); got != "globex" {
		t.Errorf("after newer membership org = %q, want globex", got)
	}
}

func TestHandleAccept_Anonymous(t *testing.T) {
	logger := zap.NewNop()
	h := invite.NewHandler(nil, uierrors.NewErrorLogger(logger), logger)

	rec := testutil.NewRecorder()
	h.HandleAccept(rec, testutil.NewAnonymousFormRequest("/invite/x", url.Values{}))
	if rec.Code != http.StatusSeeOther {
		t.Errorf("status %d", rec.Code)
	}
}
