package login_test

import (
	"net/url"
	"testing"

	uierrors "github.com/dalemusser/stratagrc/internal/app/features/errors"
	"github.com/dalemusser/stratagrc/internal/app/features/login"
	"github.com/dalemusser/stratagrc/internal/app/system/ratelimit"
	"github.com/dalemusser/stratagrc/internal/domain/models"
	"github.com/dalemusser/stratagrc/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func newHandler(t *testing.T, limiter *ratelimit.LoginLimiter) (*login.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	h := login.NewHandler(db, testutil.NewSessionManager(t), limiter, nil, uierrors.NewErrorLogger(logger), false, logger)
	return h, testutil.NewFixtures(t, db)
}

func post(h *login.Handler, form url.Values) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	testutil.Serve(rec, testutil.NewAnonymousFormRequest("/login", form), h.HandleLoginPost)
	return rec
}

func TestHandleLoginPost_Success(t *testing.T) {
	h, fx := newHandler(t, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx.CreatePasswordUser(ctx, "Ann Auditor", "Ann@Example.com", "correct-horse")

	rec := post(h, url.Values{"email": {"ann@example.com"}, "password": {"correct-horse"}})
	rec.AssertRedirect(t, "/onboarding")
	if rec.Header().Get("Set-Cookie") == "" {
		t.Error("no session cookie issued")
	}
}

func TestHandleLoginPost_SafeReturn(t *testing.T) {
	h, fx := newHandler(t, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx.CreatePasswordUser(ctx, "Ann", "ann@example.com", "correct-horse")

	rec := post(h, url.Values{"email": {"ann@example.com"}, "password": {"correct-horse"}, "return": {"/org/acme/risks"}})
	rec.AssertRedirect(t, "/org/acme/risks")
}

func TestHandleLoginPost_Rejections(t *testing.T) {
	h, fx := newHandler(t, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx.CreatePasswordUser(ctx, "Ann", "ann@example.com", "correct-horse")
	disabled := fx.CreatePasswordUser(ctx, "Dan", "dan@example.com", "correct-horse")
	if _, err := fx.DB().Collection("users").UpdateByID(ctx, disabled.ID, bson.M{"$set": bson.M{"status": models.UserDisabled}}); err != nil {
		t.Fatal(err)
	}
	google := fx.CreateUser(ctx, "Gus", "gus@example.com")
	if _, err := fx.DB().Collection("users").UpdateByID(ctx, google.ID, bson.M{"$set": bson.M{"auth_method": models.AuthMethodGoogle}}); err != nil {
		t.Fatal(err)
	}

	cases := map[string]url.Values{
		"wrong password": {"email": {"ann@example.com"}, "password": {"nope-nope"}},
		"unknown email":  {"email": {"who@example.com"}, "password": {"correct-horse"}},
		"blank":          {"email": {""}, "password": {""}},
		"disabled":       {"email": {"dan@example.com"}, "password": {"correct-horse"}},
		"google account": {"email": {"gus@example.com"}, "password": {"correct-horse"}},
	}
	for name, form := range cases {
		t.Run(name, func(t *testing.T) {
			rec := post(h, form)
			rec.AssertNotRedirected(t)
			if rec.Header().Get("Set-Cookie") != "" {
				t.Error("session cookie issued for a rejected login")
			}
		})
	}
}

func TestHandleLoginPost_RateLimited(t *testing.T) {
	h, fx := newHandler(t, ratelimit.NewLoginLimiter(0.001, 2))
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx.CreatePasswordUser(ctx, "Ann", "ann@example.com", "correct-horse")

	bad := url.Values{"email": {"ann@example.com"}, "password": {"nope-nope"}}
	post(h, bad)
	post(h, bad)

	rec := post(h, url.Values{"email": {"ann@example.com"}, "password": {"correct-horse"}})
	rec.AssertNotRedirected(t)
}
