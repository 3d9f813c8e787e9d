package home_test

import (
	"testing"

	"github.com/dalemusser/stratagrc/internal/app/features/home"
	"github.com/dalemusser/stratagrc/internal/testutil"
	"go.uber.org/zap"
)

func TestServeRoot_SignedInGoesToOnboarding(t *testing.T) {
	h := home.NewHandler(false, zap.NewNop())
	user := testutil.NoTenantUser()

	req := testutil.NewAuthenticatedRequest("GET", "/", user)
	rec := testutil.NewRecorder()
	testutil.Serve(rec, req, h.ServeRoot)

	rec.AssertRedirect(t, "/onboarding")
}

func TestServeRoot_AnonymousStays(t *testing.T) {
	h := home.NewHandler(true, zap.NewNop())

	req := testutil.NewRequest("GET", "/")
	rec := testutil.NewRecorder()
	testutil.Serve(rec, req, h.ServeRoot)

	rec.AssertNotRedirected(t)
}
