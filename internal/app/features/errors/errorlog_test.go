package errors_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	uierrors "github.com/dalemusser/stratagrc/internal/app/features/errors"
	"github.com/dalemusser/stratagrc/internal/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogServerError(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	errLog := uierrors.NewErrorLogger(zap.New(core))

	user := testutil.NoTenantUser()
	req := testutil.NewAuthenticatedRequest("GET", "/org/acme/risks", user)
	rec := httptest.NewRecorder()

	// Rendering panics without an initialized template engine; the status is
	// written first.
	func() {
		defer func() { recover() }()
		errLog.LogServerError(rec, req, "list risks failed", errors.New("boom"), "Could not load risks.", "/org/acme")
	}()

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	entries := logs.FilterMessage("list risks failed").All()
	if len(entries) != 1 {
		t.Fatalf("logged %d entries, want 1", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["user_id"] != user.ID || ctx["path"] != "/org/acme/risks" {
		t.Errorf("fields = %v", ctx)
	}
	if entries[0].Level != zapcore.ErrorLevel {
		t.Errorf("level = %v", entries[0].Level)
	}
}

func TestLogBadRequest_HTMX(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	errLog := uierrors.NewErrorLogger(zap.New(core))

	req := httptest.NewRequest("POST", "/org/acme/tasks", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()

	errLog.LogBadRequest(rec, req, "parse form failed", errors.New("bad"), "Invalid form data.", "")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if rec.Body.String() != "Invalid form data." {
		t.Errorf("body = %q", rec.Body.String())
	}
	if logs.FilterMessage("parse form failed").Len() != 1 {
		t.Error("expected a warn entry")
	}
}

func TestNotFound(t *testing.T) {
	h := uierrors.NewHandler()
	rec := httptest.NewRecorder()
	func() {
		defer func() { recover() }()
		h.NotFound(rec, httptest.NewRequest("GET", "/org/missing", nil))
	}()
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
