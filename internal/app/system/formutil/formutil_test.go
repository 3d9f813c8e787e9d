package formutil

import (
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestSetBase_Notice(t *testing.T) {
	var b Base
	SetBase(&b, httptest.NewRequest("GET", "/org/acme/risks?notice=created", nil), "Risks", "/org/acme")
	if b.Notice != "Saved." {
		t.Errorf("Notice = %q", b.Notice)
	}
	if b.Title != "Risks" {
		t.Errorf("Title = %q", b.Title)
	}

	SetBase(&b, httptest.NewRequest("GET", "/org/acme/risks?notice=<script>", nil), "Risks", "/org/acme")
	if b.Notice != "" {
		t.Errorf("unknown notice rendered: %q", b.Notice)
	}
}

func TestWithNotice(t *testing.T) {
	if got := WithNotice("/org/acme/risks", "created"); got != "/org/acme/risks?notice=created" {
		t.Errorf("got %q", got)
	}
	if got := WithNotice("/org/acme/tasks?status=todo", "updated"); got != "/org/acme/tasks?status=todo&notice=updated" {
		t.Errorf("got %q", got)
	}
}

func TestIntAndBool(t *testing.T) {
	form := url.Values{"likelihood": {" 4 "}, "impact": {"x"}, "mandatory": {"on"}}
	r := httptest.NewRequest("POST", "/", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	if got := Int(r, "likelihood"); got != 4 {
		t.Errorf("likelihood = %d", got)
	}
	if got := Int(r, "impact"); got != 0 {
		t.Errorf("impact = %d", got)
	}
	if !Bool(r, "mandatory") || Bool(r, "missing") {
		t.Error("Bool mismatch")
	}
}
