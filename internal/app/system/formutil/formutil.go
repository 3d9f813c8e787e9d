// Package formutil provides helpers for form re-rendering with validation errors.
//
// When a Mutation Action rejects a submission, the page is rendered again
// with the user's values echoed back and the action's message shown above
// the form. Embed Base in the page's view model:
//
//	type riskListData struct {
//		formutil.Base
//		Risks []riskRow
//		Form  actions.RiskInput
//	}
//
//	formutil.SetBase(&data.Base, r, "Risks", "/org/acme")
//	data.SetError(res.Error)
package formutil

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/dalemusser/stratagrc/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/query"
)

// Base contains the common fields of a page that hosts a form.
type Base struct {
	viewdata.BaseVM
	Error  string
	Notice string
}

// SetBase populates b from the request. A "notice" query parameter set by
// a post/redirect/get round trip becomes Notice.
func SetBase(b *Base, r *http.Request, title, backDefault string) {
	b.BaseVM = viewdata.NewBaseVM(r, title, backDefault)
	b.Notice = notices[query.Get(r, "notice")]
}

// SetError sets the message shown above the form.
func (b *Base) SetError(msg string) {
	b.Error = msg
}

// notices maps the notice keys handlers redirect with to their text.
var notices = map[string]string{
	"created":   "Saved.",
	"updated":   "Changes saved.",
	"deleted":   "Deleted.",
	"invited":   "Invitation created.",
	"activated": "Framework activated.",
	"completed": "Marked complete.",
}

// WithNotice appends a notice key to path.
func WithNotice(path, key string) string {
	if strings.Contains(path, "?") {
		return path + "&notice=" + key
	}
	return path + "?notice=" + key
}

// Int reads a form integer. Blank or malformed values are 0, which the
// validator then rejects where a value is required.
func Int(r *http.Request, name string) int {
	n, err := strconv.Atoi(strings.TrimSpace(r.FormValue(name)))
	if err != nil {
		return 0
	}
	return n
}

// Bool reads a checkbox.
func Bool(r *http.Request, name string) bool {
	switch strings.ToLower(strings.TrimSpace(r.FormValue(name))) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}
