// Package navigation provides helpers for safe URL navigation and redirects.
package navigation

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/urlutil"
)

// BackURLOptions configures the behavior of SafeBackURL.
type BackURLOptions struct {
	// AllowedPrefix is the required URL prefix (e.g., "/org/acme/risks").
	// If empty, any safe URL is allowed.
	AllowedPrefix string

	// ExcludedSubpaths are subpath patterns to reject (e.g., "/delete", "/status").
	// These prevent redirect loops back to action pages.
	ExcludedSubpaths []string

	// Fallback is the default URL if no valid return URL is found.
	Fallback string

	// PreserveQueryParam is an optional query parameter to preserve in the fallback URL.
	// For example, "status" keeps a list filter when falling back.
	PreserveQueryParam string
}

// SafeBackURL extracts and validates a return URL from the request.
//
// It checks both the query parameter and form value for "return", validates
// the URL is safe (not an open redirect), optionally validates the prefix,
// and excludes specified subpaths to prevent redirect loops.
//
// Example usage:
//
//	back := navigation.SafeBackURL(r, navigation.BackURLOptions{
//	    AllowedPrefix:      "/org/acme/tasks",
//	    ExcludedSubpaths:   []string{"/delete"},
//	    Fallback:           "/org/acme/tasks",
//	    PreserveQueryParam: "status",
//	})
func SafeBackURL(r *http.Request, opts BackURLOptions) string {
	// Try query parameter first, then form value
	ret := urlutil.SafeReturn(query.Get(r, "return"), "", "")
	if ret == "" {
		ret = urlutil.SafeReturn(strings.TrimSpace(r.FormValue("return")), "", "")
	}

	// Validate against allowed prefix if specified
	if ret != "" {
		valid := true

		if opts.AllowedPrefix != "" && !strings.HasPrefix(ret, opts.AllowedPrefix) {
			valid = false
		}

		// Check excluded subpaths
		for _, excluded := range opts.ExcludedSubpaths {
			if strings.Contains(ret, excluded) {
				valid = false
				break
			}
		}

		if valid {
			return ret
		}
	}

	// Build fallback URL, optionally preserving a query parameter
	fallback := opts.Fallback
	if opts.PreserveQueryParam != "" {
		param := query.Get(r, opts.PreserveQueryParam)
		if param == "" {
			param = strings.TrimSpace(r.FormValue(opts.PreserveQueryParam))
		}
		if param != "" && param != "all" {
			if strings.Contains(fallback, "?") {
				fallback += "&" + opts.PreserveQueryParam + "=" + param
			} else {
				fallback += "?" + opts.PreserveQueryParam + "=" + param
			}
		}
	}

	return fallback
}

// OrgPath builds "/org/{slug}/part/part". Empty parts are skipped.
func OrgPath(slug string, parts ...string) string {
	var b strings.Builder
	b.WriteString("/org/")
	b.WriteString(url.PathEscape(slug))
	for _, p := range parts {
		if p == "" {
			continue
		}
		b.WriteByte('/')
		b.WriteString(url.PathEscape(p))
	}
	return b.String()
}

// Section returns options confining a return URL to one org section such as
// "/org/acme/risks", falling back to its list page.
func Section(slug, section string) BackURLOptions {
	base := OrgPath(slug, section)
	return BackURLOptions{
		AllowedPrefix:    base,
		ExcludedSubpaths: []string{"/delete", "/status"},
		Fallback:         base,
	}
}

// AdminOrganizations confines return URLs to the admin organization pages.
var AdminOrganizations = BackURLOptions{
	AllowedPrefix:    "/admin/organizations",
	ExcludedSubpaths: []string{"/delete", "/restore"},
	Fallback:         "/admin/organizations",
}
