// Package slug derives and validates organization URL slugs.
package slug

import (
	"errors"
	"regexp"
	"strings"

	"github.com/dalemusser/waffle/pantry/text"
)

// MaxLen is the longest slug accepted.
const MaxLen = 48

var (
	valid    = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

	// ErrInvalid is returned by Validate.
	ErrInvalid = errors.New("slug must be lowercase letters, digits and single hyphens")
	// ErrReserved is returned for slugs that collide with top-level routes.
	ErrReserved = errors.New("slug is reserved")
)

var reserved = map[string]bool{
	"admin": true, "api": true, "login": true, "logout": true, "register": true,
	"onboarding": true, "invite": true, "static": true, "health": true, "metrics": true,
	"new": true,
}

// Derive turns a display name into a slug candidate: folded to ASCII lower
// case, runs of other characters collapsed to one hyphen, trimmed to MaxLen.
func Derive(name string) string {
	s := nonAlnum.ReplaceAllString(strings.ToLower(text.Fold(name)), "-")
	s = strings.Trim(s, "-")
	if len(s) > MaxLen {
		s = strings.TrimRight(s[:MaxLen], "-")
	}
	return s
}

// Validate checks s against the slug grammar and the reserved words.
func Validate(s string) error {
	if s == "" || len(s) > MaxLen || !valid.MatchString(s) {
		return ErrInvalid
	}
	if reserved[s] {
		return ErrReserved
	}
	return nil
}
