package slug

import (
	"errors"
	"strings"
	"testing"
)

func TestDerive(t *testing.T) {
	tests := map[string]string{
		"Acme":                  "acme",
		"Acme Corp.":            "acme-corp",
		"  Zenith  Labs  ":      "zenith-labs",
		"R&D -- Team":           "r-d-team",
		"---":                   "",
		strings.Repeat("a", 60): strings.Repeat("a", MaxLen),
	}
	for in, want := range tests {
		if got := Derive(in); got != want {
			t.Errorf("Derive(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidate(t *testing.T) {
	ok := []string{"acme", "acme-corp", "a1-b2"}
	for _, s := range ok {
		if err := Validate(s); err != nil {
			t.Errorf("Validate(%q) = %v", s, err)
		}
	}
	bad := []string{"", "Acme", "acme--corp", "-acme", "acme-", "ac me", strings.Repeat("a", MaxLen+1)}
	for _, s := range bad {
		if err := Validate(s); !errors.Is(err, ErrInvalid) {
			t.Errorf("Validate(%q) = %v, want ErrInvalid", s, err)
		}
	}
	if err := Validate("admin"); !errors.Is(err, ErrReserved) {
		t.Errorf("Validate(admin) = %v, want ErrReserved", err)
	}
}
