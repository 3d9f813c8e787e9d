package inputval

import "testing"

func TestValidate(t *testing.T) {
	type riskInput struct {
		Title      string `validate:"required,max=20" label:"Title"`
		Likelihood int    `validate:"min=1,max=5" label:"Likelihood"`
		Email      string `validate:"omitempty,email" label:"Owner email"`
	}

	tests := []struct {
		name      string
		input     riskInput
		wantFirst string
	}{
		{"valid", riskInput{Title: "Vendor outage", Likelihood: 3}, ""},
		{"missing title", riskInput{Likelihood: 3}, "Title is required."},
		{"title too long", riskInput{Title: "A very long risk title indeed", Likelihood: 3}, "Title must be at most 20 characters."},
		{"likelihood too high", riskInput{Title: "X", Likelihood: 9}, "Likelihood must be at most 5."},
		{"likelihood zero", riskInput{Title: "X"}, "Likelihood must be at least 1."},
		{"bad email", riskInput{Title: "X", Likelihood: 1, Email: "nope"}, "A valid email address is required."},
		{"missing title first", riskInput{Likelihood: 0}, "Title is required."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Validate(tt.input)
			if got := res.First(); got != tt.wantFirst {
				t.Errorf("First() = %q, want %q", got, tt.wantFirst)
			}
			if res.HasErrors() != (tt.wantFirst != "") {
				t.Errorf("HasErrors() = %v", res.HasErrors())
			}
		})
	}
}

func TestValidate_CustomRules(t *testing.T) {
	type input struct {
		Role  string `validate:"required,tenantrole" label:"Role"`
		Slug  string `validate:"required,slug" label:"Slug"`
		Owner string `validate:"omitempty,objectid" label:"Owner"`
		Link  string `validate:"omitempty,httpurl" label:"Link"`
	}

	ok := Validate(input{Role: "auditor", Slug: "acme-corp", Owner: "507f1f77bcf86cd799439011", Link: "https://example.com/x"})
	if ok.HasErrors() {
		t.Fatalf("unexpected errors: %s", ok.All())
	}

	bad := Validate(input{Role: "emperor", Slug: "Acme--Corp", Owner: "zzz", Link: "ftp://x"})
	fields := bad.Fields()
	for _, f := range []string{"Role", "Slug", "Owner", "Link"} {
		if fields[f] == "" {
			t.Errorf("expected an error on %s, got %v", f, fields)
		}
	}
	if len(bad.Errors) != 4 {
		t.Errorf("got %d errors, want 4: %s", len(bad.Errors), bad.All())
	}
}

func TestResult_AllAndFirst(t *testing.T) {
	var empty *Result
	if empty.First() != "" || empty.All() != "" || empty.HasErrors() {
		t.Error("nil result should be empty")
	}
	r := &Result{Errors: []FieldError{{Message: "Error 1"}, {Message: "Error 2"}}}
	if r.All() != "Error 1; Error 2" {
		t.Errorf("All() = %q", r.All())
	}
	if r.First() != "Error 1" {
		t.Errorf("First() = %q", r.First())
	}
}

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"user@example.com", true},
		{"user+tag@example.co.uk", true},
		{"", false},
		{"   ", false},
		{"user", false},
		{"user@", false},
		{"@example.com", false},
		{"User Name <user@example.com>", false},
	}
	for _, tt := range tests {
		if got := IsValidEmail(tt.email); got != tt.want {
			t.Errorf("IsValidEmail(%q) = %v, want %v", tt.email, got, tt.want)
		}
	}
}

func TestIsValidHTTPURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://example.com", true},
		{"http://localhost:8080/path", true},
		{"example.com", false},
		{"javascript:alert(1)", false},
		{"https://", false},
	}
	for _, tt := range tests {
		if got := IsValidHTTPURL(tt.url); got != tt.want {
			t.Errorf("IsValidHTTPURL(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}
