package directory

import (
	"errors"
	"testing"
)

func validProfile() Profile {
	return Profile{
		Name:     "Ann",
		Email:    "a@b.co",
		Native:   "English",
		Practice: "Spanish",
		Level:    "B1",
	}
}

func TestValidateOK(t *testing.T) {
	if err := Validate(validProfile()); err != nil {
		t.Errorf("Validate(valid) = %v, want nil", err)
	}
}

func TestValidateOrderedRules(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Profile)
		reason string
	}{
		{"missing name", func(p *Profile) { p.Name = "  " }, "Name is required"},
		{"missing email", func(p *Profile) { p.Email = "" }, "Valid email required"},
		{"no at sign", func(p *Profile) { p.Email = "a.b.co" }, "Valid email required"},
		{"no tld dot", func(p *Profile) { p.Email = "a@bco" }, "Valid email required"},
		{"space in email", func(p *Profile) { p.Email = "a b@c.co" }, "Valid email required"},
		{"double at", func(p *Profile) { p.Email = "a@b@c.co" }, "Valid email required"},
		{"missing native", func(p *Profile) { p.Native = "" }, "Select native language"},
		{"missing practice", func(p *Profile) { p.Practice = "" }, "Select target language"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := validProfile()
			tc.mutate(&p)
			err := Validate(p)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("Validate = %v, want *ValidationError", err)
			}
			if vErr.Reason != tc.reason {
				t.Errorf("reason = %q, want %q", vErr.Reason, tc.reason)
			}
		})
	}
}

func TestValidateShortCircuits(t *testing.T) {
	// With several failing fields, the first rule in order wins.
	p := Profile{}
	err := Validate(p)
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.Reason != "Name is required" {
		t.Errorf("empty profile should fail on name first, got %v", err)
	}
}

func TestValidateSkipsNormalizedFields(t *testing.T) {
	// Level, interests, and bio are normalized upstream and never
	// checked here.
	p := validProfile()
	p.Level = "not-a-level"
	p.Bio = "whatever"
	p.Interests = nil
	if err := Validate(p); err != nil {
		t.Errorf("Validate should ignore level/interests/bio, got %v", err)
	}
}
