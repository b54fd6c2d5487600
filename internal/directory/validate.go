package directory

import (
	"regexp"
	"strings"
)

// ValidationError reports the first rule a profile failed. The reason is
// user-facing text, surfaced verbatim.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// emailShape is the minimal local@domain.tld check: no spaces or extra
// '@'s, and at least one dot in the domain part.
var emailShape = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Validate checks a normalized profile against the hard requirements for
// persistence. Rules run in order and short-circuit on the first failure.
// Level, interests, and bio are not checked: normalization already forces
// them into range.
func Validate(p Profile) error {
	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{Reason: "Name is required"}
	}
	if !emailShape.MatchString(p.Email) {
		return &ValidationError{Reason: "Valid email required"}
	}
	if p.Native == "" {
		return &ValidationError{Reason: "Select native language"}
	}
	if p.Practice == "" {
		return &ValidationError{Reason: "Select target language"}
	}
	return nil
}
