package directory

import (
	"encoding/json"
	"regexp"
	"slices"
)

// Languages is the fixed set of languages a profile may declare as native
// or practice. Anything outside this list normalizes to empty and fails
// validation.
var Languages = []string{
	"Arabic",
	"Chinese (Mandarin)",
	"Dutch",
	"English",
	"French",
	"German",
	"Italian",
	"Japanese",
	"Korean",
	"Polish",
	"Portuguese",
	"Romanian",
	"Russian",
	"Spanish",
	"Swedish",
	"Turkish",
}

// Levels is the CEFR proficiency scale, ordered.
var Levels = []string{"A1", "A2", "B1", "B2", "C1", "C2"}

// DefaultLevel is used whenever a level is absent or not on the scale.
const DefaultLevel = "B1"

// Field limits applied to untrusted (imported) records.
const (
	MaxNameLen         = 80
	MaxEmailLen        = 120
	MaxAvailabilityLen = 120
	MaxBioLen          = 200
	MaxInterests       = 10
)

// IsLanguage reports whether lang is on the fixed language list.
func IsLanguage(lang string) bool { return slices.Contains(Languages, lang) }

// IsLevel reports whether level is on the proficiency scale.
func IsLevel(level string) bool { return slices.Contains(Levels, level) }

// uuidV4 is the canonical textual form accepted as an existing-record
// identifier: 8-4-4-4-12 hex groups, version nibble 4, variant in {8,9,a,b}.
// Deliberately stricter than uuid.Parse, which also accepts braces, URNs,
// and other UUID versions.
var uuidV4 = regexp.MustCompile(`^(?i)[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

// RecordID identifies a profile row. It is a two-state value: either the
// profile is new (not yet persisted) or it refers to an existing row by a
// canonical UUID. The distinction is decided once, when the raw id enters
// the system, and carried from there through every gateway call.
//
// The raw value is preserved even when it is not a usable identifier, so
// that exported data round-trips byte for byte; such values still classify
// as "new" and are never sent to a backend.
type RecordID struct {
	raw      string
	existing bool
}

// ParseRecordID classifies a raw id string.
func ParseRecordID(raw string) RecordID {
	return RecordID{raw: raw, existing: uuidV4.MatchString(raw)}
}

// Existing reports whether the id refers to a persisted row.
func (id RecordID) Existing() bool { return id.existing }

// String returns the raw id value, empty for new profiles.
func (id RecordID) String() string { return id.raw }

// IsZero reports whether the raw value is empty.
func (id RecordID) IsZero() bool { return id.raw == "" }

// MarshalJSON emits the raw value so exports preserve ids as-is.
func (id RecordID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.raw)
}

// UnmarshalJSON accepts a string, a number, or null; other shapes classify
// as a new record. Imported files are untrusted, so this never errors.
func (id *RecordID) UnmarshalJSON(data []byte) error {
	var raw looseString
	if err := raw.UnmarshalJSON(data); err != nil {
		return err
	}
	*id = ParseRecordID(string(raw))
	return nil
}

// Profile is one directory entry: a person looking for a language-exchange
// partner. UpdatedAt is epoch milliseconds.
type Profile struct {
	ID           RecordID `json:"id"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	Native       string   `json:"native"`
	Practice     string   `json:"practice"`
	Level        string   `json:"level"`
	Availability string   `json:"availability"`
	Interests    []string `json:"interests"`
	Bio          string   `json:"bio"`
	UpdatedAt    int64    `json:"updatedAt"`
}

// Form holds the raw field values of the profile editor. Interests is the
// comma-separated string as typed.
type Form struct {
	ID           string
	Name         string
	Email        string
	Native       string
	Practice     string
	Level        string
	Availability string
	Interests    string
	Bio          string
}

// BlankForm returns the editor's initial state.
func BlankForm() Form {
	return Form{Level: DefaultLevel}
}

// FormOf loads an existing profile back into editable form state.
func FormOf(p Profile) Form {
	level := p.Level
	if !IsLevel(level) {
		level = DefaultLevel
	}
	return Form{
		ID:           p.ID.String(),
		Name:         p.Name,
		Email:        p.Email,
		Native:       p.Native,
		Practice:     p.Practice,
		Level:        level,
		Availability: p.Availability,
		Interests:    joinInterests(p.Interests),
		Bio:          p.Bio,
	}
}
