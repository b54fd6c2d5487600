package store

import (
	"strings"
	"time"

	"github.com/sayhello/sayhello/internal/directory"
)

// Row is the backend row shape, shared bit-exactly by the hosted and
// local backends: interests live in a single comma-joined string, not a
// structured list, and updated_at is the backend's timestamp text.
type Row struct {
	ID           string `json:"id,omitempty"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Native       string `json:"native"`
	Practice     string `json:"practice"`
	Level        string `json:"level"`
	Availability string `json:"availability"`
	Interests    string `json:"interests"`
	Bio          string `json:"bio"`
	UpdatedAt    string `json:"updated_at,omitempty"`
}

// ToRow maps a profile to its persisted shape. The id is included only
// when withID is set and the profile refers to an existing row; inserts
// must omit it so the backend assigns one. The level is re-gated as a
// last line of defense against rows built outside the normalizer.
func ToRow(p directory.Profile, withID bool) Row {
	level := p.Level
	if !directory.IsLevel(level) {
		level = directory.DefaultLevel
	}
	row := Row{
		Name:         p.Name,
		Email:        p.Email,
		Native:       p.Native,
		Practice:     p.Practice,
		Level:        level,
		Availability: p.Availability,
		Interests:    strings.Join(p.Interests, ", "),
		Bio:          p.Bio,
	}
	if withID && p.ID.Existing() {
		row.ID = p.ID.String()
	}
	return row
}

// FromRow maps a backend row back to a profile. The stored interests
// string is split into trimmed non-empty entries; a missing or unparsable
// updated_at falls back to now.
func FromRow(row Row, now time.Time) directory.Profile {
	return directory.Profile{
		ID:           directory.ParseRecordID(row.ID),
		Name:         row.Name,
		Email:        row.Email,
		Native:       row.Native,
		Practice:     row.Practice,
		Level:        row.Level,
		Availability: row.Availability,
		Interests:    splitStored(row.Interests),
		Bio:          row.Bio,
		UpdatedAt:    parseUpdatedAt(row.UpdatedAt, now),
	}
}

// FromRows maps a result set, preserving order.
func FromRows(rows []Row, now time.Time) []directory.Profile {
	profiles := make([]directory.Profile, len(rows))
	for i, row := range rows {
		profiles[i] = FromRow(row, now)
	}
	return profiles
}

func splitStored(s string) []string {
	if s == "" {
		return []string{}
	}
	out := make([]string, 0, 4)
	for _, piece := range strings.Split(s, ",") {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		out = append(out, piece)
	}
	return out
}

// timestampLayouts covers the backends' updated_at encodings: Postgres
// timestamptz as emitted by PostgREST, and RFC 3339 as written by the
// local store.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999-07",
}

func parseUpdatedAt(s string, now time.Time) int64 {
	if s == "" {
		return now.UnixMilli()
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli()
		}
	}
	return now.UnixMilli()
}

// FormatUpdatedAt renders epoch milliseconds in the row encoding.
func FormatUpdatedAt(millis int64) string {
	return time.UnixMilli(millis).UTC().Format(time.RFC3339Nano)
}
