package store

import (
	"slices"
	"testing"
	"time"

	"github.com/sayhello/sayhello/internal/directory"
)

var testNow = time.UnixMilli(1700000000000)

const knownID = "1d1906f5-6ff7-4e35-b2e9-01a7a2f7c6e8"

func TestToRowMapping(t *testing.T) {
	p := directory.Profile{
		ID:           directory.ParseRecordID(knownID),
		Name:         "Ann",
		Email:        "a@b.co",
		Native:       "English",
		Practice:     "Spanish",
		Level:        "C1",
		Availability: "weekends",
		Interests:    []string{"run", "cook"},
		Bio:          "hi",
	}

	row := ToRow(p, true)
	if row.ID != knownID {
		t.Errorf("ID = %q, want %q", row.ID, knownID)
	}
	if row.Interests != "run, cook" {
		t.Errorf("Interests = %q, want comma-joined", row.Interests)
	}
	if row.Level != "C1" {
		t.Errorf("Level = %q", row.Level)
	}
	if row.UpdatedAt != "" {
		t.Errorf("UpdatedAt should stay empty for the backend to stamp, got %q", row.UpdatedAt)
	}
}

func TestToRowIDInclusion(t *testing.T) {
	existing := directory.Profile{ID: directory.ParseRecordID(knownID)}
	fresh := directory.Profile{ID: directory.ParseRecordID("")}

	if row := ToRow(existing, false); row.ID != "" {
		t.Errorf("withID=false must omit the id, got %q", row.ID)
	}
	if row := ToRow(existing, true); row.ID != knownID {
		t.Errorf("withID=true on existing must keep the id, got %q", row.ID)
	}
	// A non-canonical id never travels to the backend even when requested.
	if row := ToRow(fresh, true); row.ID != "" {
		t.Errorf("new profile must never carry an id, got %q", row.ID)
	}
}

func TestToRowRegatesLevel(t *testing.T) {
	p := directory.Profile{Level: "fluent"}
	if row := ToRow(p, false); row.Level != directory.DefaultLevel {
		t.Errorf("off-scale level = %q, want %q", row.Level, directory.DefaultLevel)
	}
}

func TestFromRowMapping(t *testing.T) {
	row := Row{
		ID:        knownID,
		Name:      "Ann",
		Interests: "run , , cook",
		UpdatedAt: "2023-11-14T22:13:20Z",
	}

	p := FromRow(row, testNow)
	if !p.ID.Existing() {
		t.Error("canonical row id should classify as existing")
	}
	if !slices.Equal(p.Interests, []string{"run", "cook"}) {
		t.Errorf("Interests = %v, want [run cook]", p.Interests)
	}
	if p.UpdatedAt != 1700000000000 {
		t.Errorf("UpdatedAt = %d, want 1700000000000", p.UpdatedAt)
	}
}

func TestFromRowEmptyInterests(t *testing.T) {
	p := FromRow(Row{}, testNow)
	if p.Interests == nil || len(p.Interests) != 0 {
		t.Errorf("empty stored interests should map to an empty list, got %#v", p.Interests)
	}
}

func TestParseUpdatedAtLayouts(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want int64
	}{
		{"rfc3339 nano", "2023-11-14T22:13:20.5Z", 1700000000500},
		{"rfc3339", "2023-11-14T22:13:20Z", 1700000000000},
		{"postgres no zone", "2023-11-14T22:13:20.000000", 1700000000000},
		{"postgres spaced", "2023-11-14 22:13:20.000000+00", 1700000000000},
		{"empty falls back", "", testNow.UnixMilli()},
		{"garbage falls back", "last tuesday", testNow.UnixMilli()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := parseUpdatedAt(tc.in, testNow); got != tc.want {
				t.Errorf("parseUpdatedAt(%q) = %d, want %d", tc.in, got, tc.want)
			}
		})
	}
}

func TestUpdatedAtRoundTrip(t *testing.T) {
	millis := int64(1700000000123)
	if got := parseUpdatedAt(FormatUpdatedAt(millis), testNow); got != millis {
		t.Errorf("round trip = %d, want %d", got, millis)
	}
}

func TestFromRowsPreservesOrder(t *testing.T) {
	rows := []Row{{Name: "B"}, {Name: "A"}, {Name: "C"}}
	got := FromRows(rows, testNow)
	if len(got) != 3 || got[0].Name != "B" || got[1].Name != "A" || got[2].Name != "C" {
		t.Errorf("FromRows reordered: %v", got)
	}
}

func TestTransportErrorMessage(t *testing.T) {
	withStatus := &TransportError{Op: "list", Status: 500, Message: "boom"}
	if withStatus.Error() != "list: backend returned 500: boom" {
		t.Errorf("Error() = %q", withStatus.Error())
	}
	plain := &TransportError{Op: "save", Message: "connection refused"}
	if plain.Error() != "save: connection refused" {
		t.Errorf("Error() = %q", plain.Error())
	}
}
