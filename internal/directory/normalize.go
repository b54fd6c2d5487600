package directory

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// NormalizeForm converts editor field values into a Profile. Form input is
// trusted as far as length goes (the editor enforces its own caps), so
// values are trimmed but not re-capped. Language and level fields pass
// through the enum gates; anything off-list becomes empty (languages) or
// the default (level), to be caught by Validate.
func NormalizeForm(f Form, now time.Time) Profile {
	return Profile{
		ID:           ParseRecordID(f.ID),
		Name:         strings.TrimSpace(f.Name),
		Email:        strings.TrimSpace(f.Email),
		Native:       gateLanguage(f.Native),
		Practice:     gateLanguage(f.Practice),
		Level:        gateLevel(f.Level),
		Availability: strings.TrimSpace(f.Availability),
		Interests:    SplitInterests(f.Interests),
		Bio:          strings.TrimSpace(f.Bio),
		UpdatedAt:    now.UnixMilli(),
	}
}

// NormalizeImport converts one untrusted imported record into a Profile.
// Every field is coerced, capped, and gated; the result always satisfies
// the profile invariants regardless of input shape. Pure function of its
// arguments.
func NormalizeImport(r RawProfile, now time.Time) Profile {
	updatedAt, ok := r.UpdatedAt.millis()
	if !ok {
		updatedAt = now.UnixMilli()
	}
	return Profile{
		ID:           r.ID,
		Name:         capRunes(string(r.Name), MaxNameLen),
		Email:        capRunes(string(r.Email), MaxEmailLen),
		Native:       gateLanguage(string(r.Native)),
		Practice:     gateLanguage(string(r.Practice)),
		Level:        gateLevel(string(r.Level)),
		Availability: capRunes(string(r.Availability), MaxAvailabilityLen),
		Interests:    r.Interests.normalize(),
		Bio:          capRunes(string(r.Bio), MaxBioLen),
		UpdatedAt:    updatedAt,
	}
}

// SplitInterests splits a comma-separated string into trimmed, non-empty
// entries, capped at MaxInterests.
func SplitInterests(s string) []string {
	out := make([]string, 0, 4)
	for _, piece := range strings.Split(s, ",") {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		out = append(out, piece)
		if len(out) == MaxInterests {
			break
		}
	}
	return out
}

func joinInterests(interests []string) string {
	return strings.Join(interests, ", ")
}

func gateLanguage(lang string) string {
	if IsLanguage(lang) {
		return lang
	}
	return ""
}

func gateLevel(level string) string {
	if IsLevel(level) {
		return level
	}
	return DefaultLevel
}

// capRunes trims s and truncates it to at most n runes.
func capRunes(s string, n int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// RawProfile is one record of an imported file. Field presence and types
// are never trusted: scalars accept any JSON scalar, interests accept an
// array or a comma-separated string, updatedAt accepts a number or a
// numeric string. Decoding never fails on a wrong-typed field.
type RawProfile struct {
	ID           RecordID     `json:"id"`
	Name         looseString  `json:"name"`
	Email        looseString  `json:"email"`
	Native       looseString  `json:"native"`
	Practice     looseString  `json:"practice"`
	Level        looseString  `json:"level"`
	Availability looseString  `json:"availability"`
	Interests    looseStrings `json:"interests"`
	Bio          looseString  `json:"bio"`
	UpdatedAt    looseMillis  `json:"updatedAt"`
}

// looseString coerces a JSON scalar to a string: strings pass through,
// numbers and booleans are rendered, null and structured values become "".
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	*s = looseString(coerceScalar(data))
	return nil
}

func coerceScalar(data []byte) string {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// looseStrings holds an interests value that arrived either as a JSON
// array or as a comma-separated string.
type looseStrings struct {
	list   []string
	str    string
	isList bool
}

func (ls *looseStrings) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var elems []json.RawMessage
		if err := json.Unmarshal(data, &elems); err != nil {
			return nil
		}
		ls.isList = true
		ls.list = make([]string, 0, len(elems))
		for _, e := range elems {
			ls.list = append(ls.list, coerceScalar(e))
		}
		return nil
	}
	ls.str = coerceScalar(data)
	return nil
}

// normalize produces the canonical interests slice: an array source is
// truncated to MaxInterests first, then each element is trimmed and
// empties are dropped; a string source is comma-split the same way as
// form input.
func (ls looseStrings) normalize() []string {
	if !ls.isList {
		return SplitInterests(ls.str)
	}
	elems := ls.list
	if len(elems) > MaxInterests {
		elems = elems[:MaxInterests]
	}
	out := make([]string, 0, len(elems))
	for _, e := range elems {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		out = append(out, e)
	}
	return out
}

// looseMillis holds an epoch-milliseconds timestamp that arrived as a JSON
// number or a numeric string. Anything else is "absent".
type looseMillis struct {
	value int64
	valid bool
}

func (m *looseMillis) UnmarshalJSON(data []byte) error {
	s := coerceScalar(data)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	m.value = int64(f)
	m.valid = true
	return nil
}

func (m looseMillis) millis() (int64, bool) { return m.value, m.valid }
