// Package query derives the visible slice of the profile collection from
// a filter/sort/page specification. Every function is pure: inputs are
// never mutated, results are fresh slices.
package query

import (
	"slices"
	"strings"

	"github.com/sayhello/sayhello/internal/directory"
)

// Sort keys accepted by Spec.Sort. Anything else falls back to SortRecent.
const (
	SortRecent   = "recent"
	SortName     = "name"
	SortNative   = "native"
	SortPractice = "practice"
)

// DefaultPageSize matches the directory view's page length.
const DefaultPageSize = 6

// Spec describes one view of the collection. Zero values mean "no
// constraint": empty Q/Native/Practice filter nothing, empty Sort means
// most-recent-first, Page < 1 clamps to the first page, PageSize <= 0
// disables pagination.
type Spec struct {
	Q        string
	Native   string
	Practice string
	Sort     string
	Page     int
	PageSize int
}

// Run applies filter, sort, and pagination in that order.
func Run(profiles []directory.Profile, spec Spec) []directory.Profile {
	rows := Filter(profiles, spec)
	rows = Order(rows, spec.Sort)
	return Paginate(rows, spec.Page, spec.PageSize)
}

// Filter retains profiles matching every set constraint: the search term
// must be a case-insensitive substring of the profile's searchable text,
// and the native/practice filters must match exactly.
func Filter(profiles []directory.Profile, spec Spec) []directory.Profile {
	q := strings.ToLower(spec.Q)
	out := make([]directory.Profile, 0, len(profiles))
	for _, p := range profiles {
		if q != "" && !strings.Contains(haystack(p), q) {
			continue
		}
		if spec.Native != "" && p.Native != spec.Native {
			continue
		}
		if spec.Practice != "" && p.Practice != spec.Practice {
			continue
		}
		out = append(out, p)
	}
	return out
}

// haystack is the space-joined searchable text of a profile.
func haystack(p directory.Profile) string {
	parts := []string{p.Name, p.Bio, strings.Join(p.Interests, " "), p.Native, p.Practice}
	return strings.ToLower(strings.Join(parts, " "))
}

// Order returns a sorted copy. Name, native, and practice sort
// lexicographically, the latter two breaking ties by name. Any other key
// sorts by UpdatedAt descending, preserving input order on ties.
func Order(profiles []directory.Profile, key string) []directory.Profile {
	rows := slices.Clone(profiles)
	switch key {
	case SortName:
		slices.SortStableFunc(rows, func(a, b directory.Profile) int {
			return strings.Compare(a.Name, b.Name)
		})
	case SortNative:
		slices.SortStableFunc(rows, func(a, b directory.Profile) int {
			if c := strings.Compare(a.Native, b.Native); c != 0 {
				return c
			}
			return strings.Compare(a.Name, b.Name)
		})
	case SortPractice:
		slices.SortStableFunc(rows, func(a, b directory.Profile) int {
			if c := strings.Compare(a.Practice, b.Practice); c != 0 {
				return c
			}
			return strings.Compare(a.Name, b.Name)
		})
	default:
		slices.SortStableFunc(rows, func(a, b directory.Profile) int {
			switch {
			case b.UpdatedAt > a.UpdatedAt:
				return 1
			case b.UpdatedAt < a.UpdatedAt:
				return -1
			default:
				return 0
			}
		})
	}
	return rows
}

// Paginate returns the requested page, clamping the page number to the
// valid range. A collection always has at least one page, so an
// out-of-range request returns the last (or first) page rather than an
// empty slice. pageSize <= 0 returns everything.
func Paginate(profiles []directory.Profile, page, pageSize int) []directory.Profile {
	if pageSize <= 0 {
		return slices.Clone(profiles)
	}
	last := (len(profiles) + pageSize - 1) / pageSize
	if last < 1 {
		last = 1
	}
	if page < 1 {
		page = 1
	}
	if page > last {
		page = last
	}
	start := (page - 1) * pageSize
	if start >= len(profiles) {
		return []directory.Profile{}
	}
	end := min(start+pageSize, len(profiles))
	return slices.Clone(profiles[start:end])
}

// Pages reports how many pages the collection spans at the given size,
// always at least 1.
func Pages(count, pageSize int) int {
	if pageSize <= 0 {
		return 1
	}
	pages := (count + pageSize - 1) / pageSize
	if pages < 1 {
		return 1
	}
	return pages
}
