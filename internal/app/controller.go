// Package app owns the in-memory application state: the profile
// collection, the editor form, and the active view filters. Every
// mutation of the collection goes through the Controller, and each
// mutating action is all-or-nothing with respect to local state.
package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sayhello/sayhello/internal/directory"
	"github.com/sayhello/sayhello/internal/query"
	"github.com/sayhello/sayhello/internal/store"
)

// ErrMalformedImport is returned when an imported file's top-level shape
// is not a JSON array.
var ErrMalformedImport = errors.New("import file must be a JSON array of profiles")

// ImportPolicy decides what happens to imported rows that fail validation
// after normalization (typically native/practice outside the language
// list, which normalizes to empty).
type ImportPolicy int

const (
	// ImportKeepInvalid persists such rows as-is. Matches the historical
	// behavior: bulk import does not re-validate.
	ImportKeepInvalid ImportPolicy = iota
	// ImportRejectInvalid drops rows failing validation before the bulk
	// save is issued.
	ImportRejectInvalid
)

// ParseImportPolicy maps the config/flag value to a policy; anything but
// "reject" keeps invalid rows.
func ParseImportPolicy(s string) ImportPolicy {
	if strings.EqualFold(s, "reject") {
		return ImportRejectInvalid
	}
	return ImportKeepInvalid
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Controller wires user actions to the gateway and reconciles results
// back into state. All state access is mutex-guarded: concurrent actions
// each race independently against the backend, but every individual state
// transition is atomic.
type Controller struct {
	gw    store.Gateway
	clock Clock

	mu       sync.Mutex
	profiles []directory.Profile
	form     directory.Form
	filters  query.Spec
	loaded   bool
	loading  bool
	saving   bool
	loadErr  string
}

// NewController creates a controller over the given gateway.
func NewController(gw store.Gateway) *Controller {
	return NewControllerWithClock(gw, realClock{})
}

// NewControllerWithClock creates a controller with a custom clock (for
// testing).
func NewControllerWithClock(gw store.Gateway, clock Clock) *Controller {
	return &Controller{
		gw:    gw,
		clock: clock,
		form:  directory.BlankForm(),
		filters: query.Spec{
			Sort:     query.SortRecent,
			Page:     1,
			PageSize: query.DefaultPageSize,
		},
	}
}

// Load fetches the full collection from the gateway. It runs exactly once
// per session: repeated calls after a successful load are no-ops. On
// failure the error is recorded and returned, and a later call may retry.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	if c.loaded {
		c.mu.Unlock()
		return nil
	}
	c.loading = true
	c.loadErr = ""
	c.mu.Unlock()

	profiles, err := c.gw.List(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	if err != nil {
		c.loadErr = err.Error()
		return fmt.Errorf("loading profiles: %w", err)
	}
	c.profiles = profiles
	c.loaded = true
	return nil
}

// SetForm replaces the editor contents.
func (c *Controller) SetForm(f directory.Form) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form = f
}

// Form returns the current editor contents.
func (c *Controller) Form() directory.Form {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form
}

// ResetForm restores the blank template.
func (c *Controller) ResetForm() {
	c.SetForm(directory.BlankForm())
}

// Edit loads the identified profile into the editor. Returns false when
// the id is not in the collection.
func (c *Controller) Edit(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.profiles {
		if p.ID.String() == id {
			c.form = directory.FormOf(p)
			return true
		}
	}
	return false
}

// Submit saves the current editor form via SubmitForm and resets the
// editor to blank only on success.
func (c *Controller) Submit(ctx context.Context) (directory.Profile, error) {
	c.mu.Lock()
	form := c.form
	c.mu.Unlock()

	saved, err := c.SubmitForm(ctx, form)
	if err != nil {
		return directory.Profile{}, err
	}

	c.mu.Lock()
	c.form = directory.BlankForm()
	c.mu.Unlock()
	return saved, nil
}

// SubmitForm normalizes and validates an explicit form, leaving the shared
// editor state alone; stateless callers (the HTTP surface) pass their
// request body here so concurrent submissions cannot overwrite each other.
// A validation failure is returned without contacting the gateway.
// Otherwise the profile is saved and the authoritative copy is spliced
// into the collection: replacing the entry with the same id, or prepended
// when new.
func (c *Controller) SubmitForm(ctx context.Context, form directory.Form) (directory.Profile, error) {
	p := directory.NormalizeForm(form, c.clock.Now())
	if err := directory.Validate(p); err != nil {
		return directory.Profile{}, err
	}

	c.mu.Lock()
	c.saving = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.saving = false
		c.mu.Unlock()
	}()

	saved, err := c.gw.Save(ctx, p)
	if err != nil {
		return directory.Profile{}, fmt.Errorf("saving profile: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	idx := slices.IndexFunc(c.profiles, func(q directory.Profile) bool {
		return q.ID.String() == saved.ID.String()
	})
	if idx >= 0 {
		c.profiles[idx] = saved
	} else {
		c.profiles = append([]directory.Profile{saved}, c.profiles...)
	}
	return saved, nil
}

// Delete removes the identified profile from the backend, then from the
// local collection. On failure the collection is unchanged.
func (c *Controller) Delete(ctx context.Context, id string) error {
	if err := c.gw.Remove(ctx, id); err != nil {
		return fmt.Errorf("deleting profile: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.profiles = slices.DeleteFunc(c.profiles, func(p directory.Profile) bool {
		return p.ID.String() == id
	})
	return nil
}

// Import parses data as a JSON array of profile-like records, normalizes
// each, bulk-saves them, and replaces the whole collection with the
// backend's result. A malformed file or a failed save leaves prior state
// untouched. The policy decides whether rows failing validation are
// persisted or dropped.
func (c *Controller) Import(ctx context.Context, data []byte, policy ImportPolicy) ([]directory.Profile, error) {
	elems, err := decodeImportArray(data)
	if err != nil {
		return nil, err
	}

	now := c.clock.Now()
	mapped := make([]directory.Profile, 0, len(elems))
	for _, e := range elems {
		// Non-object elements become blank records; the normalizer (and,
		// under the reject policy, the validator) deals with them.
		var r directory.RawProfile
		_ = json.Unmarshal(e, &r)
		p := directory.NormalizeImport(r, now)
		if policy == ImportRejectInvalid && directory.Validate(p) != nil {
			continue
		}
		mapped = append(mapped, p)
	}

	saved, err := c.gw.BulkSave(ctx, mapped)
	if err != nil {
		return nil, fmt.Errorf("importing profiles: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.profiles = saved
	return saved, nil
}

// decodeImportArray splits an import file into its top-level elements,
// rejecting any shape other than a JSON array. json.Unmarshal alone is too
// lenient for the check: "null" decodes into a nil slice without error.
func decodeImportArray(data []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrMalformedImport
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil, ErrMalformedImport
	}
	return elems, nil
}

// Export serializes the entire in-memory collection for download. No
// backend interaction.
func (c *Controller) Export() ([]byte, error) {
	c.mu.Lock()
	profiles := slices.Clone(c.profiles)
	c.mu.Unlock()
	return json.MarshalIndent(profiles, "", "  ")
}

// Wipe deletes every profile from the backend, one row at a time, and
// clears the local collection and form only when all removals succeed.
// On any failure the local collection is left as it was.
func (c *Controller) Wipe(ctx context.Context) error {
	c.mu.Lock()
	snapshot := slices.Clone(c.profiles)
	c.mu.Unlock()

	for _, p := range snapshot {
		if err := c.gw.Remove(ctx, p.ID.String()); err != nil {
			return fmt.Errorf("wiping profile %s: %w", p.ID, err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.profiles = []directory.Profile{}
	c.form = directory.BlankForm()
	return nil
}

// SetFilters replaces the active view spec.
func (c *Controller) SetFilters(spec query.Spec) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters = spec
}

// Filters returns the active view spec.
func (c *Controller) Filters() query.Spec {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filters
}

// Visible derives the currently visible slice from the collection and the
// active filters. The collection is cloned under the lock: Submit and
// Delete mutate the backing array in place, so reading elements after
// unlocking would race with them.
func (c *Controller) Visible() []directory.Profile {
	c.mu.Lock()
	profiles := slices.Clone(c.profiles)
	spec := c.filters
	c.mu.Unlock()
	return query.Run(profiles, spec)
}

// Query derives a view with an explicit spec, leaving the stored filters
// alone. Used by the stateless HTTP and MCP surfaces.
func (c *Controller) Query(spec query.Spec) []directory.Profile {
	c.mu.Lock()
	profiles := slices.Clone(c.profiles)
	c.mu.Unlock()
	return query.Run(profiles, spec)
}

// Profiles returns a copy of the full collection.
func (c *Controller) Profiles() []directory.Profile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.profiles)
}

// State reports the controller flags for status surfaces.
func (c *Controller) State() (loading, saving bool, loadErr string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading, c.saving, c.loadErr
}
