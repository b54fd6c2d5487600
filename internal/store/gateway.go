// Package store defines the persistence boundary: the Gateway contract
// every backend implements and the row shape profiles are stored as.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/sayhello/sayhello/internal/directory"
)

// ErrNotFound is returned when an operation targets a row that does not
// exist in the backend.
var ErrNotFound = errors.New("profile not found")

// TransportError is any backend failure: network, constraint violation,
// auth. Local state must be left untouched when one is returned.
type TransportError struct {
	Op      string // gateway operation, e.g. "list"
	Status  int    // HTTP status when applicable, 0 otherwise
	Message string // backend-provided message when available
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: backend returned %d: %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Gateway translates between profiles and backend rows. Implementations:
// supabase.Client (hosted) and sqlite.Store (local-only).
//
// Save dispatches on the profile's RecordID: an existing id issues an
// update-by-id, anything else an insert with a backend-assigned id.
// BulkSave partitions its input the same way, upserting rows with
// existing ids and inserting the rest; empty input returns empty output
// without touching the backend. Every method either fully succeeds or
// returns an error with no partial effect visible to the caller.
type Gateway interface {
	List(ctx context.Context) ([]directory.Profile, error)
	Save(ctx context.Context, p directory.Profile) (directory.Profile, error)
	Remove(ctx context.Context, id string) error
	BulkSave(ctx context.Context, profiles []directory.Profile) ([]directory.Profile, error)
}
