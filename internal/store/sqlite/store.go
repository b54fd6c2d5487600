// Package sqlite implements the persistence gateway on an embedded SQLite
// database. This is the local-only variant: profiles never leave the
// machine, and bulk import/export files are the way to move them around.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/sayhello/sayhello/internal/directory"
	"github.com/sayhello/sayhello/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const selectColumns = "id, name, email, native, practice, level, availability, interests, bio, updated_at"

// Store wraps a SQLite database holding the profiles table.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (used
// by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "sayhello.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate applies embedded SQL migrations that haven't been run yet.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		var version int
		if _, err := fmt.Sscanf(entry.Name(), "%d_", &version); err != nil {
			return fmt.Errorf("parsing migration version from %q: %w", entry.Name(), err)
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}
	return nil
}

// List returns every stored profile.
func (s *Store) List(ctx context.Context) ([]directory.Profile, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+selectColumns+" FROM profiles")
	if err != nil {
		return nil, fmt.Errorf("listing profiles: %w", err)
	}
	defer rows.Close()

	now := time.Now()
	profiles := []directory.Profile{}
	for rows.Next() {
		var row store.Row
		if err := scanRow(rows, &row); err != nil {
			return nil, err
		}
		profiles = append(profiles, store.FromRow(row, now))
	}
	return profiles, rows.Err()
}

// Save updates the row matching an existing id, or inserts a new row with
// a freshly assigned id. The stored row is returned.
func (s *Store) Save(ctx context.Context, p directory.Profile) (directory.Profile, error) {
	row := store.ToRow(p, true)
	row.UpdatedAt = store.FormatUpdatedAt(time.Now().UnixMilli())

	if p.ID.Existing() {
		res, err := s.db.ExecContext(ctx, `UPDATE profiles
			SET name = ?, email = ?, native = ?, practice = ?, level = ?, availability = ?, interests = ?, bio = ?, updated_at = ?
			WHERE id = ?`,
			row.Name, row.Email, row.Native, row.Practice, row.Level, row.Availability, row.Interests, row.Bio, row.UpdatedAt, row.ID,
		)
		if err != nil {
			return directory.Profile{}, fmt.Errorf("updating profile: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return directory.Profile{}, err
		}
		if n == 0 {
			return directory.Profile{}, store.ErrNotFound
		}
		return store.FromRow(row, time.Now()), nil
	}

	row.ID = uuid.NewString()
	if _, err := s.db.ExecContext(ctx, `INSERT INTO profiles (`+selectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ID, row.Name, row.Email, row.Native, row.Practice, row.Level, row.Availability, row.Interests, row.Bio, row.UpdatedAt,
	); err != nil {
		return directory.Profile{}, fmt.Errorf("inserting profile: %w", err)
	}
	return store.FromRow(row, time.Now()), nil
}

// Remove deletes the row with the given id.
func (s *Store) Remove(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM profiles WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting profile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// BulkSave upserts rows with existing ids and inserts the rest, all in
// one transaction so a failure leaves the database unchanged. Affected
// rows come back upserts-first, matching the hosted gateway.
func (s *Store) BulkSave(ctx context.Context, profiles []directory.Profile) ([]directory.Profile, error) {
	if len(profiles) == 0 {
		return []directory.Profile{}, nil
	}

	var withID, withoutID []store.Row
	stamp := store.FormatUpdatedAt(time.Now().UnixMilli())
	for _, p := range profiles {
		row := store.ToRow(p, true)
		row.UpdatedAt = stamp
		if p.ID.Existing() {
			withID = append(withID, row)
		} else {
			row.ID = uuid.NewString()
			withoutID = append(withoutID, row)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning bulk save: %w", err)
	}
	defer tx.Rollback()

	upsert, err := tx.PrepareContext(ctx, `INSERT INTO profiles (`+selectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, email = excluded.email, native = excluded.native,
			practice = excluded.practice, level = excluded.level, availability = excluded.availability,
			interests = excluded.interests, bio = excluded.bio, updated_at = excluded.updated_at`)
	if err != nil {
		return nil, fmt.Errorf("preparing bulk upsert: %w", err)
	}
	defer upsert.Close()

	saved := make([]store.Row, 0, len(withID)+len(withoutID))
	for _, row := range append(withID, withoutID...) {
		if _, err := upsert.ExecContext(ctx,
			row.ID, row.Name, row.Email, row.Native, row.Practice, row.Level, row.Availability, row.Interests, row.Bio, row.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("bulk saving profile %s: %w", row.ID, err)
		}
		saved = append(saved, row)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing bulk save: %w", err)
	}
	return store.FromRows(saved, time.Now()), nil
}

// Count returns the number of stored profiles.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM profiles").Scan(&n)
	return n, err
}

// AppliedMigrations returns applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(sc scanner, row *store.Row) error {
	var updatedAt sql.NullString
	if err := sc.Scan(&row.ID, &row.Name, &row.Email, &row.Native, &row.Practice,
		&row.Level, &row.Availability, &row.Interests, &row.Bio, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		return fmt.Errorf("scanning profile row: %w", err)
	}
	row.UpdatedAt = updatedAt.String
	return nil
}
