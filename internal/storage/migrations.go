package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// DefaultJournalMode is the SQLite journal mode used when none is configured.
const DefaultJournalMode = "wal"

// MigrationRunner applies pending schema migrations to a SQLite database.
type MigrationRunner struct {
	db          *sql.DB
	journalMode string
}

// NewMigrationRunner creates a MigrationRunner for db using the embedded
// migration files.
func NewMigrationRunner(db *sql.DB) *MigrationRunner {
	return &MigrationRunner{db: db, journalMode: DefaultJournalMode}
}

// WithJournalMode overrides the journal mode set before migrating. An empty
// mode keeps the default.
func (r *MigrationRunner) WithJournalMode(mode string) *MigrationRunner {
	if mode = strings.TrimSpace(mode); mode != "" {
		r.journalMode = mode
	}
	return r
}

// Run sets the journal mode, enables foreign keys, then applies every
// migration that has not been applied yet. It returns the resulting schema
// version.
func (r *MigrationRunner) Run() (uint, error) {
	if _, err := r.db.Exec("PRAGMA journal_mode = " + r.journalMode); err != nil {
		return 0, fmt.Errorf("%w: set journal mode: %w", ErrStoreUnavailable, err)
	}

	if _, err := r.db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return 0, fmt.Errorf("%w: enable foreign keys: %w", ErrStoreUnavailable, err)
	}

	driver, err := sqlite3.WithInstance(r.db, &sqlite3.Config{})
	if err != nil {
		return 0, fmt.Errorf("%w: create migrate driver: %w", ErrStoreUnavailable, err)
	}

	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("open migration source: %w", err)
	}

	// The migrate instance is deliberately not closed: closing it closes db.
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return 0, fmt.Errorf("%w: create migrate instance: %w", ErrStoreUnavailable, err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("%w: apply migrations: %w", ErrStoreUnavailable, err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("%w: read migration version: %w", ErrStoreUnavailable, err)
	}
	if dirty {
		return version, fmt.Errorf("%w: schema version %d is dirty", ErrStoreUnavailable, version)
	}

	return version, nil
}
