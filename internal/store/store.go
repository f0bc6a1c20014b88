package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// ledgerApplicationID stamps the SQLite header of every ledger ("sobt").
const ledgerApplicationID = 0x736f6274

// ErrNotLedger is returned by Open for a SQLite file that belongs to some
// other application. Open never adds ledger tables to such a file.
var ErrNotLedger = errors.New("store: database is not a release ledger")

// migration moves the ledger from version-1 to version. Each step runs in
// its own transaction together with the user_version bump.
type migration struct {
	version int
	apply   func(tx *sql.Tx) error
}

// migrations lists every step in order. Version 0 is the base schema.
var migrations = []migration{
	{version: 1, apply: indexEmissionsByTargetStatus},
}

// currentSchemaVersion is the version a freshly opened ledger reports.
var currentSchemaVersion = migrations[len(migrations)-1].version

// ledgerPragmas are applied on every connection Open hands out.
var ledgerPragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA foreign_keys = ON",
}

// Store is the durable release ledger.
// Uses SQLite with WAL mode for concurrent read access.
type Store struct {
	db *sql.DB
}

// Open creates or opens the ledger at path. An empty file or ":memory:" is
// initialized; an existing ledger is migrated forward; any other SQLite
// database is refused with ErrNotLedger.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite has one writer; a single connection also keeps :memory: ledgers
	// from splitting across connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := claimLedger(db); err != nil {
		db.Close()
		return nil, err
	}
	for _, pragma := range ledgerPragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to execute schema: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// claimLedger checks the header stamp. A database stamped by another
// application, or an unstamped one that already holds tables other than a
// ledger's, is rejected. Unstamped ledgers written before the stamp existed
// are claimed.
func claimLedger(db *sql.DB) error {
	var appID int64
	if err := db.QueryRow("PRAGMA application_id").Scan(&appID); err != nil {
		return fmt.Errorf("read application_id: %w", err)
	}
	switch appID {
	case ledgerApplicationID:
		return nil
	case 0:
	default:
		return fmt.Errorf("%w (application_id %#x)", ErrNotLedger, appID)
	}

	var tables, releases int
	err := db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(name = 'releases'), 0)
		FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`).Scan(&tables, &releases)
	if err != nil {
		return fmt.Errorf("inspect tables: %w", err)
	}
	if tables > 0 && releases == 0 {
		return fmt.Errorf("%w (holds %d unrelated tables)", ErrNotLedger, tables)
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA application_id = %d", ledgerApplicationID)); err != nil {
		return fmt.Errorf("stamp application_id: %w", err)
	}
	return nil
}

// migrate applies every step newer than the ledger's user_version. A ledger
// written by a newer build is left untouched.
func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("ledger schema v%d is newer than this build (v%d)", version, currentSchemaVersion)
	}

	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin v%d: %w", m.version, err)
		}
		if err := m.apply(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migrate to v%d: %w", m.version, err)
		}
		// PRAGMA does not take bound parameters.
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
			tx.Rollback()
			return fmt.Errorf("set user_version %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit v%d: %w", m.version, err)
		}
	}
	return nil
}

// indexEmissionsByTargetStatus lets LatestAccepted find a target's newest
// accepted bootstrap without a table scan.
func indexEmissionsByTargetStatus(tx *sql.Tx) error {
	_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_emissions_target_status
		ON emissions(target, status)`)
	return err
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
