package cache

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var fingerprintMigrationsFS embed.FS

// FingerprintIndex is the Tier-2 fast path: a small SQLite table
// mapping an output fingerprint to the artifact path it was last
// written to, so a re-run can skip a disk stat+read per candidate
// output. OutputStateCache.ShouldWrite answers "write" whenever the
// index is absent, unreadable, or has no entry for the fingerprint; it
// does not read an existing artifact's embedded fingerprint, so a
// stale index entry (the file changed or removed after it was
// recorded) still results in a skip.
type FingerprintIndex struct {
	db *sql.DB
}

// OpenFingerprintIndex opens (creating if necessary) the SQLite-backed
// index at path and migrates its schema to the latest version.
func OpenFingerprintIndex(path string) (*FingerprintIndex, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cache: opening fingerprint index: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("cache: applying pragma %q: %w", p, err)
		}
	}

	if err := migrateFingerprintSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &FingerprintIndex{db: db}, nil
}

func migrateFingerprintSchema(db *sql.DB) error {
	sourceDriver, err := iofs.New(fingerprintMigrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("cache: loading embedded migrations: %w", err)
	}

	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("cache: creating sqlite migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("cache: creating migration runner: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("cache: applying fingerprint index migrations: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (idx *FingerprintIndex) Close() error {
	return idx.db.Close()
}

// Lookup returns the path last recorded for fingerprint fp, if any.
func (idx *FingerprintIndex) Lookup(fp string) (path string, ok bool, err error) {
	row := idx.db.QueryRow(`SELECT path FROM output_fingerprint WHERE output_fingerprint = ?`, fp)
	if err := row.Scan(&path); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("cache: looking up fingerprint: %w", err)
	}
	return path, true, nil
}

// Put records that fingerprint fp was written to path at writtenUnixNanos.
func (idx *FingerprintIndex) Put(fp, path string, writtenUnixNanos int64) error {
	_, err := idx.db.Exec(
		`INSERT INTO output_fingerprint (output_fingerprint, path, written_unix_nanos)
		 VALUES (?, ?, ?)
		 ON CONFLICT(output_fingerprint) DO UPDATE SET path = excluded.path, written_unix_nanos = excluded.written_unix_nanos`,
		fp, path, writtenUnixNanos,
	)
	if err != nil {
		return fmt.Errorf("cache: recording fingerprint: %w", err)
	}
	return nil
}
