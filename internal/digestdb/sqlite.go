// Package digestdb records region digests so repeated runs with the same seed
// and configuration can be checked for byte-identical output.
package digestdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Lookup when no digest has been recorded.
var ErrNotFound = errors.New("digest not recorded")

// Key identifies one region of one world configuration.
type Key struct {
	Seed       int64
	ConfigHash string
	RX         int
	RZ         int
}

func (k Key) String() string {
	return fmt.Sprintf("seed=%d config=%s region=(%d,%d)", k.Seed, k.ConfigHash, k.RX, k.RZ)
}

// MismatchError reports a region whose digest changed between runs.
type MismatchError struct {
	Key      Key
	Recorded string
	Got      string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("digest mismatch for %s: recorded %s, got %s", e.Key, e.Recorded, e.Got)
}

type DB struct {
	db *sql.DB
}

func Open(path string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DB{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS region_digests (
		seed INTEGER NOT NULL,
		config_hash TEXT NOT NULL,
		rx INTEGER NOT NULL,
		rz INTEGER NOT NULL,
		digest TEXT NOT NULL,
		recorded_at TEXT NOT NULL,
		PRIMARY KEY (seed, config_hash, rx, rz)
	);`)
	return err
}

func (d *DB) Close() error { return d.db.Close() }

// Record stores digest for key, replacing any earlier value.
func (d *DB) Record(ctx context.Context, key Key, digest string) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO region_digests (seed, config_hash, rx, rz, digest, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (seed, config_hash, rx, rz) DO UPDATE SET digest=excluded.digest, recorded_at=excluded.recorded_at`,
		key.Seed, key.ConfigHash, key.RX, key.RZ, digest, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("record %s: %w", key, err)
	}
	return nil
}

// Lookup returns the digest recorded for key or ErrNotFound.
func (d *DB) Lookup(ctx context.Context, key Key) (string, error) {
	var digest string
	err := d.db.QueryRowContext(ctx,
		`SELECT digest FROM region_digests WHERE seed=? AND config_hash=? AND rx=? AND rz=?`,
		key.Seed, key.ConfigHash, key.RX, key.RZ).Scan(&digest)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup %s: %w", key, err)
	}
	return digest, nil
}

// Verify compares digest against the recorded value. A region seen for the
// first time is recorded and reported as new.
func (d *DB) Verify(ctx context.Context, key Key, digest string) (bool, error) {
	recorded, err := d.Lookup(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return true, d.Record(ctx, key, digest)
	}
	if err != nil {
		return false, err
	}
	if recorded != digest {
		return false, &MismatchError{Key: key, Recorded: recorded, Got: digest}
	}
	return false, nil
}

// Count returns how many digests are recorded for a seed and configuration.
func (d *DB) Count(ctx context.Context, seed int64, configHash string) (int, error) {
	var n int
	err := d.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM region_digests WHERE seed=? AND config_hash=?`, seed, configHash).Scan(&n)
	return n, err
}
