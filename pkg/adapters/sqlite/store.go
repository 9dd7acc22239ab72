// Package sqlite implements ports.SnapshotStore on a pure-Go SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/sot/pkg/domain"
	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// Store persists snapshots in a single table keyed by tick.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at path and runs migrations.
// The special path ":memory:" keeps everything in process memory.
func New(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("sqlite: create data dir: %w", err)
		}
	}

	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}
	// A second connection would see a different :memory: database.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	if path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: migration: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshots (
			tick       INTEGER PRIMARY KEY,
			created_at TEXT    NOT NULL,
			payload    TEXT    NOT NULL
		);
	`)
	return err
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save persists the snapshot, replacing any previous one for the same tick.
func (s *Store) Save(ctx context.Context, snap *domain.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("sqlite: marshal snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (tick, created_at, payload) VALUES (?, ?, ?)
		 ON CONFLICT(tick) DO UPDATE SET created_at = excluded.created_at, payload = excluded.payload`,
		int64(snap.Tick), snap.CreatedAt.UTC().Format(time.RFC3339Nano), string(payload),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save tick %d: %w", snap.Tick, err)
	}
	return nil
}

// Load retrieves the snapshot of a tick.
func (s *Store) Load(ctx context.Context, tick uint64) (*domain.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `SELECT payload FROM snapshots WHERE tick = ?`, int64(tick))
	return scan(row)
}

// Latest retrieves the snapshot with the highest tick.
func (s *Store) Latest(ctx context.Context) (*domain.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `SELECT payload FROM snapshots ORDER BY tick DESC LIMIT 1`)
	return scan(row)
}

// List returns the stored ticks in ascending order.
func (s *Store) List(ctx context.Context) ([]uint64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT tick FROM snapshots ORDER BY tick ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list ticks: %w", err)
	}
	defer rows.Close()

	ticks := []uint64{}
	for rows.Next() {
		var tick int64
		if err := rows.Scan(&tick); err != nil {
			return nil, fmt.Errorf("sqlite: scan tick: %w", err)
		}
		ticks = append(ticks, uint64(tick))
	}
	return ticks, rows.Err()
}

func scan(row *sql.Row) (*domain.Snapshot, error) {
	var payload string
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("sqlite: load snapshot: %w", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return nil, fmt.Errorf("sqlite: unmarshal snapshot: %w", err)
	}
	return &snap, nil
}
