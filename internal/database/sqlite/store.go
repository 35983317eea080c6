// Package sqlite is a durable single-node store: the memory store, with its
// state snapshotted to SQLite before every transaction becomes visible.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/amengaji/Keel/internal/database/memory"
)

// Store persists the memory store's state to a single SQLite table as JSON
// blobs, one per table.
type Store struct {
	*memory.Store
	db   *sql.DB
	path string
}

var buckets = []string{"seq", "ship_types", "users", "cadet_profiles", "vessels", "training_tasks", "assignments", "import_batches"}

// Open opens or creates the database at path and loads its state.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = "keel.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}

	s := &Store{db: db, path: path}
	snap, err := s.load(ctx)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.Store = memory.Open(snap, s.persist)
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// Ping checks the database handle.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func fields(snap *memory.Snapshot) map[string]any {
	return map[string]any{
		"seq":            &snap.Seq,
		"ship_types":     &snap.ShipTypes,
		"users":          &snap.Users,
		"cadet_profiles": &snap.Profiles,
		"vessels":        &snap.Vessels,
		"training_tasks": &snap.Tasks,
		"assignments":    &snap.Assignments,
		"import_batches": &snap.Batches,
	}
}

func (s *Store) load(ctx context.Context) (*memory.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT bucket, payload FROM state`)
	if err != nil {
		return nil, fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	snap := &memory.Snapshot{}
	targets := fields(snap)
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		target, ok := targets[bucket]
		if !ok {
			continue
		}
		if err := json.Unmarshal(payload, target); err != nil {
			return nil, fmt.Errorf("decode %s: %w", bucket, err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}
	return snap, nil
}

// persist writes every bucket in one SQLite transaction.
func (s *Store) persist(ctx context.Context, snap *memory.Snapshot) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	values := fields(snap)
	for _, bucket := range buckets {
		data, err := json.Marshal(values[bucket])
		if err != nil {
			return fmt.Errorf("encode %s: %w", bucket, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, bucket, data); err != nil {
			return fmt.Errorf("upsert %s: %w", bucket, err)
		}
	}
	return tx.Commit()
}
