// Package postgres implements core.Store over a pgx connection pool.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	gerrors "github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amengaji/Keel/internal/config"
	"github.com/amengaji/Keel/internal/core"
)

//go:embed schema.sql
var schema string

const uniqueViolation = "23505"

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the PostgreSQL-backed authoritative store.
type Store struct {
	queries
	pool *pgxpool.Pool
}

var _ core.Store = (*Store)(nil)

// Open parses cfg, connects the pool and verifies the connection.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, gerrors.Wrap(err, "parse database url")
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, gerrors.Wrap(err, "connect to database")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, gerrors.Wrap(err, "ping database")
	}
	return New(pool), nil
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{queries: queries{db: pool}, pool: pool}
}

// Pool returns the underlying pool.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// Close closes the pool.
func (s *Store) Close() { s.pool.Close() }

// Ping checks the pool.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies the bundled schema.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return gerrors.Wrap(err, "apply schema")
	}
	return nil
}

// InTx runs fn in one transaction. It commits only when fn returns nil; the
// rollback uses a context that survives the caller's deadline so a timed
// out commit does not leak its connection.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx core.Tx) error) (retErr error) {
	pgTx, err := s.pool.Begin(ctx)
	if err != nil {
		return gerrors.Wrap(err, "begin transaction")
	}
	defer func() {
		if retErr != nil {
			_ = pgTx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	if err := fn(ctx, &Tx{queries: queries{db: pgTx}, tx: pgTx}); err != nil {
		return err
	}
	if err := pgTx.Commit(ctx); err != nil {
		return gerrors.Wrap(err, "commit transaction")
	}
	return nil
}

// Tx is one open transaction.
type Tx struct {
	queries
	tx pgx.Tx
}

var _ core.Tx = (*Tx)(nil)

// Savepoint names come from the commit executor ("sp_<n>"), never from input.

func (t *Tx) Savepoint(ctx context.Context, name string) error {
	if _, err := t.tx.Exec(ctx, "SAVEPOINT "+pgx.Identifier{name}.Sanitize()); err != nil {
		return gerrors.Wrap(err, "savepoint")
	}
	return nil
}

func (t *Tx) RollbackToSavepoint(ctx context.Context, name string) error {
	if _, err := t.tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+pgx.Identifier{name}.Sanitize()); err != nil {
		return gerrors.Wrap(err, "rollback to savepoint")
	}
	return nil
}

func (t *Tx) ReleaseSavepoint(ctx context.Context, name string) error {
	if _, err := t.tx.Exec(ctx, "RELEASE SAVEPOINT "+pgx.Identifier{name}.Sanitize()); err != nil {
		return gerrors.Wrap(err, "release savepoint")
	}
	return nil
}

// translate turns unique violations into core.ErrDuplicate and wraps the
// rest.
func translate(err error, op string) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %s: %w", op, pgErr.ConstraintName, core.ErrDuplicate)
	}
	return gerrors.Wrap(err, op)
}
