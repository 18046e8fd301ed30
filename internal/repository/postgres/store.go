// Package postgres implements the repository contract on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/divakaivan/my-reddit-server/internal/repository"
	"github.com/divakaivan/my-reddit-server/internal/repository/postgres/migrations"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists posts, users and the vote ledger in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// txOptions keeps the server default READ COMMITTED. Votes from different
// viewers on one post queue on the post row and each applies its own delta.
// Same-viewer races surface through the ledger primary key (23505) and the
// conditional flip (0 rows), both reported as ErrConflict.
var txOptions = pgx.TxOptions{IsoLevel: pgx.ReadCommitted}

// InTx runs fn in one transaction, committed when fn returns nil.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	err := pgx.BeginTxFunc(ctx, s.pool, txOptions, func(tx pgx.Tx) error {
		return fn(ctx, &txStore{tx: tx})
	})
	return classify(err)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Migrate applies embedded migrations at most once per file.
func (s *Store) Migrate(ctx context.Context) error {
	list, err := repository.LoadMigrations(migrations.FS)
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	_, err = s.pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			name       TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, repository.MigrationTable))
	if err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, m := range list {
		err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
			var applied bool
			err := tx.QueryRow(ctx, fmt.Sprintf(
				`SELECT EXISTS (SELECT 1 FROM %s WHERE name = $1)`, repository.MigrationTable),
				m.Name).Scan(&applied)
			if err != nil || applied {
				return err
			}
			if _, err := tx.Exec(ctx, m.Up, pgx.QueryExecModeSimpleProtocol); err != nil {
				return err
			}
			_, err = tx.Exec(ctx, fmt.Sprintf(
				`INSERT INTO %s (name) VALUES ($1)`, repository.MigrationTable), m.Name)
			return err
		})
		if err != nil {
			return fmt.Errorf("apply migration %s: %w", m.Name, err)
		}
	}
	return nil
}

// Postgres error codes mapped to repository sentinels.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
)

// classify translates driver errors into repository sentinels while keeping
// the original error in the chain.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrConflict) || errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrDuplicate) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w (%w)", repository.ErrNotFound, err)
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeSerializationFailure, codeDeadlockDetected:
		return fmt.Errorf("%w (%w)", repository.ErrConflict, err)
	case codeUniqueViolation:
		if pgErr.TableName == "votes" {
			return fmt.Errorf("%w (%w)", repository.ErrConflict, err)
		}
		return fmt.Errorf("%w (%w)", repository.ErrDuplicate, err)
	case codeForeignKeyViolation:
		return fmt.Errorf("%w (%w)", repository.ErrNotFound, err)
	}
	return err
}

func micros(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

var _ repository.Store = (*Store)(nil)
