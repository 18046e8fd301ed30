package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/divakaivan/my-reddit-server/internal/config"
	"github.com/divakaivan/my-reddit-server/internal/repository"
	"github.com/divakaivan/my-reddit-server/internal/repository/postgres"
	"github.com/divakaivan/my-reddit-server/internal/repository/sqlite"
)

// OpenStore opens the configured backend and brings its schema up to date.
// The pool is returned for metrics and is nil for the sqlite backend.
func OpenStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (repository.Store, *pgxpool.Pool, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("path", cfg.SQLitePath).Msg("sqlite store opened")
		return store, nil, nil

	case config.DriverPostgres:
		pool, err := NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, log)
		if err != nil {
			return nil, nil, err
		}
		store := postgres.New(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		return store, pool, nil
	}
	return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
}
