// internal/platform/database/database.go

// Package database opens the process's SQL connections.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gamenexus/pkg/eventstore"

	"github.com/cenkalti/backoff/v5"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// OpenPostgres connects to dsn, retrying with exponential backoff while the
// database is still starting up.
func OpenPostgres(ctx context.Context, dsn string, maxTries uint, logger *slog.Logger) (*sqlx.DB, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond

	db, err := backoff.Retry(ctx, func() (*sqlx.DB, error) {
		return sqlx.ConnectContext(ctx, "postgres", dsn)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Warn("postgres not reachable yet", "retry_in", next, "error", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return db, nil
}

// OpenEventStore returns the event store selected by driver. For
// "postgres" it shares db; for "sqlite" it opens sqlitePath. The returned
// close func releases only what this call opened.
func OpenEventStore(ctx context.Context, driver, sqlitePath string, db *sqlx.DB) (eventstore.Store, func() error, error) {
	switch driver {
	case "postgres":
		store := eventstore.NewPostgresStore(db.DB)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, nil, err
		}
		return store, func() error { return nil }, nil
	case "sqlite":
		store, err := eventstore.OpenSQLite(ctx, sqlitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown event store driver %q", driver)
	}
}
