package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"

	"github.com/liamcoop/aquasens/internal/config"
	"github.com/liamcoop/aquasens/internal/logger"
	"github.com/liamcoop/aquasens/migrations"
	"github.com/liamcoop/aquasens/predictions"
)

const connectAttempts = 5

// openStore builds the configured Store. The returned func releases it.
func openStore(ctx context.Context, cfg *config.ServerConfig) (predictions.Store, func() error, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		logger.Warn("Using in-memory store, predictions are lost on restart")
		return predictions.NewInMemoryStore(), func() error { return nil }, nil

	case config.DriverSQLite:
		store, err := predictions.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Opened SQLite store", "path", cfg.SQLitePath)
		return store, store.Close, nil

	case config.DriverPostgres:
		db, err := connectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if cfg.MigrateOnStart {
			if err := migrations.ApplyPostgres(cfg.DatabaseURL); err != nil {
				_ = db.Close()
				return nil, nil, err
			}
			logger.Info("Applied database migrations")
		}
		return predictions.NewPostgresStore(db), db.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// connectPostgres opens the pool and retries the first ping while the
// database comes up.
func connectPostgres(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second

	attempt := 0
	err = backoff.Retry(func() error {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			logger.Warn("Database not ready", "attempt", attempt, "error", err)
			return err
		}
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, connectAttempts-1), ctx))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database after %d attempts: %w", attempt, err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}
