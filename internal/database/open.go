// Package database opens the authoritative store selected by configuration.
package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amengaji/Keel/internal/config"
	"github.com/amengaji/Keel/internal/core"
	"github.com/amengaji/Keel/internal/database/memory"
	"github.com/amengaji/Keel/internal/database/postgres"
	"github.com/amengaji/Keel/internal/database/sqlite"
)

// Open connects the configured store driver. The returned close function
// releases its connections and is safe to call once.
func Open(ctx context.Context, cfg config.DatabaseConfig) (core.Store, func(), error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		store, err := postgres.Open(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		if cfg.AutoMigrate {
			if err := store.Migrate(ctx); err != nil {
				store.Close()
				return nil, nil, fmt.Errorf("migrate: %w", err)
			}
			slog.Info("database schema applied")
		}
		return store, store.Close, nil

	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				slog.Warn("close sqlite store", "error", err)
			}
		}, nil

	case config.DriverMemory:
		return memory.New(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
