package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/md-rashed-zaman/dayplanner/libs/db"
	"github.com/md-rashed-zaman/dayplanner/services/calendar-service/internal/storage"
)

func openStore(ctx context.Context, cfg Config, logger *slog.Logger) (storage.Store, error) {
	if cfg.StoreBackend == backendPostgres {
		pool, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		store := storage.NewPostgresStore(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("store ready", "backend", backendPostgres)
		return store, nil
	}

	if cfg.BadgerPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.BadgerPath), 0o755); err != nil {
			return nil, err
		}
	}
	store, err := storage.OpenBadger(cfg.BadgerPath, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("store ready", "backend", backendBadger, "path", cfg.BadgerPath)
	return store, nil
}
