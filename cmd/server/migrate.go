package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spothole/spothole-api/internal/config"
	"github.com/spothole/spothole-api/internal/database"
	"github.com/spothole/spothole-api/internal/logging"
	"github.com/spothole/spothole-api/internal/store"
)

// runMigrate brings an existing database up to the current report schema.
func runMigrate(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config.Load()
	logging.Setup(cfg.AppEnv)

	if cfg.StoreDriver != store.DriverMongo {
		return fmt.Errorf("migrate needs STORE_DRIVER=%s, got %q", store.DriverMongo, cfg.StoreDriver)
	}

	m, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = m.Disconnect(dctx)
	}()

	if err := database.EnsureIndexes(ctx, m.DB); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}
	slog.Info("indexes ensured")

	changed, err := store.NewMongoStore(m.DB).NormalizeLegacy(ctx)
	if err != nil {
		return fmt.Errorf("normalize legacy reports: %w", err)
	}
	slog.Info("legacy reports normalized", "updated", changed)
	return nil
}
