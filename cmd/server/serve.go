package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/spothole/spothole-api/internal/cache"
	"github.com/spothole/spothole-api/internal/config"
	"github.com/spothole/spothole-api/internal/database"
	"github.com/spothole/spothole-api/internal/logging"
	"github.com/spothole/spothole-api/internal/metrics"
	"github.com/spothole/spothole-api/internal/server"
	"github.com/spothole/spothole-api/internal/services"
	"github.com/spothole/spothole-api/internal/store"
	"go.mongodb.org/mongo-driver/mongo"
)

func runServe() error {
	cfg := config.Load()
	// Structured logging (JSON to stdout)
	stdout := logging.Setup(cfg.AppEnv)

	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET environment variable is required")
	}

	ctx := context.Background()

	// Document store
	var mdb *mongo.Database
	if cfg.StoreDriver == store.DriverMongo {
		m, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return err
		}
		defer func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := m.Disconnect(dctx); err != nil {
				slog.Error("mongo disconnect error", "error", err)
			}
		}()
		if err := database.EnsureIndexes(ctx, m.DB); err != nil {
			slog.Warn("index creation warnings", "error", err)
		}
		mdb = m.DB
	}
	potholeStore, users, err := store.NewFromConfig(cfg.StoreDriver, mdb)
	if err != nil {
		return err
	}
	slog.Info("store ready", "driver", cfg.StoreDriver)

	// PostgreSQL log handler (ERROR+ async batch)
	cleanupDone := make(chan struct{})
	var pgLogHandler *logging.PGHandler
	if cfg.LogDBDSN != "" {
		logDB, err := database.ConnectLogDB(cfg.LogDBDSN)
		if err != nil {
			slog.Error("log database unavailable, continuing with stdout only", "error", err)
		} else {
			sink := logging.NewGormSink(logDB)
			pgLogHandler = logging.NewPGHandler(sink)
			slog.SetDefault(slog.New(logging.NewMultiHandler(stdout, pgLogHandler)))
			logging.StartCleanup(sink, cfg.LogRetentionDays, cleanupDone)
			defer func() {
				if err := database.CloseLogDB(logDB); err != nil {
					slog.Error("log database close error", "error", err)
				}
			}()
		}
	}

	// List cache
	var listCache cache.ListCache = cache.Noop{}
	if cfg.RedisAddr != "" {
		rc, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.ListCacheTTL)
		if err != nil {
			slog.Warn("redis unavailable, list cache disabled", "error", err)
		} else {
			listCache = rc
			defer rc.Close()
		}
	}

	deps := server.Deps{
		Store:     potholeStore,
		Users:     users,
		Cache:     listCache,
		Geocoder:  services.NewGeocoder(cfg.GeocoderURL, cfg.GeocoderTimeout),
		Metrics:   metrics.New(),
		AccessLog: true,
	}

	// Object storage
	if cfg.UploadsEnabled() {
		presigner, err := services.NewS3Presigner(ctx, cfg.S3Region, cfg.AWSAccessKeyID, cfg.AWSSecretKey)
		if err != nil {
			slog.Error("s3 presigner init failed, uploads disabled", "error", err)
		} else {
			deps.Presigner = presigner
		}
	} else {
		slog.Warn("AWS_S3_REGION or AWS_S3_BUCKET_NAME not set, uploads disabled")
	}

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			deps.Sentry = true
			defer sentry.Flush(2 * time.Second)
		}
	}

	app := server.New(cfg, deps)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	listenErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Port)
		listenErr <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-listenErr:
		return fmt.Errorf("server failed to start: %w", err)
	case <-quit:
	}
	slog.Info("shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	close(cleanupDone)
	if pgLogHandler != nil {
		pgLogHandler.Stop()
	}

	slog.Info("server stopped")
	return nil
}
