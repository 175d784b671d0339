package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mercadito-app/mercadito-backend/internal/catalog"
	"github.com/mercadito-app/mercadito-backend/internal/lists"
	"github.com/mercadito-app/mercadito-backend/pkg/config"
	"github.com/mercadito-app/mercadito-backend/pkg/db"
	"github.com/mercadito-app/mercadito-backend/pkg/logger"
	"github.com/mercadito-app/mercadito-backend/pkg/redis"
)

// The worker subscribes to list change notifications and recomputes the
// device mirror document for each changed list.
func main() {
	logg := logger.New(logger.Options{ServiceName: "mirror-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "mirror-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	listRepo := lists.NewRepository(dbClient.DB())
	catalogRepo := catalog.NewRepository(dbClient.DB())

	// The worker only recomputes mirrors, so it never publishes change
	// notifications of its own and holds no checkout sessions.
	listService, err := lists.NewService(dbClient, listRepo, catalogRepo, lists.NopNotifier{}, nil, logg, nil)
	if err != nil {
		logg.Error(ctx, "failed to create list service", err)
		os.Exit(1)
	}

	logg.Info(ctx, "mirror worker starting")
	watcher := lists.NewWatcher(redisClient, listService, logg)
	if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "mirror worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(context.Background(), "mirror worker shut down")
}
