package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/angelmondragon/backoffice-api/internal/notifications"
	"github.com/angelmondragon/backoffice-api/internal/users"
	"github.com/angelmondragon/backoffice-api/pkg/config"
	"github.com/angelmondragon/backoffice-api/pkg/db"
	"github.com/angelmondragon/backoffice-api/pkg/logger"
	"github.com/angelmondragon/backoffice-api/pkg/outbox/idempotency"
	"github.com/angelmondragon/backoffice-api/pkg/pubsub"
	"github.com/angelmondragon/backoffice-api/pkg/redis"
)

const serviceKind = "notification-worker"

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.New(logger.Options{ServiceName: serviceKind}).Error(ctx, "notification worker failed", err)
		stop()
		os.Exit(1)
	}
}

// run wires the consumer and blocks until ctx is cancelled. Every resource
// opened here is closed before it returns.
func run(ctx context.Context) (err error) {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if cfg.PubSub.NotificationSubscription == "" {
		return errors.New("config: BACKOFFICE_PUBSUB_NOTIFICATION_SUBSCRIPTION is required")
	}
	cfg.Service.Kind = serviceKind

	logg := logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	bus, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return fmt.Errorf("pubsub: %w", err)
	}
	defer func() { err = multierr.Append(err, bus.Close()) }()

	if err := bus.EnsureSubscription(ctx, cfg.PubSub.NotificationSubscription); err != nil {
		return err
	}

	guard, err := idempotency.NewGuard(redisClient, notifications.ConsumerName, cfg.PasswordReset.ProcessedTTL)
	if err != nil {
		return err
	}
	consumer, err := notifications.NewConsumer(notifications.ConsumerParams{
		Subscription: bus.NotificationSubscription(),
		Guard:        guard,
		Admins:       users.NewRepository(dbClient.DB()),
		Notifier:     notifications.NewLogNotifier(logg),
		ResetURL:     cfg.PasswordReset.URL,
		Logger:       logg,
	})
	if err != nil {
		return err
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"subscription": cfg.PubSub.NotificationSubscription,
	})
	logg.Info(ctx, "notification_worker.ready")

	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logg.Info(ctx, "notification_worker.stopped")
	return nil
}
