package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/backoffice-api/api/routes"
	"github.com/angelmondragon/backoffice-api/internal/auth"
	"github.com/angelmondragon/backoffice-api/internal/inventory"
	"github.com/angelmondragon/backoffice-api/internal/notifications"
	"github.com/angelmondragon/backoffice-api/internal/orders"
	"github.com/angelmondragon/backoffice-api/internal/payment"
	"github.com/angelmondragon/backoffice-api/internal/reports"
	"github.com/angelmondragon/backoffice-api/internal/users"
	"github.com/angelmondragon/backoffice-api/pkg/auth/session"
	"github.com/angelmondragon/backoffice-api/pkg/config"
	"github.com/angelmondragon/backoffice-api/pkg/db"
	"github.com/angelmondragon/backoffice-api/pkg/logger"
	"github.com/angelmondragon/backoffice-api/pkg/metrics"
	"github.com/angelmondragon/backoffice-api/pkg/migrate"
	"github.com/angelmondragon/backoffice-api/pkg/outbox"
	"github.com/angelmondragon/backoffice-api/pkg/redis"
	"github.com/angelmondragon/backoffice-api/pkg/storage/gcs"
	"github.com/angelmondragon/backoffice-api/pkg/stripe"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	requireResource(ctx, logg, "dev migrations", migrate.MaybeRunDev(ctx, cfg, logg, dbClient))

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)

	closers := []func() error{redisClient.Close, dbClient.Close}
	defer func() {
		var errs error
		for _, closeFn := range closers {
			errs = multierr.Append(errs, closeFn())
		}
		if errs != nil {
			logg.Error(ctx, "shutdown close failed", errs)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	requireResource(ctx, logg, "session manager", err)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := metrics.NewHTTPMetrics(registry)
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	usersRepo := users.NewRepository(dbClient.DB())
	itemsRepo := inventory.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	var images inventory.ImageUploader
	if cfg.FeatureFlags.DisableStorage {
		logg.Warn(ctx, "object storage disabled; inventory creation will fail")
	} else {
		gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
		requireResource(ctx, logg, "gcs", err)
		closers = append(closers, gcsClient.Close)
		images, err = inventory.NewMediaUploader(gcsClient, cfg.GCS.ObjectPrefix, cfg.Media.MaxUploadBytes(), logg)
		requireResource(ctx, logg, "media uploader", err)
	}

	var charger stripe.Charger
	if cfg.FeatureFlags.DisablePayment {
		logg.Warn(ctx, "payment processor disabled; card checkout will fail")
	} else {
		stripeClient, err := stripe.NewClient(ctx, cfg.Stripe, logg)
		requireResource(ctx, logg, "stripe", err)
		charger = stripe.NewCharger(stripeClient)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		Users:          usersRepo,
		Tx:             dbClient,
		Sessions:       sessionManager,
		Outbox:         outboxService,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		ResetTokenTTL:  cfg.PasswordReset.TokenTTL,
		Logger:         logg,
	})
	requireResource(ctx, logg, "auth service", err)

	inventoryService, err := inventory.NewService(inventory.ServiceParams{Repo: itemsRepo, Images: images, Logger: logg})
	requireResource(ctx, logg, "inventory service", err)

	ordersService, err := orders.NewService(ordersRepo, dbClient, outboxService, logg)
	requireResource(ctx, logg, "orders service", err)

	paymentService, err := payment.NewService(payment.ServiceParams{
		Orders:            ordersRepo,
		Stock:             inventory.NewTxStock(itemsRepo),
		Tx:                dbClient,
		Outbox:            outboxService,
		Charger:           charger,
		Metrics:           checkoutMetrics,
		Logger:            logg,
		Currency:          cfg.Payment.Currency,
		Description:       cfg.Payment.Description,
		LowStockThreshold: cfg.Catalog.LowStockThreshold,
	})
	requireResource(ctx, logg, "payment service", err)

	reportsService, err := reports.NewService(itemsRepo, ordersRepo)
	requireResource(ctx, logg, "reports service", err)

	notificationsService, err := notifications.NewService(itemsRepo, cfg.Catalog.LowStockThreshold)
	requireResource(ctx, logg, "notifications service", err)

	usersService, err := users.NewService(usersRepo)
	requireResource(ctx, logg, "users service", err)

	handler := routes.NewRouter(routes.Dependencies{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		Redis:         redisClient,
		Sessions:      sessionManager,
		Metrics:       httpMetrics,
		Gatherer:      metrics.Handler(registry),
		Auth:          authService,
		Inventory:     inventoryService,
		Orders:        ordersService,
		Payment:       paymentService,
		Reports:       reportsService,
		Notifications: notificationsService,
		Users:         usersService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	runCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.App.ReadTimeout,
		WriteTimeout: cfg.App.WriteTimeout,
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(runCtx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(runCtx, "api server stopped unexpectedly", err)
		}
	case <-sigCtx.Done():
		logg.Info(runCtx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.App.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(runCtx, "graceful shutdown failed", err)
		}
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
