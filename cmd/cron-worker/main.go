package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/ashimneupane/bazarly-backend/internal/auth"
	"github.com/ashimneupane/bazarly-backend/internal/cart"
	"github.com/ashimneupane/bazarly-backend/internal/categories"
	"github.com/ashimneupane/bazarly-backend/internal/cron"
	"github.com/ashimneupane/bazarly-backend/internal/notifications"
	"github.com/ashimneupane/bazarly-backend/internal/orders"
	"github.com/ashimneupane/bazarly-backend/internal/products"
	"github.com/ashimneupane/bazarly-backend/pkg/config"
	"github.com/ashimneupane/bazarly-backend/pkg/db"
	"github.com/ashimneupane/bazarly-backend/pkg/logger"
	"github.com/ashimneupane/bazarly-backend/pkg/metrics"
	"github.com/ashimneupane/bazarly-backend/pkg/outbox"
	"github.com/ashimneupane/bazarly-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	shippingFee, err := decimal.NewFromString(cfg.Orders.ShippingFee)
	if err != nil {
		logg.Error(ctx, "invalid shipping fee", err)
		os.Exit(1)
	}

	authRepo := auth.NewRepository(dbClient)
	categoryRepo := categories.NewRepository(dbClient.DB())
	productRepo := products.NewRepository(dbClient.DB())
	cartRepo := cart.NewRepository(dbClient)
	orderRepo := orders.NewRepository(dbClient)
	notificationRepo := notifications.NewRepository(dbClient)
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	productService, err := products.NewService(products.ServiceParams{
		Store:         productRepo,
		Subcategories: categoryRepo,
	})
	if err != nil {
		logg.Error(ctx, "failed to create product service", err)
		os.Exit(1)
	}

	// Stale orders are cancelled through the order service so restock,
	// outbox events, and notifications match a manual cancellation.
	orderService, err := orders.NewService(orders.ServiceParams{
		Runner:      dbClient,
		Store:       orders.NewStore(orderRepo),
		Stock:       orders.NewStock(productRepo),
		Carts:       orders.NewCarts(cartRepo),
		Catalog:     productService,
		Events:      outboxService,
		Notifier:    notifications.NewOrderNotifier(notificationRepo),
		ShippingFee: shippingFee,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create order service", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	cronMetrics := metrics.NewCronJobMetrics(registry)

	jobs := cron.NewRegistry()
	if !cfg.Cron.DisableStaleOrderJob {
		job, err := cron.NewStaleOrderJob(cron.StaleOrderJobParams{
			Logger: logg,
			Reader: orderRepo,
			Orders: orderService,
			MaxAge: cfg.Cron.StalePendingOrderAge,
		})
		if err != nil {
			logg.Error(ctx, "failed to build stale order job", err)
			os.Exit(1)
		}
		jobs.Register(job)
	}
	if !cfg.Cron.DisableTokenPurgeJob {
		job, err := cron.NewTokenPurgeJob(cron.TokenPurgeJobParams{
			Logger:     logg,
			Repository: authRepo,
		})
		if err != nil {
			logg.Error(ctx, "failed to build token purge job", err)
			os.Exit(1)
		}
		jobs.Register(job)
	}
	if !cfg.Cron.DisableNotifPruneJob {
		job, err := cron.NewNotificationPruneJob(cron.NotificationPruneJobParams{
			Logger:     logg,
			Repository: notificationRepo,
			MaxAge:     cfg.Cron.ReadNotificationAge,
		})
		if err != nil {
			logg.Error(ctx, "failed to build notification prune job", err)
			os.Exit(1)
		}
		jobs.Register(job)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron"), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(ctx, "failed to build cron lock", err)
		os.Exit(1)
	}

	runner, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: jobs,
		Lock:     lock,
		Metrics:  cronMetrics,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(ctx, "failed to create cron service", err)
		os.Exit(1)
	}

	metricsServer := &http.Server{
		Addr:              cfg.Cron.MetricsListenAddr,
		Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(context.Background(), "metrics server stopped unexpectedly", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logg.Info(logg.WithField(ctx, "interval", cfg.Cron.Interval.String()), "starting cron worker")
	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker stopped")
}
