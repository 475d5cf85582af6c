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
	"github.com/shopspring/decimal"

	"github.com/ashimneupane/bazarly-backend/api/routes"
	"github.com/ashimneupane/bazarly-backend/internal/auth"
	"github.com/ashimneupane/bazarly-backend/internal/banners"
	"github.com/ashimneupane/bazarly-backend/internal/cart"
	"github.com/ashimneupane/bazarly-backend/internal/categories"
	"github.com/ashimneupane/bazarly-backend/internal/dashboard"
	"github.com/ashimneupane/bazarly-backend/internal/deals"
	"github.com/ashimneupane/bazarly-backend/internal/media"
	"github.com/ashimneupane/bazarly-backend/internal/notifications"
	"github.com/ashimneupane/bazarly-backend/internal/orders"
	"github.com/ashimneupane/bazarly-backend/internal/products"
	"github.com/ashimneupane/bazarly-backend/internal/reviews"
	"github.com/ashimneupane/bazarly-backend/internal/wishlist"
	"github.com/ashimneupane/bazarly-backend/pkg/config"
	"github.com/ashimneupane/bazarly-backend/pkg/db"
	"github.com/ashimneupane/bazarly-backend/pkg/logger"
	"github.com/ashimneupane/bazarly-backend/pkg/migrate"
	"github.com/ashimneupane/bazarly-backend/pkg/outbox"
	"github.com/ashimneupane/bazarly-backend/pkg/payments/esewa"
	"github.com/ashimneupane/bazarly-backend/pkg/payments/khalti"
	"github.com/ashimneupane/bazarly-backend/pkg/redis"
	"github.com/ashimneupane/bazarly-backend/pkg/storage"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx := context.Background()

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

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

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

	storageClient, err := storage.New(ctx, cfg.S3, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap object storage", err)
		os.Exit(1)
	}

	shippingFee, err := decimal.NewFromString(cfg.Orders.ShippingFee)
	if err != nil {
		logg.Error(ctx, "invalid shipping fee", err)
		os.Exit(1)
	}

	var esewaClient orders.EsewaGateway
	if cfg.Esewa.MerchantCode != "" {
		client, err := esewa.NewClient(cfg.Esewa)
		if err != nil {
			logg.Error(ctx, "failed to build esewa client", err)
			os.Exit(1)
		}
		esewaClient = client
	}

	var khaltiClient orders.KhaltiGateway
	if cfg.Khalti.SecretKey != "" {
		client, err := khalti.NewClient(cfg.Khalti)
		if err != nil {
			logg.Error(ctx, "failed to build khalti client", err)
			os.Exit(1)
		}
		khaltiClient = client
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	authRepo := auth.NewRepository(dbClient)
	categoryRepo := categories.NewRepository(dbClient.DB())
	productRepo := products.NewRepository(dbClient.DB())
	cartRepo := cart.NewRepository(dbClient)
	wishlistRepo := wishlist.NewRepository(dbClient)
	orderRepo := orders.NewRepository(dbClient)
	reviewRepo := reviews.NewRepository(dbClient)
	dealRepo := deals.NewRepository(dbClient)
	bannerRepo := banners.NewRepository(dbClient)
	notificationRepo := notifications.NewRepository(dbClient)
	dashboardRepo := dashboard.NewRepository(dbClient)

	authService, err := auth.NewService(auth.ServiceParams{
		Store:      authRepo,
		Limiter:    redisClient,
		JWT:        cfg.JWT,
		Password:   cfg.Password,
		RateLimits: cfg.AuthRateLimit,
	})
	if err != nil {
		logg.Error(ctx, "failed to create auth service", err)
		os.Exit(1)
	}

	categoryService, err := categories.NewService(categories.ServiceParams{Repo: categoryRepo})
	if err != nil {
		logg.Error(ctx, "failed to create category service", err)
		os.Exit(1)
	}

	productService, err := products.NewService(products.ServiceParams{
		Store:         productRepo,
		Subcategories: categoryRepo,
	})
	if err != nil {
		logg.Error(ctx, "failed to create product service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(cart.ServiceParams{
		Store:   cartRepo,
		Catalog: productService,
	})
	if err != nil {
		logg.Error(ctx, "failed to create cart service", err)
		os.Exit(1)
	}

	wishlistService, err := wishlist.NewService(wishlist.ServiceParams{
		Store:   wishlistRepo,
		Catalog: productService,
	})
	if err != nil {
		logg.Error(ctx, "failed to create wishlist service", err)
		os.Exit(1)
	}

	orderService, err := orders.NewService(orders.ServiceParams{
		Runner:      dbClient,
		Store:       orders.NewStore(orderRepo),
		Stock:       orders.NewStock(productRepo),
		Carts:       orders.NewCarts(cartRepo),
		Catalog:     productService,
		Events:      outboxService,
		Notifier:    notifications.NewOrderNotifier(notificationRepo),
		Esewa:       esewaClient,
		Khalti:      khaltiClient,
		ShippingFee: shippingFee,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create order service", err)
		os.Exit(1)
	}

	reviewService, err := reviews.NewService(reviews.ServiceParams{Store: reviewRepo})
	if err != nil {
		logg.Error(ctx, "failed to create review service", err)
		os.Exit(1)
	}

	dealService, err := deals.NewService(deals.ServiceParams{
		Runner: dbClient,
		Store:  deals.NewStore(dealRepo),
		Events: outboxService,
	})
	if err != nil {
		logg.Error(ctx, "failed to create deal service", err)
		os.Exit(1)
	}

	bannerService, err := banners.NewService(banners.ServiceParams{
		Store:   bannerRepo,
		Catalog: productService,
		Deals:   dealService,
	})
	if err != nil {
		logg.Error(ctx, "failed to create banner service", err)
		os.Exit(1)
	}

	notificationService, err := notifications.NewService(notifications.ServiceParams{Store: notificationRepo})
	if err != nil {
		logg.Error(ctx, "failed to create notification service", err)
		os.Exit(1)
	}

	dashboardService, err := dashboard.NewService(dashboard.ServiceParams{Store: dashboardRepo})
	if err != nil {
		logg.Error(ctx, "failed to create dashboard service", err)
		os.Exit(1)
	}

	mediaService, err := media.NewService(media.ServiceParams{
		Store:  storageClient,
		Logger: logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create media service", err)
		os.Exit(1)
	}

	handler := routes.NewRouter(routes.Deps{
		Config:  cfg,
		Logger:  logg,
		DB:      dbClient,
		Redis:   redisClient,
		Storage: storageClient,

		Auth:          authService,
		Categories:    categoryService,
		Products:      productService,
		Cart:          cartService,
		Wishlist:      wishlistService,
		Orders:        orderService,
		Reviews:       reviewService,
		Deals:         dealService,
		Banners:       bannerService,
		Notifications: notificationService,
		Dashboard:     dashboardService,
		Media:         mediaService,
	})

	addr := ":" + cfg.App.Port
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-runCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(context.Background(), "server shutdown failed", err)
		}
	}()

	startCtx := logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "addr": addr})
	logg.Info(startCtx, "starting api server")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(startCtx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(startCtx, "api server stopped")
}
