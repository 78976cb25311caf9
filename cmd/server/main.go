package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appshipping "github.com/retailops/fulfillment/internal/application/shipping"
	"github.com/retailops/fulfillment/internal/domain/shared/valueobject"
	"github.com/retailops/fulfillment/internal/domain/shipping"
	"github.com/retailops/fulfillment/internal/infrastructure/cache"
	"github.com/retailops/fulfillment/internal/infrastructure/carrier"
	"github.com/retailops/fulfillment/internal/infrastructure/config"
	"github.com/retailops/fulfillment/internal/infrastructure/event"
	"github.com/retailops/fulfillment/internal/infrastructure/logger"
	"github.com/retailops/fulfillment/internal/infrastructure/notification"
	"github.com/retailops/fulfillment/internal/infrastructure/persistence"
	"github.com/retailops/fulfillment/internal/infrastructure/scheduler"
	"github.com/retailops/fulfillment/internal/infrastructure/storage"
	"github.com/retailops/fulfillment/internal/interfaces/http/handler"
	"github.com/retailops/fulfillment/internal/interfaces/http/middleware"
	"github.com/retailops/fulfillment/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting fulfillment service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Initialize database connection
	db, err := persistence.NewDatabase(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories
	shipmentRepo := persistence.NewShipmentRepository(db.DB)
	webhookEventRepo := persistence.NewWebhookEventRepository(db.DB)

	// Carrier gateway
	gateway := carrier.NewShiplaneAdapter(cfg.Carrier, log)

	// Redis is optional; when enabled it backs both the rate cache and
	// customer notifications, sharing one client.
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			_ = redisClient.Close()
		}()
		log.Info("Redis connected successfully", zap.String("addr", cfg.Redis.Addr()))
	}

	var rateCache appshipping.RateCache
	var notifier shipping.NotificationPort
	if redisClient != nil {
		rateCache = cache.NewRedisRateCacheWithClient(redisClient, log)
		notifier = notification.NewRedisNotifier(redisClient, log)
	} else {
		rateCache = cache.NewMemoryRateCache()
		notifier = notification.NewLogNotifier(log)
	}

	// Label archive
	var labels shipping.LabelStore
	if cfg.Storage.Enabled {
		s3Store, err := storage.NewS3LabelStore(&cfg.Storage, log)
		if err != nil {
			log.Fatal("Failed to initialize label storage", zap.Error(err))
		}
		labels = s3Store
		log.Info("Label archive enabled", zap.String("bucket", cfg.Storage.Bucket))
	} else {
		labels = storage.NewPassthroughLabelStore()
	}

	// Warehouse origin used when requests omit an origin address
	defaultOrigin, err := valueobject.NewAddress(
		cfg.Shipping.OriginName,
		cfg.Shipping.OriginStreet,
		cfg.Shipping.OriginCity,
		cfg.Shipping.OriginState,
		cfg.Shipping.OriginPostalCode,
		cfg.Shipping.OriginCountry,
	)
	if err != nil {
		log.Fatal("Invalid warehouse origin address", zap.Error(err))
	}

	groupingRules := shipping.GroupingRules{
		MaxParcelWeightLb:    cfg.Shipping.MaxParcelWeightLb,
		MaxParcelDimensionIn: cfg.Shipping.MaxParcelDimensionIn,
	}
	rateRules := shipping.RateRules{
		HomeCountry:              cfg.Shipping.HomeCountry,
		InternationalCarriers:    cfg.Shipping.InternationalCarriers,
		InternationalWhiteGlove:  cfg.Shipping.InternationalWhiteGlove,
		WhiteGloveCountries:      cfg.Shipping.WhiteGloveCountries,
		WhiteGloveFeeUSD:         cfg.Shipping.WhiteGloveFeeUSD,
		FreeShippingThresholdUSD: cfg.Shipping.FreeShippingThresholdUSD,
		HandlingFeePercent:       cfg.Shipping.HandlingFeePercent,
	}

	// Event bus for domain events
	eventBus := event.NewInMemoryEventBus(log)

	// Initialize application services
	rateService := appshipping.NewRateService(appshipping.RateServiceConfig{
		Gateway:       gateway,
		Rules:         rateRules,
		GroupingRules: groupingRules,
		Cache:         rateCache,
		CacheTTL:      cfg.Shipping.RateCacheTTL,
		DefaultOrigin: defaultOrigin,
		Logger:        log,
	})

	// The scheduler and shipment service reference each other through
	// the follow-up queue, so the queue is wired before the executor.
	jobScheduler := scheduler.NewScheduler(scheduler.Config{
		Workers: cfg.Scheduler.Workers,
	}, nil, log)
	followUps := scheduler.NewFollowUpQueue(jobScheduler)

	shipmentService := appshipping.NewShipmentService(appshipping.ShipmentServiceConfig{
		ShipmentRepo:  shipmentRepo,
		Gateway:       gateway,
		Rates:         rateService,
		Labels:        labels,
		Notifier:      notifier,
		Alerts:        notification.NewLogAlerter(log),
		Orders:        notification.NewLogOrderPort(log),
		FollowUps:     followUps,
		Publisher:     eventBus,
		GroupingRules: groupingRules,
		DefaultOrigin: defaultOrigin,
		Logger:        log,
	})

	var backoff appshipping.BackoffFunc
	if cfg.Webhook.BackoffEnabled {
		backoff = appshipping.ExponentialBackoff(cfg.Webhook.BackoffBase)
	}
	webhookService := appshipping.NewWebhookService(appshipping.WebhookServiceConfig{
		EventRepo:  webhookEventRepo,
		Shipments:  shipmentService,
		MaxRetries: cfg.Webhook.MaxRetries,
		Backoff:    backoff,
		Logger:     log,
	})

	jobScheduler.SetExecutor(scheduler.NewFulfillmentExecutor(shipmentService, webhookService, log))

	if err := jobScheduler.Start(context.Background()); err != nil {
		log.Fatal("Failed to start scheduler", zap.Error(err))
	}

	// Background sweeps (if enabled)
	var sweeper *scheduler.Sweeper
	if cfg.Scheduler.Enabled {
		sweeper = scheduler.NewSweeper(scheduler.SweeperConfig{
			TrackingSweepInterval:  cfg.Scheduler.TrackingSweepInterval,
			TrackingSweepBatchSize: cfg.Scheduler.TrackingSweepBatchSize,
			WebhookRetryInterval:   cfg.Scheduler.WebhookRetryInterval,
			WebhookRetryBatchSize:  cfg.Scheduler.WebhookRetryBatchSize,
		}, jobScheduler, log)
		if err := sweeper.Start(context.Background()); err != nil {
			log.Fatal("Failed to start sweeper", zap.Error(err))
		}
		log.Info("Background sweeps started",
			zap.Duration("tracking_sweep_interval", cfg.Scheduler.TrackingSweepInterval),
			zap.Duration("webhook_retry_interval", cfg.Scheduler.WebhookRetryInterval),
		)
	}

	// Set Gin mode based on environment
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := router.New(router.Config{
		Rates:          handler.NewRateHandler(rateService),
		Shipments:      handler.NewShipmentHandler(shipmentService),
		Webhooks:       handler.NewWebhookHandler(webhookService, cfg.Carrier.WebhookSecret, cfg.Carrier.WebhookStrict),
		System:         handler.NewSystemHandler(db),
		Logger:         log,
		BodyLimit:      cfg.HTTP.MaxBodySize,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		CORSOrigins:    cfg.HTTP.CORSAllowOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("Shutting down", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if sweeper != nil {
		if err := sweeper.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping sweeper", zap.Error(err))
		}
	}
	if err := jobScheduler.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping scheduler", zap.Error(err))
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", zap.Error(err))
	}
	log.Info("Shutdown complete")
}
