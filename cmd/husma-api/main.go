package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/husma-donation-api/api/swagger"
	"github.com/noah-isme/husma-donation-api/internal/handler"
	internalmiddleware "github.com/noah-isme/husma-donation-api/internal/middleware"
	"github.com/noah-isme/husma-donation-api/internal/models"
	"github.com/noah-isme/husma-donation-api/internal/repository"
	"github.com/noah-isme/husma-donation-api/internal/service"
	"github.com/noah-isme/husma-donation-api/pkg/cache"
	"github.com/noah-isme/husma-donation-api/pkg/config"
	"github.com/noah-isme/husma-donation-api/pkg/database"
	"github.com/noah-isme/husma-donation-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/husma-donation-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/husma-donation-api/pkg/middleware/requestid"
	"github.com/noah-isme/husma-donation-api/pkg/storage"
	"github.com/noah-isme/husma-donation-api/pkg/validation"
)

// @title Husma Foundation Donation API
// @version 1.0.0
// @description Donations, supplement inventory and child distribution for Husma Foundation
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const receiptJanitorInterval = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db, cfg.Database.Driver); err != nil {
			logr.Fatal("failed to migrate database", zap.Error(err))
		}
	}
	if cfg.Database.SeedInventory {
		seeded, err := database.SeedInventory(ctx, db)
		if err != nil {
			logr.Fatal("failed to seed inventory", zap.Error(err))
		}
		if seeded > 0 {
			logr.Info("inventory seeded", zap.Int("products", seeded))
		}
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, using in-process carts", zap.Error(err))
	}

	metrics := service.NewMetricsService()
	validate := validation.New()

	var cacheSvc *service.CacheService
	var cartStore service.CartStore
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
		cacheSvc = service.NewCacheService(repository.NewCacheRepository(redisClient, logr), metrics, cfg.Analytics.CacheTTL, logr, cfg.Analytics.Enabled)
		cartStore = repository.NewRedisCartRepository(redisClient, cfg.Donations.CartTTL)
	} else {
		cartStore = repository.NewMemoryCartRepository(cfg.Donations.CartTTL)
	}

	slips, err := newSlipStore(ctx, cfg.Uploads)
	if err != nil {
		logr.Fatal("failed to init upload storage", zap.Error(err))
	}
	receiptFiles, err := storage.NewLocalStorage(cfg.Receipts.Dir)
	if err != nil {
		logr.Fatal("failed to init receipt storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Receipts.SignedURLSecret, cfg.Receipts.SignedURLTTL)

	donorRepo := repository.NewDonorRepository(db)
	donationRepo := repository.NewDonationRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	childRepo := repository.NewChildRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)

	logSender := service.NewLogSender(logr)
	notifications := service.NewNotificationService(service.NotificationConfig{
		Enabled:      cfg.Notifications.Enabled,
		Workers:      cfg.Notifications.Workers,
		MaxRetries:   cfg.Notifications.MaxRetries,
		RetryDelay:   cfg.Notifications.RetryDelay,
		SupportPhone: cfg.Notifications.SupportPhone,
	}, map[models.NotificationChannel]service.Sender{
		models.ChannelEmail: logSender,
		models.ChannelSMS:   logSender,
	}, metrics, logr)
	notifications.Start(ctx)
	defer notifications.Stop()

	authSvc := service.NewAuthService(donorRepo, notifications, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
		AdminUsername:     cfg.Admin.Username,
		AdminPassword:     cfg.Admin.Password,
	})
	inventorySvc := service.NewInventoryService(inventoryRepo, cacheSvc, validate, logr, service.InventoryConfig{
		AllowNegative:          cfg.Inventory.AllowNegative,
		CriticalStockThreshold: cfg.Inventory.CriticalStockThreshold,
		MaxLineQuantity:        cfg.Donations.MaxLineQuantity,
	})
	calculator := service.NewCartCalculator(decimal.NewFromFloat(cfg.Donations.TaxRate))
	cartSvc := service.NewCartService(cartStore, inventoryRepo, calculator, cfg.Donations.MaxLineQuantity, logr)
	receiptSvc := service.NewReceiptService(donationRepo, donorRepo, receiptFiles, signer, cfg.APIPrefix+"/receipts/download", logr)
	checkoutSvc := service.NewCheckoutService(service.CheckoutDeps{
		Carts:     cartSvc,
		Donations: donationRepo,
		Stock:     inventorySvc,
		Donors:    donorRepo,
		Slips:     slips,
		Receipts:  receiptSvc,
		Notifier:  notifications,
		Cache:     cacheSvc,
		Metrics:   metrics,
	}, logr, service.CheckoutConfig{
		MaxSlipSize:       cfg.Uploads.MaxFileSize,
		AllowedExtensions: cfg.Uploads.AllowedExtensions,
		ReceiptPrefix:     cfg.Donations.ReceiptPrefix,
	})
	donorSvc := service.NewDonorService(donorRepo, donationRepo, logr)
	childSvc := service.NewChildService(childRepo, cacheSvc, metrics, validate, logr, cfg.Inventory.AllowNegative)
	donationSvc := service.NewDonationService(donationRepo, slips, logr)
	exportSvc := service.NewExportService(donationRepo, logr, nil, nil)
	analyticsSvc := service.NewAnalyticsService(analyticsRepo, inventoryRepo, cacheSvc, metrics, logr)

	go runReceiptJanitor(ctx, receiptSvc, cfg.Receipts.Retention)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	unlogged := []string{"/health", "/ready", "/metrics"}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, unlogged...))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics, unlogged...))
	r.MaxMultipartMemory = cfg.Uploads.MaxFileSize

	metricsHandler := handler.NewMetricsHandler(metrics, db)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handler.Handlers{
		Auth:      handler.NewAuthHandler(authSvc),
		Inventory: handler.NewInventoryHandler(inventorySvc),
		Cart:      handler.NewCartHandler(cartSvc, checkoutSvc),
		Receipts:  handler.NewReceiptHandler(receiptSvc),
		Donors:    handler.NewDonorHandler(donorSvc),
		Children:  handler.NewChildHandler(childSvc),
		Donations: handler.NewDonationHandler(donationSvc, exportSvc, receiptSvc),
		Analytics: handler.NewAnalyticsHandler(analyticsSvc, exportSvc),
	}, authSvc)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "db_driver", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server shutdown failed", zap.Error(err))
	}
}

func newSlipStore(ctx context.Context, cfg config.UploadsConfig) (storage.ObjectStore, error) {
	if cfg.Driver == config.UploadDriverS3 {
		return storage.NewS3Storage(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3Prefix)
	}
	return storage.NewLocalStorage(cfg.Dir)
}

func runReceiptJanitor(ctx context.Context, receipts *service.ReceiptService, retention time.Duration) {
	ticker := time.NewTicker(receiptJanitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			receipts.Cleanup(retention)
		}
	}
}
