package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/candleworks/storefront-api/config"
	"github.com/candleworks/storefront-api/logger"
	"github.com/candleworks/storefront-api/middleware"
	"github.com/candleworks/storefront-api/models"
	"github.com/candleworks/storefront-api/services"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	logger.Init(cfg.GoEnv, cfg.LogLevel)
	defer logger.Sync()
	log := logger.L()
	log.Info("Starting Candle Storefront API server...", zap.String("env", cfg.GoEnv))

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database
	if err := config.ConnectDatabase(ctx, cfg); err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Auto-migrate database models
	db := config.GetDB()
	if err := db.AutoMigrate(models.All()...); err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}
	log.Info("Database migration completed successfully")

	if cfg.StorageEnabled() {
		s3Service, err := services.InitS3Service(ctx, cfg)
		if err != nil {
			log.Fatal("Failed to initialize S3", zap.Error(err))
		}
		services.InitImageService(s3Service)
		log.Info("Object storage enabled", zap.String("bucket", cfg.AWSS3Bucket))
	} else {
		log.Warn("AWS_S3_BUCKET not set, product images and invoice archiving are disabled")
	}

	var notifier services.Notifier
	if cfg.RedisURL != "" {
		redisNotifier, err := services.NewRedisNotifier(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn("Redis unavailable, settings changes stay local to this instance", zap.Error(err))
		} else {
			defer func() {
				if err := redisNotifier.Close(); err != nil {
					log.Warn("Failed to close redis client", zap.Error(err))
				}
			}()
			notifier = redisNotifier
		}
	}

	settings, err := services.InitSettingsService(ctx, db, notifier)
	if err != nil {
		log.Fatal("Failed to load settings", zap.Error(err))
	}
	go func() {
		if err := settings.Watch(ctx); err != nil {
			log.Error("Settings watcher stopped", zap.Error(err))
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	router := setupRouter(routerOptions{
		Config:      cfg,
		Auth:        middleware.EnsureValidToken(cfg),
		Registry:    registry,
		RateLimiter: middleware.NewRateLimiter(ctx, cfg.RateLimitPerSecond, cfg.RateLimitBurst),
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Server is running", zap.String("addr", "http://localhost"+server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
}
