package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"push-dispatcher/internal/api"
	"push-dispatcher/internal/auth"
	"push-dispatcher/internal/config"
	"push-dispatcher/internal/idempotency"
	"push-dispatcher/internal/observability"
	"push-dispatcher/internal/outbox"
	"push-dispatcher/internal/persistence"
	"push-dispatcher/internal/rate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()
	logger.Info("Starting push dispatcher API", zap.String("version", "1.0.0"))

	var metrics *observability.Metrics
	if cfg.MetricsEnabled {
		shutdownOtel, err := observability.SetupOpenTelemetry("push-dispatcher-api", logger)
		if err != nil {
			logger.Warn("Failed to set up OpenTelemetry", zap.Error(err))
		} else {
			defer shutdownOtel()
		}
		metrics = observability.NewMetrics()
	}

	// Database
	ctx := context.Background()
	database, err := persistence.NewPostgres(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	if err := database.RunMigrations("migrations"); err != nil {
		logger.Warn("Failed to run migrations", zap.Error(err))
	}

	// Redis (optional)
	var redisClient *persistence.RedisClient
	if cfg.RedisURL != "" {
		redisClient, err = persistence.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
	}

	// Services
	store := outbox.NewStore(database.DB, logger)
	authService := auth.NewService(logger, cfg.APIKeyHash)

	var cache *idempotency.Cache
	var limiter *rate.Limiter
	if redisClient != nil {
		cache = idempotency.NewCache(redisClient, logger)
		limiter = rate.NewLimiter(redisClient, logger, cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	handlers := api.NewHandlers(logger, store, cache, metrics, cfg.MaxRetries)

	// App
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			logger.Error("Fiber error", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
		},
	})

	api.SetupRoutes(app, logger, metrics, handlers, authService, limiter)

	// Start server
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Push dispatcher API started", zap.String("port", cfg.Port))

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Failed to shutdown gracefully", zap.Error(err))
	}

	logger.Info("Push dispatcher API stopped")
}
