package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"push-dispatcher/internal/config"
	"push-dispatcher/internal/dispatcher"
	"push-dispatcher/internal/events"
	"push-dispatcher/internal/observability"
	"push-dispatcher/internal/outbox"
	"push-dispatcher/internal/persistence"
	"push-dispatcher/internal/provider"
	"push-dispatcher/internal/provider/fake"
	"push-dispatcher/internal/provider/fcm"
	"push-dispatcher/internal/provider/wns"
	"push-dispatcher/internal/retry"
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
	logger.Info("Starting push dispatcher worker", zap.String("version", "1.0.0"))

	var metrics *observability.Metrics
	if cfg.MetricsEnabled {
		shutdownOtel, err := observability.SetupOpenTelemetry("push-dispatcher-worker", logger)
		if err != nil {
			logger.Warn("Failed to set up OpenTelemetry", zap.Error(err))
		} else {
			defer shutdownOtel()
		}
		metrics = observability.NewMetrics()

		// Metrics-only listener; the HTTP API lives in its own process
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(":9090", mux); err != nil && err != http.ErrServerClosed {
				logger.Warn("Metrics server stopped", zap.Error(err))
			}
		}()
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

	// NATS (optional outcome event stream)
	var sink dispatcher.EventSink
	if cfg.NATSURL != "" {
		publisher, err := events.NewPublisher(cfg.NATSURL, logger)
		if err != nil {
			logger.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		defer publisher.Close()
		sink = publisher
	}

	// Providers
	providers := []provider.Provider{
		fake.NewProvider(logger, cfg.FakeFailureRate),
	}
	if cfg.WNSEnabled() {
		providers = append(providers, wns.NewProvider(logger, wns.Config{
			ClientID:     cfg.WNSClientID,
			ClientSecret: cfg.WNSClientSecret,
			TenantID:     cfg.WNSTenantID,
		}, nil))
	}
	if cfg.FCMEnabled() {
		providers = append(providers, fcm.NewProvider(logger, fcm.Config{
			ProjectID: cfg.FCMProjectID,
			ServerKey: cfg.FCMServerKey,
		}, nil))
	}

	registry, err := provider.NewRegistry(providers...)
	if err != nil {
		logger.Fatal("Failed to build provider registry", zap.Error(err))
	}
	logger.Info("Providers registered", zap.Strings("platforms", registry.Platforms()))

	store := outbox.NewStore(database.DB, logger)
	policy := retry.NewPolicy(cfg.RetryBaseDelay, cfg.RetryMaxDelay, cfg.RetryJitterFactor)

	d := dispatcher.New(store, registry, policy, sink, metrics, logger, dispatcher.Config{
		BatchSize:         cfg.BatchSize,
		PollInterval:      cfg.PollInterval,
		MaxConcurrency:    cfg.MaxConcurrency,
		SendTimeout:       cfg.SendTimeout,
		VisibilityTimeout: cfg.VisibilityTimeout,
	})

	runCtx, stop := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := d.Run(runCtx); err != nil && err != context.Canceled {
			logger.Error("Dispatcher stopped with error", zap.Error(err))
		}
	}()

	logger.Info("Push dispatcher worker started",
		zap.Int("batch_size", cfg.BatchSize),
		zap.Duration("poll_interval", cfg.PollInterval),
		zap.Int("max_concurrency", cfg.MaxConcurrency))

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")
	stop()

	select {
	case <-done:
	case <-time.After(30 * time.Second):
		logger.Warn("Timed out waiting for in-flight dispatches")
	}

	logger.Info("Push dispatcher worker stopped")
}
