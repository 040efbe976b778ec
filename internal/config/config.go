package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	Port         string        `envconfig:"PORT" default:"8080"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"30s"`
	IdleTimeout  time.Duration `envconfig:"IDLE_TIMEOUT" default:"120s"`

	// Database
	PostgresURL string `envconfig:"POSTGRES_URL" required:"true"`

	// Redis (optional; disables the idempotency cache and rate limiter when empty)
	RedisURL string `envconfig:"REDIS_URL" default:""`

	// NATS (optional; disables outcome event publication when empty)
	NATSURL string `envconfig:"NATS_URL" default:""`

	// Auth (bcrypt hash of the API key; empty disables auth)
	APIKeyHash string `envconfig:"API_KEY_HASH" default:""`

	// Rate Limiting
	RateLimitRPS   int `envconfig:"RATE_LIMIT_RPS" default:"100"`
	RateLimitBurst int `envconfig:"RATE_LIMIT_BURST" default:"200"`

	// Retry Policy
	RetryBaseDelay    time.Duration `envconfig:"RETRY_BASE_DELAY" default:"5s"`
	RetryMaxDelay     time.Duration `envconfig:"RETRY_MAX_DELAY" default:"300s"`
	RetryJitterFactor float64       `envconfig:"RETRY_JITTER_FACTOR" default:"0.3"`
	MaxRetries        int           `envconfig:"MAX_RETRIES" default:"5"`

	// Dispatcher
	BatchSize         int           `envconfig:"DISPATCHER_BATCH_SIZE" default:"10"`
	PollInterval      time.Duration `envconfig:"DISPATCHER_POLL_INTERVAL" default:"5s"`
	MaxConcurrency    int           `envconfig:"DISPATCHER_MAX_CONCURRENCY" default:"10"`
	SendTimeout       time.Duration `envconfig:"PROVIDER_SEND_TIMEOUT" default:"30s"`
	VisibilityTimeout time.Duration `envconfig:"DISPATCHER_VISIBILITY_TIMEOUT" default:"5m"`

	// Fake provider
	FakeFailureRate float64 `envconfig:"FAKE_FAILURE_RATE" default:"0.05"`

	// Windows push provider
	WNSClientID     string `envconfig:"WNS_CLIENT_ID" default:""`
	WNSClientSecret string `envconfig:"WNS_CLIENT_SECRET" default:""`
	WNSTenantID     string `envconfig:"WNS_TENANT_ID" default:""`

	// FCM provider
	FCMProjectID string `envconfig:"FCM_PROJECT_ID" default:""`
	FCMServerKey string `envconfig:"FCM_SERVER_KEY" default:""`

	// Observability
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// WNSEnabled reports whether the Windows push provider has credentials.
func (c *Config) WNSEnabled() bool {
	return c.WNSClientID != "" && c.WNSClientSecret != ""
}

// FCMEnabled reports whether the FCM provider has credentials.
func (c *Config) FCMEnabled() bool {
	return c.FCMServerKey != ""
}
