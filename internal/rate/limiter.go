package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"push-dispatcher/internal/persistence"
)

// Limiter is a redis-backed token bucket keyed by caller identity. A nil
// Limiter allows everything.
type Limiter struct {
	redis  *persistence.RedisClient
	logger *zap.Logger
	rps    int
	burst  int
}

func NewLimiter(redis *persistence.RedisClient, logger *zap.Logger, rps, burst int) *Limiter {
	return &Limiter{
		redis:  redis,
		logger: logger,
		rps:    rps,
		burst:  burst,
	}
}

// Allow checks whether a caller is within their rate limit.
func (l *Limiter) Allow(ctx context.Context, caller string) (bool, time.Duration, error) {
	if l == nil {
		return true, 0, nil
	}

	key := fmt.Sprintf("rate_limit:%s", caller)
	now := time.Now()
	windowStart := now.Truncate(time.Second)

	currentTokensStr, err := l.redis.Get(ctx, key).Result()
	currentTokens := l.burst
	lastRefill := windowStart

	if err == nil {
		// Persisted form is "tokens:timestamp"
		var lastRefillUnix int64
		fmt.Sscanf(currentTokensStr, "%d:%d", &currentTokens, &lastRefillUnix)
		lastRefill = time.Unix(lastRefillUnix, 0)
	} else if err != redis.Nil {
		return false, 0, fmt.Errorf("failed to read rate limit state: %w", err)
	}

	// Refill based on elapsed time, capped at the burst limit
	elapsed := windowStart.Sub(lastRefill)
	currentTokens += int(elapsed.Seconds()) * l.rps
	if currentTokens > l.burst {
		currentTokens = l.burst
	}

	if currentTokens <= 0 {
		retryAfter := time.Second - time.Duration(now.Nanosecond())
		return false, retryAfter, nil
	}

	currentTokens--

	newValue := fmt.Sprintf("%d:%d", currentTokens, windowStart.Unix())
	if err := l.redis.Set(ctx, key, newValue, time.Minute).Err(); err != nil {
		l.logger.Warn("failed to persist rate limit state", zap.Error(err))
	}

	return true, 0, nil
}

// Reset clears the rate limit for a caller (for testing or administrative purposes)
func (l *Limiter) Reset(ctx context.Context, caller string) error {
	if l == nil {
		return nil
	}
	return l.redis.Del(ctx, fmt.Sprintf("rate_limit:%s", caller)).Err()
}
