package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"push-dispatcher/internal/persistence"
)

const keyTTL = 24 * time.Hour

// Cache is a redis fast path for idempotency-key lookups in front of the
// outbox's unique constraint. The database stays the source of truth; a cache
// miss only costs an extra point read, and a nil Cache is a no-op.
type Cache struct {
	redis  *persistence.RedisClient
	logger *zap.Logger
}

func NewCache(redis *persistence.RedisClient, logger *zap.Logger) *Cache {
	return &Cache{redis: redis, logger: logger}
}

func (c *Cache) Get(ctx context.Context, key string) (uuid.UUID, bool) {
	if c == nil || key == "" {
		return uuid.Nil, false
	}

	idStr, err := c.redis.Get(ctx, cacheKey(key)).Result()
	if err != nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func (c *Cache) Store(ctx context.Context, key string, id uuid.UUID) {
	if c == nil || key == "" {
		return
	}

	if err := c.redis.Set(ctx, cacheKey(key), id.String(), keyTTL).Err(); err != nil {
		c.logger.Warn("failed to cache idempotency key", zap.Error(err))
	}
}

func cacheKey(key string) string {
	return fmt.Sprintf("idempotency:%s", key)
}
