package wns

import (
	"context"
	"sync"
	"time"
)

// refreshMargin is how long before expiry a cached token is considered stale.
const refreshMargin = 5 * time.Minute

// tokenCache is a guarded cell holding the current bearer token. Reads take
// the fast path; at most one caller refreshes at a time while the others wait
// and observe the new token.
type tokenCache struct {
	fetch func(ctx context.Context) (string, time.Time, error)

	mu     sync.RWMutex
	token  string
	expiry time.Time
}

func newTokenCache(fetch func(ctx context.Context) (string, time.Time, error)) *tokenCache {
	return &tokenCache{fetch: fetch}
}

func (c *tokenCache) get(ctx context.Context) (string, error) {
	c.mu.RLock()
	if c.valid() {
		token := c.token
		c.mu.RUnlock()
		return token, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	// Another sender may have refreshed while we waited for the lock.
	if c.valid() {
		return c.token, nil
	}

	token, expiry, err := c.fetch(ctx)
	if err != nil {
		return "", err
	}
	c.token = token
	c.expiry = expiry
	return token, nil
}

func (c *tokenCache) invalidate() {
	c.mu.Lock()
	c.token = ""
	c.expiry = time.Time{}
	c.mu.Unlock()
}

// valid requires callers to hold at least a read lock.
func (c *tokenCache) valid() bool {
	return c.token != "" && time.Until(c.expiry) > refreshMargin
}
