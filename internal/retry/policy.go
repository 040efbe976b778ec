package retry

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

const (
	DefaultBaseDelay    = 5 * time.Second
	DefaultMaxDelay     = 300 * time.Second
	DefaultJitterFactor = 0.3
)

// Policy computes the delay before the next delivery attempt using
// exponential backoff with bounded jitter. It is safe for concurrent use.
type Policy struct {
	baseDelay    time.Duration
	maxDelay     time.Duration
	jitterFactor float64

	mu  sync.Mutex
	rng *rand.Rand
}

func NewPolicy(baseDelay, maxDelay time.Duration, jitterFactor float64) *Policy {
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}
	if jitterFactor < 0 {
		jitterFactor = 0
	}
	if jitterFactor > 1 {
		jitterFactor = 1
	}
	return &Policy{
		baseDelay:    baseDelay,
		maxDelay:     maxDelay,
		jitterFactor: jitterFactor,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Delay returns the backoff for a row that has completed retryCount attempts:
// clamp(base * 2^retryCount, 1s, max) plus jitter, truncated to whole seconds
// with a floor of one second.
func (p *Policy) Delay(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	// Cap the exponent so the float math cannot overflow before clamping.
	exponent := retryCount
	if exponent > 32 {
		exponent = 32
	}

	exp := p.baseDelay.Seconds() * math.Pow(2, float64(exponent))
	if exp > p.maxDelay.Seconds() {
		exp = p.maxDelay.Seconds()
	}
	if exp < 1 {
		exp = 1
	}

	jitter := exp * p.jitterFactor * (p.uniform() - 0.5)

	seconds := int64(exp + jitter)
	if seconds < 1 {
		seconds = 1
	}
	return time.Duration(seconds) * time.Second
}

func (p *Policy) uniform() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Float64()
}

// ShouldRetry reports whether another attempt is permitted after retryCount
// completed attempts.
func ShouldRetry(retryCount, maxRetries int) bool {
	return retryCount < maxRetries
}
