package fake

import (
	"context"
	"hash/fnv"

	"go.uber.org/zap"

	"push-dispatcher/internal/provider"
)

const DefaultFailureRate = 0.05

// Provider is an in-process push backend for local runs and tests. It does no
// network I/O and deterministically fails a configurable fraction of sends
// with ServiceUnavailable so the retry path gets exercised.
type Provider struct {
	logger      *zap.Logger
	failureRate float64
}

func NewProvider(logger *zap.Logger, failureRate float64) *Provider {
	if failureRate < 0 || failureRate > 1 {
		failureRate = DefaultFailureRate
	}
	return &Provider{
		logger:      logger,
		failureRate: failureRate,
	}
}

func (p *Provider) Name() string {
	return "fake"
}

func (p *Provider) Send(ctx context.Context, msg provider.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if p.shouldFail(msg.Token) {
		err := &provider.SendError{
			Message:    "fake backend unavailable",
			StatusCode: 503,
			Category:   provider.CategoryServiceUnavailable,
		}
		p.logger.Debug("fake provider: simulated failure",
			zap.String("token", msg.Token),
			zap.Error(err))
		return err
	}

	p.logger.Debug("fake provider: notification sent",
		zap.String("token", msg.Token),
		zap.String("title", msg.Title),
		zap.Int("data_keys", len(msg.Data)))
	return nil
}

// shouldFail hashes the device token so the outcome is stable per token.
func (p *Provider) shouldFail(token string) bool {
	h := fnv.New32a()
	h.Write([]byte(token))
	return float64(h.Sum32()%1000)/1000.0 < p.failureRate
}
