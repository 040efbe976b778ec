package dispatcher

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"push-dispatcher/internal/observability"
	"push-dispatcher/internal/outbox"
	"push-dispatcher/internal/provider"
	"push-dispatcher/internal/retry"
)

// Store is the slice of the outbox contract the dispatcher drives.
type Store interface {
	ClaimPending(ctx context.Context, limit int) ([]*outbox.Message, error)
	ClaimFailed(ctx context.Context, limit int) ([]*outbox.Message, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg, category string, nextAttempt time.Time) error
	MarkDeadLettered(ctx context.Context, id uuid.UUID, reason, category string, attempted bool) error
	ReleaseStuck(ctx context.Context, cutoff time.Time) (int64, error)
}

// EventSink receives delivery outcomes for operator monitoring. Implementations
// must tolerate being nil-checked out entirely.
type EventSink interface {
	NotificationSent(ctx context.Context, msg *outbox.Message) error
	NotificationDeadLettered(ctx context.Context, msg *outbox.Message, reason, category string) error
}

type Config struct {
	BatchSize         int
	PollInterval      time.Duration
	MaxConcurrency    int
	SendTimeout       time.Duration
	VisibilityTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = 10
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = 10
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 30 * time.Second
	}
	if c.VisibilityTimeout <= 0 {
		c.VisibilityTimeout = 5 * time.Minute
	}
}

// Dispatcher is the polling delivery loop. Each cycle it claims due Pending
// rows, then retryable Failed rows, and pushes every claimed row through its
// provider under a counted semaphore. All coordination with other dispatcher
// instances happens through the outbox store.
type Dispatcher struct {
	store    Store
	registry *provider.Registry
	policy   *retry.Policy
	events   EventSink
	metrics  *observability.Metrics
	logger   *zap.Logger
	cfg      Config
	sem      chan struct{}
}

func New(store Store, registry *provider.Registry, policy *retry.Policy, events EventSink, metrics *observability.Metrics, logger *zap.Logger, cfg Config) *Dispatcher {
	cfg.applyDefaults()
	return &Dispatcher{
		store:    store,
		registry: registry,
		policy:   policy,
		events:   events,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
		sem:      make(chan struct{}, cfg.MaxConcurrency),
	}
}

// Run polls until ctx is cancelled. The first cycle starts immediately.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info("dispatcher started",
		zap.Int("batch_size", d.cfg.BatchSize),
		zap.Duration("poll_interval", d.cfg.PollInterval),
		zap.Int("max_concurrency", d.cfg.MaxConcurrency))

	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	for {
		d.Cycle(ctx)

		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Cycle claims and dispatches one batch of pending rows followed by one batch
// of failed rows, then waits for every scheduled dispatch to finish.
func (d *Dispatcher) Cycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if d.metrics != nil {
		d.metrics.DispatchCyclesTotal.Inc()
	}

	if released, err := d.store.ReleaseStuck(ctx, time.Now().Add(-d.cfg.VisibilityTimeout)); err != nil {
		d.logger.Error("failed to release stuck notifications", zap.Error(err))
	} else if released > 0 {
		d.logger.Warn("released stuck notifications", zap.Int64("count", released))
		if d.metrics != nil {
			d.metrics.StuckReleasedTotal.Add(float64(released))
		}
	}

	var wg sync.WaitGroup
	d.claimAndSchedule(ctx, &wg, "pending", d.store.ClaimPending)
	d.claimAndSchedule(ctx, &wg, "failed", d.store.ClaimFailed)
	wg.Wait()
}

func (d *Dispatcher) claimAndSchedule(ctx context.Context, wg *sync.WaitGroup, kind string, claim func(context.Context, int) ([]*outbox.Message, error)) {
	if ctx.Err() != nil {
		return
	}

	batch, err := claim(ctx, d.cfg.BatchSize)
	if err != nil {
		d.logger.Error("failed to claim notifications",
			zap.String("kind", kind),
			zap.Error(err))
		return
	}
	if len(batch) == 0 {
		return
	}

	d.logger.Debug("claimed notifications",
		zap.String("kind", kind),
		zap.Int("count", len(batch)))
	if d.metrics != nil {
		d.metrics.ClaimedTotal.WithLabelValues(kind).Add(float64(len(batch)))
	}

	for _, msg := range batch {
		if ctx.Err() != nil {
			// Unstarted claims stay in Processing; the sweeper reclaims them.
			return
		}
		wg.Add(1)
		go func(msg *outbox.Message) {
			defer wg.Done()
			select {
			case d.sem <- struct{}{}:
				defer func() { <-d.sem }()
			case <-ctx.Done():
				return
			}
			d.dispatch(ctx, msg)
		}(msg)
	}
}

// dispatch drives one claimed row through its provider and persists the
// outcome. Outcome writes use a detached context so a shutdown mid-send still
// commits the result of the attempt.
func (d *Dispatcher) dispatch(ctx context.Context, msg *outbox.Message) {
	p, ok := d.registry.Lookup(msg.TargetPlatform)
	if !ok {
		d.deadLetter(msg, "no provider registered for platform "+msg.TargetPlatform,
			provider.CategoryPlatformNotSupported, false)
		return
	}

	data, err := msg.DataMap()
	if err != nil {
		// Undecodable data is not a delivery failure; send without it.
		d.logger.Warn("failed to decode notification data",
			zap.String("id", msg.ID.String()),
			zap.Error(err))
		data = nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
	start := time.Now()
	sendErr := p.Send(sendCtx, provider.Message{
		Token: msg.DeviceToken,
		Title: msg.Title,
		Body:  msg.Body,
		Data:  data,
	})
	cancel()

	if d.metrics != nil {
		d.metrics.ProviderSendDuration.WithLabelValues(p.Name()).Observe(time.Since(start).Seconds())
	}

	if sendErr == nil {
		d.markSent(msg, p.Name())
		return
	}

	se := provider.AsSendError(sendErr)
	if !se.Retryable() {
		d.deadLetter(msg, se.Error(), se.Category, true)
		return
	}
	if !retry.ShouldRetry(msg.RetryCount+1, msg.MaxRetries) {
		d.deadLetter(msg, se.Error(), se.Category, true)
		return
	}
	d.markFailed(msg, se)
}

func (d *Dispatcher) markSent(msg *outbox.Message, providerName string) {
	ctx, cancel := d.writeContext()
	defer cancel()

	if err := d.store.MarkSent(ctx, msg.ID); err != nil {
		d.logTransitionError("failed to mark notification sent", msg.ID, err)
		return
	}

	d.logger.Info("notification sent",
		zap.String("id", msg.ID.String()),
		zap.String("platform", msg.TargetPlatform),
		zap.String("provider", providerName),
		zap.Int("retry_count", msg.RetryCount))
	if d.metrics != nil {
		d.metrics.DispatchOutcomesTotal.WithLabelValues("sent", msg.TargetPlatform).Inc()
	}
	if d.events != nil {
		if err := d.events.NotificationSent(ctx, msg); err != nil {
			d.logger.Warn("failed to publish sent event", zap.Error(err))
		}
	}
}

func (d *Dispatcher) markFailed(msg *outbox.Message, se *provider.SendError) {
	ctx, cancel := d.writeContext()
	defer cancel()

	delay := d.policy.Delay(msg.RetryCount)
	nextAttempt := time.Now().Add(delay)
	if err := d.store.MarkFailed(ctx, msg.ID, se.Error(), string(se.Category), nextAttempt); err != nil {
		d.logTransitionError("failed to mark notification failed", msg.ID, err)
		return
	}

	d.logger.Warn("notification delivery failed, retry scheduled",
		zap.String("id", msg.ID.String()),
		zap.String("platform", msg.TargetPlatform),
		zap.String("category", string(se.Category)),
		zap.Int("retry_count", msg.RetryCount+1),
		zap.Duration("delay", delay))
	if d.metrics != nil {
		d.metrics.DispatchOutcomesTotal.WithLabelValues("failed", msg.TargetPlatform).Inc()
		d.metrics.RetriesScheduledTotal.WithLabelValues(string(se.Category)).Inc()
	}
}

func (d *Dispatcher) deadLetter(msg *outbox.Message, reason string, category provider.FailureCategory, attempted bool) {
	ctx, cancel := d.writeContext()
	defer cancel()

	if err := d.store.MarkDeadLettered(ctx, msg.ID, reason, string(category), attempted); err != nil {
		d.logTransitionError("failed to dead-letter notification", msg.ID, err)
		return
	}

	d.logger.Warn("notification dead-lettered",
		zap.String("id", msg.ID.String()),
		zap.String("platform", msg.TargetPlatform),
		zap.String("category", string(category)),
		zap.String("reason", reason))
	if d.metrics != nil {
		d.metrics.DispatchOutcomesTotal.WithLabelValues("dead_lettered", msg.TargetPlatform).Inc()
		d.metrics.DeadLetteredTotal.WithLabelValues(string(category)).Inc()
	}
	if d.events != nil {
		if err := d.events.NotificationDeadLettered(ctx, msg, reason, string(category)); err != nil {
			d.logger.Warn("failed to publish dead-letter event", zap.Error(err))
		}
	}
}

// writeContext detaches outcome persistence from cycle cancellation so an
// in-flight dispatch finishes its transaction during shutdown.
func (d *Dispatcher) writeContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

func (d *Dispatcher) logTransitionError(message string, id uuid.UUID, err error) {
	if errors.Is(err, outbox.ErrInvalidTransition) {
		// Another worker won the row; abandon silently.
		d.logger.Debug("lost transition race", zap.String("id", id.String()))
		return
	}
	d.logger.Error(message, zap.String("id", id.String()), zap.Error(err))
}
