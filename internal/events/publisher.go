package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"push-dispatcher/internal/outbox"
)

const (
	SubjectSent       = "push.notifications.sent"
	SubjectDeadLetter = "push.notifications.deadletter"
)

// SentEvent announces a successful delivery.
type SentEvent struct {
	ID         uuid.UUID `json:"id"`
	Platform   string    `json:"platform"`
	RetryCount int       `json:"retry_count"`
	Timestamp  time.Time `json:"timestamp"`
}

// DeadLetterEvent announces a terminally failed delivery for operator triage.
type DeadLetterEvent struct {
	ID         uuid.UUID `json:"id"`
	Platform   string    `json:"platform"`
	Reason     string    `json:"reason"`
	Category   string    `json:"category"`
	RetryCount int       `json:"retry_count"`
	Timestamp  time.Time `json:"timestamp"`
}

// Publisher emits delivery outcomes over NATS. It is observe-only: the
// dispatch loop stays polling-based and never consumes these subjects.
type Publisher struct {
	conn   *nats.Conn
	logger *zap.Logger
}

func NewPublisher(natsURL string, logger *zap.Logger) (*Publisher, error) {
	opts := []nats.Option{
		nats.Name("Push Dispatcher"),
		nats.Timeout(10 * time.Second),
		nats.ReconnectWait(5 * time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Error("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	conn, err := nats.Connect(natsURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info("connected to NATS", zap.String("url", conn.ConnectedUrl()))
	return &Publisher{conn: conn, logger: logger}, nil
}

func (p *Publisher) Close() {
	p.conn.Close()
}

func (p *Publisher) HealthCheck(ctx context.Context) error {
	if p.conn.Status() != nats.CONNECTED {
		return fmt.Errorf("NATS not connected, status: %v", p.conn.Status())
	}
	return nil
}

func (p *Publisher) NotificationSent(ctx context.Context, msg *outbox.Message) error {
	return p.publish(SubjectSent, SentEvent{
		ID:         msg.ID,
		Platform:   msg.TargetPlatform,
		RetryCount: msg.RetryCount,
		Timestamp:  time.Now().UTC(),
	})
}

func (p *Publisher) NotificationDeadLettered(ctx context.Context, msg *outbox.Message, reason, category string) error {
	return p.publish(SubjectDeadLetter, DeadLetterEvent{
		ID:         msg.ID,
		Platform:   msg.TargetPlatform,
		Reason:     reason,
		Category:   category,
		RetryCount: msg.RetryCount,
		Timestamp:  time.Now().UTC(),
	})
}

func (p *Publisher) publish(subject string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	p.logger.Debug("published event", zap.String("subject", subject))
	return nil
}
