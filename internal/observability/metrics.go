package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	HTTPRequestsTotal         *prometheus.CounterVec
	HTTPRequestDuration       *prometheus.HistogramVec
	NotificationsAccepted     *prometheus.CounterVec
	IdempotencyConflictsTotal prometheus.Counter
	DispatchCyclesTotal       prometheus.Counter
	ClaimedTotal              *prometheus.CounterVec
	DispatchOutcomesTotal     *prometheus.CounterVec
	RetriesScheduledTotal     *prometheus.CounterVec
	DeadLetteredTotal         *prometheus.CounterVec
	ProviderSendDuration      *prometheus.HistogramVec
	StuckReleasedTotal        prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status_code"},
		),
		NotificationsAccepted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifications_accepted_total",
				Help: "Total number of notifications accepted at ingest",
			},
			[]string{"platform"},
		),
		IdempotencyConflictsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "idempotency_conflicts_total",
				Help: "Total number of duplicate submissions collapsed by idempotency key",
			},
		),
		DispatchCyclesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "dispatch_cycles_total",
				Help: "Total number of dispatcher poll cycles",
			},
		),
		ClaimedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifications_claimed_total",
				Help: "Total number of notifications claimed for processing",
			},
			[]string{"kind"},
		),
		DispatchOutcomesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dispatch_outcomes_total",
				Help: "Total number of dispatch outcomes",
			},
			[]string{"outcome", "platform"},
		),
		RetriesScheduledTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "retries_scheduled_total",
				Help: "Total number of retries scheduled",
			},
			[]string{"category"},
		),
		DeadLetteredTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dead_lettered_total",
				Help: "Total number of notifications dead-lettered",
			},
			[]string{"category"},
		),
		ProviderSendDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "provider_send_duration_seconds",
				Help:    "Duration of provider send calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		StuckReleasedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "stuck_notifications_released_total",
				Help: "Total number of stuck Processing rows returned to Pending",
			},
		),
	}
}
