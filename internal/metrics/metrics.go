package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	OutboxPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nova_outbox_pending",
			Help: "Unpublished outbox rows awaiting relay",
		},
	)

	OutboxOldestPendingAge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nova_outbox_oldest_pending_age_seconds",
			Help: "Age of the oldest unpublished outbox row",
		},
	)

	OutboxPublished = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nova_outbox_published_total",
			Help: "Outbox events acknowledged by the broker and marked published",
		},
	)

	OutboxRetryExhausted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nova_outbox_retry_exhausted_total",
			Help: "Outbox events that hit the retry ceiling and need intervention",
		},
	)

	PublishDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nova_outbox_publish_duration_seconds",
			Help:    "Broker publish latency per event",
			Buckets: prometheus.DefBuckets,
		},
	)

	IdempotencyClaims = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nova_idempotency_claims_total",
			Help: "Claim outcomes by result",
		},
		[]string{"result"}, // claimed|duplicate|error
	)

	CacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nova_cache_requests_total",
			Help: "Cache lookups by tier and result",
		},
		[]string{"tier", "result"}, // local|shared , hit|miss
	)

	CacheEvictions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nova_cache_evictions_total",
			Help: "Cache entries evicted (invalidation or TTL)",
		},
	)

	InvalidationMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nova_invalidation_messages_total",
			Help: "Invalidation messages by direction and action",
		},
		[]string{"direction", "action"}, // published|received , delete|pattern|batch
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		OutboxPending,
		OutboxOldestPendingAge,
		OutboxPublished,
		OutboxRetryExhausted,
		PublishDuration,
		IdempotencyClaims,
		CacheRequests,
		CacheEvictions,
		InvalidationMessages,
	)
}
