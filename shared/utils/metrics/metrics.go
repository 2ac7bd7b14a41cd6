package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "promptmaker"

var (
	// ModerationDecisions counts moderation outcomes by decision (approved, rejected) and subject (prompt, comment).
	ModerationDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "moderation_decisions_total",
		Help:      "Content moderation outcomes.",
	}, []string{"subject", "decision"})

	// RateLimitDecisions counts admission decisions (allowed, limited, degraded).
	RateLimitDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limit_decisions_total",
		Help:      "Rate limiter admission decisions.",
	}, []string{"decision"})

	// PasswordResetEvents counts reset flow events (requested, completed, rejected).
	PasswordResetEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "password_reset_events_total",
		Help:      "Password reset flow events.",
	}, []string{"event"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	FeedConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "feed_connections",
		Help:      "Open live feed websocket connections.",
	})
)
