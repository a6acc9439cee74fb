// Package metrics provides Prometheus metrics definitions for the
// monitoring engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "statuspulse"

var (
	checksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checks",
			Name:      "total",
			Help:      "Health checks executed, by check type and outcome",
		},
		[]string{"check_type", "outcome"},
	)

	checkDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "checks",
			Name:      "duration_seconds",
			Help:      "Time spent executing one health check",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"check_type"},
	)

	alertsFired = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "fired_total",
			Help:      "Alert rules that crossed their threshold and fired",
		},
	)

	notificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "sent_total",
			Help:      "Notifications dispatched, by channel type and status",
		},
		[]string{"channel_type", "status"},
	)

	bucketsAggregated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "logmetrics",
			Name:      "buckets_aggregated_total",
			Help:      "Metric buckets written by the log aggregator",
		},
	)
)

// CheckExecuted records one executed health check.
func CheckExecuted(checkType string, success bool, seconds float64) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	checksTotal.WithLabelValues(checkType, outcome).Inc()
	checkDuration.WithLabelValues(checkType).Observe(seconds)
}

// AlertFired records one fired alert rule.
func AlertFired() {
	alertsFired.Inc()
}

// NotificationSent records one notification dispatch attempt.
func NotificationSent(channelType, status string) {
	notificationsSent.WithLabelValues(channelType, status).Inc()
}

// BucketsAggregated records metric buckets written by the aggregator.
func BucketsAggregated(count int) {
	bucketsAggregated.Add(float64(count))
}
