// Package metric holds the client's own Prometheus collectors. All names
// carry the eyeson_ prefix so they cannot clash with collectors of the
// embedding application.
package metric

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/qrave1/eyeson-go/internal/domain/events"
)

var (
	// Calls made against the eyeson REST API
	apiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eyeson_api_requests_total",
			Help: "Total number of eyeson API requests",
		},
		[]string{"method", "status"},
	)

	apiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eyeson_api_request_duration_seconds",
			Help:    "eyeson API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "status"},
	)

	observerActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "eyeson_observer_active_connections",
			Help: "Number of open observer connections",
		},
	)

	observerEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eyeson_observer_events_total",
			Help: "Observer messages received, by message type",
		},
		[]string{"type"},
	)

	webhooksReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eyeson_webhooks_received_total",
			Help: "Webhook deliveries received, by event type",
		},
		[]string{"type"},
	)
)

// RecordAPIRequest records one eyeson API call. status is 0 for transport failures.
func RecordAPIRequest(method string, status int, duration time.Duration) {
	strStatus := strconv.Itoa(status)

	apiRequestsTotal.WithLabelValues(method, strStatus).Inc()
	apiRequestDuration.WithLabelValues(method, strStatus).Observe(duration.Seconds())
}

// RecordObserverEvent counts a pushed message. Undocumented types are
// counted as "other".
func RecordObserverEvent(eventType string) {
	observerEventsTotal.WithLabelValues(events.KnownType(eventType)).Inc()
}

func RecordWebhookReceived(eventType string) {
	webhooksReceivedTotal.WithLabelValues(events.KnownType(eventType)).Inc()
}

func IncrementObserverConnections() {
	observerActiveConnections.Inc()
}

func DecrementObserverConnections() {
	observerActiveConnections.Dec()
}

// ObserverConnections returns the number of open observer connections.
func ObserverConnections() int {
	return int(gaugeValue(observerActiveConnections))
}
