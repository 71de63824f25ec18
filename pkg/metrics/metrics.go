package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// NotificationWrites counts best-effort notification writes by type and result (success|failure).
	NotificationWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farmlink_notification_writes_total",
			Help: "Total number of notification write attempts",
		},
		[]string{"type", "result"},
	)

	// UnreadCountFallbacks counts unread-count reads that were masked to zero after a storage failure.
	UnreadCountFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "farmlink_unread_count_fallbacks_total",
			Help: "Unread count lookups answered with the zero fallback because of an error",
		},
	)

	// SubscriptionChecks counts subscription status evaluations by outcome (active|inactive|error).
	SubscriptionChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farmlink_subscription_checks_total",
			Help: "Total number of subscription status checks",
		},
		[]string{"outcome"},
	)

	// LocaleResolutions counts resolved locales, including fallbacks to the default.
	LocaleResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farmlink_locale_resolutions_total",
			Help: "Locale resolutions by resolved locale and whether the default was used",
		},
		[]string{"locale", "fallback"},
	)

	// MaintenanceRuns records background job executions by job and result.
	MaintenanceRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farmlink_maintenance_runs_total",
			Help: "Background maintenance job executions",
		},
		[]string{"job", "result"},
	)

	// RealtimeConnections tracks open websocket connections.
	RealtimeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "farmlink_realtime_connections",
			Help: "Number of open realtime websocket connections",
		},
	)

	// HTTPRequests counts served requests by route template and status class (2xx, 4xx, ...).
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farmlink_http_requests_total",
			Help: "HTTP requests served",
		},
		[]string{"method", "route", "class"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "farmlink_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Result maps an error to the conventional result label.
func Result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
