// README: Prometheus collectors for offers, quotes, presence and HTTP.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rideline"

var (
	OfferTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "offer_transitions_total", Help: "Offer transition attempts by operation and outcome"},
		[]string{"operation", "outcome"},
	)

	QuotesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "quotes_total", Help: "Quote computations by outcome"},
		[]string{"outcome"},
	)
	QuoteProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quote_provider_latency_seconds",
			Help:      "Latency of directions and geocoding calls",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"call"},
	)

	DriversOnline         = promauto.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "drivers_online", Help: "Presence sessions currently online in this process"})
	PresenceWriteFailures = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "presence_write_failures_total", Help: "Best-effort presence writes that failed"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
