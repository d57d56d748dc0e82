package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hub_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Business metrics
	AgentsRegistered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_agents_registered_total",
			Help: "Total agent registration calls",
		},
	)

	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_messages_sent_total",
			Help: "Total messages routed",
		},
		[]string{"kind"}, // "request", "response", "event", ...
	)

	PublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_publish_failures_total",
			Help: "Bus publishes that failed after a durable write",
		},
		[]string{"topic_type"}, // "agent" or "broadcast"
	)

	ObserverConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_observer_connections",
			Help: "Currently connected observer feed clients",
		},
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)

	// Infrastructure metrics
	StoreLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hub_store_latency_seconds",
			Help:    "Durable store write latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1},
		},
	)
)
