package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// bitcoin node
	BTCBestHeight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "runes_bridge_btc_best_height",
		Help: "Height of the best bitcoin block seen by the notifier",
	})

	BTCRPCErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runes_bridge_btc_rpc_errors_total",
			Help: "Total number of failed bitcoin node calls",
		},
		[]string{"method"},
	)

	// rune indexer
	IndexerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runes_bridge_indexer_requests_total",
			Help: "Total number of indexer requests by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	IndexerRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "runes_bridge_indexer_request_duration_seconds",
			Help:    "Indexer request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// deposits and claims
	DepositsClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runes_bridge_deposits_classified_total",
			Help: "Total number of deposit candidates classified, by status",
		},
		[]string{"status"},
	)

	ClaimsSigned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "runes_bridge_claims_signed_total",
		Help: "Total number of claim payloads signed and stored",
	})

	ClaimsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runes_bridge_claims_failed_total",
			Help: "Total number of failed claim requests, by error kind",
		},
		[]string{"kind"},
	)

	// http
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runes_bridge_http_requests_total",
			Help: "Total number of HTTP requests by route and status code",
		},
		[]string{"route", "code"},
	)

	HTTPRateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "runes_bridge_http_rate_limited_total",
		Help: "Total number of HTTP requests rejected by the rate limiter",
	})

	// nats
	NATSConnectionStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "runes_bridge_nats_connection_status",
		Help: "NATS connection status (1=connected, 0=disconnected)",
	})

	NATSMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runes_bridge_nats_messages_published_total",
			Help: "Total number of events forwarded to NATS",
		},
		[]string{"subject", "outcome"},
	)
)
