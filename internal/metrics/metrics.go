package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CallsTotal tracks settled invocations per call name, status and disposition
	CallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callcore_calls_total",
			Help: "Total number of settled call invocations",
		},
		[]string{"name", "status", "disposition"},
	)

	// CallErrorsTotal tracks classified failures per call name and kind
	CallErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callcore_call_errors_total",
			Help: "Total number of classified call failures",
		},
		[]string{"name", "kind"},
	)

	// CallLatency tracks end-to-end invocation latency, retries included
	CallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "callcore_call_latency_seconds",
			Help:    "Call invocation latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"name"},
	)

	// RetriesTotal tracks retry waits per call name and the kind that triggered them
	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callcore_retries_total",
			Help: "Total number of retry attempts scheduled",
		},
		[]string{"name", "kind"},
	)

	// BatchItemsTotal tracks batch items per batch name and result
	BatchItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callcore_batch_items_total",
			Help: "Total number of batch items processed",
		},
		[]string{"name", "result"},
	)

	// BatchDuration tracks how long whole batches take
	BatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "callcore_batch_duration_seconds",
			Help:    "Batch run duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"name"},
	)

	// HTTPRequestsTotal tracks transport requests per provider and status code
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callcore_http_requests_total",
			Help: "Total number of HTTP requests issued by providers",
		},
		[]string{"provider", "code"},
	)

	// HTTPLatency tracks transport request latency
	HTTPLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "callcore_http_latency_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	// DBConnectionPoolUsage tracks the share of open database connections
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "callcore_db_connection_pool_usage_percent",
			Help: "Open database connections as a percentage of the pool size",
		},
	)
)
