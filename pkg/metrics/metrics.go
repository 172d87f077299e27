package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	FetchesTotal        *prometheus.CounterVec
	FetchDuration       *prometheus.HistogramVec
	CacheEventsTotal    *prometheus.CounterVec
	CacheEntries        prometheus.Gauge
)

func Init() {
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetches_total",
			Help: "Total number of URL fetch attempts.",
		},
		[]string{"status", "error_type"}, // status: success, failure, denied
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fetch_duration_seconds",
			Help:    "Duration of headless-browser fetch operations.",
			Buckets: []float64{1, 2, 5, 10, 15, 30, 60},
		},
		[]string{"domain"},
	)

	CacheEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapshot_cache_events_total",
			Help: "Snapshot cache lookups and stores by outcome.",
		},
		[]string{"event"}, // hit, miss, store
	)

	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "snapshot_cache_entries",
			Help: "Current number of entries in the snapshot cache.",
		},
	)
}
