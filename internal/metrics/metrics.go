package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPResponseSize      *prometheus.HistogramVec
	HTTPActiveConnections *prometheus.GaugeVec

	// Cache metrics
	CacheHitsTotal         *prometheus.CounterVec
	CacheMissesTotal       *prometheus.CounterVec
	CacheOperationsTotal   *prometheus.CounterVec
	CacheOperationDuration *prometheus.HistogramVec

	// Rate limiting metrics
	RateLimitChecksTotal   *prometheus.CounterVec
	RateLimitExceededTotal *prometheus.CounterVec

	// Upstream API metrics
	UpstreamRequestsTotal   *prometheus.CounterVec
	UpstreamRequestDuration *prometheus.HistogramVec

	// Background jobs
	HotScoreRefreshDuration prometheus.Histogram
	HotScorePostsUpdated    prometheus.Counter

	// Error metrics
	ErrorsTotal *prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all Prometheus metrics
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"method", "path", "status"},
			),
			HTTPResponseSize: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_response_size_bytes",
					Help:    "HTTP response size in bytes",
					Buckets: prometheus.ExponentialBuckets(100, 10, 7),
				},
				[]string{"method", "path", "status"},
			),
			HTTPActiveConnections: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "http_active_connections",
					Help: "Number of currently active HTTP connections",
				},
				[]string{"method", "path"},
			),

			CacheHitsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_hits_total",
					Help: "Total number of cache hits",
				},
				[]string{"cache_name"},
			),
			CacheMissesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_misses_total",
					Help: "Total number of cache misses",
				},
				[]string{"cache_name"},
			),
			CacheOperationsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_operations_total",
					Help: "Total number of cache operations",
				},
				[]string{"operation", "status"},
			),
			CacheOperationDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "cache_operation_duration_seconds",
					Help:    "Cache operation latency in seconds",
					Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1},
				},
				[]string{"operation"},
			),

			RateLimitChecksTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "rate_limit_checks_total",
					Help: "Total number of rate limit checks",
				},
				[]string{"rule", "backend"},
			),
			RateLimitExceededTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "rate_limit_exceeded_total",
					Help: "Total number of requests rejected by the rate limiter",
				},
				[]string{"rule", "method"},
			),

			UpstreamRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "upstream_requests_total",
					Help: "Total number of calls to third-party data APIs",
				},
				[]string{"upstream", "status"},
			),
			UpstreamRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "upstream_request_duration_seconds",
					Help:    "Third-party API latency in seconds",
					Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
				},
				[]string{"upstream"},
			),

			HotScoreRefreshDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "hot_score_refresh_duration_seconds",
					Help:    "Time spent recomputing trending scores",
					Buckets: prometheus.DefBuckets,
				},
			),
			HotScorePostsUpdated: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "hot_score_posts_updated_total",
					Help: "Posts whose trending score was recomputed by the refresher",
				},
			),

			ErrorsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "errors_total",
					Help: "Total number of errors by type",
				},
				[]string{"error_type", "endpoint"},
			),
		}
	})
	return instance
}

// Get returns the global metrics instance
func Get() *Metrics {
	return Initialize()
}

func RecordCacheHit(cacheName string) {
	Get().CacheHitsTotal.WithLabelValues(cacheName).Inc()
}

func RecordCacheMiss(cacheName string) {
	Get().CacheMissesTotal.WithLabelValues(cacheName).Inc()
}

func RecordCacheOperation(operation string, duration time.Duration, err error) {
	m := Get()
	m.CacheOperationsTotal.WithLabelValues(operation, status(err)).Inc()
	m.CacheOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func RecordRateLimitCheck(rule, backend string) {
	Get().RateLimitChecksTotal.WithLabelValues(rule, backend).Inc()
}

func RecordRateLimitExceeded(rule, method string) {
	Get().RateLimitExceededTotal.WithLabelValues(rule, method).Inc()
}

// RecordUpstreamRequest counts one third-party call. statusCode is 0 when the
// request never got a response.
func RecordUpstreamRequest(upstream string, statusCode int, duration time.Duration) {
	m := Get()
	m.UpstreamRequestsTotal.WithLabelValues(upstream, statusClass(statusCode)).Inc()
	m.UpstreamRequestDuration.WithLabelValues(upstream).Observe(duration.Seconds())
}

func RecordError(errorType, endpoint string) {
	Get().ErrorsTotal.WithLabelValues(errorType, endpoint).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func statusClass(code int) string {
	switch {
	case code == 0:
		return "error"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
