// Package metrics registers the service's Prometheus collectors.
package metrics

import (
	"sync"

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

	// Rate limiting
	RateLimitExceededTotal *prometheus.CounterVec

	// Auth
	AuthAttemptsTotal *prometheus.CounterVec
	OTPIssuedTotal    prometheus.Counter
	OTPFailuresTotal  *prometheus.CounterVec

	// Social graph and content
	FollowOperationsTotal *prometheus.CounterVec
	PostOperationsTotal   *prometheus.CounterVec
	StoryViewsTotal       prometheus.Counter
	ImageCleanupFailures  *prometheus.CounterVec

	// Feed
	FeedGenerationTime *prometheus.HistogramVec

	// Search
	SearchQueriesTotal   *prometheus.CounterVec
	SearchQueryDuration  *prometheus.HistogramVec
	SearchFallbacksTotal prometheus.Counter
	SearchIndexErrors    *prometheus.CounterVec

	// Events
	EventsPublishedTotal *prometheus.CounterVec

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

			RateLimitExceededTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "rate_limit_exceeded_total",
					Help: "Total number of rate limit violations",
				},
				[]string{"limiter"},
			),

			AuthAttemptsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "auth_attempts_total",
					Help: "Authentication attempts by method and outcome",
				},
				[]string{"method", "outcome"},
			),
			OTPIssuedTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "otp_issued_total",
					Help: "Signup codes stored and delivered",
				},
			),
			OTPFailuresTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "otp_failures_total",
					Help: "Signup code failures by stage",
				},
				[]string{"stage"},
			),

			FollowOperationsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "follow_operations_total",
					Help: "Follow and unfollow operations",
				},
				[]string{"action"},
			),
			PostOperationsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "post_operations_total",
					Help: "Post mutations by action",
				},
				[]string{"action"},
			),
			StoryViewsTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "story_views_total",
					Help: "New story views recorded",
				},
			),
			ImageCleanupFailures: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "image_cleanup_failures_total",
					Help: "Image deletions that failed after the owning row was removed",
				},
				[]string{"kind"},
			),

			FeedGenerationTime: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "feed_generation_duration_seconds",
					Help:    "Time to generate feed in seconds",
					Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"feed_type"},
			),

			SearchQueriesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "search_queries_total",
					Help: "Total number of search queries",
				},
				[]string{"type", "backend"},
			),
			SearchQueryDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "search_query_duration_seconds",
					Help:    "Search query duration in seconds",
					Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
				},
				[]string{"type"},
			),
			SearchFallbacksTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "search_fallbacks_total",
					Help: "Searches answered by the database after an index failure",
				},
			),
			SearchIndexErrors: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "search_index_errors_total",
					Help: "Failed index writes by document type",
				},
				[]string{"type"},
			),

			EventsPublishedTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "events_published_total",
					Help: "Domain events by type and outcome",
				},
				[]string{"type", "outcome"},
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
	if instance == nil {
		return Initialize()
	}
	return instance
}
