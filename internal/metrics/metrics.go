// Package metrics provides Prometheus instrumentation for the scoring service.
package metrics

import (
	"runtime"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prescreen",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "prescreen",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// VerdictsTotal counts scoring verdicts by recommended action.
	VerdictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prescreen",
			Name:      "verdicts_total",
			Help:      "Total verdicts produced by recommended action.",
		},
		[]string{"action"},
	)

	// RiskScores observes the distribution of final risk scores (0-100).
	RiskScores = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "prescreen",
			Name:      "risk_score",
			Help:      "Distribution of final risk scores.",
			Buckets:   []float64{5, 10, 20, 30, 40, 50, 60, 70, 85, 95},
		},
	)

	// ComponentFailuresTotal counts sub-model computations that degraded
	// to a zero component score.
	ComponentFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prescreen",
			Name:      "component_failures_total",
			Help:      "Total sub-model failures that degraded a component to zero.",
		},
		[]string{"component"},
	)

	// ScoringDuration observes end-to-end scoring latency.
	ScoringDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "prescreen",
			Name:      "scoring_duration_seconds",
			Help:      "End-to-end transaction scoring duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// ProviderRequestsTotal counts chain-data provider calls by provider,
	// call kind, and outcome (ok, error, timeout).
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prescreen",
			Name:      "provider_requests_total",
			Help:      "Total chain-data provider calls by provider, call kind, and outcome.",
		},
		[]string{"provider", "call", "outcome"},
	)

	// ProviderRequestDuration observes provider call latency.
	ProviderRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "prescreen",
			Name:      "provider_request_duration_seconds",
			Help:      "Chain-data provider call duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider", "call"},
	)

	// CacheLookupsTotal counts gateway cache lookups by result (hit, miss, expired).
	CacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prescreen",
			Name:      "cache_lookups_total",
			Help:      "Total gateway cache lookups by result.",
		},
		[]string{"result"},
	)

	// TabularFallbacksTotal counts scoring calls served by the amount-tier
	// heuristic instead of the trained model.
	TabularFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "prescreen",
			Name:      "tabular_fallbacks_total",
			Help:      "Total tabular predictions served by the heuristic fallback.",
		},
	)

	// RateLimitedTotal counts requests rejected by the rate limiter.
	RateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "prescreen",
			Name:      "rate_limited_total",
			Help:      "Total requests rejected with 429 by the rate limiter.",
		},
	)

	// GoroutineCount tracks the current number of goroutines.
	GoroutineCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "prescreen", Name: "goroutines",
		Help: "Current number of goroutines.",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		VerdictsTotal,
		RiskScores,
		ComponentFailuresTotal,
		ScoringDuration,
		ProviderRequestsTotal,
		ProviderRequestDuration,
		CacheLookupsTotal,
		TabularFallbacksTotal,
		RateLimitedTotal,
		GoroutineCount,
	)
}

// SampleRuntime records the current goroutine count.
func SampleRuntime() {
	GoroutineCount.Set(float64(runtime.NumGoroutine()))
}

// Middleware returns a gin middleware that records request metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := prometheus.NewTimer(HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(), // Uses route pattern, not actual path (avoids cardinality explosion)
		))

		c.Next()

		timer.ObserveDuration()
		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			statusBucket(c.Writer.Status()),
		).Inc()
	}
}

// Handler returns the Prometheus metrics HTTP handler for /metrics endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// statusBucket groups HTTP status codes into buckets (2xx, 3xx, 4xx, 5xx).
func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
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
