package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// Gateway request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// Gateway request latency. Watch for: p95/p99 increases driven by upstream forecast latency.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent gateway requests in flight.
	HTTPRequestsInFlight prometheus.Gauge

	// Trip API call rate by method and status label (success, client_error, server_error, error).
	APIRequestsTotal *prometheus.CounterVec

	// Trip API latency per attempt (a refreshed retry counts as its own attempt).
	APIRequestDuration *prometheus.HistogramVec

	// Trip API failures by ErrorCategory. Watch for: misconfigured spikes after deploys.
	APIErrorsTotal *prometheus.CounterVec

	// Session refreshes triggered by a 401. Watch for: failed refreshes = users being logged out.
	TokenRefreshesTotal *prometheus.CounterVec

	// Auth-error broadcasts (unrecoverable session).
	AuthErrorBroadcastsTotal prometheus.Counter

	// Geocoding attempts per provider; result is hit, no_match, error or open (breaker open).
	GeocodeAttemptsTotal *prometheus.CounterVec

	// Forecast provider calls. The provider is never retried, so calls == resolutions past geocoding.
	ForecastCallsTotal *prometheus.CounterVec

	// Forecast provider latency per call.
	ForecastDuration *prometheus.HistogramVec

	// Resolver outcomes: ready, location_not_found, forecast_unavailable, error.
	ForecastResolutionsTotal *prometheus.CounterVec

	// Cache hits. Hit rate = hits / forecastResolutionsTotal.
	CacheHitsTotal *prometheus.CounterVec

	// Cache backend failures by operation (get, set).
	CacheErrorsTotal *prometheus.CounterVec

	// Resolutions that joined an in-flight resolution for the same inputs.
	RequestCoalescingHitsTotal prometheus.Counter

	// Cache warming runs, failures and duration.
	CacheWarmingTotal           prometheus.Counter
	CacheWarmingErrorsTotal     prometheus.Counter
	CacheWarmingDurationSeconds prometheus.Histogram

	// Circuit breaker transitions for geocoding providers.
	CircuitBreakerTransitionsTotal *prometheus.CounterVec

	// Invite claims after sign-in; result is claimed or failed.
	InviteClaimsTotal *prometheus.CounterVec

	// Rate limit denials on the gateway.
	RateLimitDeniedTotal prometheus.Counter
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of gateway HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "Gateway HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of gateway HTTP requests currently being served",
		},
	)
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apiRequestsTotal",
			Help: "Total number of trip API request attempts",
		},
		[]string{"method", "status"},
	)
	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "apiRequestDurationSeconds",
			Help:    "Trip API latency in seconds per attempt",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"status"},
	)
	APIErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apiErrorsTotal",
			Help: "Trip API request failures by category",
		},
		[]string{"category"},
	)
	TokenRefreshesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenRefreshesTotal",
			Help: "Session refresh attempts triggered by unauthorized responses",
		},
		[]string{"result"},
	)
	AuthErrorBroadcastsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "authErrorBroadcastsTotal",
			Help: "Total number of auth-error broadcasts",
		},
	)
	GeocodeAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocodeAttemptsTotal",
			Help: "Geocoding attempts per provider and result",
		},
		[]string{"provider", "result"},
	)
	ForecastCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forecastCallsTotal",
			Help: "Total number of forecast provider calls",
		},
		[]string{"status"},
	)
	ForecastDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "forecastDurationSeconds",
			Help:    "Forecast provider latency in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"status"},
	)
	ForecastResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forecastResolutionsTotal",
			Help: "Forecast resolutions by outcome",
		},
		[]string{"outcome"},
	)
	CacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheHitsTotal",
			Help: "Total number of cache hits",
		},
		[]string{"cacheType"},
	)
	CacheErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheErrorsTotal",
			Help: "Cache backend errors by operation",
		},
		[]string{"operation"},
	)
	RequestCoalescingHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "requestCoalescingHitsTotal",
			Help: "Resolutions served by joining an in-flight resolution",
		},
	)
	CacheWarmingTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheWarmingTotal",
			Help: "Total number of cache warming runs",
		},
	)
	CacheWarmingErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheWarmingErrorsTotal",
			Help: "Cache warming runs with at least one failed trip",
		},
	)
	CacheWarmingDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cacheWarmingDurationSeconds",
			Help:    "Cache warming run duration in seconds",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 30},
		},
	)
	CircuitBreakerTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuitBreakerTransitionsTotal",
			Help: "Circuit breaker state transitions",
		},
		[]string{"component", "from", "to"},
	)
	InviteClaimsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inviteClaimsTotal",
			Help: "Pending invite claims after sign-in",
		},
		[]string{"result"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		APIRequestsTotal, APIRequestDuration, APIErrorsTotal,
		TokenRefreshesTotal, AuthErrorBroadcastsTotal,
		GeocodeAttemptsTotal,
		ForecastCallsTotal, ForecastDuration, ForecastResolutionsTotal,
		CacheHitsTotal, CacheErrorsTotal, RequestCoalescingHitsTotal,
		CacheWarmingTotal, CacheWarmingErrorsTotal, CacheWarmingDurationSeconds,
		CircuitBreakerTransitionsTotal,
		InviteClaimsTotal,
		RateLimitDeniedTotal,
	)
}

// StatusLabel maps an HTTP status code to a low-cardinality metric label.
func StatusLabel(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "success"
	case statusCode == http.StatusTooManyRequests:
		return "rate_limited"
	case statusCode >= 400 && statusCode < 500:
		return "client_error"
	case statusCode >= 500:
		return "server_error"
	default:
		return "error"
	}
}

// ObserveSince records the seconds elapsed since start on h.
func ObserveSince(h prometheus.Observer, start time.Time) {
	h.Observe(time.Since(start).Seconds())
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
