package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Guard metrics
	guardDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guard_decisions_total",
			Help: "Access guard decisions by outcome",
		},
		[]string{"outcome"}, // allow/allow_anonymous/allow_refreshed/redirect_login/redirect_home/redirect_unauthorized
	)

	tokenRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_refresh_total",
			Help: "Refresh token exchanges by result",
		},
		[]string{"status"}, // success/failure
	)

	// Authentication metrics
	authLoginAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_login_attempts_total",
			Help: "Total number of login attempts",
		},
		[]string{"status"}, // success/failure/blocked/error
	)

	authLoginDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "auth_login_duration_seconds",
			Help:    "Login request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"status"},
	)

	authRateLimitHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
	)
)

// Metrics creates a Prometheus metrics middleware
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(duration)
	}
}

// RecordGuardDecision records an access guard outcome
func RecordGuardDecision(outcome string) {
	guardDecisionsTotal.WithLabelValues(outcome).Inc()
}

// RecordTokenRefresh records a refresh exchange result
func RecordTokenRefresh(status string) {
	tokenRefreshTotal.WithLabelValues(status).Inc()
}

// RecordLoginAttempt records a login attempt metric
func RecordLoginAttempt(status string, duration time.Duration) {
	authLoginAttemptsTotal.WithLabelValues(status).Inc()
	authLoginDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordRateLimitHit records a rate limit hit
func RecordRateLimitHit() {
	authRateLimitHitsTotal.Inc()
}
