// Package metrics provides Prometheus metrics for the contact service
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "portfolio"

var (
	// HTTPRequestsTotal counts total HTTP requests by method, path, and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, path, and status code",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration measures HTTP request duration in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)

	// HTTPRequestsInFlight tracks current in-flight requests
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Current number of HTTP requests being processed",
		},
	)
)

var (
	// SubmissionsTotal counts contact submissions by outcome
	// (accepted, rate_limited, missing_fields, invalid, spam, failed)
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "contact",
			Name:      "submissions_total",
			Help:      "Total number of contact submissions by outcome",
		},
		[]string{"outcome"},
	)

	// SpamDetectionsTotal counts spam verdicts by the rule that fired
	SpamDetectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "contact",
			Name:      "spam_detections_total",
			Help:      "Total number of submissions flagged as spam by rule",
		},
		[]string{"rule"},
	)

	// RateLimitTrackedKeys is the number of IPs held by the in-process store
	RateLimitTrackedKeys = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "contact",
			Name:      "rate_limit_tracked_keys",
			Help:      "Number of client IPs tracked by the in-memory rate limiter",
		},
	)
)

var (
	// EmailSendsTotal counts email sends by kind (notification, auto_reply),
	// provider and result (sent, failed)
	EmailSendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "email",
			Name:      "sends_total",
			Help:      "Total number of email send attempts by kind, provider and result",
		},
		[]string{"kind", "provider", "result"},
	)

	// EmailSendDuration measures provider latency
	EmailSendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "email",
			Name:      "send_duration_seconds",
			Help:      "Email provider send duration in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20},
		},
		[]string{"kind", "provider"},
	)

	// AttachmentRetriesTotal counts notification resends without the file
	AttachmentRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "email",
			Name:      "attachment_retries_total",
			Help:      "Total number of notification resends without attachment by result",
		},
		[]string{"result"},
	)
)

// RecordSubmission increments the submission counter for outcome
func RecordSubmission(outcome string) {
	SubmissionsTotal.WithLabelValues(outcome).Inc()
}

// RecordSpam increments the spam counter for rule
func RecordSpam(rule string) {
	SpamDetectionsTotal.WithLabelValues(rule).Inc()
}

// RecordEmailSend records one provider call
func RecordEmailSend(kind, provider string, err error, duration time.Duration) {
	result := "sent"
	if err != nil {
		result = "failed"
	}
	EmailSendsTotal.WithLabelValues(kind, provider, result).Inc()
	EmailSendDuration.WithLabelValues(kind, provider).Observe(duration.Seconds())
}

// RecordAttachmentRetry records the outcome of a resend without attachment
func RecordAttachmentRetry(err error) {
	result := "sent"
	if err != nil {
		result = "failed"
	}
	AttachmentRetriesTotal.WithLabelValues(result).Inc()
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

// WriteHeader captures the status code
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware returns a chi middleware that records HTTP metrics
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		HTTPRequestsInFlight.Inc()
		defer HTTPRequestsInFlight.Dec()

		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)

		// The route pattern is only known after routing
		path := getRoutePattern(r)
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rw.statusCode)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// getRoutePattern returns the chi route pattern, or "unmatched" so unknown
// paths do not create unbounded label values
func getRoutePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return "unmatched"
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
