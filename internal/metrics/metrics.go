// Package metrics holds the prometheus collectors of the service.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "parktime_http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parktime_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "parktime_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	auditRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parktime_audit_records_total",
			Help: "Audit ledger records written.",
		},
		[]string{"table", "action"},
	)

	auditSuppressedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parktime_audit_suppressed_updates_total",
			Help: "Updates skipped by the ledger because nothing changed.",
		},
		[]string{"table"},
	)

	authAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parktime_auth_attempts_total",
			Help: "Login attempts by outcome.",
		},
		[]string{"result"},
	)

	sessionsEndedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parktime_sessions_ended_total",
			Help: "Sessions made inactive, by reason.",
		},
		[]string{"reason"},
	)
)

var registerOnce sync.Once

// Init registers the collectors in the default registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight, httpRequestsTotal, httpRequestDuration,
			auditRecordsTotal, auditSuppressedTotal,
			authAttemptsTotal, sessionsEndedTotal,
		)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RequestStarted marks a request in flight and returns the func that records its outcome.
func RequestStarted() func(method, route string, status string) {
	httpInFlight.Inc()
	start := time.Now()
	return func(method, route, status string) {
		httpRequestDuration.WithLabelValues(method, route, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(method, route, status).Inc()
		httpInFlight.Dec()
	}
}

// AuditRecorded counts one ledger write.
func AuditRecorded(table, action string) {
	auditRecordsTotal.WithLabelValues(table, action).Inc()
}

// AuditSuppressed counts one no-op update.
func AuditSuppressed(table string) {
	auditSuppressedTotal.WithLabelValues(table).Inc()
}

// AuthAttempt counts one login by result ("success" or a failure reason).
func AuthAttempt(result string) {
	authAttemptsTotal.WithLabelValues(result).Inc()
}

// SessionsEnded counts sessions deactivated for reason ("logout", "expired", "revoked").
func SessionsEnded(reason string, n int) {
	if n > 0 {
		sessionsEndedTotal.WithLabelValues(reason).Add(float64(n))
	}
}
