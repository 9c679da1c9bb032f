package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tenant_server_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tenant_server_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	signupsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auth_signups_total",
		Help: "Count of successful signups",
	})

	loginOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_login_outcomes_total",
		Help: "Count of login attempts by outcome",
	}, []string{"outcome"})

	passwordResets = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auth_password_resets_total",
		Help: "Count of provisional secrets re-issued by forgot-password",
	})

	versionConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "store_version_conflicts_total",
		Help: "Count of conditional writes rejected by a stale version",
	}, []string{"entity"})

	tenantSelections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tenancy_selections_total",
		Help: "Count of tenant selections by mode",
	}, []string{"mode"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

func IncSignup() {
	signupsTotal.Inc()
}

// ObserveLogin increments the login counter for the given outcome.
func ObserveLogin(outcome string) {
	loginOutcomes.WithLabelValues(outcome).Inc()
}

func IncPasswordReset() {
	passwordResets.Inc()
}

// ObserveVersionConflict counts a rejected conditional write on entity.
func ObserveVersionConflict(entity string) {
	versionConflicts.WithLabelValues(entity).Inc()
}

// ObserveSelection counts a tenant selection; mode is "explicit", "auto" or "created".
func ObserveSelection(mode string) {
	tenantSelections.WithLabelValues(mode).Inc()
}
