package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/criteo/social-connect/internal/models"
)

const metricsNamespace = "social_connect"

// Outcome label values
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// MetricsHandler owns the daemon's Prometheus registry and serves it.
// A private registry keeps handler tests independent of each other.
type MetricsHandler struct {
	registry *prometheus.Registry

	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	connects         *prometheus.CounterVec
	credentialWrites *prometheus.CounterVec
	callbacks        *prometheus.CounterVec
	removals         *prometheus.CounterVec
	authFailures     prometheus.Counter
	rateLimited      prometheus.Counter
	validationErrors prometheus.Counter
}

// NewMetricsHandler creates a metrics handler with a fresh registry
func NewMetricsHandler() *MetricsHandler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &MetricsHandler{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		connects: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "oauth_flows_started_total",
			Help:      "Authorization flows started, by platform and launch outcome.",
		}, []string{"platform", "outcome"}),
		credentialWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "credential_writes_total",
			Help:      "Credential writes, by platform and outcome.",
		}, []string{"platform", "outcome"}),
		callbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "oauth_callbacks_total",
			Help:      "OAuth callbacks handled, by platform and outcome.",
		}, []string{"platform", "outcome"}),
		removals: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "credential_removals_total",
			Help:      "Credential removals requested, by platform.",
		}, []string{"platform"}),
		authFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "auth_failures_total",
			Help:      "Requests rejected for missing or invalid credentials.",
		}),
		rateLimited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-client rate limit.",
		}),
		validationErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "validation_errors_total",
			Help:      "Requests rejected as invalid.",
		}),
	}
}

// GetMetrics handles GET /api/v1/metrics
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
}

// Registry exposes the registry for extra collectors
func (h *MetricsHandler) Registry() *prometheus.Registry {
	return h.registry
}

// RegisterPendingFlows exports the number of flows waiting for a callback
func (h *MetricsHandler) RegisterPendingFlows(pending func() int) {
	h.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "oauth_pending_flows",
		Help:      "Authorization flows waiting for a callback.",
	}, func() float64 { return float64(pending()) }))
}

// ObserveRequest implements middleware.RequestObserver
func (h *MetricsHandler) ObserveRequest(method, route string, status int, duration time.Duration) {
	h.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	h.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func outcome(ok bool) string {
	if ok {
		return OutcomeSuccess
	}
	return OutcomeFailure
}

// RecordConnect counts a started authorization flow
func (h *MetricsHandler) RecordConnect(p models.Platform, launched bool) {
	h.connects.WithLabelValues(string(p), outcome(launched)).Inc()
}

// RecordCredentialWrite counts a credential write
func (h *MetricsHandler) RecordCredentialWrite(p models.Platform, ok bool) {
	h.credentialWrites.WithLabelValues(string(p), outcome(ok)).Inc()
}

// RecordCallback counts a handled OAuth callback
func (h *MetricsHandler) RecordCallback(p models.Platform, ok bool) {
	h.callbacks.WithLabelValues(string(p), outcome(ok)).Inc()
}

// RecordRemoval counts a removal request
func (h *MetricsHandler) RecordRemoval(p models.Platform) {
	h.removals.WithLabelValues(string(p)).Inc()
}

func (h *MetricsHandler) IncrementAuthFailures() {
	h.authFailures.Inc()
}

func (h *MetricsHandler) IncrementRateLimitExceeded() {
	h.rateLimited.Inc()
}

func (h *MetricsHandler) IncrementValidationErrors() {
	h.validationErrors.Inc()
}
