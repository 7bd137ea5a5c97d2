package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Histogram bucket definitions.
var (
	httpDurationBuckets     = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	providerDurationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}
)

// Metrics holds all Prometheus metric instruments for the service.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Workflow execution metrics
	ExecutionStartsTotal      *prometheus.CounterVec
	ExecutionCompletionsTotal *prometheus.CounterVec
	ExecutionStepDuration     *prometheus.HistogramVec
	ExecutionStepFailures     *prometheus.CounterVec
	ExecutionsRunning         prometheus.Gauge

	// Provider metrics
	ProviderRequestsTotal       *prometheus.CounterVec
	ProviderRequestDuration     *prometheus.HistogramVec
	ProviderCircuitBreakerState prometheus.Gauge
	ProviderRetriesTotal        prometheus.Counter

	// Feature metrics
	GenerationsTotal *prometheus.CounterVec
}

// InitMetrics creates and registers all Prometheus metric instruments.
func InitMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loom_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "loom_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: httpDurationBuckets,
		}, []string{"method", "path_pattern"}),

		ExecutionStartsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loom_execution_starts_total",
			Help: "Total number of workflow executions started.",
		}, []string{"workflow_id"}),
		ExecutionCompletionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loom_execution_completions_total",
			Help: "Total number of workflow executions reaching a terminal status.",
		}, []string{"workflow_id", "status"}),
		ExecutionStepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "loom_execution_step_duration_seconds",
			Help:    "Workflow step duration in seconds.",
			Buckets: providerDurationBuckets,
		}, []string{"tool_id"}),
		ExecutionStepFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loom_execution_step_failures_total",
			Help: "Total number of failed workflow steps.",
		}, []string{"tool_id", "kind"}),
		ExecutionsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "loom_executions_running",
			Help: "Number of workflow executions currently running.",
		}),

		ProviderRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loom_provider_requests_total",
			Help: "Total number of model gateway requests.",
		}, []string{"operation", "status"}),
		ProviderRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "loom_provider_request_duration_seconds",
			Help:    "Model gateway request duration in seconds.",
			Buckets: providerDurationBuckets,
		}, []string{"operation"}),
		ProviderCircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "loom_provider_circuit_breaker_state",
			Help: "Provider circuit breaker state (0=closed, 1=half-open, 2=open).",
		}),
		ProviderRetriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "loom_provider_retries_total",
			Help: "Total number of model gateway request retries.",
		}),

		GenerationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loom_generations_total",
			Help: "Total number of feature generation requests.",
		}, []string{"feature", "status"}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ExecutionStartsTotal,
		m.ExecutionCompletionsTotal,
		m.ExecutionStepDuration,
		m.ExecutionStepFailures,
		m.ExecutionsRunning,
		m.ProviderRequestsTotal,
		m.ProviderRequestDuration,
		m.ProviderCircuitBreakerState,
		m.ProviderRetriesTotal,
		m.GenerationsTotal,
	)

	return m
}

// --- Recording helpers ---

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(method, pathPattern string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, pathPattern, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, pathPattern).Observe(duration.Seconds())
}

// RecordExecutionStart records a workflow execution start.
func (m *Metrics) RecordExecutionStart(workflowID string) {
	m.ExecutionStartsTotal.WithLabelValues(workflowID).Inc()
	m.ExecutionsRunning.Inc()
}

// RecordExecutionCompletion records a workflow execution reaching a terminal
// status.
func (m *Metrics) RecordExecutionCompletion(workflowID, status string) {
	m.ExecutionCompletionsTotal.WithLabelValues(workflowID, status).Inc()
	m.ExecutionsRunning.Dec()
}

// RecordStepDuration records the duration of a workflow step.
func (m *Metrics) RecordStepDuration(toolID string, duration time.Duration) {
	m.ExecutionStepDuration.WithLabelValues(toolID).Observe(duration.Seconds())
}

// RecordStepFailure records a failed workflow step.
func (m *Metrics) RecordStepFailure(toolID, kind string) {
	m.ExecutionStepFailures.WithLabelValues(toolID, kind).Inc()
}

// RecordProviderRequest records a model gateway request.
func (m *Metrics) RecordProviderRequest(operation string, status int, duration time.Duration) {
	m.ProviderRequestsTotal.WithLabelValues(operation, strconv.Itoa(status)).Inc()
	m.ProviderRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// SetProviderCircuitBreakerState sets the provider circuit breaker state.
// State: 0=closed, 1=half-open, 2=open.
func (m *Metrics) SetProviderCircuitBreakerState(state float64) {
	m.ProviderCircuitBreakerState.Set(state)
}

// RecordProviderRetry records a model gateway request retry.
func (m *Metrics) RecordProviderRetry() {
	m.ProviderRetriesTotal.Inc()
}

// RecordGeneration records a feature generation request outcome.
func (m *Metrics) RecordGeneration(feature, status string) {
	m.GenerationsTotal.WithLabelValues(feature, status).Inc()
}

// --- HTTP Middleware ---

// MetricsMiddleware returns HTTP middleware that records request metrics
// using chi's route pattern (not the actual URL path) to avoid label
// cardinality explosion.
func (m *Metrics) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &metricsResponseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		m.RecordHTTPRequest(r.Method, routePattern(r), sw.status, time.Since(start))
	})
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// routePattern extracts chi's route pattern from the request context.
// Falls back to the raw URL path if no pattern is found.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return r.URL.Path
	}
	pattern := strings.Join(rctx.RoutePatterns, "")
	// chi route patterns have trailing /*, remove it.
	pattern = strings.TrimSuffix(pattern, "/*")
	if pattern == "" {
		return r.URL.Path
	}
	return pattern
}

// metricsResponseWriter wraps http.ResponseWriter to capture the status code.
type metricsResponseWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (w *metricsResponseWriter) WriteHeader(code int) {
	if !w.written {
		w.status = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *metricsResponseWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.written = true
	}
	return w.ResponseWriter.Write(b)
}
