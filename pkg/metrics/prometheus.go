// Package metrics provides Prometheus metrics for the recovery estimator.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Buckets for the model output histograms.
var (
	recoveryPercentBuckets = []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100}                //nolint:gochecknoglobals // fixed bucket layout
	hoursUntilReadyBuckets = []float64{0, 1, 3, 6, 12, 24, 36, 48, 72, 96, 168}                    //nolint:gochecknoglobals // fixed bucket layout
	gcPauseBuckets         = []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}          //nolint:gochecknoglobals // fixed bucket layout
	latencyBuckets         = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25} //nolint:gochecknoglobals // fixed bucket layout
)

// Manager manages all Prometheus metrics for the recovery service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Model metrics
	evaluations        *prometheus.CounterVec
	evaluationLatency  prometheus.Histogram
	recoveryPercent    prometheus.Histogram
	hoursUntilReady    prometheus.Histogram
	rejectedParams     *prometheus.CounterVec
	curvePointsSampled prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	rateLimited         *prometheus.CounterVec
	liveSessions        prometheus.Gauge
	liveMessages        prometheus.Counter

	// Error metrics
	errorRateByType     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "recovery",
		subsystem:        "estimator",
		histogramBuckets: latencyBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// RefreshInterval returns how often system gauges should be sampled.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

// Enabled reports whether recording is switched on.
func (m *Manager) Enabled() bool { return m.enabled }

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)

	m.evaluations = auto.NewCounterVec(
		m.counterOpts("evaluations_total", "Total number of model evaluations by source"),
		[]string{"source"},
	)
	m.evaluationLatency = auto.NewHistogram(
		m.histogramOpts("evaluation_latency_milliseconds", "Model evaluation latency in milliseconds, including curve sampling", m.histogramBuckets),
	)
	m.recoveryPercent = auto.NewHistogram(
		m.histogramOpts("recovery_percent", "Distribution of estimated recovery percent", recoveryPercentBuckets),
	)
	m.hoursUntilReady = auto.NewHistogram(
		m.histogramOpts("hours_until_ready", "Distribution of estimated hours until ready", hoursUntilReadyBuckets),
	)
	m.rejectedParams = auto.NewCounterVec(
		m.counterOpts("rejected_params_total", "Requests rejected because of invalid model params or inputs"),
		[]string{"reason"},
	)
	m.curvePointsSampled = auto.NewCounter(
		m.counterOpts("curve_points_sampled_total", "Total number of curve points sampled"),
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", prometheus.DefBuckets),
		[]string{"endpoint", "method", "status_code"},
	)
	m.rateLimited = auto.NewCounterVec(
		m.counterOpts("rate_limited_total", "Requests rejected by the rate limiter"),
		[]string{"endpoint"},
	)
	m.liveSessions = auto.NewGauge(
		m.gaugeOpts("live_sessions", "Currently open live websocket sessions"),
	)
	m.liveMessages = auto.NewCounter(
		m.counterOpts("live_messages_total", "Total number of live session messages evaluated"),
	)

	m.errorRateByType = auto.NewCounterVec(
		m.counterOpts("errors_by_type_total", "Total number of errors by type"),
		[]string{"error_type", "severity"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Total number of errors by endpoint"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(
		m.gaugeOpts("system_memory_usage_bytes", "System memory usage in bytes"),
	)
	m.systemGoroutineCount = auto.NewGauge(
		m.gaugeOpts("system_goroutine_count", "Number of goroutines"),
	)
	m.systemGCPauseTime = auto.NewHistogram(
		m.histogramOpts("system_gc_pause_time_milliseconds", "GC pause time in milliseconds", gcPauseBuckets),
	)
}

// RecordEvaluation counts one evaluation from source (http, live, cli) and
// observes its latency and outputs.
func (m *Manager) RecordEvaluation(source string, latencyMs, recoveryPercent, hoursUntilReady float64) {
	if !m.enabled {
		return
	}
	m.evaluations.WithLabelValues(source).Inc()
	m.evaluationLatency.Observe(latencyMs)
	m.recoveryPercent.Observe(recoveryPercent)
	m.hoursUntilReady.Observe(hoursUntilReady)
}

// RecordEvaluation records an evaluation on the global manager.
func RecordEvaluation(source string, latencyMs, recoveryPercent, hoursUntilReady float64) {
	globalManager.RecordEvaluation(source, latencyMs, recoveryPercent, hoursUntilReady)
}

// RecordRejectedParams increments the rejected params counter.
func RecordRejectedParams(reason string) {
	if !globalManager.enabled {
		return
	}
	globalManager.rejectedParams.WithLabelValues(reason).Inc()
}

// RecordCurvePoints adds n to the sampled points counter.
func RecordCurvePoints(n int) {
	if !globalManager.enabled || n <= 0 {
		return
	}
	globalManager.curvePointsSampled.Add(float64(n))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordRateLimited increments the rate limited counter for endpoint.
func RecordRateLimited(endpoint string) {
	globalManager.rateLimited.WithLabelValues(endpoint).Inc()
}

// UpdateLiveSessions adjusts the open live sessions gauge by delta.
func UpdateLiveSessions(delta int) {
	globalManager.liveSessions.Add(float64(delta))
}

// RecordLiveMessage increments the live messages counter.
func RecordLiveMessage() {
	globalManager.liveMessages.Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// RefreshInterval returns the global manager's system sampling interval.
func RefreshInterval() time.Duration {
	return globalManager.refreshInterval
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
