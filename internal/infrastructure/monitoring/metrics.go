package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Environment metrics
	EnvironmentsLive     prometheus.Gauge
	EnvironmentsCreated  prometheus.Counter
	EnvironmentsDisposed prometheus.Counter
	StackDepth           prometheus.Gauge

	// Evaluation metrics
	Evaluations        *prometheus.CounterVec
	EvaluationDuration *prometheus.HistogramVec
	EvaluationErrors   *prometheus.CounterVec

	// Runner metrics
	ContextsActive    prometheus.Gauge
	ScriptsStored     prometheus.Gauge
	OperationDuration *prometheus.HistogramVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	TotalRequests    int64   `json:"total_requests"`
	TotalErrors      int64   `json:"total_errors"`
	Evaluations      int64   `json:"evaluations"`
	FailedRuns       int64   `json:"failed_evaluations"`
	LiveEnvironments int64   `json:"live_environments"`
	ActiveContexts   int64   `json:"active_contexts"`
	StoredScripts    int64   `json:"stored_scripts"`
	TotalDuration    float64 `json:"total_request_seconds"`
	UptimeSeconds    float64 `json:"uptime_seconds"`
}

// NewMetrics registers the collectors with reg. A nil reg uses the default
// Prometheus registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	m := &Metrics{
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "evalmachine_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "evalmachine_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "evalmachine_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "evalmachine_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),

		// Environment metrics
		EnvironmentsLive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "evalmachine_environments_live",
				Help: "Environments created and not yet disposed",
			},
		),
		EnvironmentsCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "evalmachine_environments_created_total",
				Help: "Total number of environments created",
			},
		),
		EnvironmentsDisposed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "evalmachine_environments_disposed_total",
				Help: "Total number of environments disposed",
			},
		),
		StackDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "evalmachine_stack_depth",
				Help: "Number of currently entered environments",
			},
		),

		// Evaluation metrics
		Evaluations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "evalmachine_runs_total",
				Help: "Total number of evaluations",
			},
			[]string{"target", "status"},
		),
		EvaluationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "evalmachine_run_duration_seconds",
				Help:    "Evaluation duration in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
			},
			[]string{"target"},
		),
		EvaluationErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "evalmachine_errors_total",
				Help: "Total number of failed evaluations by error kind",
			},
			[]string{"kind"},
		),

		// Runner metrics
		ContextsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "evalmachine_contexts_active",
				Help: "Number of contexts held by the runner",
			},
		),
		ScriptsStored: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "evalmachine_scripts_stored",
				Help: "Number of compiled scripts held by the runner",
			},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "evalmachine_runner_operation_duration_seconds",
				Help:    "Runner operation duration in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
			},
			[]string{"operation", "status"},
		),

		// WebSocket metrics
		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "evalmachine_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "evalmachine_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "evalmachine_uptime_seconds",
			Help: "Service uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.TotalDuration += duration.Seconds()
	if status[0] == '4' || status[0] == '5' {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordEvaluation records one finished evaluation. status is "ok" or the
// error kind.
func (m *Metrics) RecordEvaluation(target, status string, duration time.Duration) {
	m.Evaluations.WithLabelValues(target, status).Inc()
	m.EvaluationDuration.WithLabelValues(target).Observe(duration.Seconds())

	failed := status != "ok"
	if failed {
		m.EvaluationErrors.WithLabelValues(status).Inc()
	}

	m.mu.Lock()
	m.snapshot.Evaluations++
	if failed {
		m.snapshot.FailedRuns++
	}
	m.mu.Unlock()
}

// RecordOperation records a runner operation
func (m *Metrics) RecordOperation(operation, status string, duration time.Duration) {
	m.OperationDuration.WithLabelValues(operation, status).Observe(duration.Seconds())
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// SetContextsActive sets the number of contexts held by the runner
func (m *Metrics) SetContextsActive(count int) {
	m.ContextsActive.Set(float64(count))
	m.mu.Lock()
	m.snapshot.ActiveContexts = int64(count)
	m.mu.Unlock()
}

// SetScriptsStored sets the number of scripts held by the runner
func (m *Metrics) SetScriptsStored(count int) {
	m.ScriptsStored.Set(float64(count))
	m.mu.Lock()
	m.snapshot.StoredScripts = int64(count)
	m.mu.Unlock()
}

func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
}

func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
}

// Snapshot returns the current values tracked for the JSON API.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.snapshot
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}
