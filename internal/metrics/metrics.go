package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for taleyport
type Metrics struct {
	// Poller metrics
	PollRequests  *prometheus.CounterVec
	PollErrors    *prometheus.CounterVec
	PollDuration  prometheus.Histogram
	TasksTerminal *prometheus.CounterVec
	ActivePolls   prometheus.Gauge

	// Backend client metrics
	BackendRequests *prometheus.CounterVec
	BackendLatency  *prometheus.HistogramVec

	// Command metrics
	CommandExecutions *prometheus.CounterVec

	// Error metrics (by error code from structured errors)
	Errors *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		PollRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taleyport_poll_requests_total",
				Help: "Total number of task status polls",
			},
			[]string{"success"},
		),
		PollErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taleyport_poll_errors_total",
				Help: "Total number of failed task status polls",
			},
			[]string{"error_code"},
		),
		PollDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "taleyport_poll_duration_seconds",
				Help:    "Task status poll latency in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
		),
		TasksTerminal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taleyport_tasks_terminal_total",
				Help: "Total number of scene tasks that reached a terminal status",
			},
			[]string{"status"},
		),
		ActivePolls: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "taleyport_poll_sessions_active",
				Help: "Number of poll sessions currently running",
			},
		),
		BackendRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taleyport_backend_requests_total",
				Help: "Total number of backend API requests",
			},
			[]string{"operation", "status_code"},
		),
		BackendLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taleyport_backend_latency_seconds",
				Help:    "Backend API request latency in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
			},
			[]string{"operation"},
		),
		CommandExecutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taleyport_command_executions_total",
				Help: "Total number of command executions",
			},
			[]string{"command", "success"},
		),
		Errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taleyport_errors_total",
				Help: "Total number of errors by error code",
			},
			[]string{"error_code"},
		),
	}
}

// ObservePoll records one completed poll attempt.
func (m *Metrics) ObservePoll(d time.Duration, errorCode string) {
	if m == nil {
		return
	}
	m.PollDuration.Observe(d.Seconds())
	m.PollRequests.WithLabelValues(strconv.FormatBool(errorCode == "")).Inc()
	if errorCode != "" {
		m.PollErrors.WithLabelValues(errorCode).Inc()
	}
}

// ObserveTerminal counts a task reaching a terminal status.
func (m *Metrics) ObserveTerminal(status string) {
	if m == nil {
		return
	}
	m.TasksTerminal.WithLabelValues(status).Inc()
}

// ObserveBackend records one backend request. statusCode is 0 for transport
// failures.
func (m *Metrics) ObserveBackend(operation string, statusCode int, d time.Duration) {
	if m == nil {
		return
	}
	m.BackendRequests.WithLabelValues(operation, strconv.Itoa(statusCode)).Inc()
	m.BackendLatency.WithLabelValues(operation).Observe(d.Seconds())
}

// ObserveCommand records a command execution.
func (m *Metrics) ObserveCommand(command string, err error) {
	if m == nil {
		return
	}
	m.CommandExecutions.WithLabelValues(command, strconv.FormatBool(err == nil)).Inc()
}

// ObserveError counts an error by code.
func (m *Metrics) ObserveError(code string) {
	if m == nil || code == "" {
		return
	}
	m.Errors.WithLabelValues(code).Inc()
}
