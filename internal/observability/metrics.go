package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides a centralized interface for collecting orchestrator
// metrics, built on Prometheus. It tracks:
//   - Event log append latency and per-stream throughput
//   - Projection replay lag (events behind the log's tail)
//   - Tool execution counts/durations by tool name and result
//   - Interaction wait duration (how long a task sat in awaiting_user)
//   - Runtime manager active-runtime count
//
// Usage:
//
//	metrics := observability.NewMetrics(reg)
//	defer metrics.ToolExecutionDuration.WithLabelValues("readFile").Observe(time.Since(start).Seconds())
type Metrics struct {
	// EventAppendCounter counts events appended, by event type.
	EventAppendCounter *prometheus.CounterVec

	// EventAppendDuration measures Append latency in seconds, including
	// the on-disk lock wait.
	EventAppendDuration prometheus.Histogram

	// ProjectionLag is the gap between a projection's cursor and the
	// log's latest event ID, labeled by projection name.
	ProjectionLag *prometheus.GaugeVec

	// ToolExecutionCounter counts tool invocations.
	// Labels: tool_name, status (success|error|timeout)
	ToolExecutionCounter *prometheus.CounterVec

	// ToolExecutionDuration measures tool execution time in seconds.
	// Labels: tool_name
	ToolExecutionDuration *prometheus.HistogramVec

	// InteractionWaitDuration measures how long a task spent suspended
	// waiting for a user response, in seconds.
	InteractionWaitDuration prometheus.Histogram

	// ActiveRuntimes is a gauge of runtimes the Runtime Manager currently
	// has live.
	ActiveRuntimes prometheus.Gauge

	// RunIterations counts agent-runtime loop iterations, labeled by the
	// loop's status after the iteration (done|in_progress).
	RunIterations *prometheus.CounterVec
}

// NewMetrics registers and returns the metric set on reg. Pass
// prometheus.NewRegistry() in tests to avoid colliding with the default
// global registry across parallel test packages.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EventAppendCounter: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "seed_eventlog_appends_total",
			Help: "Events appended to the event log, by type.",
		}, []string{"event_type"}),
		EventAppendDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "seed_eventlog_append_duration_seconds",
			Help:    "Event log append latency including lock wait.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		}),
		ProjectionLag: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "seed_projection_lag_events",
			Help: "Events behind the log tail, by projection name.",
		}, []string{"projection"}),
		ToolExecutionCounter: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "seed_tool_executions_total",
			Help: "Tool invocations, by tool name and result.",
		}, []string{"tool_name", "status"}),
		ToolExecutionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "seed_tool_execution_duration_seconds",
			Help:    "Tool execution time in seconds, by tool name.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}, []string{"tool_name"}),
		InteractionWaitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "seed_interaction_wait_duration_seconds",
			Help:    "Time a task spent awaiting a user interaction response.",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
		}),
		ActiveRuntimes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "seed_runtime_manager_active_runtimes",
			Help: "Runtimes currently live in the runtime manager.",
		}),
		RunIterations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "seed_runtime_iterations_total",
			Help: "Agent runtime loop iterations, by status after the iteration.",
		}, []string{"status"}),
	}
}
