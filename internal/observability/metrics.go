package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	taskRunTotal    *prometheus.CounterVec
	taskRunDuration *prometheus.HistogramVec
	taskRounds      *prometheus.HistogramVec

	modelCallTotal    *prometheus.CounterVec
	modelCallDuration *prometheus.HistogramVec

	toolExecutionTotal    *prometheus.CounterVec
	toolExecutionDuration *prometheus.HistogramVec
	toolErrorsTotal       *prometheus.CounterVec

	historyAppendTotal    *prometheus.CounterVec
	historyAppendDuration prometheus.Histogram
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			taskRunTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "onion_task_run_total",
					Help: "Total task runs by agent and final status.",
				},
				[]string{"agent", "status"},
			),
			taskRunDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "onion_task_run_duration_seconds",
					Help:    "Task run duration in seconds by agent.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"agent"},
			),
			taskRounds: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "onion_task_rounds",
					Help:    "Model rounds used per task by agent.",
					Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
				},
				[]string{"agent"},
			),
			modelCallTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "onion_model_call_total",
					Help: "Total model gateway calls by provider and status.",
				},
				[]string{"provider", "status"},
			),
			modelCallDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "onion_model_call_duration_seconds",
					Help:    "Model gateway call duration in seconds by provider.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"provider"},
			),
			toolExecutionTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "onion_tool_execution_total",
					Help: "Total tool executions by tool and status.",
				},
				[]string{"tool", "status"},
			),
			toolExecutionDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "onion_tool_execution_duration_seconds",
					Help:    "Tool execution duration in seconds by tool.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"tool"},
			),
			toolErrorsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "onion_tool_errors_total",
					Help: "Total tool execution errors by tool.",
				},
				[]string{"tool"},
			),
			historyAppendTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "onion_history_append_total",
					Help: "Total history appends by backend and status.",
				},
				[]string{"backend", "status"},
			),
			historyAppendDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "onion_history_append_duration_seconds",
					Help:    "History append duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
		}

		prometheus.MustRegister(
			m.taskRunTotal,
			m.taskRunDuration,
			m.taskRounds,
			m.modelCallTotal,
			m.modelCallDuration,
			m.toolExecutionTotal,
			m.toolExecutionDuration,
			m.toolErrorsTotal,
			m.historyAppendTotal,
			m.historyAppendDuration,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordTaskRun records a finished task. status is the loop's terminal state.
func RecordTaskRun(agent, status string, duration time.Duration, rounds int) {
	m := getMetrics()
	m.taskRunTotal.WithLabelValues(agent, status).Inc()
	m.taskRunDuration.WithLabelValues(agent).Observe(duration.Seconds())
	m.taskRounds.WithLabelValues(agent).Observe(float64(rounds))
}

func RecordModelCall(provider string, duration time.Duration, success bool) {
	m := getMetrics()
	m.modelCallTotal.WithLabelValues(provider, statusLabel(success)).Inc()
	m.modelCallDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

func RecordToolExecution(tool string, duration time.Duration, success bool) {
	m := getMetrics()
	m.toolExecutionTotal.WithLabelValues(tool, statusLabel(success)).Inc()
	m.toolExecutionDuration.WithLabelValues(tool).Observe(duration.Seconds())
	if !success {
		m.toolErrorsTotal.WithLabelValues(tool).Inc()
	}
}

func RecordHistoryAppend(backend string, duration time.Duration, success bool) {
	m := getMetrics()
	m.historyAppendTotal.WithLabelValues(backend, statusLabel(success)).Inc()
	m.historyAppendDuration.Observe(duration.Seconds())
}
