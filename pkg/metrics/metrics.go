// Package metrics holds the Prometheus collectors shared by the negotiation
// pipeline. A nil *Recorder is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bargain"

type Recorder struct {
	activeSessions prometheus.Gauge
	outcomes       *prometheus.CounterVec
	llmFallbacks   *prometheus.CounterVec
	tasks          *prometheus.CounterVec
	taskDuration   prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Negotiation sessions currently running.",
		}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "negotiation_outcomes_total",
			Help:      "Negotiation outcomes by result.",
		}, []string{"result"}),
		llmFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_mock_fallbacks_total",
			Help:      "LLM calls answered by the mock generator, by reason.",
		}, []string{"reason"}),
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_total",
			Help:      "Comparison tasks by terminal status.",
		}, []string{"status"}),
		taskDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Wall time of comparison tasks.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
	}

	reg.MustRegister(r.activeSessions, r.outcomes, r.llmFallbacks, r.tasks, r.taskDuration)
	return r
}

func (r *Recorder) SessionStarted() {
	if r == nil {
		return
	}
	r.activeSessions.Inc()
}

func (r *Recorder) SessionFinished() {
	if r == nil {
		return
	}
	r.activeSessions.Dec()
}

// Outcome counts one negotiation result ("settled", "failed", "timeout").
func (r *Recorder) Outcome(result string) {
	if r == nil {
		return
	}
	r.outcomes.WithLabelValues(result).Inc()
}

func (r *Recorder) LLMFallback(reason string) {
	if r == nil {
		return
	}
	r.llmFallbacks.WithLabelValues(reason).Inc()
}

func (r *Recorder) TaskFinished(status string, took time.Duration) {
	if r == nil {
		return
	}
	r.tasks.WithLabelValues(status).Inc()
	r.taskDuration.Observe(took.Seconds())
}
