package workflow

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records pipeline outcomes on a private registry so several
// orchestrators in one process never collide.
type Metrics struct {
	registry      *prometheus.Registry
	runs          *prometheus.CounterVec
	stageFailures *prometheus.CounterVec
	evalDuration  *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lendguard",
			Name:      "workflow_runs_total",
			Help:      "Completed workflow runs by final decision.",
		}, []string{"final_decision"}),
		stageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lendguard",
			Name:      "stage_failures_total",
			Help:      "Stage failures by stage, including fail-closed checks.",
		}, []string{"stage"}),
		evalDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lendguard",
			Name:      "evaluator_call_duration_seconds",
			Help:      "Evaluator call latency by call kind and outcome.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"kind", "outcome"}),
	}
	m.registry.MustRegister(m.runs, m.stageFailures, m.evalDuration)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveRun(finalDecision string) {
	if m == nil {
		return
	}
	m.runs.With(prometheus.Labels{"final_decision": finalDecision}).Inc()
}

func (m *Metrics) StageFailed(stage string) {
	if m == nil {
		return
	}
	m.stageFailures.With(prometheus.Labels{"stage": stage}).Inc()
}

// ObserveEvaluator matches evaluator.ObserveFunc.
func (m *Metrics) ObserveEvaluator(kind string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.evalDuration.With(prometheus.Labels{"kind": kind, "outcome": outcome}).Observe(elapsed.Seconds())
}

// WriteTextfile dumps the registry in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return errors.Wrap(prometheus.WriteToTextfile(path, m.registry), "write metrics textfile")
}
