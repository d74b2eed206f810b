package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "interview",
		Subsystem: "pipeline",
		Name:      "stage_duration_seconds",
		Help:      "Duration of processing stage executions",
		Buckets:   []float64{0.05, 0.25, 1, 5, 15, 30, 60, 120, 300},
	}, []string{"stage", "outcome"})

	attemptTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "interview",
		Name:      "attempt_transitions_total",
		Help:      "Attempt status transitions",
	}, []string{"status"})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "interview",
		Subsystem: "pipeline",
		Name:      "queue_depth",
		Help:      "Attempts waiting for a pipeline worker",
	})

	sweepActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "interview",
		Name:      "sweep_actions_total",
		Help:      "Attempts touched by the background sweep",
	}, []string{"action"})
)

// Stage outcomes.
const (
	OutcomeAdvanced = "advanced"
	OutcomeRetry    = "retry"
	OutcomeFailed   = "failed"
)

func ObserveStage(stage, outcome string, d time.Duration) {
	stageDuration.WithLabelValues(stage, outcome).Observe(d.Seconds())
}

func AttemptTransition(status string) {
	attemptTransitions.WithLabelValues(status).Inc()
}

func SetQueueDepth(n int) {
	queueDepth.Set(float64(n))
}

func SweepAction(action string, n int) {
	if n > 0 {
		sweepActions.WithLabelValues(action).Add(float64(n))
	}
}
