// Package metrics exposes Prometheus metrics for agent runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fixter"

var (
	// runsTotal counts finished runs.
	// Labels: loop, status (ok, error)
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "agent",
		Name:      "runs_total",
		Help:      "Total agent runs by loop and status",
	}, []string{"loop", "status"})

	// runDuration measures wall time of a run including session I/O.
	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "agent",
		Name:      "run_duration_seconds",
		Help:      "Agent run duration in seconds",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
	}, []string{"loop"})

	// runSteps tracks how many actions a run executed.
	runSteps = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "agent",
		Name:      "run_steps",
		Help:      "Executed actions per run",
		Buckets:   []float64{0, 1, 2, 3, 4, 5, 6, 8, 10},
	}, []string{"loop"})

	// reflectionsTotal counts critiques.
	// Labels: kind (loop_detection, efficiency)
	reflectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "agent",
		Name:      "reflections_total",
		Help:      "Total reflections by kind",
	}, []string{"kind"})

	// selectionsTotal counts loop selections.
	// Labels: loop, method (llm, heuristic)
	selectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "router",
		Name:      "selections_total",
		Help:      "Total loop selections by method",
	}, []string{"loop", "method"})

	// sessionsPruned counts sessions removed by age.
	sessionsPruned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "pruned_total",
		Help:      "Total sessions removed by the age cleanup",
	})
)

// RecordRun records one finished run.
func RecordRun(loop string, err error, steps int, d time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	runsTotal.WithLabelValues(loop, status).Inc()
	runDuration.WithLabelValues(loop).Observe(d.Seconds())
	runSteps.WithLabelValues(loop).Observe(float64(steps))
}

// RecordReflection records one critique.
func RecordReflection(kind string) {
	reflectionsTotal.WithLabelValues(kind).Inc()
}

// RecordSelection records a loop selection.
func RecordSelection(loop, method string) {
	selectionsTotal.WithLabelValues(loop, method).Inc()
}

// RecordPruned records sessions removed by the age cleanup.
func RecordPruned(n int) {
	sessionsPruned.Add(float64(n))
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
