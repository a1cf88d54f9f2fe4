package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// EvaluationsTotal counts tuple evaluations by result.
	EvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "signalbot",
			Name:      "evaluations_total",
			Help:      "Tuple evaluations by result (signal, no_signal, error, skipped)",
		},
		[]string{"result"},
	)

	// SignalsTotal counts derived signals by direction and outcome.
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "signalbot",
			Name:      "signals_total",
			Help:      "Derived signals by direction and dispatch outcome",
		},
		[]string{"direction", "outcome"},
	)

	// ErrorsTotal counts engine errors by category.
	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "signalbot",
			Name:      "errors_total",
			Help:      "Engine errors by category",
		},
		[]string{"category"},
	)

	// CycleDuration observes full scheduler cycle wall time.
	CycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "signalbot",
			Name:      "cycle_duration_seconds",
			Help:      "Scheduler cycle duration",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		},
	)

	// SchedulerHealthy is 1 while no tuple has exhausted its retry budget.
	SchedulerHealthy = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "signalbot",
			Name:      "scheduler_healthy",
			Help:      "1 when healthy, 0 when any tuple exhausted its retry budget",
		},
	)

	// PendingSignals tracks the pending queue depth.
	PendingSignals = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "signalbot",
			Name:      "pending_signals",
			Help:      "Signals awaiting operator confirmation",
		},
	)
)

func init() {
	prometheus.MustRegister(
		EvaluationsTotal,
		SignalsTotal,
		ErrorsTotal,
		CycleDuration,
		SchedulerHealthy,
		PendingSignals,
	)
}

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
