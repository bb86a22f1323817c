package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dutyplanner_runs_total",
		Help: "Total number of scheduled runs, by kind and outcome.",
	}, []string{"kind", "outcome"})

	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dutyplanner_run_duration_seconds",
		Help:    "Histogram of scheduled run durations.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	itemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dutyplanner_items_total",
		Help: "Events touched by scheduled runs, by run kind and result.",
	}, []string{"kind", "result"})

	counterDrift = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dutyplanner_counter_drift_total",
		Help: "Counter decrements that would have gone negative and were clamped at zero.",
	}, []string{"counter"})

	dbLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dutyplanner_db_latency_seconds",
		Help:    "Histogram of database operation latencies.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
)

// ObserveRun records one finished run.
func ObserveRun(kind string, start time.Time, failures int) {
	outcome := "ok"
	if failures > 0 {
		outcome = "partial"
	}
	runsTotal.WithLabelValues(kind, outcome).Inc()
	runDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

// AddItems counts n items of a run with the given result (created, rolled, pruned, failed...).
func AddItems(kind, result string, n int) {
	if n <= 0 {
		return
	}
	itemsTotal.WithLabelValues(kind, result).Add(float64(n))
}

// CounterDrift records a clamped decrement on the named counter (task or info).
func CounterDrift(counter string) {
	counterDrift.WithLabelValues(counter).Inc()
}

// ObserveDBLatency records database latency for a given operation.
func ObserveDBLatency(operation string, start time.Time) {
	dbLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
