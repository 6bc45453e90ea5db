package simmetrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// AdmissionsTotal counts every admit_task outcome by strategy and
	// reason (DEADLINE_MISSED, CONGESTION, SUCCESS, CLOUD, NO_INSTANCES).
	AdmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edgesim_admissions_total",
			Help: "Total number of task admission attempts by strategy and outcome reason",
		},
		[]string{"strategy", "reason"},
	)

	// ReplacementPassDuration times a single replace_services call.
	ReplacementPassDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "edgesim_replacement_pass_duration_seconds",
			Help:    "Wall-clock duration of a single VM replacement pass",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)

	// VMReassignmentsTotal counts every service-to-service VM reassignment
	// a strategy's replacement pass performs.
	VMReassignmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edgesim_vm_reassignments_total",
			Help: "Total number of VM reassignments performed by a replacement pass",
		},
		[]string{"strategy"},
	)

	// ComputeSpotIdleSeconds reports the cumulative idle time accrued by a
	// ComputeSpot's TaskScheduler, labeled by node. No package in this
	// module sets it.
	ComputeSpotIdleSeconds = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "edgesim_compute_spot_idle_seconds",
			Help: "Cumulative idle time accrued by a compute spot's cores",
		},
		[]string{"node"},
	)

	// SessionsActive tracks the number of in-flight request/response
	// sessions (started on a receiver REQUEST, ended on its RESPONSE).
	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "edgesim_sessions_active",
			Help: "Number of request/response sessions currently in flight",
		},
	)
)

func init() {
	prometheus.MustRegister(
		AdmissionsTotal,
		ReplacementPassDuration,
		VMReassignmentsTotal,
		ComputeSpotIdleSeconds,
		SessionsActive,
	)
}

// Handler returns the Prometheus HTTP handler for a metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures the duration of a replacement pass or other timed
// operation and reports it to a histogram.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDurationVec records the elapsed time to a labeled histogram.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
