// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scans = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_scans_total",
		Help: "Attendance scan submissions by outcome.",
	}, []string{"outcome"})

	sweepAbsences = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attendance_sweep_absences_total",
		Help: "Absence records created by the reconciliation sweep.",
	})

	sweepSlotFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attendance_sweep_slot_failures_total",
		Help: "Slots the reconciliation sweep could not close out.",
	})

	sweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "attendance_sweep_duration_seconds",
		Help:    "Duration of reconciliation sweeps.",
		Buckets: prometheus.DefBuckets,
	})
)

// ObserveScan counts one scan with its outcome label (present, late, absent or an error kind).
func ObserveScan(outcome string) {
	scans.WithLabelValues(outcome).Inc()
}

// ObserveSweep records one finished sweep.
func ObserveSweep(created, failed int, seconds float64) {
	sweepAbsences.Add(float64(created))
	sweepSlotFailures.Add(float64(failed))
	sweepDuration.Observe(seconds)
}
