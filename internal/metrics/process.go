// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProcessRuns counts external probe process executions by tool and outcome
	// (ok, exit_nonzero, timeout, missing, canceled, start_failed).
	ProcessRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rtspscout_process_runs_total",
		Help: "External probe process executions by tool and outcome",
	}, []string{"tool", "outcome"})

	// ProcessDuration tracks wall time of external probe processes.
	ProcessDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rtspscout_process_duration_seconds",
		Help:    "Wall time of external probe processes",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 13, 20},
	}, []string{"tool"})

	procTerminate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rtspscout_proc_terminate_total",
		Help: "Signals sent to probe process groups by signal and result",
	}, []string{"signal", "result"})

	procWait = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rtspscout_proc_wait_total",
		Help: "Reaped probe processes by exit classification",
	}, []string{"result"})
)

// ObserveProcessRun records one finished external process.
func ObserveProcessRun(tool, outcome string, elapsed time.Duration) {
	ProcessRuns.WithLabelValues(tool, outcome).Inc()
	ProcessDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
}

// IncProcTerminate counts a signal delivery attempt to a process group.
func IncProcTerminate(signal, result string) {
	procTerminate.WithLabelValues(signal, result).Inc()
}

// IncProcWait counts a reaped process.
func IncProcWait(result string) {
	procWait.WithLabelValues(result).Inc()
}
