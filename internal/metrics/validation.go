// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StreamProbes counts single-URL stream probes by result (valid, invalid).
	StreamProbes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rtspscout_stream_probes_total",
		Help: "Single-URL stream probes by result",
	}, []string{"result"})

	// ValidationSweeps counts candidate sweeps performed by the validator.
	ValidationSweeps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rtspscout_validation_sweeps_total",
		Help: "Candidate URL sweeps performed during validation",
	})

	// Validations counts validation calls by result (valid, invalid).
	Validations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rtspscout_validations_total",
		Help: "Stream validations by result",
	}, []string{"result"})

	// HealthVerdicts counts device health checks by verdict.
	HealthVerdicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rtspscout_health_verdicts_total",
		Help: "Device health checks by verdict",
	}, []string{"status"})
)

func resultLabel(valid bool) string {
	if valid {
		return "valid"
	}
	return "invalid"
}

// RecordStreamProbe records a single probe outcome.
func RecordStreamProbe(valid bool) {
	StreamProbes.WithLabelValues(resultLabel(valid)).Inc()
}

// RecordValidation records the final outcome of a validation call.
func RecordValidation(valid bool) {
	Validations.WithLabelValues(resultLabel(valid)).Inc()
}

// RecordHealthVerdict records a health verdict.
func RecordHealthVerdict(status string) {
	HealthVerdicts.WithLabelValues(status).Inc()
}
