package metrics

import (
	"time"

	"github.com/mxprobe/mxprobe/internal/observability"
)

// Verification metrics following Prometheus conventions
var (
	ValidationsTotal   = "validations_total"
	ValidationDuration = "validation_duration_ms"
	GateWait           = "gate_wait_ms"
	CheckpointsTotal   = "checkpoints_total"
)

// RecordValidation records one finished address verification.
func RecordValidation(outcome string, kind string, elapsed time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}

	if kind == "" {
		kind = "none"
	}
	_ = observability.TelemetrySystem.Counter(
		ValidationsTotal,
		1,
		map[string]string{
			"outcome": outcome,
			"kind":    kind,
		},
	)
	_ = observability.TelemetrySystem.Histogram(
		ValidationDuration,
		elapsed,
		map[string]string{
			"outcome": outcome,
		},
	)
}

// RecordGateWait records time spent sleeping in one rate limiter scope.
func RecordGateWait(scope string, wait time.Duration) {
	if observability.TelemetrySystem == nil || wait <= 0 {
		return
	}

	_ = observability.TelemetrySystem.Histogram(
		GateWait,
		wait,
		map[string]string{
			"scope": scope,
		},
	)
}

// RecordCheckpoint records a persist attempt.
func RecordCheckpoint(success bool) {
	if observability.TelemetrySystem == nil {
		return
	}

	status := "success"
	if !success {
		status = "failure"
	}
	_ = observability.TelemetrySystem.Counter(
		CheckpointsTotal,
		1,
		map[string]string{
			"status": status,
		},
	)
}
