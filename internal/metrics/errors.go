package metrics

import (
	"github.com/mxprobe/mxprobe/internal/observability"
)

// Metric names
const (
	ErrorsTotalName = "errors_total"
	PanicsTotalName = "panics_total"
)

// RecordError records a fatal error by envelope code.
func RecordError(errorCode string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			ErrorsTotalName,
			1,
			map[string]string{
				"error_code": errorCode,
			},
		)
	}
}

// RecordPanic records a recovered worker panic.
func RecordPanic() {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			PanicsTotalName,
			1,
			nil,
		)
	}
}
