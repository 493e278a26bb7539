// Package errors builds gofulmen error envelopes for the conditions that are
// fatal to a run. Per-address failures never become envelopes; they are
// carried in core.CheckResult.
package errors

import (
	"context"

	"github.com/fulmenhq/gofulmen/errors"
	"go.uber.org/zap"

	"github.com/mxprobe/mxprobe/internal/metrics"
	"github.com/mxprobe/mxprobe/internal/observability"
)

// Envelope codes
const (
	CodeInvalidInput   = "INVALID_INPUT"
	CodeDataProcessing = "DATA_PROCESSING_ERROR"
	CodeConfigInvalid  = "CONFIG_INVALID"
	CodeDatabase       = "DATABASE_ERROR"
	CodeInternal       = "INTERNAL_ERROR"
)

func NewInvalidInputError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeInvalidInput, message)
}

func NewInternalError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeInternal, message)
}

func WrapInvalidInput(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return wrap(ctx, CodeInvalidInput, err, message)
}

func WrapDataProcessing(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return wrap(ctx, CodeDataProcessing, err, message)
}

func WrapConfigInvalid(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return wrap(ctx, CodeConfigInvalid, err, message)
}

func WrapDatabaseError(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return wrap(ctx, CodeDatabase, err, message)
}

func WrapInternal(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return wrap(ctx, CodeInternal, err, message)
}

func wrap(ctx context.Context, code string, err error, message string) *errors.ErrorEnvelope {
	correlationID := extractCorrelationID(ctx)
	envelope := errors.NewErrorEnvelope(code, message)
	envelope = envelope.WithCorrelationID(correlationID)
	envelope = envelope.WithTraceID(correlationID)
	if err != nil {
		envelope.Original = err
		if updated, updateErr := envelope.WithContext(map[string]interface{}{
			"wrapped_error": err.Error(),
		}); updateErr == nil {
			envelope = updated
		}
	}
	return envelope
}

// extractCorrelationID uses the run id when present, else a fresh id.
func extractCorrelationID(ctx context.Context) string {
	if id := observability.RunID(ctx); id != "" {
		return id
	}
	return errors.GenerateCorrelationID()
}

// EnsureEnvelope normalizes any error into a gofulmen ErrorEnvelope.
func EnsureEnvelope(err error) *errors.ErrorEnvelope {
	if err == nil {
		env := errors.NewErrorEnvelope(CodeInternal, "unexpected nil error")
		env, _ = env.WithSeverity(errors.SeverityCritical)
		return env
	}

	if envelope, ok := err.(*errors.ErrorEnvelope); ok && envelope != nil {
		return envelope
	}

	env := errors.NewErrorEnvelope(CodeInternal, "unexpected error")
	env, _ = env.WithContext(map[string]interface{}{
		"wrapped_error": err.Error(),
	})
	env, _ = env.WithSeverity(errors.SeverityHigh)
	env.Original = err
	return env
}

// Report logs the envelope and counts it. The logger may be nil.
func Report(envelope *errors.ErrorEnvelope) {
	if envelope == nil {
		return
	}

	metrics.RecordError(envelope.Code)

	logger := observability.CLILogger
	if logger == nil {
		return
	}

	fields := []zap.Field{
		zap.String("error_code", envelope.Code),
	}
	if envelope.CorrelationID != "" {
		fields = append(fields, zap.String("run_id", envelope.CorrelationID))
	}
	for key, value := range envelope.Context {
		fields = append(fields, zap.Any(key, value))
	}

	switch envelope.Severity {
	case errors.SeverityMedium:
		logger.Warn(envelope.Message, fields...)
	default:
		logger.Error(envelope.Message, fields...)
	}
}
