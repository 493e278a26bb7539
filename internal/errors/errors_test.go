package errors

import (
	"context"
	stderrors "errors"
	"testing"

	gferrors "github.com/fulmenhq/gofulmen/errors"
	"github.com/stretchr/testify/require"

	"github.com/mxprobe/mxprobe/internal/observability"
)

func TestWrapUsesRunID(t *testing.T) {
	ctx := observability.WithRunID(context.Background(), "run-123")
	cause := stderrors.New("permission denied")

	envelope := WrapDataProcessing(ctx, cause, "read input file")
	require.Equal(t, CodeDataProcessing, envelope.Code)
	require.Equal(t, "read input file", envelope.Message)
	require.Equal(t, "run-123", envelope.CorrelationID)
	require.Equal(t, "run-123", envelope.TraceID)
	require.Equal(t, "permission denied", envelope.Context["wrapped_error"])
	require.Equal(t, cause, envelope.Original)
}

func TestWrapWithoutRunID(t *testing.T) {
	envelope := WrapConfigInvalid(context.Background(), nil, "bad config")
	require.Equal(t, CodeConfigInvalid, envelope.Code)
	require.NotEmpty(t, envelope.CorrelationID)
	require.Nil(t, envelope.Original)
}

func TestEnsureEnvelope(t *testing.T) {
	t.Run("Nil", func(t *testing.T) {
		envelope := EnsureEnvelope(nil)
		require.Equal(t, CodeInternal, envelope.Code)
		require.Equal(t, gferrors.SeverityCritical, envelope.Severity)
	})

	t.Run("Passthrough", func(t *testing.T) {
		original := NewInvalidInputError("no file")
		require.Same(t, original, EnsureEnvelope(original))
	})

	t.Run("Plain", func(t *testing.T) {
		envelope := EnsureEnvelope(stderrors.New("boom"))
		require.Equal(t, CodeInternal, envelope.Code)
		require.Equal(t, "boom", envelope.Context["wrapped_error"])
	})
}

func TestReportWithoutLogger(t *testing.T) {
	previous := observability.CLILogger
	observability.CLILogger = nil
	t.Cleanup(func() { observability.CLILogger = previous })

	Report(NewInternalError("unexpected"))
	Report(nil)
}
