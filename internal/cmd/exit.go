package cmd

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	errwrap "github.com/mxprobe/mxprobe/internal/errors"
	"github.com/mxprobe/mxprobe/internal/metrics"
	"github.com/mxprobe/mxprobe/internal/observability"
)

// ExitForError maps a command error to a semantic exit code and exits.
func ExitForError(err error) {
	envelope := errwrap.EnsureEnvelope(err)
	metrics.RecordError(envelope.Code)
	ExitWithCode(observability.CLILogger, exitCodeFor(envelope), "Command execution failed", envelope)
}

// exitCodeFor picks the foundry exit code for err.
func exitCodeFor(err error) foundry.ExitCode {
	if err == nil {
		return foundry.ExitFailure
	}

	var envelope *errors.ErrorEnvelope
	if stderrors.As(err, &envelope) && envelope != nil {
		switch envelope.Code {
		case errwrap.CodeConfigInvalid:
			return foundry.ExitConfigInvalid
		}
		if original, ok := envelope.Original.(error); ok && stderrors.Is(original, fs.ErrNotExist) {
			return foundry.ExitFileNotFound
		}
		return foundry.ExitFailure
	}

	if stderrors.Is(err, fs.ErrNotExist) {
		return foundry.ExitFileNotFound
	}
	return foundry.ExitFailure
}

// ExitWithCode exits the program with a semantic foundry exit code and logs
// the error with exit code metadata. The logger may be nil for early
// failures; the error may be nil.
func ExitWithCode(logger *logging.Logger, exitCode foundry.ExitCode, msg string, err error) {
	info, ok := foundry.GetExitCodeInfo(exitCode)
	if !ok {
		fmt.Fprintf(os.Stderr, "FATAL: %s: %v (exit code: %d)\n", msg, err, exitCode)
		os.Exit(int(exitCode))
	}

	if logger == nil {
		writeFatal(msg, err)
		fmt.Fprintf(os.Stderr, "Exit Code: %d (%s) - %s\n", info.Code, info.Name, info.Description)
		os.Exit(info.Code)
	}

	fields := []zap.Field{
		zap.Int("exit_code", info.Code),
		zap.String("exit_name", info.Name),
		zap.String("exit_category", info.Category),
	}

	var envelope *errors.ErrorEnvelope
	if stderrors.As(err, &envelope) && envelope != nil {
		fields = append(fields,
			zap.String("error_code", envelope.Code),
			zap.String("error_message", envelope.Message),
			zap.String("correlation_id", envelope.CorrelationID),
		)
		if envelope.Context != nil {
			fields = append(fields, zap.Any("error_context", envelope.Context))
		}
		if original, ok := envelope.Original.(error); ok {
			err = original
		}
	}

	fields = append(fields, zap.Error(err))
	logger.Error(msg, fields...)
	os.Exit(info.Code)
}

// ExitWithCodeStderr is a variant that writes to stderr without a logger.
// Use this for failures before logger initialization.
func ExitWithCodeStderr(exitCode foundry.ExitCode, msg string, err error) {
	ExitWithCode(nil, exitCode, msg, err)
}

func writeFatal(msg string, err error) {
	if err == nil {
		fmt.Fprintf(os.Stderr, "FATAL: %s\n", msg)
		return
	}

	var envelope *errors.ErrorEnvelope
	if stderrors.As(err, &envelope) && envelope != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %s [%s]: %s (run: %s)\n", msg, envelope.Code, envelope.Message, envelope.CorrelationID)
		if original, ok := envelope.Original.(error); ok {
			fmt.Fprintf(os.Stderr, "Underlying error: %v\n", original)
		}
		return
	}
	fmt.Fprintf(os.Stderr, "FATAL: %s: %v\n", msg, err)
}
