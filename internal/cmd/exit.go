package cmd

import (
	"fmt"
	"os"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"
)

// ExitWithCode logs the failure with foundry exit code metadata and exits.
// Pass a nil logger to fall back to plain stderr output.
func ExitWithCode(logger *logging.Logger, exitCode foundry.ExitCode, msg string, err error) {
	info, ok := foundry.GetExitCodeInfo(exitCode)
	if !ok {
		// Unknown code; the catalog should cover every constant we use.
		fmt.Fprintf(os.Stderr, "FATAL: %s: %v (exit code: %d)\n", msg, err, exitCode)
		os.Exit(int(exitCode))
	}

	if logger == nil {
		writeFatalStderr(info.Code, info.Name, info.Description, msg, err)
		os.Exit(info.Code)
	}

	fields := []zap.Field{
		zap.Int("exit_code", info.Code),
		zap.String("exit_name", info.Name),
		zap.String("exit_description", info.Description),
		zap.String("exit_category", info.Category),
	}
	if envelope, ok := err.(*errors.ErrorEnvelope); ok {
		fields = append(fields, envelopeFields(envelope)...)
		if original, ok := envelope.Original.(error); ok && original != nil {
			err = original
		}
	}
	fields = append(fields, zap.Error(err))
	logger.Error(msg, fields...)

	os.Exit(info.Code)
}

// ExitWithCodeStderr is the pre-logger variant for failures during startup.
func ExitWithCodeStderr(exitCode foundry.ExitCode, msg string, err error) {
	info, ok := foundry.GetExitCodeInfo(exitCode)
	if !ok {
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: %s: %v (exit code: %d)\n", msg, err, exitCode)
		} else {
			fmt.Fprintf(os.Stderr, "FATAL: %s (exit code: %d)\n", msg, exitCode)
		}
		os.Exit(int(exitCode))
	}

	writeFatalStderr(info.Code, info.Name, info.Description, msg, err)
	os.Exit(info.Code)
}

func envelopeFields(envelope *errors.ErrorEnvelope) []zap.Field {
	fields := []zap.Field{
		zap.String("error_code", envelope.Code),
		zap.String("error_message", envelope.Message),
		zap.String("correlation_id", envelope.CorrelationID),
		zap.String("trace_id", envelope.TraceID),
	}
	if envelope.Context != nil {
		fields = append(fields, zap.Any("error_context", envelope.Context))
	}
	return fields
}

func writeFatalStderr(code int, name, description, msg string, err error) {
	switch {
	case err == nil:
		fmt.Fprintf(os.Stderr, "FATAL: %s\n", msg)
	default:
		if envelope, ok := err.(*errors.ErrorEnvelope); ok {
			fmt.Fprintf(os.Stderr, "FATAL: %s [%s]: %v (correlation: %s)\n",
				msg, envelope.Code, envelope.Message, envelope.CorrelationID)
			if original, ok := envelope.Original.(error); ok && original != nil {
				fmt.Fprintf(os.Stderr, "Underlying error: %v\n", original)
			}
		} else {
			fmt.Fprintf(os.Stderr, "FATAL: %s: %v\n", msg, err)
		}
	}
	fmt.Fprintf(os.Stderr, "Exit Code: %d (%s) - %s\n", code, name, description)
}
