package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"duty-planner/internal/service"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Run finished with per-item failures
	ExitCommandError = 2 // Command error (bad config, database unreachable...)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// writeReport prints report and turns per-item failures into ExitFailure.
func writeReport(w io.Writer, format string, report *service.Report) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return WrapExitError(ExitCommandError, "encode report", err)
		}
	} else {
		fmt.Fprintln(w, report.String())
		for _, f := range report.Failures {
			fmt.Fprintf(w, "  failed %s %d %s: %s\n", f.Item, f.ID, f.Day, f.Error)
		}
	}
	if !report.OK() {
		return NewExitError(ExitFailure, fmt.Sprintf("%s run had %d failure(s)", report.Kind, len(report.Failures)))
	}
	return nil
}
