package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/l5xst/internal/diag"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Conversion written (and round trip at or above threshold)
	ExitFailure      = 1 // Round trip below threshold, or scenarios failed
	ExitCommandError = 2 // Load, parse or namespace error, invalid paths
)

// Error codes for CLI responses. Fatal conversion errors carry their diag
// code in the details.
const (
	ErrCodeGeneric     = "E001"
	ErrCodeNotFound    = "E002" // input path not found
	ErrCodeLoadFailed  = "E003" // project or ST file could not be read
	ErrCodeConfig      = "E004" // settings file invalid
	ErrCodeConvert     = "E005" // fatal conversion error
	ErrCodeWriteFailed = "E006"
	ErrCodeValidation  = "E007" // round trip below threshold
	ErrCodeStore       = "E008" // history database error
)

// ExitError carries the process exit code out of a command.
type ExitError struct {
	Code    int
	Message string
	Err     error // optional
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

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error, ExitFailure when the
// error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter writes command results as JSON or text. Verbose lines
// and conversion diagnostics go to ErrWriter so stdout stays parseable.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // defaults to Writer
	Verbose   bool
}

// CLIResponse is the JSON envelope of every command.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
	RunID  string    `json:"run_id,omitempty"` // history entry when --db is set
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	return f.SuccessWithRun(data, "")
}

// SuccessWithRun is Success for a conversion recorded in the history
// database under runID.
func (f *OutputFormatter) SuccessWithRun(data any, runID string) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
			RunID:  runID,
		})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Diagnostics reports recoverable conversion diagnostics as they are
// produced. Warnings always print in text mode; info lines need --verbose.
// JSON output carries them in the result instead.
func (f *OutputFormatter) Diagnostics(diags diag.List) {
	if f.Format == "json" {
		for _, d := range diags {
			f.VerboseLog("%s", d)
		}
		return
	}
	w := f.errWriter()
	for _, d := range diags.Sorted() {
		if d.Severity == diag.SeverityInfo && !f.Verbose {
			continue
		}
		fmt.Fprintf(w, "%s\n", d)
	}
}

// VerboseLog outputs a message to ErrWriter only if verbose mode is enabled.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.errWriter(), format+"\n", args...)
}

func (f *OutputFormatter) errWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
