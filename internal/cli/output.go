package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Report written
	ExitFailure      = 1 // Run failure (no sources initialized, report not written)
	ExitCommandError = 2 // Command error (bad flags, missing or invalid config)
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

// GetExitCode extracts the exit code from an error. Errors that are not an
// ExitError map to ExitFailure.
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

// Status prints one-line progress messages for people, separate from the
// structured log.
type Status struct {
	w    io.Writer
	ok   lipgloss.Style
	fail lipgloss.Style
	info lipgloss.Style
}

func NewStatus(w io.Writer) *Status {
	r := lipgloss.NewRenderer(w)
	return &Status{
		w:    w,
		ok:   r.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		fail: r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		info: r.NewStyle().Foreground(lipgloss.Color("4")),
	}
}

func (s *Status) Success(format string, args ...any) {
	s.print(s.ok.Render("✓"), format, args...)
}

func (s *Status) Fail(format string, args ...any) {
	s.print(s.fail.Render("✗"), format, args...)
}

func (s *Status) Info(format string, args ...any) {
	s.print(s.info.Render("ℹ"), format, args...)
}

func (s *Status) print(mark, format string, args ...any) {
	fmt.Fprintf(s.w, "%s %s\n", mark, fmt.Sprintf(format, args...))
}
