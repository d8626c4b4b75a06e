package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/petal-labs/anthropic-go/core"
)

// Process exit codes.
const (
	ExitOK         = 0
	ExitValidation = 1
	ExitAPI        = 2
	ExitNetwork    = 3
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }
func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode returns the code the process should exit with.
func (e *ExitError) ExitCode() int { return e.Code }

func usageErrorf(format string, args ...any) error {
	return &ExitError{Code: ExitValidation, Err: fmt.Errorf(format, args...)}
}

// ExitCode maps err to a process exit code. API errors, including those
// that exhausted their retries, exit with ExitAPI; transport failures and
// timeouts with ExitNetwork; everything else with ExitValidation.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	var apiErr *core.APIError
	switch {
	case errors.As(err, &apiErr):
		return ExitAPI
	case errors.Is(err, core.ErrTransport),
		errors.Is(err, context.DeadlineExceeded):
		return ExitNetwork
	}
	return ExitValidation
}

// Report writes err to the app's stderr and returns the exit code.
func (a *App) Report(err error) int {
	if err == nil {
		return ExitOK
	}
	fmt.Fprintln(a.stderr, "error:", err)
	return ExitCode(err)
}

// Main runs the default app and returns its exit code.
func Main() int {
	return defaultApp.Report(defaultApp.Execute())
}
