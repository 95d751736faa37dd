package shell

import (
	"errors"
	"fmt"
)

// ExitError carries the process exit code out of Shell.Run.
type ExitError struct {
	ExitCode int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("shell exited with %d", e.ExitCode)
}

func NewExitError(exitCode int) *ExitError {
	return &ExitError{ExitCode: exitCode}
}

// ExitCode extracts the exit code from an error returned by Run.
// A nil or foreign error maps to 0 and 1 respectively.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode
	}

	return 1
}
