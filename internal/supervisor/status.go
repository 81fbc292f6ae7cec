package supervisor

import (
	"errors"
	"os/exec"
)

// classify turns the error from cmd.Wait into a Status plus an error
// that is non-nil only for failures unrelated to the child's own exit
// code (the process never having started successfully, an I/O error on
// its pipes, and similar — exec.ExitError itself is not propagated as
// err since a non-zero exit is an expected, representable outcome).
func classify(waitErr error, cmd *exec.Cmd) (Status, error) {
	if waitErr == nil {
		return Status{Code: 0}, nil
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		code := exitErr.ExitCode()
		if code == -1 {
			// Killed by a signal rather than exiting normally.
			code = 1
		}
		return Status{Code: code}, nil
	}
	return Status{}, waitErr
}
