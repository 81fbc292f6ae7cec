// Package supervisor tracks a single spawned child process end to end:
// starting it, reaping its exit status exactly once on a dedicated
// goroutine, and answering Wait/TryWait/Kill. Kill never signals a child
// already known to be reaped; the narrow remaining pid-reuse window is
// described on Kill.
//
// A single background reaper calls cmd.Wait and closes a done channel;
// every observer blocks on or polls that channel, so Go's channel-close
// happens-before guarantee gives every caller a consistent view of the
// final status without separate status/wait locks.
package supervisor

import (
	"os/exec"

	"github.com/aledsdavies/pipex/internal/invariant"
)

// Status is the raw outcome of a process exit.
type Status struct {
	// Code is the process exit code. A process killed by a signal with
	// no reportable exit code is given code 1 (exec.ExitError itself
	// reports -1 in that case).
	Code int
}

// Supervisor owns one already-spawned child. It must be constructed via
// Start, which both spawns the process and begins the single background
// reap that every other method relies on.
type Supervisor struct {
	cmd     *exec.Cmd
	done    chan struct{}
	grouped bool

	status Status
	err    error
}

// Start configures the child for process-group-based termination when
// newProcessGroup is true, spawns it, and launches the background
// reaper. The caller is expected to hold any process-wide spawn
// serialization lock across this call; Start itself does not lock.
//
// When newProcessGroup is false the child is left in its caller's
// process group, so Kill signals it directly instead of the group: a
// negative-pid kill sent to a child that was never placed in its own
// group would land on the caller's entire group instead.
func Start(cmd *exec.Cmd, newProcessGroup bool) (*Supervisor, error) {
	invariant.NotNil(cmd, "cmd")
	invariant.Precondition(cmd.Process == nil, "Start: cmd must not already be started")
	configureProcessGroup(cmd, newProcessGroup)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	invariant.Postcondition(cmd.Process != nil, "Start: cmd.Process must be set after a successful Start")
	invariant.Positive(cmd.Process.Pid, "pid")

	s := &Supervisor{cmd: cmd, done: make(chan struct{}), grouped: newProcessGroup}
	go s.reap()
	return s, nil
}

// reap runs exactly once per Supervisor, on the single goroutine Start
// launches; it is the only place s.status/s.err are written, so every
// other method can read them race-free once done is closed.
func (s *Supervisor) reap() {
	err := s.cmd.Wait()
	s.status, s.err = classify(err, s.cmd)
	invariant.Invariant(s.err != nil || s.status.Code >= 0,
		"reap: a present status must carry a non-negative exit code")
	close(s.done)
}

// Pid returns the child's process id. Valid for the lifetime of the
// Supervisor, including after exit (the number itself may since have
// been recycled by the OS; callers should not use it to signal the
// process directly — use Kill).
func (s *Supervisor) Pid() int {
	return s.cmd.Process.Pid
}

// Wait blocks until the child has exited and been reaped, returning its
// status. Safe to call from multiple goroutines concurrently; all
// observe the same result.
func (s *Supervisor) Wait() (Status, error) {
	<-s.done
	return s.status, s.err
}

// TryWait reports the child's status without blocking. ok is false
// while the child is still running.
func (s *Supervisor) TryWait() (Status, bool, error) {
	select {
	case <-s.done:
		return s.status, true, s.err
	default:
		return Status{}, false, nil
	}
}

// Kill sends the platform forced-termination primitive to the child's
// process group (or to the child alone when it was started without a
// group of its own) and then blocks until the reaper observes the exit. A
// child that has already been reaped is left alone: Kill is idempotent.
//
// Between the liveness check below and the signal reaching the kernel,
// the child could finish exiting and be reaped by the background
// reaper, freeing its pid for reuse by an unrelated process; a signal
// sent in that narrow window could land on the wrong process. This
// residual race is accepted on platforms without a no-reap peek
// primitive, which Go's standard library does not expose portably.
func (s *Supervisor) Kill() error {
	select {
	case <-s.done:
		return nil
	default:
	}
	if err := killProcessGroup(s.cmd, s.grouped); err != nil {
		return err
	}
	<-s.done
	return nil
}
