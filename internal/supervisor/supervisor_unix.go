//go:build !windows

package supervisor

import (
	"os/exec"
	"syscall"
)

// configureProcessGroup places the child in its own process group, when
// requested, so that killProcessGroup can terminate it and its
// descendants without touching the parent's group.
func configureProcessGroup(cmd *exec.Cmd, newProcessGroup bool) {
	if !newProcessGroup {
		return
	}
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// killProcessGroup sends SIGKILL to the child. When grouped is true the
// child was placed in its own process group at spawn time, so the
// signal targets the whole group (reaching any descendants it spawned);
// otherwise it targets the child's pid directly, since the child shares
// its caller's group and a negative-pid signal would hit that group too.
func killProcessGroup(cmd *exec.Cmd, grouped bool) error {
	if !grouped {
		return cmd.Process.Kill()
	}
	pid := cmd.Process.Pid
	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil {
		// The group leader may already be gone; fall back to a direct
		// signal to the pid itself.
		return cmd.Process.Kill()
	}
	return nil
}
