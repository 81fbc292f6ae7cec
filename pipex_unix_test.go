//go:build !windows

package pipex_test

import (
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/aledsdavies/pipex"
	"github.com/stretchr/testify/require"
)

// TestBeforeSpawnControlsProcessGroup confirms a BeforeSpawn hook's
// SpawnOptions.NewProcessGroup actually reaches the spawned process:
// left at its default, the child lands in a process group of its own;
// a hook that sets it false leaves the child in the caller's group.
func TestBeforeSpawnControlsProcessGroup(t *testing.T) {
	ownPgid, err := syscall.Getpgid(os.Getpid())
	require.NoError(t, err)

	h, err := pipex.Cmd("sleep", "1").Start()
	require.NoError(t, err)
	childPgid, err := syscall.Getpgid(h.Pids()[0])
	require.NoError(t, err)
	require.NotEqual(t, ownPgid, childPgid, "child should default to its own process group")
	require.NoError(t, h.Kill())

	hook := func(argv []string, opts *pipex.SpawnOptions) []string {
		opts.NewProcessGroup = false
		return argv
	}
	h2, err := pipex.Cmd("sleep", "1").BeforeSpawn(hook).Start()
	require.NoError(t, err)
	childPgid2, err := syscall.Getpgid(h2.Pids()[0])
	require.NoError(t, err)
	require.Equal(t, ownPgid, childPgid2, "hook should be able to opt the child out of its own process group")
	require.NoError(t, h2.Kill())
}

// TestKillWithGroupOptedOutStillReapsTheDirectChild covers the residual
// case where NewProcessGroup is turned off: Kill must still terminate
// the directly-spawned command in bounded time, signaling it by pid
// rather than by process group.
func TestKillWithGroupOptedOutStillReapsTheDirectChild(t *testing.T) {
	hook := func(argv []string, opts *pipex.SpawnOptions) []string {
		opts.NewProcessGroup = false
		return argv
	}
	h, err := pipex.Cmd("sleep", "30").BeforeSpawn(hook).Start()
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- h.Kill() }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Kill did not return in bounded time")
	}
}
